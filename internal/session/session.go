// Package session issues and verifies the signed login cookie and carries the
// authenticated username through request contexts.
package session

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/crypto/hkdf"
)

// CookieName is the name of the session cookie
const CookieName = "papertrader_session"

var (
	ErrNoSession      = errors.New("no session")
	ErrInvalidSession = errors.New("invalid session")
	ErrExpiredSession = errors.New("session expired")
)

// Payload is the signed content of the session cookie
type Payload struct {
	Username string `msgpack:"u"`
	Issued   int64  `msgpack:"i"`
	Expires  int64  `msgpack:"e"`
}

// MsgpackSerializer encodes cookie values with msgpack
type MsgpackSerializer struct{}

// Serialize encodes src
func (MsgpackSerializer) Serialize(src interface{}) ([]byte, error) {
	return msgpack.Marshal(src)
}

// Deserialize decodes src into dst
func (MsgpackSerializer) Deserialize(src []byte, dst interface{}) error {
	return msgpack.Unmarshal(src, dst)
}

// Manager signs, encrypts and verifies session cookies
type Manager struct {
	codec  *securecookie.SecureCookie
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

// NewManager creates a session manager. secure marks cookies HTTPS-only.
// The signing and encryption keys are both derived from secret.
func NewManager(secret string, ttl time.Duration, secure bool) *Manager {
	codec := securecookie.New(deriveKey(secret, "papertrader session hash", 64), deriveKey(secret, "papertrader session block", 32))
	codec.SetSerializer(MsgpackSerializer{})
	codec.MaxAge(int(ttl.Seconds()))

	return &Manager{
		codec:  codec,
		ttl:    ttl,
		secure: secure,
		now:    time.Now,
	}
}

func deriveKey(secret, info string, size int) []byte {
	key := make([]byte, size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(info)), key); err != nil {
		// hkdf only fails past 255 hash blocks
		panic(fmt.Sprintf("session key derivation: %v", err))
	}
	return key
}

// Encode returns the cookie value for username
func (m *Manager) Encode(username string) (string, error) {
	now := m.now()
	value, err := m.codec.Encode(CookieName, &Payload{
		Username: username,
		Issued:   now.Unix(),
		Expires:  now.Add(m.ttl).Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode session: %w", err)
	}
	return value, nil
}

// Decode verifies a cookie value and returns its payload
func (m *Manager) Decode(value string) (*Payload, error) {
	if value == "" {
		return nil, ErrInvalidSession
	}

	var p Payload
	if err := m.codec.Decode(CookieName, value, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if p.Username == "" {
		return nil, ErrInvalidSession
	}
	if m.now().Unix() >= p.Expires {
		return nil, ErrExpiredSession
	}

	return &p, nil
}

// Issue sets the session cookie for username
func (m *Manager) Issue(w http.ResponseWriter, username string) error {
	value, err := m.Encode(username)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear removes the session cookie
func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Read returns the username of the request's valid session
func (m *Manager) Read(r *http.Request) (string, error) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return "", ErrNoSession
	}
	p, err := m.Decode(c.Value)
	if err != nil {
		return "", err
	}
	return p.Username, nil
}

type contextKey struct{}

// WithUser returns a context carrying username
func WithUser(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, contextKey{}, username)
}

// UserFrom returns the authenticated username stored in ctx
func UserFrom(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(contextKey{}).(string)
	return username, ok && username != ""
}
