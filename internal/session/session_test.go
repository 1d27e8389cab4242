package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestManager_EncodeDecode(t *testing.T) {
	m := NewManager(testSecret, time.Hour, false)

	value, err := m.Encode("alice")
	require.NoError(t, err)

	p, err := m.Decode(value)
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Username)
	assert.Equal(t, p.Issued+3600, p.Expires)
}

func TestManager_DecodeRejects(t *testing.T) {
	m := NewManager(testSecret, time.Hour, false)
	valid, err := m.Encode("alice")
	require.NoError(t, err)

	other := NewManager("another-secret-entirely-xxxxxxxx", time.Hour, false)
	forged, err := other.Encode("alice")
	require.NoError(t, err)

	// Same keys, different cookie name
	renamed, err := m.codec.Encode("other_cookie", &Payload{Username: "alice", Expires: time.Now().Add(time.Hour).Unix()})
	require.NoError(t, err)

	tampered := []byte(valid)
	mid := len(tampered) / 2
	if tampered[mid] == 'A' {
		tampered[mid] = 'B'
	} else {
		tampered[mid] = 'A'
	}

	tests := []struct {
		name  string
		value string
	}{
		{name: "empty", value: ""},
		{name: "truncated", value: valid[:len(valid)/2]},
		{name: "wrong key", value: forged},
		{name: "tampered", value: string(tampered)},
		{name: "other cookie name", value: renamed},
		{name: "garbage", value: "!!!.???"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Decode(tt.value)
			assert.ErrorIs(t, err, ErrInvalidSession)
		})
	}
}

func TestManager_ValueIsOpaque(t *testing.T) {
	m := NewManager(testSecret, time.Hour, false)
	value, err := m.Encode("alice-the-trader")
	require.NoError(t, err)

	assert.NotContains(t, value, "alice-the-trader")
}

func TestManager_SecureCookieMaxAge(t *testing.T) {
	m := NewManager(testSecret, time.Hour, false)
	// Payload claims a long life, but the codec timestamp outlives max age
	m.codec.MaxAge(1)
	value, err := m.codec.Encode(CookieName, &Payload{Username: "alice", Expires: time.Now().Add(24 * time.Hour).Unix()})
	require.NoError(t, err)

	time.Sleep(2100 * time.Millisecond)
	_, err = m.Decode(value)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestManager_Expiry(t *testing.T) {
	m := NewManager(testSecret, time.Minute, false)
	start := time.Now()
	m.now = func() time.Time { return start }

	value, err := m.Encode("alice")
	require.NoError(t, err)

	m.now = func() time.Time { return start.Add(2 * time.Minute) }
	_, err = m.Decode(value)
	assert.ErrorIs(t, err, ErrExpiredSession)
}

func TestRequireUser(t *testing.T) {
	m := NewManager(testSecret, time.Hour, false)
	handler := m.RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, ok := UserFrom(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(username))
	}))

	t.Run("html redirect", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/login", w.Header().Get("Location"))
	})

	t.Run("api 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/buy", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"error":"Authentication required","code":"Unauthorized"}`, w.Body.String())
	})

	t.Run("json accept 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		req.Header.Set("Accept", "application/json")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid cookie", func(t *testing.T) {
		rec := httptest.NewRecorder()
		require.NoError(t, m.Issue(rec, "alice"))
		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, CookieName, cookies[0].Name)
		assert.True(t, cookies[0].HttpOnly)

		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		req.AddCookie(cookies[0])
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "alice", w.Body.String())
	})
}

func TestLoadUser(t *testing.T) {
	m := NewManager(testSecret, time.Hour, false)
	var seen string
	handler := m.LoadUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserFrom(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Empty(t, seen)

	value, err := m.Encode("bob")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: value})
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "bob", seen)
}

func TestClear(t *testing.T) {
	m := NewManager(testSecret, time.Hour, true)
	w := httptest.NewRecorder()
	m.Clear(w)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
	assert.True(t, cookies[0].Secure)
}
