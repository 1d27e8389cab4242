package session

import (
	"encoding/json"
	"net/http"
	"strings"
)

// LoadUser attaches the session user to the context when a valid cookie is present
func (m *Manager) LoadUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if username, err := m.Read(r); err == nil {
			r = r.WithContext(WithUser(r.Context(), username))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireUser rejects requests without a valid session. Browsers are sent to
// /login, API clients get a 401 JSON body.
func (m *Manager) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, err := m.Read(r)
		if err != nil {
			if WantsJSON(r) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error": "Authentication required",
					"code":  "Unauthorized",
				})
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), username)))
	})
}

// WantsJSON reports whether the client expects a JSON response
func WantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}
