package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the public authentication routes
func (h *AccountHandlers) RegisterRoutes(r chi.Router) {
	r.Get("/signup", h.HandleSignupPage)
	r.Post("/signup", h.HandleSignup)
	r.Get("/login", h.HandleLoginPage)
	r.Post("/login", h.HandleLogin)
	r.Get("/logout", h.HandleLogout)
}
