package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the portfolio views. The router must already
// require an authenticated session.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/dashboard", h.HandleDashboard)
	r.Get("/portfolio", h.HandlePortfolio)
	r.Get("/transactions", h.HandleTransactions)
}
