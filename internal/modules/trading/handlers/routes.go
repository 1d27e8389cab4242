package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the trade page. The router must already require
// an authenticated session.
func (h *TradingHandlers) RegisterRoutes(r chi.Router) {
	r.Get("/trade", h.HandleTradePage)
}

// RegisterAPIRoutes registers order placement on the /api router
func (h *TradingHandlers) RegisterAPIRoutes(r chi.Router) {
	r.Post("/buy", h.HandleBuy)
	r.Post("/sell", h.HandleSell)
}
