package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all quote routes (public)
func (h *QuoteHandlers) RegisterRoutes(r chi.Router) {
	r.Get("/stocks", h.HandleListStocks)
	r.Route("/stock/{symbol}", func(r chi.Router) {
		r.Get("/", h.HandleGetStock)
		r.Get("/history", h.HandleGetHistory)
	})
}
