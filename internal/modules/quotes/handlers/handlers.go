// Package handlers provides HTTP handlers for stock quotes.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/aristath/papertrader/internal/domain"
	"github.com/aristath/papertrader/internal/modules/quotes"
	"github.com/aristath/papertrader/internal/web"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// QuoteHandlers serves the quote catalog
type QuoteHandlers struct {
	source domain.QuoteSource
	resp   *web.Responder
	log    zerolog.Logger
}

// NewQuoteHandlers creates a new quote handlers instance
func NewQuoteHandlers(source domain.QuoteSource, log zerolog.Logger) *QuoteHandlers {
	log = log.With().Str("handler", "quotes").Logger()
	return &QuoteHandlers{
		source: source,
		resp:   web.NewResponder(nil, log),
		log:    log,
	}
}

// QuoteResponse is the wire form of a quote
type QuoteResponse struct {
	Symbol string      `json:"symbol"`
	Name   string      `json:"name"`
	Price  json.Number `json:"price"`
	Change json.Number `json:"change"`
}

// ToQuoteResponse converts a quote to its wire form
func ToQuoteResponse(q domain.Quote) QuoteResponse {
	return QuoteResponse{
		Symbol: q.Symbol,
		Name:   q.Name,
		Price:  domain.Amount(q.Price),
		Change: domain.Amount(q.Change),
	}
}

// HandleListStocks returns the whole catalog
// GET /api/stocks
func (h *QuoteHandlers) HandleListStocks(w http.ResponseWriter, r *http.Request) {
	all := h.source.All()
	out := make([]QuoteResponse, 0, len(all))
	for _, q := range all {
		out = append(out, ToQuoteResponse(q))
	}
	h.resp.JSON(w, http.StatusOK, map[string]interface{}{"stocks": out})
}

// HandleGetStock returns one quote
// GET /api/stock/{symbol}
func (h *QuoteHandlers) HandleGetStock(w http.ResponseWriter, r *http.Request) {
	q, ok := h.source.Quote(chi.URLParam(r, "symbol"))
	if !ok {
		h.resp.Error(w, r, domain.ErrStockNotFound)
		return
	}
	h.resp.JSON(w, http.StatusOK, ToQuoteResponse(q))
}

// HandleGetHistory returns a simulated price series with indicators
// GET /api/stock/{symbol}/history?timeframe=5m|1w|1m
func (h *QuoteHandlers) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	q, ok := h.source.Quote(chi.URLParam(r, "symbol"))
	if !ok {
		h.resp.Error(w, r, domain.ErrStockNotFound)
		return
	}

	history := quotes.BuildHistory(q.Symbol, q.Price.InexactFloat64(), r.URL.Query().Get("timeframe"))
	h.resp.JSON(w, http.StatusOK, history)
}
