// Package handlers provides HTTP handlers for the dashboard, portfolio and
// transaction history views.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/aristath/papertrader/internal/domain"
	"github.com/aristath/papertrader/internal/modules/portfolio"
	"github.com/aristath/papertrader/internal/session"
	"github.com/aristath/papertrader/internal/web"
	"github.com/rs/zerolog"
)

// Handler handles portfolio HTTP requests
type Handler struct {
	service *portfolio.PortfolioService
	resp    *web.Responder
	log     zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(service *portfolio.PortfolioService, renderer *web.Renderer, log zerolog.Logger) *Handler {
	l := log.With().Str("handler", "portfolio").Logger()
	return &Handler{
		service: service,
		resp:    web.NewResponder(renderer, l),
		log:     l,
	}
}

// PositionResponse is one valued holding on the wire
type PositionResponse struct {
	Symbol        string      `json:"symbol"`
	Name          string      `json:"name,omitempty"`
	Shares        int64       `json:"shares"`
	AvgCost       json.Number `json:"avg_cost"`
	CurrentPrice  json.Number `json:"current_price"`
	CostBasis     json.Number `json:"cost_basis"`
	PositionValue json.Number `json:"position_value"`
	GainLoss      json.Number `json:"gain_loss"`
}

// PortfolioResponse is the JSON body of GET /portfolio
type PortfolioResponse struct {
	Balance        json.Number        `json:"balance"`
	Positions      []PositionResponse `json:"positions"`
	PortfolioValue json.Number        `json:"portfolio_value"`
	NetWorth       json.Number        `json:"net_worth"`
}

// DashboardResponse is the JSON body of GET /dashboard
type DashboardResponse struct {
	Username string `json:"username"`
	PortfolioResponse
	Transactions []web.TransactionResponse `json:"transactions"`
}

// ToPortfolioResponse converts a valuation for the wire
func ToPortfolioResponse(v portfolio.Valuation) PortfolioResponse {
	positions := make([]PositionResponse, 0, len(v.Positions))
	for _, p := range v.Positions {
		positions = append(positions, PositionResponse{
			Symbol:        p.Symbol,
			Name:          p.Name,
			Shares:        p.Shares,
			AvgCost:       domain.Amount(p.AvgCost),
			CurrentPrice:  domain.Amount(p.CurrentPrice),
			CostBasis:     domain.Amount(p.CostBasis),
			PositionValue: domain.Amount(p.PositionValue),
			GainLoss:      domain.Amount(p.GainLoss),
		})
	}
	return PortfolioResponse{
		Balance:        domain.Amount(v.Balance),
		Positions:      positions,
		PortfolioValue: domain.Amount(v.PortfolioValue),
		NetWorth:       domain.Amount(v.NetWorth),
	}
}

// HandleDashboard handles GET /dashboard
func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	username, _ := session.UserFrom(r.Context())

	summary, err := h.service.Summary(r.Context(), username)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if web.WantsJSON(r) {
		h.resp.JSON(w, http.StatusOK, DashboardResponse{
			Username:          username,
			PortfolioResponse: ToPortfolioResponse(summary.Valuation),
			Transactions:      web.ToTransactionResponses(summary.Transactions),
		})
		return
	}
	h.resp.HTML(w, r, http.StatusOK, "dashboard", web.Page{Data: summary})
}

// HandlePortfolio handles GET /portfolio
func (h *Handler) HandlePortfolio(w http.ResponseWriter, r *http.Request) {
	username, _ := session.UserFrom(r.Context())

	v, err := h.service.Valuation(r.Context(), username)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if web.WantsJSON(r) {
		h.resp.JSON(w, http.StatusOK, ToPortfolioResponse(v))
		return
	}
	h.resp.HTML(w, r, http.StatusOK, "portfolio", web.Page{Data: v})
}

// HandleTransactions handles GET /transactions
func (h *Handler) HandleTransactions(w http.ResponseWriter, r *http.Request) {
	username, _ := session.UserFrom(r.Context())

	txs, err := h.service.Transactions(r.Context(), username, 0)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if web.WantsJSON(r) {
		h.resp.JSON(w, http.StatusOK, map[string]interface{}{
			"transactions": web.ToTransactionResponses(txs),
		})
		return
	}
	h.resp.HTML(w, r, http.StatusOK, "transactions", web.Page{Data: struct {
		Transactions []domain.Transaction
	}{txs}})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if web.WantsJSON(r) {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.PlainError(w, r, err)
}
