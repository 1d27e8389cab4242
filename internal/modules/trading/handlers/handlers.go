// Package handlers provides HTTP handlers for trade execution.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/papertrader/internal/domain"
	quoteshandlers "github.com/aristath/papertrader/internal/modules/quotes/handlers"
	"github.com/aristath/papertrader/internal/modules/trading"
	"github.com/aristath/papertrader/internal/session"
	"github.com/aristath/papertrader/internal/web"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// TradeExecutor places market orders
type TradeExecutor interface {
	Buy(ctx context.Context, username, symbol string, quantity int64, price decimal.Decimal) (*trading.TradeResult, error)
	Sell(ctx context.Context, username, symbol string, quantity int64, price decimal.Decimal) (*trading.TradeResult, error)
}

// BalanceReader returns a user's account for the trade page
type BalanceReader interface {
	Balance(ctx context.Context, username string) (domain.Account, error)
}

// TradingHandlers contains HTTP handlers for trading API
type TradingHandlers struct {
	engine   TradeExecutor
	balances BalanceReader
	quotes   domain.QuoteSource
	timeout  time.Duration
	resp     *web.Responder
	log      zerolog.Logger
}

// NewTradingHandlers creates a new trading handlers instance. timeout bounds
// each trade request; zero means the request context alone.
func NewTradingHandlers(
	engine TradeExecutor,
	balances BalanceReader,
	quotes domain.QuoteSource,
	timeout time.Duration,
	renderer *web.Renderer,
	log zerolog.Logger,
) *TradingHandlers {
	l := log.With().Str("handler", "trading").Logger()
	return &TradingHandlers{
		engine:   engine,
		balances: balances,
		quotes:   quotes,
		timeout:  timeout,
		resp:     web.NewResponder(renderer, l),
		log:      l,
	}
}

// TradeRequest is the body of POST /api/buy and /api/sell
type TradeRequest struct {
	Symbol   string          `json:"symbol"`
	Quantity int64           `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// HoldingResponse is the position left after a trade
type HoldingResponse struct {
	Symbol  string      `json:"symbol"`
	Shares  int64       `json:"shares"`
	AvgCost json.Number `json:"avg_cost"`
}

// TradeResponse is the body of a successful trade
type TradeResponse struct {
	Success      bool                    `json:"success"`
	Message      string                  `json:"message"`
	Transaction  web.TransactionResponse `json:"transaction"`
	Balance      json.Number             `json:"balance"`
	Holding      *HoldingResponse        `json:"holding"`
	RealizedGain *json.Number            `json:"realized_gain,omitempty"`
}

// TradePageData is what the trade page shows
type TradePageData struct {
	Balance decimal.Decimal
	Quotes  []domain.Quote
}

func readTradeRequest(r *http.Request) (TradeRequest, error) {
	var req TradeRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, fmt.Errorf("%w: invalid request body", domain.ErrValidation)
		}
		return req, nil
	}

	if err := r.ParseForm(); err != nil {
		return req, fmt.Errorf("%w: invalid form body", domain.ErrValidation)
	}
	req.Symbol = r.PostFormValue("symbol")

	qty, err := strconv.ParseInt(strings.TrimSpace(r.PostFormValue("quantity")), 10, 64)
	if err != nil {
		return req, fmt.Errorf("%w: quantity must be a whole number", domain.ErrValidation)
	}
	req.Quantity = qty

	if raw := strings.TrimSpace(r.PostFormValue("price")); raw != "" {
		if req.Price, err = decimal.NewFromString(raw); err != nil {
			return req, fmt.Errorf("%w: price must be a number", domain.ErrValidation)
		}
	}
	return req, nil
}

// HandleBuy handles POST /api/buy
func (h *TradingHandlers) HandleBuy(w http.ResponseWriter, r *http.Request) {
	h.handleTrade(w, r, domain.TradeSideBuy)
}

// HandleSell handles POST /api/sell
func (h *TradingHandlers) HandleSell(w http.ResponseWriter, r *http.Request) {
	h.handleTrade(w, r, domain.TradeSideSell)
}

func (h *TradingHandlers) handleTrade(w http.ResponseWriter, r *http.Request, side domain.TradeSide) {
	username, ok := session.UserFrom(r.Context())
	if !ok {
		h.resp.JSON(w, http.StatusUnauthorized, web.ErrorBody{Error: "Authentication required", Code: "Unauthorized"})
		return
	}

	req, err := readTradeRequest(r)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	var result *trading.TradeResult
	if side.IsBuy() {
		result, err = h.engine.Buy(ctx, username, req.Symbol, req.Quantity, req.Price)
	} else {
		result, err = h.engine.Sell(ctx, username, req.Symbol, req.Quantity, req.Price)
	}
	if err != nil {
		if domain.IsExpected(err) {
			h.log.Info().
				Err(err).
				Str("username", username).
				Str("side", string(side)).
				Str("symbol", req.Symbol).
				Int64("quantity", req.Quantity).
				Msg("Trade rejected")
		}
		h.resp.Error(w, r, err)
		return
	}

	h.resp.JSON(w, http.StatusOK, ToTradeResponse(result))
}

// ToTradeResponse converts an engine result for the wire
func ToTradeResponse(result *trading.TradeResult) TradeResponse {
	resp := TradeResponse{
		Success:     true,
		Message:     result.Message,
		Transaction: web.ToTransactionResponse(result.Transaction),
		Balance:     domain.Amount(result.Balance),
	}
	if result.Holding != nil {
		resp.Holding = &HoldingResponse{
			Symbol:  result.Holding.Symbol,
			Shares:  result.Holding.Shares,
			AvgCost: domain.Amount(result.Holding.AvgCost),
		}
	}
	if result.Transaction.Side.IsSell() {
		gain := domain.Amount(result.RealizedGain)
		resp.RealizedGain = &gain
	}
	return resp
}

// HandleTradePage handles GET /trade
func (h *TradingHandlers) HandleTradePage(w http.ResponseWriter, r *http.Request) {
	username, _ := session.UserFrom(r.Context())

	acc, err := h.balances.Balance(r.Context(), username)
	if err != nil {
		if web.WantsJSON(r) {
			h.resp.Error(w, r, err)
		} else {
			h.resp.PlainError(w, r, err)
		}
		return
	}

	quotes := h.quotes.All()
	if web.WantsJSON(r) {
		stocks := make([]quoteshandlers.QuoteResponse, 0, len(quotes))
		for _, q := range quotes {
			stocks = append(stocks, quoteshandlers.ToQuoteResponse(q))
		}
		h.resp.JSON(w, http.StatusOK, map[string]interface{}{
			"balance": domain.Amount(acc.Balance),
			"stocks":  stocks,
		})
		return
	}

	h.resp.HTML(w, r, http.StatusOK, "trade", web.Page{Data: TradePageData{Balance: acc.Balance, Quotes: quotes}})
}
