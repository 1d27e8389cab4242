package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aristath/papertrader/internal/domain"
	"github.com/aristath/papertrader/internal/modules/portfolio"
	"github.com/aristath/papertrader/internal/modules/trading"
	"github.com/aristath/papertrader/internal/session"
	"github.com/aristath/papertrader/internal/store/memory"
	testhelpers "github.com/aristath/papertrader/internal/testing"
	"github.com/aristath/papertrader/internal/web"
	"github.com/aristath/papertrader/pkg/embedded"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	router   http.Handler
	sessions *session.Manager
	store    *memory.Store
}

func newRouter(t *testing.T, engine TradeExecutor, balances BalanceReader, sessions *session.Manager) http.Handler {
	t.Helper()
	renderer, err := web.NewRenderer(embedded.Templates())
	require.NoError(t, err)

	h := NewTradingHandlers(engine, balances, testhelpers.NewStaticQuotes(), 2*time.Second, renderer, zerolog.Nop())
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(sessions.RequireUser)
		h.RegisterRoutes(r)
		r.Route("/api", h.RegisterAPIRoutes)
	})
	return r
}

func setup(t *testing.T) *fixture {
	t.Helper()

	store := memory.New()
	quotes := testhelpers.NewStaticQuotes()
	engine := trading.NewEngine(store.Accounts(), store.Portfolios(), store.Transactions(), quotes, nil, nil, zerolog.Nop())
	svc := portfolio.NewPortfolioService(store.Accounts(), store.Portfolios(), store.Transactions(), quotes, zerolog.Nop())
	sessions := session.NewManager("test-secret-0123456789", time.Hour, false)

	testhelpers.SeedAccount(t, store.Accounts(), "alice", "10000.00")
	return &fixture{router: newRouter(t, engine, svc, sessions), sessions: sessions, store: store}
}

func (f *fixture) do(t *testing.T, method, path, contentType, body, username string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if username != "" {
		value, err := f.sessions.Encode(username)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: value})
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) trade(t *testing.T, side, body string) *httptest.ResponseRecorder {
	return f.do(t, http.MethodPost, "/api/"+side, "application/json", body, "alice")
}

func TestBuyThenSell(t *testing.T) {
	f := setup(t)

	rec := f.trade(t, "buy", `{"symbol":"AAPL","quantity":10,"price":182.45}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var buy TradeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &buy))
	assert.True(t, buy.Success)
	assert.Equal(t, "Buy order completed", buy.Message)
	assert.Equal(t, json.Number("8175.5"), buy.Balance)
	assert.Equal(t, "BUY", buy.Transaction.Side)
	assert.Equal(t, json.Number("1824.5"), buy.Transaction.Total)
	require.NotNil(t, buy.Holding)
	assert.Equal(t, int64(10), buy.Holding.Shares)
	assert.Nil(t, buy.RealizedGain)

	rec = f.trade(t, "sell", `{"symbol":"aapl","quantity":10,"price":"200"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var sell TradeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sell))
	assert.Equal(t, "Sell order completed", sell.Message)
	assert.Equal(t, json.Number("10175.5"), sell.Balance)
	assert.Nil(t, sell.Holding)
	require.NotNil(t, sell.RealizedGain)
	assert.Equal(t, json.Number("175.5"), *sell.RealizedGain)
}

func TestTradeErrors(t *testing.T) {
	tests := []struct {
		name       string
		side       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"insufficient funds", "buy", `{"symbol":"AAPL","quantity":1000,"price":182.45}`, http.StatusBadRequest, "InsufficientFunds"},
		{"insufficient shares", "sell", `{"symbol":"AAPL","quantity":1,"price":182.45}`, http.StatusBadRequest, "InsufficientShares"},
		{"unknown symbol", "buy", `{"symbol":"NOPE","quantity":1,"price":1}`, http.StatusBadRequest, "InvalidInput"},
		{"zero quantity", "buy", `{"symbol":"AAPL","quantity":0,"price":1}`, http.StatusBadRequest, "InvalidInput"},
		{"fractional quantity", "buy", `{"symbol":"AAPL","quantity":1.5,"price":1}`, http.StatusBadRequest, "InvalidInput"},
		{"negative price", "sell", `{"symbol":"AAPL","quantity":1,"price":-3}`, http.StatusBadRequest, "InvalidInput"},
		{"malformed body", "buy", `{"symbol":`, http.StatusBadRequest, "InvalidInput"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			rec := f.trade(t, tt.side, tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body web.ErrorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.wantCode, body.Code)

			acc, err := f.store.Accounts().Get(context.Background(), "alice")
			require.NoError(t, err)
			assert.Equal(t, "10000", acc.Balance.String())
		})
	}
}

func TestTrade_FormBodyAndMarketPrice(t *testing.T) {
	f := setup(t)

	form := url.Values{"symbol": {"MSFT"}, "quantity": {"2"}}
	rec := f.do(t, http.MethodPost, "/api/buy", "application/x-www-form-urlencoded", form.Encode(), "alice")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp TradeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, json.Number("380.61"), resp.Transaction.Price)
	assert.Equal(t, json.Number("9238.78"), resp.Balance)
}

func TestTrade_RequiresSession(t *testing.T) {
	f := setup(t)

	rec := f.do(t, http.MethodPost, "/api/buy", "application/json", `{"symbol":"AAPL","quantity":1}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"Unauthorized"`)
}

func TestTrade_UnknownUser(t *testing.T) {
	f := setup(t)

	rec := f.do(t, http.MethodPost, "/api/buy", "application/json", `{"symbol":"AAPL","quantity":1}`, "ghost")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"UserNotFound"`)
}

type failingEngine struct{ err error }

func (e failingEngine) Buy(context.Context, string, string, int64, decimal.Decimal) (*trading.TradeResult, error) {
	return nil, e.err
}

func (e failingEngine) Sell(context.Context, string, string, int64, decimal.Decimal) (*trading.TradeResult, error) {
	return nil, e.err
}

func TestTrade_InternalErrorHidesDetail(t *testing.T) {
	store := memory.New()
	svc := portfolio.NewPortfolioService(store.Accounts(), store.Portfolios(), store.Transactions(), testhelpers.NewStaticQuotes(), zerolog.Nop())
	sessions := session.NewManager("test-secret-0123456789", time.Hour, false)
	engine := failingEngine{err: domain.ErrStoreUnavailable}
	f := &fixture{router: newRouter(t, engine, svc, sessions), sessions: sessions, store: store}

	rec := f.trade(t, "buy", `{"symbol":"AAPL","quantity":1}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"Internal server error","code":"InternalError"}`, rec.Body.String())
}

func TestTradePage(t *testing.T) {
	f := setup(t)

	rec := f.do(t, http.MethodGet, "/trade", "", "", "alice")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "$10,000.00")
	assert.Contains(t, body, `value="AAPL"`)
	assert.Contains(t, body, "Microsoft Corp.")

	req := httptest.NewRequest(http.MethodGet, "/trade", nil)
	req.Header.Set("Accept", "application/json")
	value, err := f.sessions.Encode("alice")
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: value})
	jsonRec := httptest.NewRecorder()
	f.router.ServeHTTP(jsonRec, req)

	require.Equal(t, http.StatusOK, jsonRec.Code)
	var resp struct {
		Balance json.Number `json:"balance"`
		Stocks  []struct {
			Symbol string `json:"symbol"`
		} `json:"stocks"`
	}
	require.NoError(t, json.Unmarshal(jsonRec.Body.Bytes(), &resp))
	assert.Equal(t, json.Number("10000"), resp.Balance)
	assert.Len(t, resp.Stocks, 3)
}
