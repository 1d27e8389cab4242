package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aristath/papertrader/internal/modules/quotes"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter() chi.Router {
	h := NewQuoteHandlers(quotes.NewDefaultCatalog(), zerolog.Nop())
	r := chi.NewRouter()
	r.Route("/api", h.RegisterRoutes)
	return r
}

func TestHandleGetStock(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "known symbol",
			path:       "/api/stock/AAPL",
			wantStatus: http.StatusOK,
			wantBody:   `{"symbol":"AAPL","name":"Apple Inc.","price":182.45,"change":2.35}`,
		},
		{
			name:       "lower case symbol",
			path:       "/api/stock/msft",
			wantStatus: http.StatusOK,
			wantBody:   `{"symbol":"MSFT","name":"Microsoft Corp.","price":380.61,"change":3.22}`,
		},
		{
			name:       "unknown symbol",
			path:       "/api/stock/UNKNOWN",
			wantStatus: http.StatusNotFound,
			wantBody:   `{"success":false,"error":"Stock not found","code":"StockNotFound"}`,
		},
	}

	router := newRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestHandleListStocks(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/stocks", nil)
	w := httptest.NewRecorder()
	newRouter().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Stocks []QuoteResponse `json:"stocks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Stocks, 8)
	assert.Equal(t, "AAPL", body.Stocks[0].Symbol)
	assert.Equal(t, "TSLA", body.Stocks[7].Symbol)
}

func TestHandleGetHistory(t *testing.T) {
	tests := []struct {
		name          string
		query         string
		wantTimeframe string
		wantPoints    int
	}{
		{name: "five minutes", query: "?timeframe=5m", wantTimeframe: "5m", wantPoints: 10},
		{name: "one week", query: "?timeframe=1w", wantTimeframe: "1w", wantPoints: 14},
		{name: "default", query: "", wantTimeframe: "1m", wantPoints: 30},
		{name: "unknown", query: "?timeframe=10y", wantTimeframe: "1m", wantPoints: 30},
	}

	router := newRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/stock/AAPL/history"+tt.query, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			require.Equal(t, http.StatusOK, w.Code)

			var body quotes.History
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "AAPL", body.Symbol)
			assert.Equal(t, tt.wantTimeframe, body.Timeframe)
			assert.Len(t, body.Data, tt.wantPoints)
			assert.Len(t, body.SMA, tt.wantPoints)
		})
	}
}

func TestHandleGetHistory_UnknownSymbol(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/stock/UNKNOWN/history", nil)
	w := httptest.NewRecorder()
	newRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"Stock not found","code":"StockNotFound"}`, w.Body.String())
}
