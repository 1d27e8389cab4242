package testing

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/aristath/papertrader/internal/domain"
	"github.com/shopspring/decimal"
)

// NewQuoteFixtures returns a small set of quotes for use in tests
func NewQuoteFixtures() []domain.Quote {
	return []domain.Quote{
		{Symbol: "AAPL", Name: "Apple Inc.", Price: decimal.RequireFromString("182.45"), Change: decimal.RequireFromString("2.35")},
		{Symbol: "MSFT", Name: "Microsoft Corp.", Price: decimal.RequireFromString("380.61"), Change: decimal.RequireFromString("3.22")},
		{Symbol: "TSLA", Name: "Tesla Inc.", Price: decimal.RequireFromString("238.45"), Change: decimal.RequireFromString("5.67")},
	}
}

// StaticQuotes is a fixed QuoteSource for tests
type StaticQuotes map[string]domain.Quote

// NewStaticQuotes builds a StaticQuotes from NewQuoteFixtures
func NewStaticQuotes() StaticQuotes {
	q := make(StaticQuotes)
	for _, quote := range NewQuoteFixtures() {
		q[quote.Symbol] = quote
	}
	return q
}

// Quote returns the quote for symbol
func (s StaticQuotes) Quote(symbol string) (domain.Quote, bool) {
	q, ok := s[symbol]
	return q, ok
}

// All returns every quote sorted by symbol
func (s StaticQuotes) All() []domain.Quote {
	out := make([]domain.Quote, 0, len(s))
	for _, q := range s {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// SeedAccount creates an account with the given balance and fails the test on error
func SeedAccount(t *testing.T, store domain.AccountStore, username, balance string) domain.Account {
	t.Helper()

	acc := domain.Account{
		Username:     username,
		PasswordHash: "not-a-real-hash",
		Balance:      decimal.RequireFromString(balance),
		CreatedAt:    time.Now().UTC(),
	}
	if err := store.Create(context.Background(), acc); err != nil {
		t.Fatalf("Failed to seed account %s: %v", username, err)
	}
	return acc
}
