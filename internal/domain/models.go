// Package domain provides core domain models and types.
package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AvgCostPlaces is the number of decimal places kept for a holding's average cost
const AvgCostPlaces = 6

// CurrencyCode is the only currency the simulator trades in
const CurrencyCode = "USD"

// TradeSide represents the side of a trade (BUY or SELL)
type TradeSide string

const (
	// TradeSideBuy represents a buy trade
	TradeSideBuy TradeSide = "BUY"
	// TradeSideSell represents a sell trade
	TradeSideSell TradeSide = "SELL"
)

// TradeSideFromString converts a string to TradeSide
func TradeSideFromString(s string) (TradeSide, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY":
		return TradeSideBuy, nil
	case "SELL":
		return TradeSideSell, nil
	default:
		return "", fmt.Errorf("invalid trade side: %s", s)
	}
}

// IsBuy returns true if this is a buy trade
func (ts TradeSide) IsBuy() bool {
	return ts == TradeSideBuy
}

// IsSell returns true if this is a sell trade
func (ts TradeSide) IsSell() bool {
	return ts == TradeSideSell
}

// Account is a registered user together with its cash balance
type Account struct {
	CreatedAt    time.Time       `json:"created_at"`
	Username     string          `json:"username"`
	PasswordHash string          `json:"-"`
	Balance      decimal.Decimal `json:"balance"`
}

// Holding is a user's position in one symbol
type Holding struct {
	Symbol  string          `json:"symbol"`
	Shares  int64           `json:"shares"`
	AvgCost decimal.Decimal `json:"avg_cost"`
}

// Portfolio maps symbol to holding. Every holding has Shares > 0.
type Portfolio map[string]Holding

// Clone returns a deep copy of the portfolio
func (p Portfolio) Clone() Portfolio {
	out := make(Portfolio, len(p))
	for symbol, h := range p {
		out[symbol] = h
	}
	return out
}

// Symbols returns the held symbols in sorted order
func (p Portfolio) Symbols() []string {
	symbols := make([]string, 0, len(p))
	for symbol := range p {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

// Validate checks the shares > 0 invariant for every holding
func (p Portfolio) Validate() error {
	for symbol, h := range p {
		if h.Symbol != symbol {
			return fmt.Errorf("holding key %s does not match symbol %s", symbol, h.Symbol)
		}
		if h.Shares <= 0 {
			return fmt.Errorf("holding %s has non-positive shares: %d", symbol, h.Shares)
		}
		if h.AvgCost.IsNegative() {
			return fmt.Errorf("holding %s has negative average cost", symbol)
		}
	}
	return nil
}

// Transaction is an immutable record of an executed trade
type Transaction struct {
	Timestamp time.Time       `json:"timestamp"`
	ID        string          `json:"id"`
	Username  string          `json:"username"`
	Symbol    string          `json:"symbol"`
	Side      TradeSide       `json:"side"`
	Quantity  int64           `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Total     decimal.Decimal `json:"total"`
}

// Validate validates transaction fields before persistence
func (t Transaction) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(t.Username) == "" {
		return fmt.Errorf("username is required")
	}
	if strings.TrimSpace(t.Symbol) == "" {
		return fmt.Errorf("symbol is required")
	}
	if t.Side != TradeSideBuy && t.Side != TradeSideSell {
		return fmt.Errorf("side must be BUY or SELL, got %q", t.Side)
	}
	if t.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive, got %d", t.Quantity)
	}
	if !t.Price.IsPositive() {
		return fmt.Errorf("price must be positive, got %s", t.Price)
	}
	if !t.Total.Equal(t.Price.Mul(decimal.NewFromInt(t.Quantity))) {
		return fmt.Errorf("total %s does not equal quantity x price", t.Total)
	}
	if t.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	return nil
}

// Quote is read-only reference data for one symbol
type Quote struct {
	Symbol string          `json:"symbol" yaml:"symbol"`
	Name   string          `json:"name" yaml:"name"`
	Price  decimal.Decimal `json:"price" yaml:"price"`
	Change decimal.Decimal `json:"change" yaml:"change"`
}

// NormalizeSymbol upper-cases and trims a ticker symbol
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
