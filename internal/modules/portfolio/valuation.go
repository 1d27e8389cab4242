package portfolio

import (
	"github.com/aristath/papertrader/internal/domain"
	"github.com/shopspring/decimal"
)

// Position is one valued holding
type Position struct {
	Symbol        string
	Name          string
	Shares        int64
	AvgCost       decimal.Decimal
	CurrentPrice  decimal.Decimal
	CostBasis     decimal.Decimal
	PositionValue decimal.Decimal
	GainLoss      decimal.Decimal
	// Quoted is false when the symbol left the catalog and AvgCost stands in for the price
	Quoted bool
}

// Valuation is a portfolio marked to the current quotes
type Valuation struct {
	Balance        decimal.Decimal
	Positions      []Position
	PortfolioValue decimal.Decimal
	NetWorth       decimal.Decimal
}

// Value marks every holding to its quote, falling back to the average cost
// when the symbol is not quoted. Positions are sorted by symbol.
func Value(balance decimal.Decimal, holdings domain.Portfolio, quotes domain.QuoteSource) Valuation {
	v := Valuation{
		Balance:        balance,
		Positions:      make([]Position, 0, len(holdings)),
		PortfolioValue: decimal.Zero,
	}

	for _, symbol := range holdings.Symbols() {
		h := holdings[symbol]
		shares := decimal.NewFromInt(h.Shares)

		pos := Position{
			Symbol:       symbol,
			Shares:       h.Shares,
			AvgCost:      h.AvgCost,
			CurrentPrice: h.AvgCost,
		}
		if q, ok := quotes.Quote(symbol); ok {
			pos.Name = q.Name
			pos.CurrentPrice = q.Price
			pos.Quoted = true
		}

		pos.CostBasis = shares.Mul(h.AvgCost)
		pos.PositionValue = shares.Mul(pos.CurrentPrice)
		pos.GainLoss = pos.PositionValue.Sub(pos.CostBasis)

		v.PortfolioValue = v.PortfolioValue.Add(pos.PositionValue)
		v.Positions = append(v.Positions, pos)
	}

	v.NetWorth = balance.Add(v.PortfolioValue)
	return v
}
