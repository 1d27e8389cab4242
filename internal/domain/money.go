package domain

import (
	"encoding/json"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Amount renders a decimal as an exact JSON number
func Amount(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

// Cents renders a decimal as a JSON number with two fraction digits
func Cents(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

// FormatUSD renders an amount for display, e.g. "$1,824.50" or "-$3.20"
func FormatUSD(d decimal.Decimal) string {
	cur := money.GetCurrency(CurrencyCode)
	factor := decimal.New(1, int32(cur.Fraction))
	return money.New(d.Mul(factor).Round(0).IntPart(), CurrencyCode).Display()
}

// SignedUSD is FormatUSD with an explicit "+" on positive amounts
func SignedUSD(d decimal.Decimal) string {
	if d.IsPositive() {
		return "+" + FormatUSD(d)
	}
	return FormatUSD(d)
}
