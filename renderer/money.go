package renderer

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Money formats an amount in the currency, rounded to the currency minor
// unit. Unknown currencies are formatted as plain decimals.
func Money(amount decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return amount.StringFixed(2)
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}

// SignedMoney is Money with an explicit sign, and "-" for zero.
func SignedMoney(amount decimal.Decimal, currency string) string {
	switch {
	case amount.IsZero():
		return "-"
	case amount.IsPositive():
		return "+" + Money(amount, currency)
	default:
		return Money(amount, currency)
	}
}
