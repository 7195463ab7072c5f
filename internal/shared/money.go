package shared

import "github.com/shopspring/decimal"

// Round2 rounds a monetary amount to 2 decimal places using round-half-up.
// Rounding happens at every computation step, never deferred, so totals are
// reproducible regardless of evaluation order.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Percent returns amount * pct / 100, rounded to 2 decimal places.
func Percent(amount decimal.Decimal, pct decimal.Decimal) decimal.Decimal {
	return Round2(amount.Mul(pct).Div(decimal.NewFromInt(100)))
}
