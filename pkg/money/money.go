// Package money holds the decimal helpers shared by wallets, listings and rates.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Places is the number of fractional digits kept on balances and prices.
const Places = 2

// Round2 rounds to two decimal places, half away from zero. For the
// non-negative amounts handled here that is round-half-up.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Convert applies a conversion factor to amount and rounds the result.
func Convert(amount, rate decimal.Decimal) decimal.Decimal {
	return Round2(amount.Mul(rate))
}

// Parse reads a decimal string and rejects anything that is not strictly positive.
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("amount %q must be positive", s)
	}
	return d, nil
}
