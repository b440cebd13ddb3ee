package domain

import "strings"

// Currency is an ISO-4217 style code from the marketplace allow-list.
type Currency string

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	JPY Currency = "JPY"
	CHF Currency = "CHF"
	CAD Currency = "CAD"
	AUD Currency = "AUD"
	CNY Currency = "CNY"
	SEK Currency = "SEK"
	PLN Currency = "PLN"
)

var supportedCurrencies = [...]Currency{USD, EUR, GBP, JPY, CHF, CAD, AUD, CNY, SEK, PLN}

// SupportedCurrencies returns the allow-list in a stable order.
func SupportedCurrencies() []Currency {
	out := make([]Currency, len(supportedCurrencies))
	copy(out, supportedCurrencies[:])
	return out
}

// Valid reports whether c is on the allow-list.
func (c Currency) Valid() bool {
	for _, s := range supportedCurrencies {
		if c == s {
			return true
		}
	}
	return false
}

func (c Currency) String() string { return string(c) }

// ParseCurrency normalises s and checks it against the allow-list.
func ParseCurrency(s string) (Currency, bool) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	return c, c.Valid()
}
