package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RateProvenance names the source that produced a conversion factor.
type RateProvenance string

const (
	ProvenanceIdentity      RateProvenance = "identity"
	ProvenanceLivePrimary   RateProvenance = "live-primary"
	ProvenanceLiveSecondary RateProvenance = "live-secondary"
	ProvenanceFallbackTable RateProvenance = "fallback-table"
)

// RateQuote is a transient conversion factor: amount(To) = amount(From) * Rate.
type RateQuote struct {
	From       Currency        `json:"from"`
	To         Currency        `json:"to"`
	Rate       decimal.Decimal `json:"rate"`
	Provenance RateProvenance  `json:"provenance"`
	ResolvedAt time.Time       `json:"resolved_at"`
}

// CurrencyPair is an ordered (from, to) pair.
type CurrencyPair struct {
	From Currency
	To   Currency
}

// crossRatePlaces is the precision of derived table rates.
const crossRatePlaces = 6

// usdAnchors is the value of one unit of each currency in USD.
var usdAnchors = map[Currency]string{
	USD: "1",
	EUR: "1.08",
	GBP: "1.27",
	JPY: "0.0067",
	CHF: "1.12",
	CAD: "0.74",
	AUD: "0.66",
	CNY: "0.14",
	SEK: "0.095",
	PLN: "0.25",
}

// RateTable is a read-only lookup of fallback conversion factors. The zero
// value is an empty table.
type RateTable struct {
	rates map[CurrencyPair]decimal.Decimal
}

// NewRateTable copies entries into an immutable table.
func NewRateTable(entries map[CurrencyPair]decimal.Decimal) RateTable {
	rates := make(map[CurrencyPair]decimal.Decimal, len(entries))
	for p, r := range entries {
		rates[p] = r
	}
	return RateTable{rates: rates}
}

// DefaultRateTable builds the fallback table for every ordered pair of the
// allow-list from the USD anchors.
func DefaultRateTable() RateTable {
	entries := make(map[CurrencyPair]decimal.Decimal, len(supportedCurrencies)*(len(supportedCurrencies)-1))
	for _, from := range supportedCurrencies {
		fromUSD := decimal.RequireFromString(usdAnchors[from])
		for _, to := range supportedCurrencies {
			if from == to {
				continue
			}
			toUSD := decimal.RequireFromString(usdAnchors[to])
			entries[CurrencyPair{From: from, To: to}] = fromUSD.DivRound(toUSD, crossRatePlaces)
		}
	}
	return NewRateTable(entries)
}

// Lookup returns the factor for from->to.
func (t RateTable) Lookup(from, to Currency) (decimal.Decimal, bool) {
	r, ok := t.rates[CurrencyPair{From: from, To: to}]
	return r, ok
}

// Len returns the number of pairs covered.
func (t RateTable) Len() int {
	return len(t.rates)
}
