package domain

import (
	"encoding/json"
	"fmt"

	"marketplace-engine/pkg/money"

	"github.com/shopspring/decimal"
)

// Wallet is a user's multi-currency balance map. A missing currency is a
// zero balance. Balances never go negative.
type Wallet struct {
	Balances map[Currency]decimal.Decimal `json:"balances"`
}

// NewWallet returns an empty wallet.
func NewWallet() Wallet {
	return Wallet{Balances: make(map[Currency]decimal.Decimal)}
}

// Balance returns the amount held in c.
func (w Wallet) Balance(c Currency) decimal.Decimal {
	if b, ok := w.Balances[c]; ok {
		return b
	}
	return decimal.Zero
}

// Credit adds amount (rounded to 2 places) to the c bucket, creating it if absent.
func (w *Wallet) Credit(c Currency, amount decimal.Decimal) error {
	if !c.Valid() {
		return fmt.Errorf("%w: %s", ErrUnsupportedCurrency, c)
	}
	amount = money.Round2(amount)
	if !amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	if w.Balances == nil {
		w.Balances = make(map[Currency]decimal.Decimal)
	}
	w.Balances[c] = money.Round2(w.Balance(c).Add(amount))
	return nil
}

// Debit removes amount (rounded to 2 places) from the c bucket.
func (w *Wallet) Debit(c Currency, amount decimal.Decimal) error {
	if !c.Valid() {
		return fmt.Errorf("%w: %s", ErrUnsupportedCurrency, c)
	}
	amount = money.Round2(amount)
	if !amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	current := w.Balance(c)
	if amount.GreaterThan(current) {
		return ErrInsufficientFunds
	}
	w.Balances[c] = money.Round2(current.Sub(amount))
	return nil
}

// Clone returns a deep copy.
func (w Wallet) Clone() Wallet {
	out := NewWallet()
	for c, b := range w.Balances {
		out.Balances[c] = b
	}
	return out
}

// MarshalBalances encodes the balance map as a JSON object of decimal strings,
// the layout stored in users.wallet.
func (w Wallet) MarshalBalances() ([]byte, error) {
	m := make(map[Currency]string, len(w.Balances))
	for c, b := range w.Balances {
		m[c] = b.StringFixed(money.Places)
	}
	return json.Marshal(m)
}

// UnmarshalWallet decodes the users.wallet column.
func UnmarshalWallet(raw []byte) (Wallet, error) {
	w := NewWallet()
	if len(raw) == 0 {
		return w, nil
	}
	var m map[Currency]decimal.Decimal
	if err := json.Unmarshal(raw, &m); err != nil {
		return w, fmt.Errorf("decode wallet: %w", err)
	}
	for c, b := range m {
		w.Balances[c] = b
	}
	return w, nil
}
