package domain

import (
	"bytes"
	"slices"
	"time"

	"marketplace-engine/pkg/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseRecord is the immutable trail entry for one completed purchase line.
type PurchaseRecord struct {
	ID              uuid.UUID       `json:"id"`
	BasketID        *uuid.UUID      `json:"basket_id,omitempty"`
	BuyerID         uuid.UUID       `json:"buyer_id"`
	SellerID        uuid.UUID       `json:"seller_id"`
	ListingID       uuid.UUID       `json:"listing_id"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	ListingCurrency Currency        `json:"listing_currency"`
	PaidAmount      decimal.Decimal `json:"paid_amount"`
	PayCurrency     Currency        `json:"pay_currency"`
	Rate            decimal.Decimal `json:"rate"`
	Provenance      RateProvenance  `json:"provenance"`
	CreatedAt       time.Time       `json:"created_at"`
}

// SellerProceeds is what the seller is credited, in the listing currency.
func (r *PurchaseRecord) SellerProceeds() decimal.Decimal {
	return money.Round2(r.UnitPrice.Mul(decimal.NewFromInt(int64(r.Quantity))))
}

// NewerFirst orders records newest first, breaking ties on id so the order is total.
func NewerFirst(a, b PurchaseRecord) int {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	}
	return -CompareUUID(a.ID, b.ID)
}

// CompareUUID orders ids bytewise, matching PostgreSQL's uuid ordering.
func CompareUUID(a, b uuid.UUID) int {
	return bytes.Compare(a[:], b[:])
}

// SortUUIDs orders ids ascending in place; lock acquisition follows this order.
func SortUUIDs(ids []uuid.UUID) {
	slices.SortFunc(ids, CompareUUID)
}
