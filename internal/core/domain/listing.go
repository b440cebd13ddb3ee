package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ListingStatus is the sale lifecycle of a listing.
type ListingStatus string

const (
	ListingStatusActive ListingStatus = "active"
	ListingStatusSold   ListingStatus = "sold"
)

// DefaultStock is used when a listing is created without a usable stock count.
const DefaultStock = 1

// Listing is a sellable item.
type Listing struct {
	ID        uuid.UUID       `json:"id"`
	OwnerID   uuid.UUID       `json:"owner_id"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Currency  Currency        `json:"currency"`
	Stock     int             `json:"stock"`
	Status    ListingStatus   `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	DeletedAt *time.Time      `json:"deleted_at,omitempty"`
}

// NormalizeStock applies the creation default: nil or non-positive means one unit.
func NormalizeStock(stock *int) int {
	if stock == nil || *stock <= 0 {
		return DefaultStock
	}
	return *stock
}

// IsSold reports whether the listing can no longer be bought.
func (l *Listing) IsSold() bool {
	return l.Status == ListingStatusSold
}

// Decrement takes qty units out of stock. Reaching zero marks the listing sold.
// Insufficient stock is reported before the sold status, so a buyer that
// loses the race for the last unit sees ErrOutOfStock.
func (l *Listing) Decrement(qty int) error {
	if qty <= 0 {
		return ErrNonPositiveQty
	}
	if qty > l.Stock {
		return ErrOutOfStock
	}
	if l.IsSold() {
		return ErrListingSold
	}
	l.Stock -= qty
	if l.Stock == 0 {
		l.Status = ListingStatusSold
	}
	return nil
}

// Restock is the owner's administrative stock edit. It never marks a listing
// sold; a positive count re-activates a sold listing.
func (l *Listing) Restock(stock int) error {
	if stock < 0 {
		return ErrNegativeStock
	}
	l.Stock = stock
	if stock > 0 && l.IsSold() {
		l.Status = ListingStatusActive
	}
	return nil
}

// Snapshot returns a copy safe to hand out of a locked section.
func (l *Listing) Snapshot() *Listing {
	cp := *l
	return &cp
}
