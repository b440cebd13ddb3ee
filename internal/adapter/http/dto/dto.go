package dto

import (
	"time"

	"marketplace-engine/internal/core/domain"

	"github.com/shopspring/decimal"
)

// PurchaseRequest is the request body for a single-item purchase.
type PurchaseRequest struct {
	BuyerID     string `json:"buyerId" binding:"required,uuid"`
	PayCurrency string `json:"payCurrency" binding:"required,currency"`
}

// BasketItem is one line of a basket request. Quantity is checked by the
// purchase service so a bad line is reported with its index.
type BasketItem struct {
	ListingID string `json:"listingId" binding:"required,uuid"`
	Quantity  int    `json:"quantity"`
}

// BasketRequest is the request body for a multi-item purchase.
type BasketRequest struct {
	BuyerID     string       `json:"buyerId" binding:"required,uuid"`
	Items       []BasketItem `json:"items" binding:"required,dive"`
	PayCurrency string       `json:"payCurrency" binding:"required,currency"`
}

// CreateListingRequest is the request body for listing creation.
type CreateListingRequest struct {
	OwnerID  string          `json:"ownerId" binding:"required,uuid"`
	Title    string          `json:"title" binding:"required,min=1,max=200"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency" binding:"required,currency"`
	Stock    *int            `json:"stock,omitempty"`
}

// RestockRequest is the request body for an owner stock edit.
type RestockRequest struct {
	OwnerID string `json:"ownerId" binding:"required,uuid"`
	Stock   *int   `json:"stock" binding:"required"`
}

// RateQuery is the query string of a rate lookup.
type RateQuery struct {
	From string `form:"from" binding:"required,currency"`
	To   string `form:"to" binding:"required,currency"`
}

// PurchaseRecordResponse is one purchase line as returned to clients.
type PurchaseRecordResponse struct {
	ID              string  `json:"id"`
	BasketID        *string `json:"basketId,omitempty"`
	BuyerID         string  `json:"buyerId"`
	SellerID        string  `json:"sellerId"`
	ListingID       string  `json:"listingId"`
	Quantity        int     `json:"quantity"`
	UnitPrice       string  `json:"unitPrice"`
	ListingCurrency string  `json:"listingCurrency"`
	PaidAmount      string  `json:"paidAmount"`
	PayCurrency     string  `json:"payCurrency"`
	Rate            string  `json:"rate"`
	Provenance      string  `json:"provenance"`
	CreatedAt       string  `json:"createdAt"`
}

// ListingResponse is a listing as returned to clients.
type ListingResponse struct {
	ID        string `json:"id"`
	OwnerID   string `json:"ownerId"`
	Title     string `json:"title"`
	Price     string `json:"price"`
	Currency  string `json:"currency"`
	Stock     int    `json:"stock"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// BalanceResponse is the response for a balance query.
type BalanceResponse struct {
	UserID   string `json:"userId"`
	Currency string `json:"currency"`
	Balance  string `json:"balance"`
}

// RateResponse is the response for a rate lookup.
type RateResponse struct {
	From       string `json:"from"`
	To         string `json:"to"`
	Rate       string `json:"rate"`
	Provenance string `json:"provenance"`
	ResolvedAt string `json:"resolvedAt"`
}

// PurchaseListResponse wraps a history listing.
type PurchaseListResponse struct {
	Items []PurchaseRecordResponse `json:"items"`
	Total int                      `json:"total"`
}

// FromPurchaseRecord converts a domain record; amounts are rendered with two places.
func FromPurchaseRecord(r domain.PurchaseRecord) PurchaseRecordResponse {
	resp := PurchaseRecordResponse{
		ID:              r.ID.String(),
		BuyerID:         r.BuyerID.String(),
		SellerID:        r.SellerID.String(),
		ListingID:       r.ListingID.String(),
		Quantity:        r.Quantity,
		UnitPrice:       r.UnitPrice.StringFixed(2),
		ListingCurrency: string(r.ListingCurrency),
		PaidAmount:      r.PaidAmount.StringFixed(2),
		PayCurrency:     string(r.PayCurrency),
		Rate:            r.Rate.String(),
		Provenance:      string(r.Provenance),
		CreatedAt:       r.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if r.BasketID != nil {
		s := r.BasketID.String()
		resp.BasketID = &s
	}
	return resp
}

// FromPurchaseRecords converts a slice, keeping its order and never returning nil.
func FromPurchaseRecords(records []domain.PurchaseRecord) []PurchaseRecordResponse {
	out := make([]PurchaseRecordResponse, 0, len(records))
	for _, r := range records {
		out = append(out, FromPurchaseRecord(r))
	}
	return out
}

// FromListing converts a domain listing.
func FromListing(l *domain.Listing) ListingResponse {
	return ListingResponse{
		ID:        l.ID.String(),
		OwnerID:   l.OwnerID.String(),
		Title:     l.Title,
		Price:     l.Price.StringFixed(2),
		Currency:  string(l.Currency),
		Stock:     l.Stock,
		Status:    string(l.Status),
		CreatedAt: l.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: l.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// FromRateQuote converts a resolved quote.
func FromRateQuote(q *domain.RateQuote) RateResponse {
	return RateResponse{
		From:       string(q.From),
		To:         string(q.To),
		Rate:       q.Rate.String(),
		Provenance: string(q.Provenance),
		ResolvedAt: q.ResolvedAt.UTC().Format(time.RFC3339),
	}
}
