package ports

//go:generate mockgen -source=services.go -destination=mocks/mock_services.go -package=mocks

import (
	"context"
	"time"

	"marketplace-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// --- Infrastructure Services ---

// TokenService verifies bearer tokens issued by the user service.
type TokenService interface {
	Generate(userID uuid.UUID) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the decoded JWT claims.
type TokenClaims struct {
	UserID uuid.UUID
}

// IdempotencyCache defines Redis-backed idempotency caching.
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// EventPublisher announces committed purchases to downstream consumers.
type EventPublisher interface {
	PublishPurchases(ctx context.Context, records []domain.PurchaseRecord) error
}

// AuditService records audit log entries.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}

// --- Exchange Rates ---

// RateSource is one live exchange-rate provider.
type RateSource interface {
	Provenance() domain.RateProvenance
	FetchRate(ctx context.Context, from, to domain.Currency) (decimal.Decimal, error)
}

// RateResolver turns a currency pair into a conversion factor.
type RateResolver interface {
	Resolve(ctx context.Context, from, to domain.Currency) (*domain.RateQuote, error)
}

// --- Wallet & Inventory ---

// WalletService applies balance changes inside the caller's transaction.
type WalletService interface {
	GetBalance(ctx context.Context, userID uuid.UUID, currency domain.Currency) (decimal.Decimal, error)
	Credit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, currency domain.Currency, amount decimal.Decimal) error
	Debit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, currency domain.Currency, amount decimal.Decimal) error
}

// InventoryService owns listing stock and status.
type InventoryService interface {
	CreateListing(ctx context.Context, req CreateListingRequest) (*domain.Listing, error)
	Restock(ctx context.Context, req RestockRequest) (*domain.Listing, error)
	ReserveAndDecrement(ctx context.Context, tx pgx.Tx, listingID uuid.UUID, quantity int) (*domain.Listing, error)
}

// CreateListingRequest is the input for creating a listing.
type CreateListingRequest struct {
	OwnerID  uuid.UUID
	Title    string
	Price    decimal.Decimal
	Currency domain.Currency
	Stock    *int
}

// RestockRequest is the owner's stock edit.
type RestockRequest struct {
	OwnerID   uuid.UUID
	ListingID uuid.UUID
	Stock     int
}

// --- Purchases ---

// PurchaseService executes single-item and basket purchases.
type PurchaseService interface {
	Purchase(ctx context.Context, req PurchaseRequest) (*domain.PurchaseRecord, error)
	PurchaseBasket(ctx context.Context, req BasketRequest) ([]domain.PurchaseRecord, error)
}

// PurchaseRequest is the input for a single-item purchase.
type PurchaseRequest struct {
	ListingID      uuid.UUID
	BuyerID        uuid.UUID
	PayCurrency    domain.Currency
	IdempotencyKey string
}

// BasketItem is one basket line.
type BasketItem struct {
	ListingID uuid.UUID
	Quantity  int
}

// BasketRequest is the input for a multi-item purchase.
type BasketRequest struct {
	BuyerID        uuid.UUID
	Items          []BasketItem
	PayCurrency    domain.Currency
	IdempotencyKey string
}

// HistoryService serves read projections over purchase records.
type HistoryService interface {
	GetUserPurchaseHistory(ctx context.Context, userID uuid.UUID) ([]domain.PurchaseRecord, error)
	GetUserSalesHistory(ctx context.Context, userID uuid.UUID) ([]domain.PurchaseRecord, error)
}
