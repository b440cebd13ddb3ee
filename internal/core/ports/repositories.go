package ports

//go:generate mockgen -source=repositories.go -destination=mocks/mock_repositories.go -package=mocks

import (
	"context"

	"marketplace-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UserDirectory is the narrow contract the engine consumes from the user service.
type UserDirectory interface {
	UserExists(ctx context.Context, id uuid.UUID) (bool, error)
	IsDeleted(ctx context.Context, id uuid.UUID) (bool, error)
}

// UserRepository reads and locks user rows to mutate the embedded wallet.
// Methods accepting pgx.Tx are used inside transaction blocks for pessimistic locking.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.User, error)
	UpdateWallet(ctx context.Context, tx pgx.Tx, id uuid.UUID, wallet domain.Wallet) error
}

// ListingRepository defines persistence operations for listings.
// Soft-deleted listings are invisible to every read.
type ListingRepository interface {
	Create(ctx context.Context, listing *domain.Listing) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Listing, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Listing, error)
	UpdateStock(ctx context.Context, tx pgx.Tx, id uuid.UUID, stock int, status domain.ListingStatus) error
}

// PurchaseRepository is the append-only store of purchase records.
type PurchaseRepository interface {
	Create(ctx context.Context, tx pgx.Tx, record *domain.PurchaseRecord) error
	ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]domain.PurchaseRecord, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]domain.PurchaseRecord, error)
}

// IdempotencyRepository defines persistence for idempotency logs. Create
// claims the key at the start of a checkout transaction; Complete stores the
// outcome in the same transaction.
type IdempotencyRepository interface {
	Create(ctx context.Context, tx pgx.Tx, log *domain.IdempotencyLog) error
	Complete(ctx context.Context, tx pgx.Tx, key string, response []byte) error
	Get(ctx context.Context, key string) (*domain.IdempotencyLog, error)
}

// AuditRepository persists audit log entries.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}

// DBTransactor abstracts database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
