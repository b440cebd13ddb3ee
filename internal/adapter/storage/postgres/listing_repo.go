package postgres

import (
	"context"
	"errors"
	"fmt"

	"marketplace-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ListingRepo implements ports.ListingRepository. Soft-deleted rows are
// filtered out of every read.
type ListingRepo struct {
	pool Pool
}

// NewListingRepo creates a new ListingRepo.
func NewListingRepo(pool Pool) *ListingRepo {
	return &ListingRepo{pool: pool}
}

const listingColumns = `id, owner_id, title, price, currency, stock, status, created_at, updated_at, deleted_at`

func scanListing(row pgx.Row) (*domain.Listing, error) {
	l := &domain.Listing{}
	err := row.Scan(
		&l.ID, &l.OwnerID, &l.Title, &l.Price, &l.Currency,
		&l.Stock, &l.Status, &l.CreatedAt, &l.UpdatedAt, &l.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// Create inserts a new listing.
func (r *ListingRepo) Create(ctx context.Context, l *domain.Listing) error {
	query := `INSERT INTO listings (id, owner_id, title, price, currency, stock, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		l.ID, l.OwnerID, l.Title, l.Price, string(l.Currency),
		l.Stock, string(l.Status), l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert listing: %w", err)
	}
	return nil
}

// GetByID fetches a listing without locking.
func (r *ListingRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = $1 AND deleted_at IS NULL`

	l, err := scanListing(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get listing by id: %w", err)
	}
	return l, nil
}

// GetByIDForUpdate fetches a listing with pessimistic locking.
// This MUST be called within a transaction.
func (r *ListingRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`

	l, err := scanListing(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, lockErr("get listing for update", err)
	}
	return l, nil
}

// UpdateStock writes stock and status within a transaction.
func (r *ListingRepo) UpdateStock(ctx context.Context, tx pgx.Tx, id uuid.UUID, stock int, status domain.ListingStatus) error {
	query := `UPDATE listings SET stock = $1, status = $2, updated_at = NOW() WHERE id = $3 AND deleted_at IS NULL`

	tag, err := tx.Exec(ctx, query, stock, string(status), id)
	if err != nil {
		return fmt.Errorf("update listing stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("listing not found: %s", id)
	}
	return nil
}
