package postgres

import (
	"context"
	"fmt"

	"marketplace-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PurchaseRepo implements ports.PurchaseRepository. Rows are never updated.
type PurchaseRepo struct {
	pool Pool
}

// NewPurchaseRepo creates a new PurchaseRepo.
func NewPurchaseRepo(pool Pool) *PurchaseRepo {
	return &PurchaseRepo{pool: pool}
}

const purchaseColumns = `id, basket_id, buyer_id, seller_id, listing_id, quantity, unit_price,
	listing_currency, paid_amount, pay_currency, rate, provenance, created_at`

// Create inserts a purchase record within a database transaction.
func (r *PurchaseRepo) Create(ctx context.Context, tx pgx.Tx, p *domain.PurchaseRecord) error {
	query := `INSERT INTO purchases (` + purchaseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := tx.Exec(ctx, query,
		p.ID, p.BasketID, p.BuyerID, p.SellerID, p.ListingID, p.Quantity, p.UnitPrice,
		string(p.ListingCurrency), p.PaidAmount, string(p.PayCurrency), p.Rate, string(p.Provenance), p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert purchase: %w", err)
	}
	return nil
}

// ListByBuyer returns the buyer's records, newest first.
func (r *PurchaseRepo) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]domain.PurchaseRecord, error) {
	return r.list(ctx, "buyer_id", buyerID)
}

// ListBySeller returns the seller's records, newest first.
func (r *PurchaseRepo) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]domain.PurchaseRecord, error) {
	return r.list(ctx, "seller_id", sellerID)
}

// list filters on column, which is always one of the two constants above.
func (r *PurchaseRepo) list(ctx context.Context, column string, id uuid.UUID) ([]domain.PurchaseRecord, error) {
	query := `SELECT ` + purchaseColumns + ` FROM purchases WHERE ` + column + ` = $1
		ORDER BY created_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("list purchases by %s: %w", column, err)
	}
	defer rows.Close()

	var records []domain.PurchaseRecord
	for rows.Next() {
		var p domain.PurchaseRecord
		if err := rows.Scan(
			&p.ID, &p.BasketID, &p.BuyerID, &p.SellerID, &p.ListingID, &p.Quantity, &p.UnitPrice,
			&p.ListingCurrency, &p.PaidAmount, &p.PayCurrency, &p.Rate, &p.Provenance, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		records = append(records, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purchases: %w", err)
	}
	return records, nil
}
