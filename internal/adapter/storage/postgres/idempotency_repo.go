package postgres

import (
	"context"
	"errors"
	"fmt"

	"marketplace-engine/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// IdempotencyRepo implements ports.IdempotencyRepository.
type IdempotencyRepo struct {
	pool Pool
}

// NewIdempotencyRepo creates a new IdempotencyRepo.
func NewIdempotencyRepo(pool Pool) *IdempotencyRepo {
	return &IdempotencyRepo{pool: pool}
}

// Create claims a key inside a database transaction. The row carries no
// response yet. A concurrent claim of the same key blocks on the primary key
// until this transaction ends, then fails with domain.ErrDuplicateIdempotencyKey.
func (r *IdempotencyRepo) Create(ctx context.Context, tx pgx.Tx, log *domain.IdempotencyLog) error {
	query := `INSERT INTO idempotency_logs (key, buyer_id, request_hash, created_at)
		VALUES ($1, $2, $3, $4)`

	_, err := tx.Exec(ctx, query, log.Key, log.BuyerID, log.RequestHash, log.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("insert idempotency log: %w", domain.ErrDuplicateIdempotencyKey)
		}
		return lockErr("insert idempotency log", err)
	}
	return nil
}

// Complete stores the response of a claimed key.
func (r *IdempotencyRepo) Complete(ctx context.Context, tx pgx.Tx, key string, response []byte) error {
	query := `UPDATE idempotency_logs SET response_json = $2 WHERE key = $1`

	tag, err := tx.Exec(ctx, query, key, response)
	if err != nil {
		return fmt.Errorf("complete idempotency log: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("complete idempotency log: key %s not claimed", key)
	}
	return nil
}

// Get fetches an idempotency log by key.
func (r *IdempotencyRepo) Get(ctx context.Context, key string) (*domain.IdempotencyLog, error) {
	query := `SELECT key, buyer_id, request_hash, response_json, created_at FROM idempotency_logs WHERE key = $1`

	log := &domain.IdempotencyLog{}
	err := r.pool.QueryRow(ctx, query, key).Scan(&log.Key, &log.BuyerID, &log.RequestHash, &log.ResponseJSON, &log.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get idempotency log: %w", err)
	}
	return log, nil
}
