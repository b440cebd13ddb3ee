package postgres

import (
	"context"
	"errors"
	"fmt"

	"marketplace-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UserRepo implements ports.UserRepository and ports.UserDirectory over the
// users table shared with the user service. The wallet is a jsonb column.
type UserRepo struct {
	pool Pool
}

// NewUserRepo creates a new UserRepo.
func NewUserRepo(pool Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

const userColumns = `id, username, wallet, created_at, deleted_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	u := &domain.User{}
	var raw []byte
	if err := row.Scan(&u.ID, &u.Username, &raw, &u.CreatedAt, &u.DeletedAt); err != nil {
		return nil, err
	}
	w, err := domain.UnmarshalWallet(raw)
	if err != nil {
		return nil, err
	}
	u.Wallet = w
	return u, nil
}

// GetByID fetches a user (deleted or not) without locking.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}

// GetByIDForUpdate fetches a user with pessimistic locking.
// This MUST be called within a transaction.
func (r *UserRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`

	u, err := scanUser(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, lockErr("get user for update", err)
	}
	return u, nil
}

// UpdateWallet overwrites the wallet column within a transaction.
func (r *UserRepo) UpdateWallet(ctx context.Context, tx pgx.Tx, id uuid.UUID, wallet domain.Wallet) error {
	raw, err := wallet.MarshalBalances()
	if err != nil {
		return fmt.Errorf("encode wallet: %w", err)
	}

	tag, err := tx.Exec(ctx, `UPDATE users SET wallet = $1 WHERE id = $2`, raw, id)
	if err != nil {
		return fmt.Errorf("update wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user not found: %s", id)
	}
	return nil
}

// UserExists reports whether a row exists for id, deleted or not.
func (r *UserRepo) UserExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return exists, nil
}

// IsDeleted reports whether the user has been soft-deleted. Unknown ids are not deleted.
func (r *UserRepo) IsDeleted(ctx context.Context, id uuid.UUID) (bool, error) {
	var deleted bool
	err := r.pool.QueryRow(ctx, `SELECT deleted_at IS NOT NULL FROM users WHERE id = $1`, id).Scan(&deleted)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check user deleted: %w", err)
	}
	return deleted, nil
}
