package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"marketplace-engine/internal/core/domain"
	"marketplace-engine/internal/core/ports"
	"marketplace-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// WalletServiceImpl implements ports.WalletService over the user record.
type WalletServiceImpl struct {
	userRepo ports.UserRepository
}

// NewWalletService creates a new WalletServiceImpl.
func NewWalletService(userRepo ports.UserRepository) *WalletServiceImpl {
	return &WalletServiceImpl{userRepo: userRepo}
}

// GetBalance is a non-locking read; a missing currency reads as zero.
func (s *WalletServiceImpl) GetBalance(ctx context.Context, userID uuid.UUID, currency domain.Currency) (decimal.Decimal, error) {
	if !currency.Valid() {
		return decimal.Zero, apperror.ErrInvalidCurrency(string(currency))
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return decimal.Zero, apperror.InternalError(fmt.Errorf("get user: %w", err))
	}
	if user == nil || user.IsDeleted() {
		return decimal.Zero, apperror.ErrUserNotFound()
	}
	return user.Wallet.Balance(currency), nil
}

// Credit adds amount to the user's currency bucket. Must run inside tx.
func (s *WalletServiceImpl) Credit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, currency domain.Currency, amount decimal.Decimal) error {
	return s.mutate(ctx, tx, userID, func(w *domain.Wallet) error {
		return w.Credit(currency, amount)
	})
}

// Debit removes amount from the user's currency bucket. Must run inside tx.
func (s *WalletServiceImpl) Debit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, currency domain.Currency, amount decimal.Decimal) error {
	return s.mutate(ctx, tx, userID, func(w *domain.Wallet) error {
		return w.Debit(currency, amount)
	})
}

func (s *WalletServiceImpl) mutate(ctx context.Context, tx pgx.Tx, userID uuid.UUID, apply func(*domain.Wallet) error) error {
	user, err := s.userRepo.GetByIDForUpdate(ctx, tx, userID)
	if err != nil {
		return storeError("lock user", err)
	}
	if user == nil {
		return apperror.ErrUserNotFound()
	}

	wallet := user.Wallet.Clone()
	if err := apply(&wallet); err != nil {
		return walletError(err)
	}

	if err := s.userRepo.UpdateWallet(ctx, tx, userID, wallet); err != nil {
		return apperror.InternalError(fmt.Errorf("update wallet: %w", err))
	}
	return nil
}

func walletError(err error) error {
	switch {
	case errors.Is(err, domain.ErrInsufficientFunds):
		return apperror.ErrInsufficientFunds()
	case errors.Is(err, domain.ErrNonPositiveAmount):
		return apperror.ErrInvalidAmount()
	case errors.Is(err, domain.ErrUnsupportedCurrency):
		return apperror.Wrap(apperror.CodeInvalidCurrency, "Unsupported currency", http.StatusBadRequest, err)
	}
	return apperror.InternalError(err)
}

// storeError maps a repository failure to an AppError, surfacing lock timeouts.
func storeError(op string, err error) error {
	if errors.Is(err, domain.ErrLockTimeout) {
		return apperror.ErrLockTimeout(err)
	}
	return apperror.InternalError(fmt.Errorf("%s: %w", op, err))
}
