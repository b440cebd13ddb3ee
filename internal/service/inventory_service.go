package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"marketplace-engine/internal/core/domain"
	"marketplace-engine/internal/core/ports"
	"marketplace-engine/pkg/apperror"
	"marketplace-engine/pkg/money"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const maxTitleLength = 200

// InventoryServiceImpl implements ports.InventoryService.
type InventoryServiceImpl struct {
	listingRepo ports.ListingRepository
	users       ports.UserDirectory
	transactor  ports.DBTransactor
	log         zerolog.Logger
	now         func() time.Time
}

// NewInventoryService creates a new InventoryServiceImpl.
func NewInventoryService(
	listingRepo ports.ListingRepository,
	users ports.UserDirectory,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *InventoryServiceImpl {
	return &InventoryServiceImpl{
		listingRepo: listingRepo,
		users:       users,
		transactor:  transactor,
		log:         log,
		now:         time.Now,
	}
}

// CreateListing registers a new active listing for its owner.
func (s *InventoryServiceImpl) CreateListing(ctx context.Context, req ports.CreateListingRequest) (*domain.Listing, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" || len(title) > maxTitleLength {
		return nil, apperror.Validation(fmt.Sprintf("title must be 1-%d characters", maxTitleLength))
	}
	if !req.Currency.Valid() {
		return nil, apperror.ErrInvalidCurrency(string(req.Currency))
	}
	price := money.Round2(req.Price)
	if !price.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}

	ok, err := activeUser(ctx, s.users, req.OwnerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check owner: %w", err))
	}
	if !ok {
		return nil, apperror.ErrUserNotFound()
	}

	now := s.now().UTC()
	listing := &domain.Listing{
		ID:        uuid.New(),
		OwnerID:   req.OwnerID,
		Title:     title,
		Price:     price,
		Currency:  req.Currency,
		Stock:     domain.NormalizeStock(req.Stock),
		Status:    domain.ListingStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.listingRepo.Create(ctx, listing); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create listing: %w", err))
	}

	s.log.Info().
		Str("listing_id", listing.ID.String()).
		Str("owner_id", listing.OwnerID.String()).
		Int("stock", listing.Stock).
		Msg("listing created")

	return listing, nil
}

// Restock sets the stock count of a listing owned by req.OwnerID.
func (s *InventoryServiceImpl) Restock(ctx context.Context, req ports.RestockRequest) (*domain.Listing, error) {
	if req.Stock < 0 {
		return nil, apperror.Validation("stock cannot be negative")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	listing, err := s.listingRepo.GetByIDForUpdate(ctx, dbTx, req.ListingID)
	if err != nil {
		return nil, storeError("lock listing", err)
	}
	if listing == nil {
		return nil, apperror.ErrListingNotFound()
	}
	if listing.OwnerID != req.OwnerID {
		return nil, apperror.ErrForbidden("Only the owner can restock a listing")
	}

	if err := listing.Restock(req.Stock); err != nil {
		return nil, apperror.Validation(err.Error())
	}
	if err := s.listingRepo.UpdateStock(ctx, dbTx, listing.ID, listing.Stock, listing.Status); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update stock: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("listing_id", listing.ID.String()).
		Int("stock", listing.Stock).
		Str("status", string(listing.Status)).
		Msg("listing restocked")

	return listing, nil
}

// ReserveAndDecrement locks the listing row and takes quantity units out of
// stock inside the caller's transaction. The returned snapshot carries the
// owner, price and currency as of the lock.
func (s *InventoryServiceImpl) ReserveAndDecrement(ctx context.Context, tx pgx.Tx, listingID uuid.UUID, quantity int) (*domain.Listing, error) {
	if quantity <= 0 {
		return nil, apperror.ErrInvalidQuantity()
	}

	listing, err := s.listingRepo.GetByIDForUpdate(ctx, tx, listingID)
	if err != nil {
		return nil, storeError("lock listing", err)
	}
	if listing == nil {
		return nil, apperror.ErrListingNotFound()
	}

	if err := listing.Decrement(quantity); err != nil {
		return nil, stockError(err)
	}

	if err := s.listingRepo.UpdateStock(ctx, tx, listing.ID, listing.Stock, listing.Status); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update stock: %w", err))
	}
	return listing.Snapshot(), nil
}

func stockError(err error) error {
	switch {
	case errors.Is(err, domain.ErrListingSold):
		return apperror.ErrListingUnavailable()
	case errors.Is(err, domain.ErrOutOfStock):
		return apperror.ErrOutOfStock()
	case errors.Is(err, domain.ErrNonPositiveQty):
		return apperror.ErrInvalidQuantity()
	}
	return apperror.InternalError(err)
}

// activeUser reports whether id names an existing, non-deleted user.
func activeUser(ctx context.Context, dir ports.UserDirectory, id uuid.UUID) (bool, error) {
	exists, err := dir.UserExists(ctx, id)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}
	deleted, err := dir.IsDeleted(ctx, id)
	if err != nil {
		return false, err
	}
	return !deleted, nil
}
