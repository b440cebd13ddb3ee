package service

import (
	"context"
	"fmt"
	"slices"

	"marketplace-engine/internal/core/domain"
	"marketplace-engine/internal/core/ports"
	"marketplace-engine/pkg/apperror"

	"github.com/google/uuid"
)

// historyService implements ports.HistoryService.
type historyService struct {
	purchases ports.PurchaseRepository
}

// NewHistoryService creates a new history service.
func NewHistoryService(purchases ports.PurchaseRepository) ports.HistoryService {
	return &historyService{purchases: purchases}
}

// GetUserPurchaseHistory returns the records where userID was the buyer, newest first.
func (s *historyService) GetUserPurchaseHistory(ctx context.Context, userID uuid.UUID) ([]domain.PurchaseRecord, error) {
	records, err := s.purchases.ListByBuyer(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list purchases: %w", err))
	}
	return newestFirst(records), nil
}

// GetUserSalesHistory returns the records where userID was the seller, newest first.
func (s *historyService) GetUserSalesHistory(ctx context.Context, userID uuid.UUID) ([]domain.PurchaseRecord, error) {
	records, err := s.purchases.ListBySeller(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list sales: %w", err))
	}
	return newestFirst(records), nil
}

func newestFirst(records []domain.PurchaseRecord) []domain.PurchaseRecord {
	if records == nil {
		return []domain.PurchaseRecord{}
	}
	slices.SortStableFunc(records, domain.NewerFirst)
	return records
}
