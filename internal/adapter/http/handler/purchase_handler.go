package handler

import (
	"context"

	"marketplace-engine/internal/adapter/http/dto"
	"marketplace-engine/internal/adapter/http/middleware"
	"marketplace-engine/internal/core/domain"
	"marketplace-engine/internal/core/ports"
	"marketplace-engine/pkg/apperror"
	"marketplace-engine/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderIdempotencyKey carries the optional client retry key of a purchase.
const HeaderIdempotencyKey = "Idempotency-Key"

// PurchaseHandler handles purchase and history endpoints.
type PurchaseHandler struct {
	purchaseSvc ports.PurchaseService
	historySvc  ports.HistoryService
}

// NewPurchaseHandler creates a new PurchaseHandler.
func NewPurchaseHandler(purchaseSvc ports.PurchaseService, historySvc ports.HistoryService) *PurchaseHandler {
	return &PurchaseHandler{purchaseSvc: purchaseSvc, historySvc: historySvc}
}

// Purchase handles POST /api/v1/purchase/:listingId.
func (h *PurchaseHandler) Purchase(c *gin.Context) {
	listingID, err := pathUUID(c, "listingId")
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, dto.BindError(err))
		return
	}
	buyerID, err := uuid.Parse(req.BuyerID)
	if err != nil {
		response.Error(c, apperror.Validation("buyerId must be a UUID"))
		return
	}
	if err := middleware.Authorize(c, buyerID); err != nil {
		response.Error(c, err)
		return
	}
	key, err := idempotencyKey(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	payCurrency, _ := domain.ParseCurrency(req.PayCurrency)

	record, err := h.purchaseSvc.Purchase(c.Request.Context(), ports.PurchaseRequest{
		ListingID:      listingID,
		BuyerID:        buyerID,
		PayCurrency:    payCurrency,
		IdempotencyKey: key,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.FromPurchaseRecord(*record))
}

// PurchaseBasket handles POST /api/v1/purchase/basket.
func (h *PurchaseHandler) PurchaseBasket(c *gin.Context) {
	var req dto.BasketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, dto.BindError(err))
		return
	}
	buyerID, err := uuid.Parse(req.BuyerID)
	if err != nil {
		response.Error(c, apperror.Validation("buyerId must be a UUID"))
		return
	}
	if err := middleware.Authorize(c, buyerID); err != nil {
		response.Error(c, err)
		return
	}
	key, err := idempotencyKey(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]ports.BasketItem, 0, len(req.Items))
	for i, it := range req.Items {
		listingID, err := uuid.Parse(it.ListingID)
		if err != nil {
			response.Error(c, apperror.ErrBasketValidationFailed(i, apperror.Validation("listingId must be a UUID")))
			return
		}
		items = append(items, ports.BasketItem{ListingID: listingID, Quantity: it.Quantity})
	}
	payCurrency, _ := domain.ParseCurrency(req.PayCurrency)

	records, err := h.purchaseSvc.PurchaseBasket(c.Request.Context(), ports.BasketRequest{
		BuyerID:        buyerID,
		Items:          items,
		PayCurrency:    payCurrency,
		IdempotencyKey: key,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.FromPurchaseRecords(records))
}

// PurchaseHistory handles GET /api/v1/purchase/history/:userId.
func (h *PurchaseHandler) PurchaseHistory(c *gin.Context) {
	h.history(c, h.historySvc.GetUserPurchaseHistory)
}

// SalesHistory handles GET /api/v1/sales/history/:userId.
func (h *PurchaseHandler) SalesHistory(c *gin.Context) {
	h.history(c, h.historySvc.GetUserSalesHistory)
}

func (h *PurchaseHandler) history(c *gin.Context, fetch func(ctx context.Context, userID uuid.UUID) ([]domain.PurchaseRecord, error)) {
	userID, err := pathUUID(c, "userId")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := middleware.Authorize(c, userID); err != nil {
		response.Error(c, err)
		return
	}

	records, err := fetch(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := dto.FromPurchaseRecords(records)
	response.OK(c, dto.PurchaseListResponse{Items: items, Total: len(items)})
}

func idempotencyKey(c *gin.Context) (string, error) {
	key := c.GetHeader(HeaderIdempotencyKey)
	if !dto.ValidIdempotencyKey(key) {
		return "", apperror.Validation("Idempotency-Key must be at most 100 characters of letters, digits, '-', '_' or '.'")
	}
	return key, nil
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperror.Validation(name + " must be a UUID")
	}
	return id, nil
}
