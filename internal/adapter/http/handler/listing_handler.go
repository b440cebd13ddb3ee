package handler

import (
	"marketplace-engine/internal/adapter/http/dto"
	"marketplace-engine/internal/adapter/http/middleware"
	"marketplace-engine/internal/core/domain"
	"marketplace-engine/internal/core/ports"
	"marketplace-engine/pkg/apperror"
	"marketplace-engine/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ListingHandler handles owner-side listing endpoints.
type ListingHandler struct {
	inventorySvc ports.InventoryService
}

// NewListingHandler creates a new ListingHandler.
func NewListingHandler(inventorySvc ports.InventoryService) *ListingHandler {
	return &ListingHandler{inventorySvc: inventorySvc}
}

// Create handles POST /api/v1/listings.
func (h *ListingHandler) Create(c *gin.Context) {
	var req dto.CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, dto.BindError(err))
		return
	}
	dto.SanitizeStruct(&req)

	ownerID, err := uuid.Parse(req.OwnerID)
	if err != nil {
		response.Error(c, apperror.Validation("ownerId must be a UUID"))
		return
	}
	if err := middleware.Authorize(c, ownerID); err != nil {
		response.Error(c, err)
		return
	}
	currency, _ := domain.ParseCurrency(req.Currency)

	listing, err := h.inventorySvc.CreateListing(c.Request.Context(), ports.CreateListingRequest{
		OwnerID:  ownerID,
		Title:    req.Title,
		Price:    req.Price,
		Currency: currency,
		Stock:    req.Stock,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.FromListing(listing))
}

// Restock handles PUT /api/v1/listings/:listingId/stock.
func (h *ListingHandler) Restock(c *gin.Context) {
	listingID, err := pathUUID(c, "listingId")
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.RestockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, dto.BindError(err))
		return
	}
	ownerID, err := uuid.Parse(req.OwnerID)
	if err != nil {
		response.Error(c, apperror.Validation("ownerId must be a UUID"))
		return
	}
	if err := middleware.Authorize(c, ownerID); err != nil {
		response.Error(c, err)
		return
	}

	listing, err := h.inventorySvc.Restock(c.Request.Context(), ports.RestockRequest{
		OwnerID:   ownerID,
		ListingID: listingID,
		Stock:     *req.Stock,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromListing(listing))
}
