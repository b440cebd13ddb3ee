package handler

import (
	"marketplace-engine/internal/adapter/http/dto"
	"marketplace-engine/internal/core/domain"
	"marketplace-engine/internal/core/ports"
	"marketplace-engine/pkg/response"

	"github.com/gin-gonic/gin"
)

// RateHandler exposes the rate resolver.
type RateHandler struct {
	resolver ports.RateResolver
}

// NewRateHandler creates a new RateHandler.
func NewRateHandler(resolver ports.RateResolver) *RateHandler {
	return &RateHandler{resolver: resolver}
}

// GetRate handles GET /api/v1/rates?from=EUR&to=USD.
func (h *RateHandler) GetRate(c *gin.Context) {
	var q dto.RateQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, dto.BindError(err))
		return
	}
	from, _ := domain.ParseCurrency(q.From)
	to, _ := domain.ParseCurrency(q.To)

	quote, err := h.resolver.Resolve(c.Request.Context(), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromRateQuote(quote))
}
