package handler

import (
	"marketplace-engine/internal/adapter/http/dto"
	"marketplace-engine/internal/adapter/http/middleware"
	"marketplace-engine/internal/core/domain"
	"marketplace-engine/internal/core/ports"
	"marketplace-engine/pkg/apperror"
	"marketplace-engine/pkg/response"

	"github.com/gin-gonic/gin"
)

// WalletHandler handles wallet read endpoints.
type WalletHandler struct {
	walletSvc ports.WalletService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc}
}

// GetBalance handles GET /api/v1/wallets/:userId/balance/:currency.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	userID, err := pathUUID(c, "userId")
	if err != nil {
		response.Error(c, err)
		return
	}
	currency, ok := domain.ParseCurrency(c.Param("currency"))
	if !ok {
		response.Error(c, apperror.ErrInvalidCurrency(c.Param("currency")))
		return
	}
	if err := middleware.Authorize(c, userID); err != nil {
		response.Error(c, err)
		return
	}

	balance, err := h.walletSvc.GetBalance(c.Request.Context(), userID, currency)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.BalanceResponse{
		UserID:   userID.String(),
		Currency: string(currency),
		Balance:  balance.StringFixed(2),
	})
}
