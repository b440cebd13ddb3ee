package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without wrapped error",
			appErr:   New("PUR_001", "Insufficient funds", http.StatusPaymentRequired),
			expected: "[PUR_001] Insufficient funds",
		},
		{
			name:     "with wrapped error",
			appErr:   Wrap("SYS_001", "DB error", http.StatusInternalServerError, fmt.Errorf("connection refused")),
			expected: "[SYS_001] DB error: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appErr.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := Wrap("SYS_001", "wrapped", http.StatusInternalServerError, inner)

	assert.True(t, errors.Is(appErr, inner))
	assert.Nil(t, New("PUR_001", "test", http.StatusBadRequest).Unwrap())
}

func TestPurchaseErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"InsufficientFunds", ErrInsufficientFunds(), CodeInsufficientFunds, 402},
		{"OutOfStock", ErrOutOfStock(), CodeOutOfStock, 409},
		{"ListingUnavailable", ErrListingUnavailable(), CodeListingUnavailable, 409},
		{"ListingNotFound", ErrListingNotFound(), CodeListingNotFound, 404},
		{"SelfPurchase", ErrSelfPurchase(), CodeSelfPurchase, 422},
		{"ConcurrentStockConflict", ErrConcurrentStockConflict(nil), CodeConcurrentStockConflict, 409},
		{"BuyerNotFound", ErrBuyerNotFound(), CodeBuyerNotFound, 404},
		{"SellerNotFound", ErrSellerNotFound(), CodeSellerNotFound, 422},
		{"RateUnavailable", ErrRateUnavailable("EUR", "USD"), CodeRateUnavailable, 503},
		{"InvalidCurrency", ErrInvalidCurrency("XYZ"), CodeInvalidCurrency, 400},
		{"InvalidQuantity", ErrInvalidQuantity(), CodeInvalidQuantity, 400},
		{"IdempotencyKeyReused", ErrIdempotencyKeyReused(), CodeValidation, 400},
		{"Forbidden", ErrForbidden("nope"), CodeForbidden, 403},
		{"RateLimit", ErrRateLimitExceeded(), CodeRateLimitExceeded, 429},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
			assert.NotEmpty(t, tt.err.Message)
		})
	}
}

func TestBasketValidationFailed_CarriesLineReason(t *testing.T) {
	err := ErrBasketValidationFailed(2, ErrOutOfStock())

	assert.Equal(t, CodeBasketValidationFailed, err.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, err.HTTPStatus)
	assert.Equal(t, 2, err.Details["line"])
	assert.Equal(t, CodeOutOfStock, err.Details["reason_code"])

	var inner *AppError
	require.True(t, errors.As(err.Unwrap(), &inner))
	assert.Equal(t, CodeOutOfStock, inner.Code)
}

func TestHasCode(t *testing.T) {
	wrapped := fmt.Errorf("service: %w", ErrSelfPurchase())

	assert.True(t, HasCode(wrapped, CodeSelfPurchase))
	assert.False(t, HasCode(wrapped, CodeOutOfStock))
	assert.False(t, HasCode(errors.New("plain"), CodeSelfPurchase))
	assert.Equal(t, CodeSelfPurchase, CodeOf(wrapped))
	assert.Equal(t, "", CodeOf(nil))
}

func TestInternalError(t *testing.T) {
	inner := errors.New("db down")
	err := InternalError(inner)

	assert.Equal(t, CodeInternal, err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus)
	assert.ErrorIs(t, err, inner)
}
