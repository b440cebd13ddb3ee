package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes exposed to API clients.
const (
	CodeValidation      = "VAL_001"
	CodeInvalidCurrency = "VAL_002"
	CodeInvalidQuantity = "VAL_003"

	CodeInsufficientFunds       = "PUR_001"
	CodeOutOfStock              = "PUR_002"
	CodeListingUnavailable      = "PUR_003"
	CodeListingNotFound         = "PUR_004"
	CodeSelfPurchase            = "PUR_005"
	CodeBasketValidationFailed  = "PUR_006"
	CodeConcurrentStockConflict = "PUR_007"
	CodeBuyerNotFound           = "PUR_008"
	CodeSellerNotFound          = "PUR_009"
	CodeUserNotFound            = "PUR_010"

	CodeRateUnavailable = "FX_001"

	CodeInvalidToken = "AUTH_001"
	CodeForbidden    = "AUTH_002"

	CodeRateLimitExceeded = "LIM_001"

	CodeInternal    = "SYS_001"
	CodeLockTimeout = "SYS_002"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string         `json:"error_code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// HasCode reports whether err (or anything it wraps) is an AppError with the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Code == code
}

// CodeOf returns the code of the outermost AppError in err's chain, or "".
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// ---- Validation (VAL) ----

// Validation returns a generic request validation error.
func Validation(message string) *AppError {
	return New(CodeValidation, message, http.StatusBadRequest)
}

func ErrInvalidAmount() *AppError {
	return New(CodeValidation, "Amount must be greater than zero", http.StatusBadRequest)
}

func ErrInvalidCurrency(code string) *AppError {
	return New(CodeInvalidCurrency, fmt.Sprintf("Unsupported currency %q", code), http.StatusBadRequest)
}

func ErrInvalidQuantity() *AppError {
	return New(CodeInvalidQuantity, "Quantity must be greater than zero", http.StatusBadRequest)
}

func ErrIdempotencyKeyReused() *AppError {
	return New(CodeValidation, "Idempotency-Key was already used for a different request", http.StatusBadRequest)
}

// ---- Purchase Business Logic (PUR) ----

func ErrInsufficientFunds() *AppError {
	return New(CodeInsufficientFunds, "Insufficient balance in wallet", http.StatusPaymentRequired)
}

func ErrOutOfStock() *AppError {
	return New(CodeOutOfStock, "Requested quantity exceeds available stock", http.StatusConflict)
}

func ErrListingUnavailable() *AppError {
	return New(CodeListingUnavailable, "Listing is sold", http.StatusConflict)
}

func ErrListingNotFound() *AppError {
	return New(CodeListingNotFound, "Listing not found", http.StatusNotFound)
}

func ErrSelfPurchase() *AppError {
	return New(CodeSelfPurchase, "Owners cannot purchase their own listing", http.StatusUnprocessableEntity)
}

// ErrBasketValidationFailed wraps the reason the given basket line was rejected.
func ErrBasketValidationFailed(line int, reason error) *AppError {
	e := Wrap(CodeBasketValidationFailed,
		fmt.Sprintf("Basket line %d failed validation", line),
		http.StatusUnprocessableEntity, reason)
	e.Details = map[string]any{"line": line}
	var inner *AppError
	if errors.As(reason, &inner) {
		e.Details["reason_code"] = inner.Code
		e.Details["reason"] = inner.Message
	}
	return e
}

func ErrConcurrentStockConflict(err error) *AppError {
	return Wrap(CodeConcurrentStockConflict, "Stock changed during checkout, retry the whole basket", http.StatusConflict, err)
}

func ErrBuyerNotFound() *AppError {
	return New(CodeBuyerNotFound, "Buyer not found", http.StatusNotFound)
}

func ErrSellerNotFound() *AppError {
	return New(CodeSellerNotFound, "Seller not found", http.StatusUnprocessableEntity)
}

func ErrUserNotFound() *AppError {
	return New(CodeUserNotFound, "User not found", http.StatusNotFound)
}

// ---- Exchange rates (FX) ----

func ErrRateUnavailable(from, to string) *AppError {
	return New(CodeRateUnavailable, fmt.Sprintf("No exchange rate available for %s->%s", from, to), http.StatusServiceUnavailable)
}

// ---- Authentication (AUTH) ----

func ErrInvalidToken() *AppError {
	return New(CodeInvalidToken, "Invalid or expired token", http.StatusUnauthorized)
}

func ErrForbidden(message string) *AppError {
	return New(CodeForbidden, message, http.StatusForbidden)
}

// ---- Rate Limiting (LIM) ----

func ErrRateLimitExceeded() *AppError {
	return New(CodeRateLimitExceeded, "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrLockTimeout(err error) *AppError {
	return Wrap(CodeLockTimeout, "Lock acquisition timeout", http.StatusServiceUnavailable, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap(CodeInternal, "Internal server error", http.StatusInternalServerError, err)
}
