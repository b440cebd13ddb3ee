package domain

import "errors"

// Sentinel errors raised by entity methods. Services translate them into
// apperror codes.
var (
	ErrNonPositiveAmount   = errors.New("amount must be positive")
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrNonPositiveQty      = errors.New("quantity must be positive")
	ErrOutOfStock          = errors.New("out of stock")
	ErrListingSold         = errors.New("listing sold")
	ErrNegativeStock       = errors.New("stock cannot be negative")

	// ErrDuplicateIdempotencyKey is returned by stores when a key was already recorded.
	ErrDuplicateIdempotencyKey = errors.New("idempotency key already recorded")

	// ErrLockTimeout is returned by stores when a row lock could not be taken in time.
	ErrLockTimeout = errors.New("lock wait timed out")
)
