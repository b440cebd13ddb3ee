package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the slice of the user record the purchase engine reads: identity,
// soft-delete marker and the embedded wallet.
type User struct {
	ID        uuid.UUID  `json:"id"`
	Username  string     `json:"username"`
	Wallet    Wallet     `json:"wallet"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// IsDeleted reports whether the user has been soft-deleted.
func (u *User) IsDeleted() bool {
	return u.DeletedAt != nil
}
