package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionPurchase       AuditAction = "PURCHASE"
	AuditActionBasketPurchase AuditAction = "BASKET_PURCHASE"
	AuditActionCreateListing  AuditAction = "CREATE_LISTING"
	AuditActionRestock        AuditAction = "RESTOCK"
)

// AuditLog records a single audited write made through the API.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	ActorID      *uuid.UUID  `json:"actor_id,omitempty"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	IPAddress    string      `json:"ip_address"`
	CreatedAt    time.Time   `json:"created_at"`
}
