package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"marketplace-engine/internal/core/domain"
	"marketplace-engine/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditLog creates an audit middleware that records successful write
// operations after the handler has run.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		if status < 200 || status >= 300 {
			return
		}
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			return
		}

		action, resourceType, paramName := mapRouteToAction(c.FullPath(), c.Request.Method)
		if action == "" {
			return
		}

		var actorID *uuid.UUID
		if v, exists := c.Get(CtxActorID); exists {
			if id, ok := v.(uuid.UUID); ok {
				actorID = &id
			}
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     status,
			"request_id": c.GetString("request_id"),
		})

		var resourceID string
		if paramName != "" {
			resourceID = c.Param(paramName)
		}

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			ID:           uuid.New(),
			ActorID:      actorID,
			Action:       action,
			ResourceType: resourceType,
			ResourceID:   resourceID,
			IPAddress:    c.ClientIP(),
			Details:      string(details),
			CreatedAt:    time.Now(),
		})
	}
}

// mapRouteToAction resolves a registered route pattern to its audit action,
// resource type and the path parameter naming the resource.
func mapRouteToAction(route, method string) (domain.AuditAction, string, string) {
	switch {
	case route == "/api/v1/purchase/basket" && method == http.MethodPost:
		return domain.AuditActionBasketPurchase, "basket", ""
	case route == "/api/v1/purchase/:listingId" && method == http.MethodPost:
		return domain.AuditActionPurchase, "listing", "listingId"
	case route == "/api/v1/listings" && method == http.MethodPost:
		return domain.AuditActionCreateListing, "listing", ""
	case route == "/api/v1/listings/:listingId/stock" && method == http.MethodPut:
		return domain.AuditActionRestock, "listing", "listingId"
	}
	return "", "", ""
}
