package handler

import (
	"marketplace-engine/internal/adapter/http/middleware"
	"marketplace-engine/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	PurchaseSvc    ports.PurchaseService
	HistorySvc     ports.HistoryService
	WalletSvc      ports.WalletService
	InventorySvc   ports.InventoryService
	RateResolver   ports.RateResolver
	TokenSvc       ports.TokenService // nil = bearer tokens not required
	RateLimitStore middleware.Limiter // nil = rate limiting disabled
	RateLimitRules map[string]middleware.RateLimitRule
	AuditSvc       ports.AuditService // nil = audit logging disabled
	HealthCheckers []ports.HealthChecker
	MaxBodySize    int64
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	maxBody := deps.MaxBodySize
	if maxBody <= 0 {
		maxBody = 1 << 20
	}

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(maxBody))

	// Audit logging (after response)
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	// Health check (deep: PostgreSQL, Redis and the broker when enabled)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	noop := func(c *gin.Context) { c.Next() }

	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return noop
		}
		rule, ok := deps.RateLimitRules[group]
		if !ok || rule.Limit <= 0 {
			return noop
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	auth := noop
	if deps.TokenSvc != nil {
		auth = middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	}

	v1 := r.Group("/api/v1")

	purchaseHandler := NewPurchaseHandler(deps.PurchaseSvc, deps.HistorySvc)
	purchase := v1.Group("/purchase", auth)
	{
		purchase.POST("/basket", rl(middleware.GroupPurchase), purchaseHandler.PurchaseBasket)
		purchase.POST("/:listingId", rl(middleware.GroupPurchase), purchaseHandler.Purchase)
		purchase.GET("/history/:userId", rl(middleware.GroupRead), purchaseHandler.PurchaseHistory)
	}

	sales := v1.Group("/sales", auth)
	{
		sales.GET("/history/:userId", rl(middleware.GroupRead), purchaseHandler.SalesHistory)
	}

	walletHandler := NewWalletHandler(deps.WalletSvc)
	wallets := v1.Group("/wallets", auth)
	{
		wallets.GET("/:userId/balance/:currency", rl(middleware.GroupRead), walletHandler.GetBalance)
	}

	listingHandler := NewListingHandler(deps.InventorySvc)
	listings := v1.Group("/listings", auth)
	{
		listings.POST("", rl(middleware.GroupPurchase), listingHandler.Create)
		listings.PUT("/:listingId/stock", rl(middleware.GroupPurchase), listingHandler.Restock)
	}

	rateHandler := NewRateHandler(deps.RateResolver)
	v1.GET("/rates", rl(middleware.GroupRead), rateHandler.GetRate)

	return r
}
