package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketplace-engine/config"
	httpHandler "marketplace-engine/internal/adapter/http/handler"
	"marketplace-engine/internal/adapter/http/middleware"
	"marketplace-engine/internal/adapter/messaging/rabbitmq"
	"marketplace-engine/internal/adapter/rates"
	pgStorage "marketplace-engine/internal/adapter/storage/postgres"
	redisStorage "marketplace-engine/internal/adapter/storage/redis"
	"marketplace-engine/internal/core/domain"
	"marketplace-engine/internal/core/ports"
	"marketplace-engine/internal/service"
	"marketplace-engine/pkg/logger"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.Load(os.Getenv(config.EnvPrefix + "_CONFIG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Marketplace Engine")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// Initialize repositories
	userRepo := pgStorage.NewUserRepo(pool)
	listingRepo := pgStorage.NewListingRepo(pool)
	purchaseRepo := pgStorage.NewPurchaseRepo(pool)
	idempotencyRepo := pgStorage.NewIdempotencyRepo(pool)
	auditRepo := pgStorage.NewAuditRepo(pool)
	transactor := pgStorage.NewTransactor(pool, cfg.Database.LockTimeout)

	// Initialize Redis stores
	idempotencyCache := redisStorage.NewIdempotencyCache(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	healthCheckers := []ports.HealthChecker{
		pgStorage.NewHealthCheck(pool),
		redisStorage.NewHealthCheck(rdb),
	}

	// Live rate sources, in priority order
	var rateSources []ports.RateSource
	httpClient := &http.Client{Timeout: 10 * time.Second}
	if cfg.Rates.Primary.Enabled() {
		rateSources = append(rateSources, rates.NewHTTPSource(domain.ProvenanceLivePrimary, cfg.Rates.Primary, httpClient))
	}
	if cfg.Rates.Secondary.Enabled() {
		rateSources = append(rateSources, rates.NewHTTPSource(domain.ProvenanceLiveSecondary, cfg.Rates.Secondary, httpClient))
	}
	rateTable := domain.DefaultRateTable()
	log.Info().
		Int("live_sources", len(rateSources)).
		Int("fallback_pairs", rateTable.Len()).
		Msg("Rate resolver configured")

	// Purchase events (optional)
	var events ports.EventPublisher
	if cfg.AMQP.Enabled {
		publisher, err := rabbitmq.Dial(cfg.AMQP, logger.Component(log, "events"))
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to RabbitMQ")
		}
		defer publisher.Close()
		events = publisher
		healthCheckers = append(healthCheckers, publisher)
	}

	// Initialize services
	rateResolver := service.NewRateResolver(rateTable, logger.Component(log, "rate-resolver"), rateSources...)
	walletSvc := service.NewWalletService(userRepo)
	inventorySvc := service.NewInventoryService(listingRepo, userRepo, transactor, logger.Component(log, "inventory"))
	historySvc := service.NewHistoryService(purchaseRepo)
	auditSvc := service.NewAuditService(auditRepo, logger.Component(log, "audit"))
	purchaseSvc := service.NewPurchaseService(service.PurchaseServiceDeps{
		Listings:         listingRepo,
		Users:            userRepo,
		Directory:        userRepo,
		Purchases:        purchaseRepo,
		Rates:            rateResolver,
		Wallets:          walletSvc,
		Inventory:        inventorySvc,
		Transactor:       transactor,
		IdempotencyRepo:  idempotencyRepo,
		IdempotencyCache: idempotencyCache,
		IdempotencyTTL:   cfg.Idempotency.TTL,
		Events:           events,
		Logger:           logger.Component(log, "purchase"),
	})

	var tokenSvc ports.TokenService
	if cfg.JWT.Enabled() {
		tokenSvc = service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	} else {
		log.Warn().Msg("JWT secret not set, bearer tokens are not required")
	}

	var limiter middleware.Limiter
	if cfg.RateLimit.Enabled {
		limiter = rateLimitStore
	}

	// Load OpenAPI spec for Swagger UI
	if specBytes, err := os.ReadFile("docs/api/openapi.yaml"); err == nil {
		httpHandler.SetSwaggerSpec(specBytes)
		log.Info().Msg("OpenAPI spec loaded for Swagger UI at /swagger")
	} else {
		log.Warn().Err(err).Msg("OpenAPI spec not found, Swagger UI will be unavailable")
	}

	gin.SetMode(ginMode(cfg.Server.Mode))

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		PurchaseSvc:    purchaseSvc,
		HistorySvc:     historySvc,
		WalletSvc:      walletSvc,
		InventorySvc:   inventorySvc,
		RateResolver:   rateResolver,
		TokenSvc:       tokenSvc,
		RateLimitStore: limiter,
		RateLimitRules: middleware.RateLimitRules(cfg.RateLimit),
		AuditSvc:       auditSvc,
		HealthCheckers: healthCheckers,
		MaxBodySize:    cfg.Server.MaxBodySize,
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

func ginMode(mode string) string {
	switch mode {
	case gin.DebugMode, gin.TestMode:
		return mode
	default:
		return gin.ReleaseMode
	}
}
