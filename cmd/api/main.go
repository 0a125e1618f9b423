package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ticketing-payments/config"
	gatewayClient "ticketing-payments/internal/adapter/gateway"
	httpHandler "ticketing-payments/internal/adapter/http/handler"
	pgStorage "ticketing-payments/internal/adapter/storage/postgres"
	redisStorage "ticketing-payments/internal/adapter/storage/redis"
	"ticketing-payments/internal/core/ports"
	"ticketing-payments/internal/service"
	"ticketing-payments/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Ticketing Payments")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	paymentRepo := pgStorage.NewPaymentRepo(pool)
	eventRepo := pgStorage.NewEventRepo(pool)

	// Initialize Redis stores
	statusCache := redisStorage.NewStatusCache(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize core services
	encSvc, err := service.NewAESEncryptionService(cfg.AES.Key)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize encryption service")
	}
	verifier := service.NewSHA512SignatureVerifier()
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry, cfg.Auth.JWTIssuer)
	authSvc := service.NewAuthService(cfg.Auth, hashSvc, tokenSvc, log)

	// Gateway clients: live HTTP client plus the sandbox used for test-mode
	// payments. Test mode is only reachable outside release deployments.
	production := cfg.Server.IsProduction()
	gateway := gatewayClient.NewClient(cfg.Gateway, verifier, nil, log)
	sandbox := service.NewSimulatedGateway()

	// Initialize business services
	notifier := service.NewTicketNotifier(cfg.Notifier.URL, &http.Client{Timeout: cfg.Notifier.Timeout}, log)
	registrar := service.NewRegistrar(eventRepo, notifier, log)
	initiatorSvc := service.NewInitiator(paymentRepo, eventRepo, gateway, sandbox, !production, log)
	reconcilerSvc := service.NewReconciler(paymentRepo, registrar, statusCache, encSvc, gateway, sandbox, cfg.Gateway.PollTimeout, log)
	webhookSvc := service.NewWebhookService(paymentRepo, registrar, statusCache, encSvc, verifier, cfg.Gateway.IntegrationKey, production, log)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		InitiatorSvc:   initiatorSvc,
		ReconcilerSvc:  reconcilerSvc,
		WebhookSvc:     webhookSvc,
		AuthSvc:        authSvc,
		TokenSvc:       tokenSvc,
		HashSvc:        hashSvc,
		PaymentRepo:    paymentRepo,
		APIKeyHash:     cfg.Auth.APIKeyHash,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
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
