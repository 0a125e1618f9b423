package handler

import (
	"ticketing-payments/internal/adapter/http/middleware"
	redisStore "ticketing-payments/internal/adapter/storage/redis"
	"ticketing-payments/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	InitiatorSvc   ports.InitiatorService
	ReconcilerSvc  ports.ReconcilerService
	WebhookSvc     ports.WebhookService
	AuthSvc        ports.AuthService
	TokenSvc       ports.TokenService
	HashSvc        ports.HashService
	PaymentRepo    ports.PaymentRepository
	APIKeyHash     string                     // Argon2id encoded; "" disables key auth
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/login", rl("auth_login"), authHandler.Login)
	}

	// Payment creation and polling are customer-facing; the webhook endpoint
	// is gateway-facing and authenticates via payload signature instead.
	paymentHandler := NewPaymentHandler(deps.InitiatorSvc, deps.ReconcilerSvc)
	webhookHandler := NewWebhookHandler(deps.WebhookSvc)
	payments := v1.Group("/payments")
	{
		payments.POST("", rl("payments"), paymentHandler.Create)
		payments.GET("/poll", rl("poll"), paymentHandler.Poll)
		payments.POST("/poll", rl("poll"), paymentHandler.Poll)
		payments.POST("/webhook", rl("webhook"), webhookHandler.HandleNotification)
	}

	// --- Operator routes (JWT or API key) ---
	operatorAuth := middleware.OperatorAuth(deps.TokenSvc, deps.HashSvc, deps.APIKeyHash, deps.Logger)
	adminHandler := NewAdminHandler(deps.ReconcilerSvc, deps.PaymentRepo)
	admin := v1.Group("/admin", operatorAuth)
	{
		admin.POST("/payments/verify", rl("admin"), adminHandler.VerifyPayment)
		admin.GET("/payments", rl("admin"), adminHandler.ListPayments)
		admin.GET("/stats", rl("admin"), adminHandler.GetStats)
	}

	return r
}
