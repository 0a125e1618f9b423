package middleware

import (
	"net/http"
	"strings"
	"time"

	"ticketing-payments/internal/core/ports"
	"ticketing-payments/pkg/apperror"
	"ticketing-payments/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	// HeaderAPIKey carries the shared operator key for service-to-service
	// calls that hold no JWT.
	HeaderAPIKey = "X-Api-Key"

	// CtxSubject is the context key under which authentication middleware
	// stores the verified caller identity.
	CtxSubject = "auth_subject"

	// APIKeySubject is the identity recorded for key-authenticated callers.
	APIKeySubject = "api-key"
)

// OperatorAuth authenticates the manual verification and admin endpoints.
// A Bearer JWT and the shared API key are both accepted; the verified
// identity lands in the context under CtxSubject.
func OperatorAuth(tokenSvc ports.TokenService, hashSvc ports.HashService, apiKeyHash string, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			if !strings.HasPrefix(authHeader, "Bearer ") {
				response.Error(c, apperror.ErrInvalidToken())
				c.Abort()
				return
			}
			claims, err := tokenSvc.Validate(authHeader[7:])
			if err != nil {
				response.Error(c, apperror.ErrInvalidToken())
				c.Abort()
				return
			}
			c.Set(CtxSubject, claims.Subject)
			c.Next()
			return
		}

		apiKey := c.GetHeader(HeaderAPIKey)
		if apiKey == "" || apiKeyHash == "" {
			response.Error(c, apperror.ErrInvalidToken())
			c.Abort()
			return
		}
		ok, err := hashSvc.Verify(apiKey, apiKeyHash)
		if err != nil {
			log.Error().Err(err).Msg("api key verification failed")
			response.Error(c, apperror.InternalError(err))
			c.Abort()
			return
		}
		if !ok {
			response.Error(c, apperror.ErrInvalidCredentials())
			c.Abort()
			return
		}

		c.Set(CtxSubject, APIKeySubject)
		c.Next()
	}
}

// Subject returns the authenticated caller identity, or "" when the route
// carries no authentication middleware.
func Subject(c *gin.Context) string {
	if v, exists := c.Get(CtxSubject); exists {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// RequestLogger creates a middleware that logs every HTTP request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Msg("http request")
	}
}

// Recovery creates a panic recovery middleware.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error_code": "SYS_001",
					"message":    "Internal server error",
				})
			}
		}()
		c.Next()
	}
}
