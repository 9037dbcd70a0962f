// internal/middleware/rate_limit_middleware.go
package middleware

import (
	"net/http"
	"time"

	"lms-admin-service/internal/pkg/response"
	"lms-admin-service/internal/pkg/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimit caps how often one admin may hit endpoint. Must run after Auth.
// The request is let through when Redis is unavailable.
func RateLimit(limiter *session.RateLimiter, endpoint string, max int64, window time.Duration, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		identityID, ok := GetIdentityID(c)
		if !ok || limiter == nil {
			c.Next()
			return
		}

		allowed, err := limiter.CheckAPIRateLimit(c.Request.Context(), identityID, endpoint, max, window)
		if err != nil {
			logger.Warn("rate limit check failed", zap.String("endpoint", endpoint), zap.Error(err))
			c.Next()
			return
		}
		if !allowed {
			response.Error(c, http.StatusTooManyRequests, "too many requests, slow down", nil)
			return
		}
		c.Next()
	}
}
