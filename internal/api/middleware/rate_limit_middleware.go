package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/joymathews/my-daily-log-app/pkg/logger"
	"github.com/joymathews/my-daily-log-app/pkg/security/auth"
)

// KeyFunc derives the rate-limit key for a request. The strategy is chosen at
// middleware construction so fairness policies can change without touching
// route code.
type KeyFunc func(c *gin.Context) string

// IPKey keys limits by client address. Used ahead of authentication.
func IPKey(c *gin.Context) string {
	return "ip:" + c.ClientIP()
}

// SubjectKey keys limits by the verified subject, falling back to the client
// address when the request is unauthenticated.
func SubjectKey(c *gin.Context) string {
	if sub, ok := GetUserSub(c); ok {
		return "sub:" + sub
	}
	return IPKey(c)
}

// RateLimit rejects requests over the limiter's ceiling with a 429. Requests
// over the limit are rejected immediately, never queued.
func RateLimit(limiter auth.RateLimiter, key KeyFunc, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, remaining, resetTime, err := limiter.Allow(c.Request.Context(), key(c))
		if err != nil {
			log.Error("Rate limiter error", zap.Error(err))
			c.String(http.StatusInternalServerError, "Internal server error")
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", resetTime.Unix()))

		if !allowed {
			c.Header("Retry-After", fmt.Sprintf("%d", int(time.Until(resetTime).Seconds())+1))
			c.String(http.StatusTooManyRequests, "Too many requests, please try again later.")
			c.Abort()
			return
		}

		c.Next()
	}
}
