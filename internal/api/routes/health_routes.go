package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/joymathews/my-daily-log-app/internal/api/handlers"
	"github.com/joymathews/my-daily-log-app/internal/api/middleware"
	"github.com/joymathews/my-daily-log-app/pkg/logger"
	"github.com/joymathews/my-daily-log-app/pkg/security/auth"
)

// HealthRoutes handles the setup of the health check route
type HealthRoutes struct {
	handler *handlers.HealthHandler
	limiter auth.RateLimiter
	log     *logger.Logger
}

func NewHealthRoutes(handler *handlers.HealthHandler, limiter auth.RateLimiter, log *logger.Logger) *HealthRoutes {
	return &HealthRoutes{handler: handler, limiter: limiter, log: log}
}

// RegisterRoutes registers the health endpoint. The endpoint is public but
// carries its own, tighter rate ceiling since each call probes both backends.
func (r *HealthRoutes) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", middleware.RateLimit(r.limiter, middleware.IPKey, r.log), r.handler.Health)
}
