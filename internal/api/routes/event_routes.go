package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/joymathews/my-daily-log-app/internal/api/handlers"
	"github.com/joymathews/my-daily-log-app/internal/api/middleware"
	"github.com/joymathews/my-daily-log-app/pkg/logger"
	"github.com/joymathews/my-daily-log-app/pkg/security/auth"
)

// EventRoutes handles the setup of event-related routes
type EventRoutes struct {
	handler  *handlers.EventHandler
	verifier auth.Verifier
	limiter  auth.RateLimiter
	log      *logger.Logger
}

// NewEventRoutes creates a new EventRoutes instance
func NewEventRoutes(handler *handlers.EventHandler, verifier auth.Verifier, limiter auth.RateLimiter, log *logger.Logger) *EventRoutes {
	return &EventRoutes{
		handler:  handler,
		verifier: verifier,
		limiter:  limiter,
		log:      log,
	}
}

// RegisterRoutes registers all event-related routes. The IP-keyed limiter runs
// before authentication so unauthenticated floods never reach token
// verification; after authentication the same ceiling applies per subject.
func (r *EventRoutes) RegisterRoutes(router *gin.Engine) {
	events := router.Group("/")
	events.Use(middleware.RateLimit(r.limiter, middleware.IPKey, r.log))
	events.Use(middleware.NewAuthMiddleware(r.verifier, r.log))
	events.Use(middleware.RateLimit(r.limiter, middleware.SubjectKey, r.log))

	events.POST("/log-event", r.handler.LogEvent)
	events.GET("/view-events", r.handler.ViewEvents)
	events.GET("/view-events-by-date", r.handler.ViewEventsByDate)
	events.GET("/event-dates", r.handler.EventDates)
}
