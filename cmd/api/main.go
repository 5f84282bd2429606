package main

import (
	"context"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/joymathews/my-daily-log-app/internal/api/handlers"
	"github.com/joymathews/my-daily-log-app/internal/api/middleware"
	"github.com/joymathews/my-daily-log-app/internal/api/routes"
	"github.com/joymathews/my-daily-log-app/internal/domain/events"
	"github.com/joymathews/my-daily-log-app/internal/infrastructure/persistence/dynamo"
	"github.com/joymathews/my-daily-log-app/internal/infrastructure/storage"
	"github.com/joymathews/my-daily-log-app/pkg/config"
	"github.com/joymathews/my-daily-log-app/pkg/logger"
	"github.com/joymathews/my-daily-log-app/pkg/security/auth"
)

// RequestLoggerMiddleware logs all incoming HTTP requests
func RequestLoggerMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		log.Info("Request completed",
			zap.String("path", path),
			zap.String("method", method),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

func main() {
	cfg, err := config.LoadConfig("") // Empty string will make it search in default locations
	if err != nil {
		stdlog.Fatalf("Failed to load configuration: %v", err)
	}

	log := logger.NewLogger(cfg.Logging.Level)
	defer log.Sync()

	log.Info("Configuration loaded successfully",
		zap.String("mode", string(cfg.Mode())),
		zap.String("region", cfg.AWS.Region),
		zap.String("bucket", cfg.Storage.BucketName),
		zap.String("table", cfg.Table.Name))

	if cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLoggerMiddleware(log))
	router.Use(middleware.MetricsMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.CORS.AllowedOrigin},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		ExposeHeaders:    []string{"X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	ctx := context.Background()

	dynamoClient, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to create DynamoDB client", zap.Error(err))
	}
	s3Client, err := storage.NewClient(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to create S3 client", zap.Error(err))
	}

	store := storage.NewStore(s3Client, cfg.Storage.BucketName, log)

	// Bootstrap is best effort: a failure is logged and the server still
	// starts, so a half-provisioned environment stays inspectable through
	// the health endpoint instead of crash-looping.
	if err := store.EnsureBucketExists(ctx); err != nil {
		log.Error("Bucket bootstrap failed", zap.String("bucket", cfg.Storage.BucketName), zap.Error(err))
	}
	if err := dynamo.EnsureTableExists(ctx, dynamoClient, cfg.Table, log); err != nil {
		log.Error("Table bootstrap failed", zap.String("table", cfg.Table.Name), zap.Error(err))
	}

	verifier, err := auth.NewCognitoVerifier(ctx, cfg.Cognito)
	if err != nil {
		// Without the key set every request would be rejected anyway.
		log.Fatal("Failed to fetch token signing keys", zap.Error(err))
	}

	var apiLimiter, healthLimiter auth.RateLimiter
	if cfg.Redis.Host != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()

		apiLimiter = auth.NewRedisRateLimiter(redisClient, cfg.RateLimit.Window, cfg.RateLimit.APIMax)
		healthLimiter = auth.NewRedisRateLimiter(redisClient, cfg.RateLimit.Window, cfg.RateLimit.HealthMax)
	} else {
		log.Warn("REDIS_HOST not set, using in-process rate limiting")
		apiLimiter = auth.NewMemoryRateLimiter(cfg.RateLimit.Window, cfg.RateLimit.APIMax)
		healthLimiter = auth.NewMemoryRateLimiter(cfg.RateLimit.Window, cfg.RateLimit.HealthMax)
	}

	repo := events.NewRepository(dynamoClient, cfg.Table)
	links := storage.NewLinkResolver(cfg, s3Client)
	service := events.NewService(repo, store, links, log)

	eventHandler := handlers.NewEventHandler(service, log)
	healthHandler := handlers.NewHealthHandler(store, dynamo.NewHealth(dynamoClient, cfg.Table.Name), cfg)

	routes.NewEventRoutes(eventHandler, verifier, apiLimiter, log).RegisterRoutes(router)
	routes.NewHealthRoutes(healthHandler, healthLimiter, log).RegisterRoutes(router)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		log.Info(fmt.Sprintf("Server starting on port %d", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	log.Info("Shutting down server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited properly")
}
