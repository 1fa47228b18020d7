package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotafrete/freight-marketplace/internal/coverage"
	"github.com/rotafrete/freight-marketplace/internal/matching"
	"github.com/rotafrete/freight-marketplace/pkg/common"
	"github.com/rotafrete/freight-marketplace/pkg/config"
	"github.com/rotafrete/freight-marketplace/pkg/database"
	"github.com/rotafrete/freight-marketplace/pkg/eventbus"
	"github.com/rotafrete/freight-marketplace/pkg/logger"
	"github.com/rotafrete/freight-marketplace/pkg/middleware"
	redisClient "github.com/rotafrete/freight-marketplace/pkg/redis"
	"go.uber.org/zap"
)

const (
	serviceName = "matching-service"
	version     = "1.0.0"
)

func main() {
	if os.Getenv("PORT") == "" {
		os.Setenv("PORT", "8084")
	}
	cfg, err := config.Load(serviceName)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	if err := logger.Init(cfg.Server.Environment); err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("Starting matching service",
		zap.String("service", serviceName),
		zap.String("version", version),
	)

	if cfg.Sentry.Enabled {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
			ServerName:  serviceName,
			Release:     version,
		})
		if err != nil {
			logger.Warn("Failed to initialize Sentry, continuing without error tracking", zap.Error(err))
		} else {
			defer sentry.Flush(2 * time.Second)
			logger.Info("Sentry error tracking initialized")
		}
	}

	db, err := database.NewPostgresPool(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)
	logger.Info("Connected to PostgreSQL")

	redis, err := redisClient.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redis.Close()
	logger.Info("Connected to Redis")

	matchingCfg := matching.Config{
		DefaultRadiusKm:     cfg.Matching.DefaultRadiusKm,
		ScoreNormalizationM: cfg.Matching.ScoreNormalizationM,
		ScoreFloor:          cfg.Matching.ScoreFloor,
		CandidatePageSize:   cfg.Matching.CandidatePageSize,
		UrbanServiceTypes:   cfg.Matching.UrbanServiceTypes,
		MatchesCacheTTL:     time.Duration(cfg.Matching.MatchesCacheTTLSeconds) * time.Second,
	}

	// The bus is optional: matching still works without downstream
	// notification consumers.
	var publisher matching.EventPublisher
	var bus *eventbus.Bus
	if cfg.NATS.Enabled {
		bus, err = eventbus.New(eventbus.Config{
			URL:        cfg.NATS.URL,
			Name:       serviceName,
			StreamName: cfg.NATS.StreamName,
		})
		if err != nil {
			logger.Warn("Failed to connect to NATS, continuing without events", zap.Error(err))
		} else {
			defer bus.Close()
			publisher = matching.NewBusPublisher(bus, serviceName)
		}
	}

	matchingRepo := matching.NewRepository(db)
	matchingService := matching.NewService(matchingRepo, matchingRepo, matchingRepo, publisher, redis, matchingCfg)
	matchingHandler := matching.NewHandler(matchingService)

	coverageRepo := coverage.NewRepository(db)
	coverageService := coverage.NewService(coverageRepo, cfg.Matching.DefaultRadiusKm)
	coverageHandler := coverage.NewHandler(coverageService)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.NoRoute(common.NoRouteHandler())
	router.NoMethod(common.NoMethodHandler())
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestLogger(serviceName))
	router.Use(middleware.CORS())
	router.Use(middleware.Metrics(serviceName))

	router.GET("/healthz", common.HealthCheck(serviceName, version))
	router.GET("/health/live", common.LivenessProbe(serviceName, version))

	healthChecks := map[string]func() error{
		"postgres": func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return db.Ping(ctx)
		},
		"redis": func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return redis.Client.Ping(ctx).Err()
		},
	}
	router.GET("/health/ready", common.ReadinessProbe(serviceName, version, healthChecks))

	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"service": serviceName, "version": version})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	matchingHandler.RegisterRoutes(router, cfg.JWT.Secret)
	coverageHandler.RegisterRoutes(router, cfg.JWT.Secret)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("Server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server stopped")
}
