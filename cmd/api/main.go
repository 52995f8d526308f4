package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"listing-portal/internal/auth"
	"listing-portal/internal/cleanup"
	"listing-portal/internal/config"
	"listing-portal/internal/database"
	"listing-portal/internal/events"
	"listing-portal/internal/gateway"
	"listing-portal/internal/handlers"
	applog "listing-portal/internal/logger"
	"listing-portal/internal/ratelimit"
	"listing-portal/internal/scheduler"
	"listing-portal/internal/storage"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// relationalStore is implemented by both database adapters
type relationalStore interface {
	gateway.Store
	gateway.AuditLog
	auth.UserStore
	cleanup.LogStore
	InitSchema() error
	Close() error
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: failed to load .env: %v", err)
	}

	configPath := getEnv("CONFIG_PATH", "config/config.yaml")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config from %s: %v", configPath, err)
	}

	logger := applog.New(cfg.Logging)
	defer logger.Sync()
	logger.Info("Loaded configuration", zap.String("path", configPath))

	ctx := context.Background()

	store, err := openStore(cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.String("type", cfg.Database.Type), zap.Error(err))
	}
	defer store.Close()

	if err := store.InitSchema(); err != nil {
		logger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	blob, err := storage.NewMinIOStorage(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal("Failed to initialize blob storage", zap.Error(err))
	}

	var publisher gateway.Publisher = events.Nop{}
	if cfg.Events.NatsURL != "" {
		nc, err := events.NewNATSPublisher(cfg.Events.NatsURL, logger)
		if err != nil {
			logger.Warn("NATS unavailable, listing events disabled", zap.Error(err))
		} else {
			defer nc.Close()
			publisher = nc
			logger.Info("Publishing listing events", zap.String("url", cfg.Events.NatsURL))
		}
	}

	provider, err := auth.NewProvider(store, auth.Options{
		SigningKey:        cfg.Auth.JWTSecret,
		TTL:               cfg.Auth.GetTokenTTL(),
		MinPasswordLength: cfg.Auth.MinPasswordLength,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize auth provider", zap.Error(err))
	}

	authFor := func(c *gin.Context) gateway.Auth {
		return auth.NewClient(provider, handlers.NewCookieTokenStore(c, cfg.Server.CookieName, cfg.Server.CookieSecure))
	}

	limiter := ratelimit.NewLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.RequestsPerHour, cfg.RateLimit.Enabled)
	logger.Info("Rate limiter initialized",
		zap.Int("per_minute", cfg.RateLimit.RequestsPerMinute),
		zap.Int("per_hour", cfg.RateLimit.RequestsPerHour),
		zap.Bool("enabled", cfg.RateLimit.Enabled))

	cleanupService := cleanup.NewService(store, logger)

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Warn("Unknown timezone, using UTC", zap.String("timezone", cfg.Timezone), zap.Error(err))
		loc = time.UTC
	}
	appScheduler := scheduler.NewScheduler(cleanupService, cfg.Cleanup, loc, logger)
	if err := appScheduler.Start(); err != nil {
		logger.Warn("Failed to start scheduler", zap.Error(err))
	}
	defer appScheduler.Stop()

	// Setup Gin router
	r := gin.New()
	r.Use(gin.Recovery(), handlers.Metrics())
	if cfg.Logging.LogRequests {
		r.Use(handlers.RequestLogger(logger))
	}

	// CORS configuration
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		AllowCredentials: true,
	}))

	r.GET("/health", healthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	portal := handlers.NewPortalHandler(store, blob, store, publisher, authFor, cfg.Site, logger)
	admin := handlers.NewAdminHandler(cleanupService, limiter, cfg.Cleanup, logger)
	handlers.RegisterRoutes(r, portal, admin, limiter)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
}

func openStore(cfg config.DatabaseConfig, logger *zap.Logger) (relationalStore, error) {
	if cfg.Type == "mysql" {
		logger.Info("Using MySQL with GORM")
		m := cfg.MySQL
		return database.NewGormDB(m.Host, portString(m.Port), m.User, m.Password, m.Database)
	}

	logger.Info("Using PostgreSQL")
	p := cfg.Postgres
	return database.NewDB(p.Host, portString(p.Port), p.User, p.Password, p.Database, p.SSLMode)
}

func portString(port int) string {
	if port <= 0 {
		return ""
	}
	return strconv.Itoa(port)
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now(),
	})
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
