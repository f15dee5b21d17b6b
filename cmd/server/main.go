package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/ZanzyTHEbar/modelscore/internal/cache"
	"github.com/ZanzyTHEbar/modelscore/internal/database"
	apperrors "github.com/ZanzyTHEbar/modelscore/internal/errors"
	"github.com/ZanzyTHEbar/modelscore/internal/middleware"
	"github.com/ZanzyTHEbar/modelscore/internal/model"
	"github.com/ZanzyTHEbar/modelscore/internal/monitoring"
	"github.com/ZanzyTHEbar/modelscore/internal/ratelimit"
	"github.com/ZanzyTHEbar/modelscore/internal/scoring"
	"github.com/ZanzyTHEbar/modelscore/internal/security"
	"github.com/gin-gonic/gin"
)

const version = "1.0.0"

// config is read once from the environment at startup
type config struct {
	Port                string
	DataDir             string
	ModelsDir           string
	RedisAddr           string
	RedisPassword       string
	RedisDB             int
	CacheTTL            time.Duration
	RateLimitPerMin     int
	RegisterLimitPerMin int
	CORSOrigins         []string
	MaxBodyBytes        int64
	GinMode             string
}

func loadConfig() config {
	return config{
		Port:                getEnvOrDefault("PORT", "8080"),
		DataDir:             getEnvOrDefault("DATA_DIR", "./data"),
		ModelsDir:           os.Getenv("MODELS_DIR"),
		RedisAddr:           os.Getenv("REDIS_ADDR"),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
		RedisDB:             getEnvInt("REDIS_DB", 0),
		CacheTTL:            getEnvDuration("CACHE_TTL", 15*time.Minute),
		RateLimitPerMin:     getEnvInt("RATE_LIMIT_PER_MIN", 600),
		RegisterLimitPerMin: getEnvInt("REGISTER_LIMIT_PER_MIN", 30),
		CORSOrigins:         strings.Split(getEnvOrDefault("CORS_ORIGINS", "http://localhost:3000"), ","),
		MaxBodyBytes:        int64(getEnvInt("MAX_BODY_BYTES", 4<<20)),
		GinMode:             getEnvOrDefault("GIN_MODE", gin.ReleaseMode),
	}
}

func main() {
	cfg := loadConfig()
	gin.SetMode(cfg.GinMode)

	appLogger := monitoring.NewLogger()
	slog.SetDefault(appLogger.Logger)
	appMetrics := monitoring.NewMetrics()

	db, err := database.NewDB(cfg.DataDir)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer apperrors.SafeClose(db, "database")

	service := scoring.NewService(database.NewRepository(db), appMetrics, appLogger)

	appCache := cache.NewCache(cfg.CacheTTL)
	defer appCache.Close()
	service.OnChange = func(modelID string) {
		if removed := appCache.InvalidateModel(modelID); removed > 0 {
			appLogger.Debug("Cache invalidated", "model_id", modelID, "entries", removed)
		}
	}

	loaded, err := service.LoadAll()
	if err != nil {
		slog.Warn("Some stored models could not be loaded", "error", err)
	}
	slog.Info("Loaded stored models", "count", loaded)

	if cfg.ModelsDir != "" {
		loaded, err := service.LoadDirectory(model.NewStore(cfg.ModelsDir))
		if err != nil {
			slog.Warn("Some model files could not be registered", "dir", cfg.ModelsDir, "error", err)
		}
		slog.Info("Registered model files", "dir", cfg.ModelsDir, "count", loaded)
	}

	redisClient, err := ratelimit.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		slog.Warn("Redis unavailable, rate limiting falls back to memory", "addr", cfg.RedisAddr, "error", err)
	}
	defer apperrors.SafeClose(redisClient, "redis")

	limiterConfig := ratelimit.DefaultConfig()
	limiterConfig.IPLimit = cfg.RateLimitPerMin
	limiter := ratelimit.NewRateLimiter(redisClient, limiterConfig, appMetrics)
	defer limiter.Close()

	securityConfig := security.DefaultSecurityConfig()
	securityConfig.AllowedOrigins = cfg.CORSOrigins
	securityConfig.MaxBodyBytes = cfg.MaxBodyBytes

	r := setupRouter(&server{
		service:       service,
		db:            db,
		redis:         redisClient,
		cache:         appCache,
		limiter:       limiter,
		metrics:       appMetrics,
		logger:        appLogger,
		security:      security.NewSecurityMiddleware(securityConfig),
		compression:   middleware.NewCompressionMiddleware(middleware.DefaultCompressionConfig()),
		registerLimit: cfg.RegisterLimitPerMin,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("Starting server", "port", cfg.Port, "version", version, "models", len(service.List()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	slog.Info("Server exited")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("Ignoring invalid integer setting", "key", key, "value", value)
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		slog.Warn("Ignoring invalid duration setting", "key", key, "value", value)
		return defaultValue
	}
	return d
}
