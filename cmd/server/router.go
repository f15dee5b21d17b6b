package main

import (
	"github.com/ZanzyTHEbar/modelscore/internal/cache"
	"github.com/ZanzyTHEbar/modelscore/internal/database"
	apperrors "github.com/ZanzyTHEbar/modelscore/internal/errors"
	"github.com/ZanzyTHEbar/modelscore/internal/middleware"
	"github.com/ZanzyTHEbar/modelscore/internal/monitoring"
	"github.com/ZanzyTHEbar/modelscore/internal/ratelimit"
	"github.com/ZanzyTHEbar/modelscore/internal/scoring"
	"github.com/ZanzyTHEbar/modelscore/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// server holds the dependencies shared by the HTTP handlers
type server struct {
	service       *scoring.Service
	db            *database.DB
	redis         *ratelimit.RedisClient
	cache         *cache.Cache
	limiter       *ratelimit.RateLimiter
	metrics       *monitoring.Metrics
	logger        *monitoring.Logger
	security      *security.SecurityMiddleware
	compression   *middleware.CompressionMiddleware
	registerLimit int
}

func setupRouter(s *server) *gin.Engine {
	r := gin.New()

	// monitoring first so every request is counted, errors included
	r.Use(monitoring.MonitoringMiddleware(s.metrics, s.logger))
	r.Use(monitoring.SecurityMonitoringMiddleware(s.logger, 1<<20))
	r.Use(s.compression.Handler())

	r.Use(apperrors.ErrorHandler())
	r.Use(apperrors.RecoveryHandler())

	r.Use(s.security.CORSConfig())
	r.Use(s.security.SecurityHeaders)
	r.Use(s.security.RequestTimeout)
	r.Use(s.security.ValidateContentType)
	r.Use(s.security.LimitBody)

	r.GET("/health", s.handleHealth)
	r.GET("/stats", s.handleStats)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	models := r.Group("/models")
	models.Use(s.limiter.IPRateLimitMiddleware())
	{
		models.GET("", s.handleListModels)
		models.POST("", s.limiter.EndpointRateLimitMiddleware("register", s.registerLimit), s.handleRegisterModel)
		models.GET("/:id", s.handleGetModel)
		models.DELETE("/:id", s.handleDeleteModel)
		models.POST("/:id/evaluate", s.cache.Middleware(s.metrics, s.logger), s.handleEvaluate)
		models.GET("/:id/evaluations", s.handleListEvaluations)
		models.POST("/:id/forecast", s.handleForecast)
	}

	limits := r.Group("/ratelimit")
	{
		limits.GET("", s.limiter.HandleRateLimitStatus())
		limits.DELETE("/:ip", s.handleResetRateLimit)
	}

	return r
}
