package main

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/ZanzyTHEbar/modelscore/internal/errors"
	"github.com/ZanzyTHEbar/modelscore/internal/model"
	"github.com/ZanzyTHEbar/modelscore/internal/security"
	"github.com/gin-gonic/gin"
)

type forecastRequest struct {
	Horizon int `json:"horizon" binding:"required,min=1,max=1000"`
}

func (s *server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	code := http.StatusOK
	checks := gin.H{"database": "ok", "redis": "disabled"}

	if err := s.db.PingContext(ctx); err != nil {
		checks["database"] = err.Error()
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	// the limiter falls back to memory, so redis never fails the check
	if s.redis.IsEnabled() {
		checks["redis"] = "ok"
		if err := s.redis.HealthCheck(ctx); err != nil {
			checks["redis"] = err.Error()
		}
	}

	c.JSON(code, gin.H{
		"status":    status,
		"version":   version,
		"timestamp": time.Now().Format(time.RFC3339),
		"models":    len(s.service.List()),
		"checks":    checks,
	})
}

func (s *server) handleStats(c *gin.Context) {
	rateLimit := s.limiter.GetStats()
	for key, value := range s.metrics.GetRateLimitStats() {
		rateLimit[key] = value
	}

	c.JSON(http.StatusOK, gin.H{
		"metrics":     s.metrics.GetStats(),
		"models":      s.service.Stats(),
		"cache":       s.cache.Stats(),
		"rate_limit":  rateLimit,
		"database":    s.db.GetPoolStats(),
		"redis":       s.redis.GetPoolStats(),
		"compression": s.compression.GetStats(),
	})
}

func (s *server) handleListModels(c *gin.Context) {
	models := s.service.List()
	c.JSON(http.StatusOK, gin.H{
		"models": models,
		"count":  len(models),
	})
}

func (s *server) handleRegisterModel(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Error(security.BodyTooLarge(err))
		return
	}
	if len(body) == 0 {
		c.Error(apperrors.NewValidationError("model document is required"))
		return
	}

	doc, err := model.Decode(body, requestFormat(c))
	if err != nil {
		c.Error(err)
		return
	}

	info, err := s.service.Register(doc)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, info)
}

func (s *server) handleGetModel(c *gin.Context) {
	id := c.Param("id")

	info, doc, err := s.service.Get(id)
	if err != nil {
		c.Error(err)
		return
	}

	if format := model.Format(c.Query("format")); format == model.FormatYAML {
		data, err := model.Encode(doc, format)
		if err != nil {
			c.Error(apperrors.NewInternalError("failed to encode model", err))
			return
		}
		c.Data(http.StatusOK, "application/yaml; charset=utf-8", data)
		return
	}

	usage, err := s.service.Usage(id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"model":    info,
		"usage":    usage,
		"document": doc,
	})
}

func (s *server) handleDeleteModel(c *gin.Context) {
	if err := s.service.Remove(c.Param("id")); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *server) handleEvaluate(c *gin.Context) {
	var record map[string]any
	if err := c.ShouldBindJSON(&record); err != nil {
		c.Error(bindError(err))
		return
	}

	evaluation, err := s.service.Evaluate(c.Param("id"), record)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, evaluation)
}

func (s *server) handleListEvaluations(c *gin.Context) {
	id := c.Param("id")

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.Error(apperrors.NewValidationErrorWithMap(map[string]string{
				"limit": "must be a positive integer",
			}))
			return
		}
		limit = n
	}

	records, err := s.service.Evaluations(id, limit)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"model_id":    id,
		"evaluations": records,
		"count":       len(records),
	})
}

func (s *server) handleForecast(c *gin.Context) {
	var req forecastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(bindError(err))
		return
	}

	id := c.Param("id")
	forecast, err := s.service.Forecast(id, req.Horizon)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"model_id": id,
		"horizon":  req.Horizon,
		"forecast": forecast,
	})
}

func (s *server) handleResetRateLimit(c *gin.Context) {
	ip := c.Param("ip")
	if err := s.limiter.InvalidateIP(c.Request.Context(), ip); err != nil {
		c.Error(apperrors.WrapError(err, "failed to reset rate limit for %s", ip))
		return
	}
	c.Status(http.StatusNoContent)
}

// requestFormat picks the document encoding from ?format or Content-Type
func requestFormat(c *gin.Context) model.Format {
	if format := c.Query("format"); format != "" {
		return model.Format(strings.ToLower(format))
	}
	if strings.Contains(strings.ToLower(c.ContentType()), "yaml") {
		return model.FormatYAML
	}
	return model.FormatJSON
}

func bindError(err error) error {
	if tooLarge := security.BodyTooLarge(err); tooLarge != err {
		return tooLarge
	}
	return apperrors.NewValidationError("invalid request body", err.Error())
}
