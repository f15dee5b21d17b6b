package monitoring

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()

	m.IncrementRequest()
	m.IncrementRequest()
	m.IncrementError()
	m.IncrementCacheHit()
	m.IncrementCacheMiss()
	m.IncrementCacheMiss()
	m.RecordEvaluation("regression", time.Millisecond, false)
	m.RecordEvaluation("regression", time.Millisecond, true)
	m.RecordEvaluation("scorecard", time.Millisecond, false)
	m.SetModelsLoaded(3)

	stats := m.GetStats()
	assert.Equal(t, int64(2), stats["total_requests"])
	assert.Equal(t, int64(1), stats["error_count"])
	assert.Equal(t, 50.0, stats["error_rate_percent"])
	assert.InDelta(t, 100.0/3.0, stats["cache_hit_rate_percent"], 1e-9)
	assert.Equal(t, int64(3), stats["evaluations"])
	assert.Equal(t, int64(1), stats["evaluation_errors"])
	assert.Equal(t, int64(3), stats["models_loaded"])
	assert.Equal(t, map[string]int64{"regression": 2, "scorecard": 1}, stats["evaluations_by_kind"])

	m.Reset()
	stats = m.GetStats()
	assert.Equal(t, int64(0), stats["total_requests"])
	assert.Equal(t, int64(0), stats["evaluations"])
	assert.Empty(t, stats["evaluations_by_kind"])
}

func TestMetricsPercentiles(t *testing.T) {
	m := NewMetrics()
	assert.Equal(t, time.Duration(0), m.GetPercentileResponseTime(50))

	for i := 1; i <= 100; i++ {
		m.RecordResponseTime(time.Duration(i) * time.Millisecond)
	}

	assert.Equal(t, 50*time.Millisecond, m.GetPercentileResponseTime(50))
	assert.Equal(t, 100*time.Millisecond, m.GetPercentileResponseTime(100))
	assert.Equal(t, time.Millisecond, m.GetPercentileResponseTime(0))
}

func TestMetricsResponseWindow(t *testing.T) {
	m := NewMetrics()
	for i := 0; i < 1500; i++ {
		m.RecordResponseTime(time.Millisecond)
	}
	assert.Len(t, m.ResponseTimes, 1000)
}

func TestMetricsRateLimitStats(t *testing.T) {
	m := NewMetrics()
	m.IncrementRateLimitIPBlock()
	m.IncrementRateLimitRedisError()
	m.IncrementRateLimitFallback()
	m.IncrementRateLimitFallback()

	stats := m.GetRateLimitStats()
	assert.Equal(t, int64(1), stats["ip_blocks"])
	assert.Equal(t, int64(1), stats["redis_errors"])
	assert.Equal(t, int64(2), stats["fallback_count"])
}

func TestMonitoringMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, slog.LevelDebug)
	metrics := NewMetrics()

	router := gin.New()
	router.Use(MonitoringMiddleware(metrics, logger))
	router.GET("/ok", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetHeader(RequestIDHeader))
	})
	router.GET("/fail", func(c *gin.Context) {
		_ = c.Error(errors.New("boom"))
		c.Status(http.StatusInternalServerError)
	})

	t.Run("generates request id", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		id := w.Header().Get(RequestIDHeader)
		assert.Len(t, id, 36)
		assert.Equal(t, id, w.Body.String())
	})

	t.Run("keeps caller request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ok", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
	})

	t.Run("counts errors", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	assert.Equal(t, int64(3), metrics.RequestCount)
	assert.Equal(t, int64(1), metrics.ErrorCount)
	assert.Equal(t, int64(2), metrics.GetStatusCodeDistribution()[http.StatusOK])

	var sawError bool
	for _, entry := range decodeLines(t, &buf) {
		if entry["msg"] == "API Error" {
			sawError = true
			assert.Equal(t, "boom", entry["error"])
		}
	}
	assert.True(t, sawError)
}

func TestSecurityMonitoringMiddleware(t *testing.T) {
	tests := []struct {
		name      string
		request   func() *http.Request
		eventType string
	}{
		{
			name: "clean request",
			request: func() *http.Request {
				return httptest.NewRequest(http.MethodGet, "/models?limit=5", nil)
			},
		},
		{
			name: "sql injection",
			request: func() *http.Request {
				return httptest.NewRequest(http.MethodGet, "/models?q=1%20UNION%20SELECT%20x", nil)
			},
			eventType: "potential_sql_injection",
		},
		{
			name: "scanner agent",
			request: func() *http.Request {
				req := httptest.NewRequest(http.MethodGet, "/models", nil)
				req.Header.Set("User-Agent", "Nikto/2.1")
				return req
			},
			eventType: "suspicious_user_agent",
		},
		{
			name: "large body",
			request: func() *http.Request {
				return httptest.NewRequest(http.MethodPost, "/models", strings.NewReader(strings.Repeat("x", 64)))
			},
			eventType: "large_request_body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			router := gin.New()
			router.Use(SecurityMonitoringMiddleware(NewLoggerWithWriter(&buf, slog.LevelInfo), 32))
			router.Any("/models", func(c *gin.Context) { c.Status(http.StatusNoContent) })

			w := httptest.NewRecorder()
			router.ServeHTTP(w, tt.request())
			assert.Equal(t, http.StatusNoContent, w.Code)

			if tt.eventType == "" {
				assert.Empty(t, buf.String())
				return
			}
			entries := decodeLines(t, &buf)
			require.Len(t, entries, 1)
			assert.Equal(t, "Security Event", entries[0]["msg"])
			assert.Equal(t, tt.eventType, entries[0]["type"])
		})
	}
}

func TestLoggerHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, slog.LevelInfo)

	logger.EvaluationLogger("m1", "regression", 1500*time.Microsecond, nil)
	logger.EvaluationLogger("m1", "regression", time.Microsecond, errors.New("bad input"))
	logger.ModelLogger("registered", "m1", "churn", "regression")
	logger.CacheLogger("get", "0123456789abcdef", true, 4)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 3, "debug cache entry is filtered at info level")

	assert.Equal(t, "Evaluation Completed", entries[0]["msg"])
	assert.Equal(t, float64(1500), entries[0]["duration_us"])
	assert.Contains(t, entries[0], "timestamp")

	assert.Equal(t, "WARN", entries[1]["level"])
	assert.Equal(t, "bad input", entries[1]["error"])

	assert.Equal(t, "registered", entries[2]["event"])

	buf.Reset()
	logger.SetLevel(slog.LevelDebug)
	logger.CacheLogger("get", "0123456789abcdef", true, 4)
	entries = decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "01234567...", entries[0]["key_hash"])
}
