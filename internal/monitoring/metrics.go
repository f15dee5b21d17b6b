package monitoring

import (
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus collectors are process-wide; Metrics feeds them alongside its
// own counters so /stats and /metrics agree.
var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "modelscore",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by status code",
	}, []string{"status"})

	httpDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "modelscore",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   prometheus.DefBuckets,
	})

	evaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "modelscore",
		Subsystem: "engine",
		Name:      "evaluations_total",
		Help:      "Evaluations by model kind and outcome",
	}, []string{"kind", "status"})

	evaluationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "modelscore",
		Subsystem: "engine",
		Name:      "evaluation_duration_seconds",
		Help:      "Single record evaluation latency in seconds",
		Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	}, []string{"kind"})

	modelsLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "modelscore",
		Subsystem: "engine",
		Name:      "models_loaded",
		Help:      "Models currently loaded for evaluation",
	})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "modelscore",
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Response cache lookups by result",
	}, []string{"result"})

	rateLimitBlocks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "modelscore",
		Subsystem: "ratelimit",
		Name:      "blocks_total",
		Help:      "Requests rejected by the rate limiter",
	}, []string{"scope"})
)

// Metrics holds application metrics
type Metrics struct {
	RequestCount        int64
	ErrorCount          int64
	CacheHits           int64
	CacheMisses         int64
	EvaluationCount     int64
	EvaluationErrors    int64
	ModelsLoaded        int64
	AverageResponseTime int64 // in nanoseconds
	StartTime           time.Time

	ResponseTimes      []time.Duration
	ResponseTimesMutex sync.RWMutex

	RequestCountByStatus map[int]int64
	StatusMutex          sync.RWMutex

	EvaluationsByKind map[string]int64
	KindMutex         sync.RWMutex

	RateLimitIPBlocks       int64
	RateLimitEndpointBlocks int64
	RateLimitRedisErrors    int64
	RateLimitFallbackCount  int64
}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		StartTime:            time.Now(),
		ResponseTimes:        make([]time.Duration, 0, 1000),
		RequestCountByStatus: make(map[int]int64),
		EvaluationsByKind:    make(map[string]int64),
	}
}

// IncrementRequest increments the request count
func (m *Metrics) IncrementRequest() {
	atomic.AddInt64(&m.RequestCount, 1)
}

// IncrementError increments the error count
func (m *Metrics) IncrementError() {
	atomic.AddInt64(&m.ErrorCount, 1)
}

// IncrementCacheHit increments cache hit count
func (m *Metrics) IncrementCacheHit() {
	atomic.AddInt64(&m.CacheHits, 1)
	cacheLookups.WithLabelValues("hit").Inc()
}

// IncrementCacheMiss increments cache miss count
func (m *Metrics) IncrementCacheMiss() {
	atomic.AddInt64(&m.CacheMisses, 1)
	cacheLookups.WithLabelValues("miss").Inc()
}

// RecordEvaluation records one evaluation of a model of the given kind
func (m *Metrics) RecordEvaluation(kind string, duration time.Duration, failed bool) {
	atomic.AddInt64(&m.EvaluationCount, 1)
	status := "ok"
	if failed {
		atomic.AddInt64(&m.EvaluationErrors, 1)
		status = "error"
	}

	m.KindMutex.Lock()
	m.EvaluationsByKind[kind]++
	m.KindMutex.Unlock()

	evaluations.WithLabelValues(kind, status).Inc()
	evaluationDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// SetModelsLoaded records the size of the loaded model table
func (m *Metrics) SetModelsLoaded(n int) {
	atomic.StoreInt64(&m.ModelsLoaded, int64(n))
	modelsLoaded.Set(float64(n))
}

// RecordResponseTime records response time for averaging and percentiles
func (m *Metrics) RecordResponseTime(duration time.Duration) {
	current := atomic.LoadInt64(&m.AverageResponseTime)
	newAverage := (current + duration.Nanoseconds()) / 2
	atomic.StoreInt64(&m.AverageResponseTime, newAverage)
	httpDuration.Observe(duration.Seconds())

	// keep the last 1000 samples
	m.ResponseTimesMutex.Lock()
	m.ResponseTimes = append(m.ResponseTimes, duration)
	if len(m.ResponseTimes) > 1000 {
		m.ResponseTimes = m.ResponseTimes[1:]
	}
	m.ResponseTimesMutex.Unlock()
}

// RecordRequestByStatus records request count by HTTP status code
func (m *Metrics) RecordRequestByStatus(statusCode int) {
	m.StatusMutex.Lock()
	m.RequestCountByStatus[statusCode]++
	m.StatusMutex.Unlock()
	httpRequests.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// GetPercentileResponseTime calculates percentile response time
func (m *Metrics) GetPercentileResponseTime(percentile float64) time.Duration {
	m.ResponseTimesMutex.RLock()
	defer m.ResponseTimesMutex.RUnlock()

	if len(m.ResponseTimes) == 0 {
		return 0
	}

	times := make([]time.Duration, len(m.ResponseTimes))
	copy(times, m.ResponseTimes)

	sort.Slice(times, func(i, j int) bool {
		return times[i] < times[j]
	})

	index := int(float64(len(times)-1) * percentile / 100.0)
	if index >= len(times) {
		index = len(times) - 1
	}

	return times[index]
}

// GetStatusCodeDistribution returns request count by status code
func (m *Metrics) GetStatusCodeDistribution() map[int]int64 {
	m.StatusMutex.RLock()
	defer m.StatusMutex.RUnlock()

	distribution := make(map[int]int64, len(m.RequestCountByStatus))
	for code, count := range m.RequestCountByStatus {
		distribution[code] = count
	}
	return distribution
}

// GetEvaluationsByKind returns evaluation counts per model kind
func (m *Metrics) GetEvaluationsByKind() map[string]int64 {
	m.KindMutex.RLock()
	defer m.KindMutex.RUnlock()

	byKind := make(map[string]int64, len(m.EvaluationsByKind))
	for kind, count := range m.EvaluationsByKind {
		byKind[kind] = count
	}
	return byKind
}

// GetStats returns current metrics statistics
func (m *Metrics) GetStats() map[string]interface{} {
	requests := atomic.LoadInt64(&m.RequestCount)
	errors := atomic.LoadInt64(&m.ErrorCount)
	cacheHits := atomic.LoadInt64(&m.CacheHits)
	cacheMisses := atomic.LoadInt64(&m.CacheMisses)
	avgResponseTime := atomic.LoadInt64(&m.AverageResponseTime)

	errorRate := float64(0)
	if requests > 0 {
		errorRate = float64(errors) / float64(requests) * 100
	}

	cacheHitRate := float64(0)
	totalCacheRequests := cacheHits + cacheMisses
	if totalCacheRequests > 0 {
		cacheHitRate = float64(cacheHits) / float64(totalCacheRequests) * 100
	}

	return map[string]interface{}{
		"uptime_seconds":         time.Since(m.StartTime).Seconds(),
		"total_requests":         requests,
		"error_count":            errors,
		"error_rate_percent":     errorRate,
		"cache_hits":             cacheHits,
		"cache_misses":           cacheMisses,
		"cache_hit_rate_percent": cacheHitRate,
		"evaluations":            atomic.LoadInt64(&m.EvaluationCount),
		"evaluation_errors":      atomic.LoadInt64(&m.EvaluationErrors),
		"evaluations_by_kind":    m.GetEvaluationsByKind(),
		"models_loaded":          atomic.LoadInt64(&m.ModelsLoaded),
		"avg_response_time_ms":   float64(avgResponseTime) / 1000000,
		"start_time":             m.StartTime.Format(time.RFC3339),

		"p50_response_time_ms":     float64(m.GetPercentileResponseTime(50)) / 1000000,
		"p95_response_time_ms":     float64(m.GetPercentileResponseTime(95)) / 1000000,
		"p99_response_time_ms":     float64(m.GetPercentileResponseTime(99)) / 1000000,
		"status_code_distribution": m.GetStatusCodeDistribution(),
	}
}

// Reset resets all counters; the Prometheus collectors keep their totals
func (m *Metrics) Reset() {
	atomic.StoreInt64(&m.RequestCount, 0)
	atomic.StoreInt64(&m.ErrorCount, 0)
	atomic.StoreInt64(&m.CacheHits, 0)
	atomic.StoreInt64(&m.CacheMisses, 0)
	atomic.StoreInt64(&m.EvaluationCount, 0)
	atomic.StoreInt64(&m.EvaluationErrors, 0)
	atomic.StoreInt64(&m.AverageResponseTime, 0)
	atomic.StoreInt64(&m.RateLimitIPBlocks, 0)
	atomic.StoreInt64(&m.RateLimitEndpointBlocks, 0)
	atomic.StoreInt64(&m.RateLimitRedisErrors, 0)
	atomic.StoreInt64(&m.RateLimitFallbackCount, 0)

	m.ResponseTimesMutex.Lock()
	m.ResponseTimes = m.ResponseTimes[:0]
	m.ResponseTimesMutex.Unlock()

	m.StatusMutex.Lock()
	m.RequestCountByStatus = make(map[int]int64)
	m.StatusMutex.Unlock()

	m.KindMutex.Lock()
	m.EvaluationsByKind = make(map[string]int64)
	m.KindMutex.Unlock()

	m.StartTime = time.Now()
}

// IncrementRateLimitIPBlock increments IP-based rate limit blocks
func (m *Metrics) IncrementRateLimitIPBlock() {
	atomic.AddInt64(&m.RateLimitIPBlocks, 1)
	rateLimitBlocks.WithLabelValues("ip").Inc()
}

// IncrementRateLimitEndpointBlock increments endpoint-specific rate limit blocks
func (m *Metrics) IncrementRateLimitEndpointBlock(endpoint string) {
	atomic.AddInt64(&m.RateLimitEndpointBlocks, 1)
	rateLimitBlocks.WithLabelValues("endpoint:" + endpoint).Inc()
}

// IncrementRateLimitRedisError increments Redis error count for rate limiting
func (m *Metrics) IncrementRateLimitRedisError() {
	atomic.AddInt64(&m.RateLimitRedisErrors, 1)
}

// IncrementRateLimitFallback increments fallback rate limiter usage count
func (m *Metrics) IncrementRateLimitFallback() {
	atomic.AddInt64(&m.RateLimitFallbackCount, 1)
}

// GetRateLimitStats returns rate limiting statistics
func (m *Metrics) GetRateLimitStats() map[string]interface{} {
	return map[string]interface{}{
		"ip_blocks":       atomic.LoadInt64(&m.RateLimitIPBlocks),
		"endpoint_blocks": atomic.LoadInt64(&m.RateLimitEndpointBlocks),
		"redis_errors":    atomic.LoadInt64(&m.RateLimitRedisErrors),
		"fallback_count":  atomic.LoadInt64(&m.RateLimitFallbackCount),
	}
}
