package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/malla-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for the API.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	ingestionRuns   *prometheus.CounterVec
	ingestionTime   prometheus.Observer
	ingestedCourses prometheus.Observer
	planCredits     prometheus.Observer
	advisorFallback prometheus.Counter
	activeSessions  prometheus.Gauge

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	ingestionRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "transcript_ingestions_total",
		Help: "Transcript ingestion runs by outcome",
	}, []string{"outcome"})

	ingestionTime := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "transcript_ingestion_duration_seconds",
		Help:    "Wall time spent processing one transcript",
		Buckets: []float64{1, 2.5, 5, 10, 20, 40, 80, 160},
	})

	ingestedCourses := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "transcript_courses_extracted",
		Help:    "Number of course records extracted per successful ingestion",
		Buckets: []float64{1, 5, 10, 20, 30, 40, 50, 60},
	})

	planCredits := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "recommendation_plan_credits",
		Help:    "Credits accepted per recommendation plan",
		Buckets: []float64{0, 3, 6, 9, 12, 15, 18, 21},
	})

	advisorFallback := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "course_advisor_fallbacks_total",
		Help: "Course descriptions served from the static fallback",
	})

	activeSessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "student_sessions_active",
		Help: "Sessions currently held in memory",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio,
		ingestionRuns, ingestionTime, ingestedCourses, planCredits, advisorFallback, activeSessions, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHitRatio:   cacheHitRatio,
		ingestionRuns:   ingestionRuns,
		ingestionTime:   ingestionTime,
		ingestedCourses: ingestedCourses,
		planCredits:     planCredits,
		advisorFallback: advisorFallback,
		activeSessions:  activeSessions,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordIngestion counts a finished ingestion run.
func (m *MetricsService) RecordIngestion(outcome models.IngestionOutcome, courses int, duration time.Duration) {
	if m == nil {
		return
	}
	m.ingestionRuns.WithLabelValues(string(outcome)).Inc()
	m.ingestionTime.Observe(duration.Seconds())
	if outcome == models.IngestionSucceeded {
		m.ingestedCourses.Observe(float64(courses))
	}
}

// ObservePlan records the credit load of a recommendation plan.
func (m *MetricsService) ObservePlan(plan models.RecommendationPlan) {
	if m == nil {
		return
	}
	m.planCredits.Observe(float64(plan.TotalCredits))
}

// RecordAdvisorFallback counts a description served from the fallback text.
func (m *MetricsService) RecordAdvisorFallback() {
	if m == nil {
		return
	}
	m.advisorFallback.Inc()
}

// SetActiveSessions reports the in-memory session count.
func (m *MetricsService) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}
