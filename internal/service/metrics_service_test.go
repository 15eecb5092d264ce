package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/malla-api/internal/models"
)

func scrape(t *testing.T, m *MetricsService) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestMetricsServiceExposesDomainCollectors(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/catalog", http.StatusOK, 20*time.Millisecond)
	m.RecordIngestion(models.IngestionSucceeded, 42, 3*time.Second)
	m.RecordIngestion(models.IngestionEmpty, 0, time.Second)
	m.ObservePlan(models.RecommendationPlan{TotalCredits: 18})
	m.RecordAdvisorFallback()
	m.SetActiveSessions(3)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)

	body := scrape(t, m)
	assert.Contains(t, body, `http_requests_total{method="GET",path="/api/v1/catalog",status="200"} 1`)
	assert.Contains(t, body, `transcript_ingestions_total{outcome="succeeded"} 1`)
	assert.Contains(t, body, `transcript_ingestions_total{outcome="empty"} 1`)
	assert.Contains(t, body, "transcript_courses_extracted_count 1")
	assert.Contains(t, body, "recommendation_plan_credits_sum 18")
	assert.Contains(t, body, "course_advisor_fallbacks_total 1")
	assert.Contains(t, body, "student_sessions_active 3")
	assert.Contains(t, body, "cache_hit_ratio 0.5")
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	assert.NotPanics(t, func() {
		m.ObserveHTTPRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
		m.RecordIngestion(models.IngestionFailed, 0, time.Second)
		m.ObservePlan(models.RecommendationPlan{})
		m.RecordAdvisorFallback()
		m.SetActiveSessions(1)
	})
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
