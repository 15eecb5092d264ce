package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/malla-api/internal/models"
	"github.com/noah-isme/malla-api/pkg/llm"
)

const advisorCachePrefix = "advisor:"

// textGenerator is the part of llm.Client used for free-form answers.
type textGenerator interface {
	GenerateText(ctx context.Context, prompt string, opts ...llm.Option) (string, error)
}

// advisorCache is the subset of CacheService used for descriptions.
type advisorCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// AdvisorConfig tunes course description enrichment.
type AdvisorConfig struct {
	CacheTTL time.Duration
	Fallback string
}

const advisorPrompt = `Eres un consejero académico de la Licenciatura en Lenguas Extranjeras con Énfasis en Inglés (UNAD).
Para el curso "%s" (código %s, %d créditos, componente %s) escribe tres consejos de estudio concretos
y una frase sobre su relevancia para un futuro docente de inglés.
Responde en texto plano, sin formato Markdown, en menos de 100 palabras.`

// AdvisorService describes courses for the detail panel. It never fails:
// any generation error yields the configured fallback text.
type AdvisorService struct {
	client  textGenerator
	cache   advisorCache
	metrics *MetricsService
	logger  *zap.Logger
	cfg     AdvisorConfig
}

// NewAdvisorService constructs the advisor. client and cache may be nil.
func NewAdvisorService(client textGenerator, cache advisorCache, metrics *MetricsService, logger *zap.Logger, cfg AdvisorConfig) *AdvisorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 24 * time.Hour
	}
	if strings.TrimSpace(cfg.Fallback) == "" {
		cfg.Fallback = "No study recommendations are available right now."
	}
	return &AdvisorService{client: client, cache: cache, metrics: metrics, logger: logger, cfg: cfg}
}

// Describe returns study guidance for the course.
func (s *AdvisorService) Describe(ctx context.Context, course models.Course) string {
	key := advisorCachePrefix + course.Code
	if s.cache != nil {
		var cached string
		hit, err := s.cache.Get(ctx, key, &cached)
		if err == nil && hit && cached != "" {
			return cached
		}
	}

	if s.client == nil {
		s.metrics.RecordAdvisorFallback()
		return s.cfg.Fallback
	}

	component := course.Component
	if component == "" {
		component = "general"
	}
	prompt := fmt.Sprintf(advisorPrompt, course.Name, course.Code, course.Credits, component)
	text, err := s.client.GenerateText(ctx, prompt, llm.WithTemperature(0.4), llm.WithMaxOutputTokens(256))
	text = strings.TrimSpace(text)
	if err != nil || text == "" {
		s.logger.Warn("course description unavailable", zap.String("code", course.Code), zap.Error(err))
		s.metrics.RecordAdvisorFallback()
		return s.cfg.Fallback
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, text, s.cfg.CacheTTL); err != nil {
			s.logger.Debug("course description not cached", zap.String("code", course.Code), zap.Error(err))
		}
	}
	return text
}
