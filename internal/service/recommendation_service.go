package service

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/noah-isme/malla-api/internal/models"
)

// coursesPerTerm is how many satisfied courses advance the estimated term.
const coursesPerTerm = 5

// RecommendationConfig bounds the credit cap.
type RecommendationConfig struct {
	DefaultCap int
	MaxCap     int
}

// RecommendationService ranks eligible courses and fits them to a credit cap.
type RecommendationService struct {
	catalog *models.Catalog
	metrics *MetricsService
	logger  *zap.Logger
	cfg     RecommendationConfig
}

// NewRecommendationService constructs the recommendation engine.
func NewRecommendationService(catalog *models.Catalog, metrics *MetricsService, logger *zap.Logger, cfg RecommendationConfig) *RecommendationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxCap <= 0 {
		cfg.MaxCap = 21
	}
	if cfg.DefaultCap <= 0 || cfg.DefaultCap > cfg.MaxCap {
		cfg.DefaultCap = cfg.MaxCap
	}
	return &RecommendationService{catalog: catalog, metrics: metrics, logger: logger, cfg: cfg}
}

// DefaultCap is the cap used when the caller supplies none.
func (s *RecommendationService) DefaultCap() int {
	return s.cfg.DefaultCap
}

// ClampCap forces cap into [0, MaxCap].
func (s *RecommendationService) ClampCap(creditCap int) int {
	switch {
	case creditCap < 0:
		return 0
	case creditCap > s.cfg.MaxCap:
		return s.cfg.MaxCap
	}
	return creditCap
}

// EstimatedTerm is floor(satisfied courses / 5) + 1.
func EstimatedTerm(store *models.ProgressStore) int {
	return store.SatisfiedCount()/coursesPerTerm + 1
}

// IsEligible reports whether course can be taken next: it is neither
// satisfied nor in progress and every prerequisite is satisfied.
func IsEligible(course models.Course, store *models.ProgressStore) bool {
	status := store.Status(course.Code)
	if status.Satisfied() || status == models.StatusInProgress {
		return false
	}
	for _, pre := range course.Prerequisites {
		if !store.Satisfied(pre) {
			return false
		}
	}
	return true
}

// Recommend builds the plan for the next term. The cap is clamped first.
func (s *RecommendationService) Recommend(store *models.ProgressStore, creditCap int) models.RecommendationPlan {
	creditCap = s.ClampCap(creditCap)
	term := EstimatedTerm(store)
	ranked := s.Rank(store)
	accepted, deferred, total := fitToCap(ranked, creditCap)

	plan := models.RecommendationPlan{
		Cap:           creditCap,
		EstimatedTerm: term,
		TotalCredits:  total,
		Accepted:      accepted,
		Deferred:      deferred,
	}
	s.metrics.ObservePlan(plan)
	s.logger.Debug("recommendation plan built",
		zap.Int("cap", creditCap),
		zap.Int("estimated_term", term),
		zap.Int("eligible", len(ranked)),
		zap.Int("accepted", len(accepted)),
		zap.Int("credits", total),
	)
	return plan
}

// Rank returns every eligible course ordered by priority. Overdue courses get
// priority 0; the rest use their suggested period. Ties keep catalog order.
func (s *RecommendationService) Rank(store *models.ProgressStore) []models.Recommendation {
	term := EstimatedTerm(store)
	out := make([]models.Recommendation, 0)
	for _, c := range s.catalog.Courses() {
		if !IsEligible(c, store) {
			continue
		}
		rec := models.Recommendation{
			Course:      c,
			Reason:      models.ReasonNextInSequence,
			ReasonLabel: fmt.Sprintf("next in sequence (period %d)", c.SuggestedPeriod),
			Priority:    c.SuggestedPeriod,
		}
		if c.SuggestedPeriod < term {
			rec.Reason = models.ReasonOverdue
			rec.ReasonLabel = "overdue"
			rec.Priority = 0
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority < out[j].Priority
	})
	return out
}

// fitToCap walks ranked once, taking each course that still fits. A course
// that does not fit is deferred and later, lighter courses may still be taken.
// A zero cap accepts nothing, zero-credit courses included.
func fitToCap(ranked []models.Recommendation, creditCap int) (accepted, deferred []models.Recommendation, total int) {
	accepted = make([]models.Recommendation, 0)
	deferred = make([]models.Recommendation, 0)
	for _, rec := range ranked {
		if creditCap > 0 && total+rec.Course.Credits <= creditCap {
			accepted = append(accepted, rec)
			total += rec.Course.Credits
			continue
		}
		deferred = append(deferred, rec)
	}
	return accepted, deferred, total
}
