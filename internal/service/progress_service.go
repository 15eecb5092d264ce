package service

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/malla-api/internal/models"
	appErrors "github.com/noah-isme/malla-api/pkg/errors"
)

// LanguageLevelDisclaimer accompanies every language level estimate.
const LanguageLevelDisclaimer = "Estimated from approved English courses. This is not an official CEFR certification."

// ProgressService computes progress read models from the catalog and a
// student's progress store.
type ProgressService struct {
	catalog *models.Catalog
	logger  *zap.Logger
}

// NewProgressService constructs the progress aggregator.
func NewProgressService(catalog *models.Catalog, logger *zap.Logger) *ProgressService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressService{catalog: catalog, logger: logger}
}

// Summary aggregates credits, completion percentage, per-period completion
// and elective usage. Percentage is capped at 100; RawPercentage keeps the
// uncapped figure.
func (s *ProgressService) Summary(store *models.ProgressStore) (models.ProgressSummary, error) {
	summary := models.ProgressSummary{
		TotalCredits:     s.catalog.TotalCredits,
		SatisfiedCourses: store.SatisfiedCount(),
		RecordCount:      store.Len(),
	}

	for _, r := range store.Records() {
		switch {
		case r.Status.Satisfied():
			summary.ApprovedCredits += r.Credits
		case r.Status == models.StatusInProgress:
			summary.InProgressCredits += r.Credits
		}
	}

	if s.catalog.TotalCredits > 0 {
		summary.RawPercentage = float64(summary.ApprovedCredits) / float64(s.catalog.TotalCredits) * 100
	}
	summary.Percentage = summary.RawPercentage
	if summary.Percentage > 100 {
		summary.Percentage = 100
	}

	periods, err := s.PeriodProgress(store)
	if err != nil {
		return models.ProgressSummary{}, err
	}
	summary.PeriodProgress = periods
	summary.Electives = s.electiveUsage(store)

	return summary, nil
}

// PeriodProgress returns the satisfied share of each period's courses. A
// period without courses yields ErrEmptyPeriod.
func (s *ProgressService) PeriodProgress(store *models.ProgressStore) ([]models.PeriodProgress, error) {
	out := make([]models.PeriodProgress, 0, len(s.catalog.Periods))
	for _, p := range s.catalog.Periods {
		if len(p.Courses) == 0 {
			return nil, appErrors.Clone(appErrors.ErrEmptyPeriod, fmt.Sprintf("period %d has no courses", p.Number))
		}
		satisfied := 0
		for _, c := range p.Courses {
			if store.Satisfied(c.Code) {
				satisfied++
			}
		}
		out = append(out, models.PeriodProgress{
			Period:     p.Number,
			Courses:    len(p.Courses),
			Satisfied:  satisfied,
			Percentage: float64(satisfied) / float64(len(p.Courses)) * 100,
		})
	}
	return out, nil
}

func (s *ProgressService) electiveUsage(store *models.ProgressStore) []models.ElectiveProgress {
	byComponent := make(map[string]int, len(s.catalog.ElectiveQuotas))
	for _, c := range s.catalog.Courses() {
		if !c.IsElective() {
			continue
		}
		if r, ok := store.Record(c.Code); ok && r.Status.Satisfied() {
			byComponent[c.Component] += r.Credits
		}
	}

	out := make([]models.ElectiveProgress, 0, len(s.catalog.ElectiveQuotas))
	for _, q := range s.catalog.ElectiveQuotas {
		out = append(out, models.ElectiveProgress{
			Component:       q.Component,
			QuotaCredits:    q.Credits,
			ApprovedCredits: byComponent[q.Component],
		})
	}
	return out
}

// LanguageLevel evaluates the language ladder and reports the current level.
func (s *ProgressService) LanguageLevel(store *models.ProgressStore) models.LadderProgress {
	progress := evaluateLadder(s.catalog.LanguageLadder, store)
	progress.Disclaimer = LanguageLevelDisclaimer
	return progress
}

// PracticeStages evaluates the pedagogical practice stages.
func (s *ProgressService) PracticeStages(store *models.ProgressStore) models.LadderProgress {
	return evaluateLadder(s.catalog.PracticeStages, store)
}

// evaluateLadder classifies each group and tracks the last group of the
// leading run of reached groups. A reached group after an unreached one does
// not move the current level.
func evaluateLadder(ladder models.Ladder, store *models.ProgressStore) models.LadderProgress {
	out := models.LadderProgress{
		Name:   ladder.Name,
		Groups: make([]models.GroupProgress, 0, len(ladder.Groups)),
	}
	contiguous := true

	for _, g := range ladder.Groups {
		satisfied, inProgress := 0, false
		for _, code := range g.Codes {
			switch status := store.Status(code); {
			case status.Satisfied():
				satisfied++
			case status == models.StatusInProgress:
				inProgress = true
			}
		}

		state := models.GroupPending
		switch {
		case len(g.Codes) > 0 && satisfied == len(g.Codes):
			state = models.GroupReached
		case inProgress:
			state = models.GroupInProgress
		}

		var pct float64
		if len(g.Codes) > 0 {
			pct = float64(satisfied) / float64(len(g.Codes)) * 100
		}

		out.Groups = append(out.Groups, models.GroupProgress{
			Label:      g.Label,
			Scenario:   g.Scenario,
			Codes:      append([]string(nil), g.Codes...),
			Satisfied:  satisfied,
			State:      state,
			Percentage: pct,
		})

		if contiguous && state == models.GroupReached {
			out.CurrentLevel = g.Label
		} else {
			contiguous = false
		}
	}

	return out
}
