package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/noah-isme/malla-api/internal/models"
	"github.com/noah-isme/malla-api/pkg/export"
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
}

// ExportFile is a rendered download.
type ExportFile struct {
	FileName    string
	ContentType string
	Body        []byte
}

// ExportService turns session progress into plain-data downloads.
type ExportService struct {
	catalog         *models.Catalog
	progress        *ProgressService
	recommendations *RecommendationService
	csv             csvRenderer
	logger          *zap.Logger
	now             func() time.Time
}

// NewExportService constructs the export service.
func NewExportService(catalog *models.Catalog, progress *ProgressService, recommendations *RecommendationService, csv csvRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	return &ExportService{
		catalog:         catalog,
		progress:        progress,
		recommendations: recommendations,
		csv:             csv,
		logger:          logger,
		now:             time.Now,
	}
}

var preRegistrationColumns = []export.Column{
	{Key: "code", Label: "Código"},
	{Key: "name", Label: "Asignatura"},
	{Key: "credits", Label: "Créditos"},
	{Key: "period", Label: "Periodo"},
	{Key: "reason", Label: "Motivo"},
}

// PreRegistration renders the accepted courses of a plan as CSV, closing
// with a total row.
func (s *ExportService) PreRegistration(studentName string, plan models.RecommendationPlan) (*ExportFile, error) {
	rows := make([]map[string]string, 0, len(plan.Accepted)+1)
	for _, rec := range plan.Accepted {
		rows = append(rows, map[string]string{
			"code":    rec.Course.Code,
			"name":    rec.Course.Name,
			"credits": strconv.Itoa(rec.Course.Credits),
			"period":  strconv.Itoa(rec.Course.SuggestedPeriod),
			"reason":  rec.ReasonLabel,
		})
	}
	rows = append(rows, map[string]string{
		"name":    "Total créditos sugeridos",
		"credits": strconv.Itoa(plan.TotalCredits),
	})

	body, err := s.csv.Render(export.Dataset{Columns: preRegistrationColumns, Rows: rows})
	if err != nil {
		return nil, fmt.Errorf("render pre-registration: %w", err)
	}
	s.logger.Debug("pre-registration exported", zap.Int("courses", len(plan.Accepted)), zap.Int("credits", plan.TotalCredits))
	return &ExportFile{
		FileName:    fmt.Sprintf("Pre-matricula_LILEI_%s.csv", fileSafe(studentName)),
		ContentType: s.csv.ContentType(),
		Body:        body,
	}, nil
}

// Snapshot assembles the full progress report of a store.
func (s *ExportService) Snapshot(studentName string, store *models.ProgressStore, creditCap int) (models.ProgressSnapshot, error) {
	summary, err := s.progress.Summary(store)
	if err != nil {
		return models.ProgressSnapshot{}, err
	}
	return models.ProgressSnapshot{
		Program:         s.catalog.Program,
		Resolution:      s.catalog.Resolution,
		StudentName:     studentName,
		GeneratedAt:     s.now().UTC(),
		Summary:         summary,
		LanguageLevel:   s.progress.LanguageLevel(store),
		PracticeStages:  s.progress.PracticeStages(store),
		Recommendations: s.recommendations.Recommend(store, creditCap),
		Records:         store.Records(),
	}, nil
}

func fileSafe(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = models.DefaultStudentName
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('_')
		}
	}
	return b.String()
}
