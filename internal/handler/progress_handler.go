package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/malla-api/internal/middleware"
	"github.com/noah-isme/malla-api/internal/models"
	"github.com/noah-isme/malla-api/internal/service"
	"github.com/noah-isme/malla-api/pkg/response"
)

type storeSource interface {
	Store(ctx context.Context, id string) (*models.ProgressStore, error)
	StudentName(ctx context.Context, id string) (string, error)
}

type progressAggregator interface {
	Summary(store *models.ProgressStore) (models.ProgressSummary, error)
	LanguageLevel(store *models.ProgressStore) models.LadderProgress
	PracticeStages(store *models.ProgressStore) models.LadderProgress
}

type recommender interface {
	DefaultCap() int
	ClampCap(creditCap int) int
	Recommend(store *models.ProgressStore, creditCap int) models.RecommendationPlan
}

type courseDetailer interface {
	CourseDetail(code string, store *models.ProgressStore) (models.CourseDetail, error)
}

type progressExporter interface {
	PreRegistration(studentName string, plan models.RecommendationPlan) (*service.ExportFile, error)
	Snapshot(studentName string, store *models.ProgressStore, creditCap int) (models.ProgressSnapshot, error)
}

// ProgressHandler serves read models computed from the session's store.
type ProgressHandler struct {
	sessions        storeSource
	progress        progressAggregator
	recommendations recommender
	catalog         courseDetailer
	export          progressExporter
}

// NewProgressHandler constructs the handler.
func NewProgressHandler(sessions storeSource, progress progressAggregator, recommendations recommender, catalog courseDetailer, export progressExporter) *ProgressHandler {
	return &ProgressHandler{
		sessions:        sessions,
		progress:        progress,
		recommendations: recommendations,
		catalog:         catalog,
		export:          export,
	}
}

// Summary godoc
// @Summary Credit totals and completion
// @Tags Progress
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /session/summary [get]
func (h *ProgressHandler) Summary(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	summary, err := h.progress.Summary(store)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, summary)
}

// LanguageLevel godoc
// @Summary Estimated English level
// @Description Estimate derived from approved language courses, not a certification.
// @Tags Progress
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /session/levels/language [get]
func (h *ProgressHandler) LanguageLevel(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	response.OK(c, h.progress.LanguageLevel(store))
}

// PracticeStages godoc
// @Summary Pedagogical practice stages
// @Tags Progress
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /session/levels/practice [get]
func (h *ProgressHandler) PracticeStages(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	response.OK(c, h.progress.PracticeStages(store))
}

// Recommendations godoc
// @Summary Courses suggested for next term
// @Description Eligible courses ranked by priority and filled greedily up to the credit cap.
// @Tags Recommendations
// @Produce json
// @Security BearerAuth
// @Param cap query int false "Credit cap (0-21)"
// @Success 200 {object} response.Envelope
// @Router /session/recommendations [get]
func (h *ProgressHandler) Recommendations(c *gin.Context) {
	creditCap, err := h.requestedCap(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	store, ok := h.store(c)
	if !ok {
		return
	}
	response.OK(c, h.recommendations.Recommend(store, creditCap))
}

// ExportRecommendations godoc
// @Summary Download the pre-registration list
// @Tags Recommendations
// @Produce text/csv
// @Security BearerAuth
// @Param cap query int false "Credit cap (0-21)"
// @Success 200 {file} file
// @Router /session/recommendations/export [get]
func (h *ProgressHandler) ExportRecommendations(c *gin.Context) {
	creditCap, err := h.requestedCap(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	store, ok := h.store(c)
	if !ok {
		return
	}
	name, err := h.sessions.StudentName(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.export.PreRegistration(name, h.recommendations.Recommend(store, creditCap))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.FileName, file.ContentType, file.Body)
}

// Report godoc
// @Summary Full progress snapshot
// @Tags Progress
// @Produce json
// @Security BearerAuth
// @Param cap query int false "Credit cap (0-21)"
// @Success 200 {object} response.Envelope
// @Router /session/report [get]
func (h *ProgressHandler) Report(c *gin.Context) {
	creditCap, err := h.requestedCap(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	store, ok := h.store(c)
	if !ok {
		return
	}
	name, err := h.sessions.StudentName(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	snapshot, err := h.export.Snapshot(name, store, creditCap)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, snapshot)
}

// CourseDetail godoc
// @Summary Course detail for the student
// @Description Status, eligibility, prerequisite statuses and successors.
// @Tags Progress
// @Produce json
// @Security BearerAuth
// @Param code path string true "Course code"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /session/courses/{code} [get]
func (h *ProgressHandler) CourseDetail(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	detail, err := h.catalog.CourseDetail(strings.TrimSpace(c.Param("code")), store)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, detail)
}

func (h *ProgressHandler) store(c *gin.Context) (*models.ProgressStore, bool) {
	id, err := sessionFromContext(c)
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	store, err := h.sessions.Store(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	return store, true
}

func (h *ProgressHandler) requestedCap(c *gin.Context) (int, error) {
	creditCap, err := queryInt(c, "cap", h.recommendations.DefaultCap())
	if err != nil {
		return 0, err
	}
	return h.recommendations.ClampCap(creditCap), nil
}
