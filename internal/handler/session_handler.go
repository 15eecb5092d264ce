package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/malla-api/internal/dto"
	"github.com/noah-isme/malla-api/internal/models"
	appErrors "github.com/noah-isme/malla-api/pkg/errors"
	"github.com/noah-isme/malla-api/pkg/response"
)

type sessionManager interface {
	Create(ctx context.Context) models.SessionView
	Get(ctx context.Context, id string) (models.SessionView, error)
	Store(ctx context.Context, id string) (*models.ProgressStore, error)
	StudentName(ctx context.Context, id string) (string, error)
	ReplaceRecords(ctx context.Context, id string, records []models.StudentCourseRecord) (*models.ProgressStore, error)
	Rename(ctx context.Context, id, name string) (models.SessionView, error)
	Reset(ctx context.Context, id string) (models.SessionView, error)
	Processing(ctx context.Context, id string) (models.ProcessingState, *models.Notification, error)
	Delete(ctx context.Context, id string)
}

type tokenIssuer interface {
	Issue(sessionID string) (string, time.Time, error)
}

type progressSummarizer interface {
	Summary(store *models.ProgressStore) (models.ProgressSummary, error)
}

// SessionHandler manages student sessions and their course records.
type SessionHandler struct {
	sessions sessionManager
	tokens   tokenIssuer
	progress progressSummarizer
	validate *validator.Validate
}

// NewSessionHandler constructs the handler.
func NewSessionHandler(sessions sessionManager, tokens tokenIssuer, progress progressSummarizer, validate *validator.Validate) *SessionHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &SessionHandler{sessions: sessions, tokens: tokens, progress: progress, validate: validate}
}

// Create godoc
// @Summary Start a student session
// @Description Creates an empty session and returns its bearer token.
// @Tags Sessions
// @Produce json
// @Success 201 {object} response.Envelope
// @Router /sessions [post]
func (h *SessionHandler) Create(c *gin.Context) {
	view := h.sessions.Create(c.Request.Context())
	token, expiresAt, err := h.tokens.Issue(view.ID)
	if err != nil {
		h.sessions.Delete(c.Request.Context(), view.ID)
		response.Error(c, err)
		return
	}
	response.Created(c, dto.CreateSessionResponse{SessionID: view.ID, Token: token, ExpiresAt: expiresAt, Session: view})
}

// Get godoc
// @Summary Current session
// @Tags Sessions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /session [get]
func (h *SessionHandler) Get(c *gin.Context) {
	id, err := sessionFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	view, err := h.sessions.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, view)
}

// Update godoc
// @Summary Set the student display name
// @Tags Sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.UpdateSessionRequest true "Session payload"
// @Success 200 {object} response.Envelope
// @Router /session [patch]
func (h *SessionHandler) Update(c *gin.Context) {
	id, err := sessionFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateSessionRequest
	if err := bindJSON(c, h.validate, &req, "invalid session payload"); err != nil {
		response.Error(c, err)
		return
	}
	view, err := h.sessions.Rename(c.Request.Context(), id, req.StudentName)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, view)
}

// Progress godoc
// @Summary Course records of the session
// @Tags Progress
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /session/progress [get]
func (h *SessionHandler) Progress(c *gin.Context) {
	id, err := sessionFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	store, err := h.sessions.Store(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respondProgress(c, id, store)
}

// ReplaceProgress godoc
// @Summary Replace the course records of the session
// @Description Duplicate codes keep the last record. Unknown statuses are rejected.
// @Tags Progress
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.ReplaceProgressRequest true "Course records"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /session/progress [put]
func (h *SessionHandler) ReplaceProgress(c *gin.Context) {
	id, err := sessionFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.ReplaceProgressRequest
	if err := bindJSON(c, h.validate, &req, "invalid progress payload"); err != nil {
		response.Error(c, err)
		return
	}

	records := make([]models.StudentCourseRecord, 0, len(req.Records))
	for i, in := range req.Records {
		status, ok := models.ParseCourseStatus(in.Status)
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("records[%d]: unknown status %q", i, in.Status)))
			return
		}
		records = append(records, models.StudentCourseRecord{
			Code:         in.Code,
			Name:         in.Name,
			Status:       status,
			Credits:      in.Credits,
			Grade:        in.Grade,
			RecordedTerm: in.RecordedTerm,
		})
	}

	store, err := h.sessions.ReplaceRecords(c.Request.Context(), id, records)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respondProgress(c, id, store)
}

// Reset godoc
// @Summary Start a new analysis
// @Description Clears the course records and the student name.
// @Tags Progress
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /session/progress [delete]
func (h *SessionHandler) Reset(c *gin.Context) {
	id, err := sessionFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	view, err := h.sessions.Reset(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, view)
}

// Processing godoc
// @Summary Transcript processing state
// @Tags Ingestion
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /session/processing [get]
func (h *SessionHandler) Processing(c *gin.Context) {
	id, err := sessionFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	state, note, err := h.sessions.Processing(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.ProcessingResponse{Processing: state, Notification: note})
}

func (h *SessionHandler) respondProgress(c *gin.Context, id string, store *models.ProgressStore) {
	name, err := h.sessions.StudentName(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	summary, err := h.progress.Summary(store)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.ProgressResponse{StudentName: name, Records: store.Records(), Summary: summary})
}
