package dto

import (
	"time"

	"github.com/noah-isme/malla-api/internal/models"
)

// CreateSessionResponse is returned when a student session starts.
type CreateSessionResponse struct {
	SessionID string             `json:"sessionId"`
	Token     string             `json:"token"`
	ExpiresAt time.Time          `json:"expiresAt"`
	Session   models.SessionView `json:"session"`
}

// UpdateSessionRequest edits the student display name. A blank name restores
// the default.
type UpdateSessionRequest struct {
	StudentName string `json:"studentName" validate:"max=120"`
}

// ProgressRecordInput is one course record supplied directly by a client.
type ProgressRecordInput struct {
	Code         string   `json:"code" validate:"required,max=32"`
	Name         string   `json:"name" validate:"max=200"`
	Status       string   `json:"status" validate:"required"`
	Credits      int      `json:"credits" validate:"gte=0,lte=30"`
	Grade        *float64 `json:"grade,omitempty" validate:"omitempty,gte=0,lte=5"`
	RecordedTerm string   `json:"recordedTerm,omitempty" validate:"max=32"`
}

// ReplaceProgressRequest swaps the session's progress store.
type ReplaceProgressRequest struct {
	Records []ProgressRecordInput `json:"records" validate:"dive"`
}

// ProgressResponse lists the records held for a session.
type ProgressResponse struct {
	StudentName string                       `json:"studentName"`
	Records     []models.StudentCourseRecord `json:"records"`
	Summary     models.ProgressSummary       `json:"summary"`
}

// TranscriptAcceptedResponse acknowledges a queued transcript upload.
type TranscriptAcceptedResponse struct {
	Run        models.IngestionRun    `json:"run"`
	Processing models.ProcessingState `json:"processing"`
}

// ProcessingResponse reports background analysis state.
type ProcessingResponse struct {
	Processing   models.ProcessingState `json:"processing"`
	Notification *models.Notification   `json:"notification,omitempty"`
}
