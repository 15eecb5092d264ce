package models

import "time"

// ProcessingState tells clients whether a transcript is being analysed.
type ProcessingState struct {
	Active    bool      `json:"active"`
	Phase     string    `json:"phase,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NotificationLevel classifies user-facing messages.
type NotificationLevel string

const (
	NotificationInfo    NotificationLevel = "info"
	NotificationSuccess NotificationLevel = "success"
	NotificationError   NotificationLevel = "error"
)

// Notification is the latest message shown to the student.
type Notification struct {
	Level     NotificationLevel `json:"level"`
	Message   string            `json:"message"`
	CreatedAt time.Time         `json:"createdAt"`
}

// DefaultStudentName is shown until the student sets a name.
const DefaultStudentName = "Estudiante LILEI"

// SessionView is the public snapshot of a session.
type SessionView struct {
	ID           string          `json:"id"`
	StudentName  string          `json:"studentName"`
	RecordCount  int             `json:"recordCount"`
	Processing   ProcessingState `json:"processing"`
	Notification *Notification   `json:"notification,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
	ExpiresAt    time.Time       `json:"expiresAt"`
}

// SessionSnapshot is the serialised form of a session kept in the cache.
type SessionSnapshot struct {
	ID           string                `json:"id"`
	StudentName  string                `json:"studentName"`
	Records      []StudentCourseRecord `json:"records"`
	Notification *Notification         `json:"notification,omitempty"`
	CreatedAt    time.Time             `json:"createdAt"`
	UpdatedAt    time.Time             `json:"updatedAt"`
}

// ProgressSnapshot is the plain-data export of a session's progress.
type ProgressSnapshot struct {
	Program         string                `json:"program"`
	Resolution      string                `json:"resolution,omitempty"`
	StudentName     string                `json:"studentName"`
	GeneratedAt     time.Time             `json:"generatedAt"`
	Summary         ProgressSummary       `json:"summary"`
	LanguageLevel   LadderProgress        `json:"languageLevel"`
	PracticeStages  LadderProgress        `json:"practiceStages"`
	Recommendations RecommendationPlan    `json:"recommendations"`
	Records         []StudentCourseRecord `json:"records"`
}
