package models

import "time"

// IngestionOutcome is the final state of a transcript upload.
type IngestionOutcome string

const (
	IngestionRunning   IngestionOutcome = "running"
	IngestionSucceeded IngestionOutcome = "succeeded"
	IngestionEmpty     IngestionOutcome = "empty"
	IngestionFailed    IngestionOutcome = "failed"
)

// IngestionRun is one transcript processing attempt.
type IngestionRun struct {
	ID           string           `db:"id" json:"id"`
	SessionID    string           `db:"session_id" json:"sessionId"`
	FileName     string           `db:"file_name" json:"fileName"`
	FileSize     int64            `db:"file_size" json:"fileSize"`
	PageCount    int              `db:"page_count" json:"pageCount"`
	Outcome      IngestionOutcome `db:"outcome" json:"outcome"`
	CourseCount  int              `db:"course_count" json:"courseCount"`
	ErrorMessage *string          `db:"error_message" json:"errorMessage,omitempty"`
	StartedAt    time.Time        `db:"started_at" json:"startedAt"`
	FinishedAt   *time.Time       `db:"finished_at" json:"finishedAt,omitempty"`
}

// IngestionRunFilter narrows run history queries.
type IngestionRunFilter struct {
	SessionID string
	Page      int
	PageSize  int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
