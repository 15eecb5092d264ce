package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/malla-api/internal/models"
)

// IngestionRunRepository persists transcript ingestion history in Postgres.
type IngestionRunRepository struct {
	db *sqlx.DB
}

// NewIngestionRunRepository constructs the repository.
func NewIngestionRunRepository(db *sqlx.DB) *IngestionRunRepository {
	return &IngestionRunRepository{db: db}
}

// Create inserts a run row, filling id and start time when absent.
func (r *IngestionRunRepository) Create(ctx context.Context, run *models.IngestionRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if run.Outcome == "" {
		run.Outcome = models.IngestionRunning
	}
	const query = `INSERT INTO ingestion_runs (id, session_id, file_name, file_size, page_count, outcome, course_count, error_message, started_at, finished_at) VALUES (:id, :session_id, :file_name, :file_size, :page_count, :outcome, :course_count, :error_message, :started_at, :finished_at)`
	if _, err := r.db.NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("create ingestion run: %w", err)
	}
	return nil
}

// Finish stores the final state of a run.
func (r *IngestionRunRepository) Finish(ctx context.Context, run *models.IngestionRun) error {
	const query = `UPDATE ingestion_runs SET page_count = $1, outcome = $2, course_count = $3, error_message = $4, finished_at = $5 WHERE id = $6`
	res, err := r.db.ExecContext(ctx, query, run.PageCount, run.Outcome, run.CourseCount, run.ErrorMessage, run.FinishedAt, run.ID)
	if err != nil {
		return fmt.Errorf("finish ingestion run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish ingestion run: %s not found", run.ID)
	}
	return nil
}

// List returns a page of runs for a session, newest first, with the total.
func (r *IngestionRunRepository) List(ctx context.Context, filter models.IngestionRunFilter) ([]models.IngestionRun, int, error) {
	page, size := normalisePage(filter.Page, filter.PageSize)

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM ingestion_runs WHERE session_id = $1`, filter.SessionID); err != nil {
		return nil, 0, fmt.Errorf("count ingestion runs: %w", err)
	}

	const query = `SELECT id, session_id, file_name, file_size, page_count, outcome, course_count, error_message, started_at, finished_at FROM ingestion_runs WHERE session_id = $1 ORDER BY started_at DESC LIMIT $2 OFFSET $3`
	runs := make([]models.IngestionRun, 0)
	if err := r.db.SelectContext(ctx, &runs, query, filter.SessionID, size, (page-1)*size); err != nil {
		return nil, 0, fmt.Errorf("list ingestion runs: %w", err)
	}
	return runs, total, nil
}

func normalisePage(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	return page, size
}
