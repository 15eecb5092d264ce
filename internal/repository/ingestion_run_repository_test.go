package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/malla-api/internal/models"
)

func newIngestionRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestIngestionRunRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newIngestionRepoMock(t)
	defer cleanup()
	repo := NewIngestionRunRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO ingestion_runs")).
		WithArgs(sqlmock.AnyArg(), "session-1", "rai.pdf", int64(2048), 0, "running", 0, nil, sqlmock.AnyArg(), nil).
		WillReturnResult(sqlmock.NewResult(1, 1))

	run := &models.IngestionRun{SessionID: "session-1", FileName: "rai.pdf", FileSize: 2048}
	require.NoError(t, repo.Create(context.Background(), run))
	assert.NotEmpty(t, run.ID)
	assert.False(t, run.StartedAt.IsZero())
	assert.Equal(t, models.IngestionRunning, run.Outcome)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIngestionRunRepositoryFinish(t *testing.T) {
	db, mock, cleanup := newIngestionRepoMock(t)
	defer cleanup()
	repo := NewIngestionRunRepository(db)

	finished := time.Now().UTC()
	run := &models.IngestionRun{ID: "run-1", PageCount: 3, Outcome: models.IngestionSucceeded, CourseCount: 42, FinishedAt: &finished}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE ingestion_runs SET page_count = $1, outcome = $2, course_count = $3, error_message = $4, finished_at = $5 WHERE id = $6")).
		WithArgs(3, "succeeded", 42, nil, finished, "run-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Finish(context.Background(), run))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE ingestion_runs")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.Finish(context.Background(), run)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIngestionRunRepositoryList(t *testing.T) {
	db, mock, cleanup := newIngestionRepoMock(t)
	defer cleanup()
	repo := NewIngestionRunRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM ingestion_runs WHERE session_id = $1")).
		WithArgs("session-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "session_id", "file_name", "file_size", "page_count", "outcome", "course_count", "error_message", "started_at", "finished_at"}).
		AddRow("run-3", "session-1", "c.pdf", 10, 2, "failed", 0, "unreadable", now, now).
		AddRow("run-2", "session-1", "b.pdf", 10, 2, "succeeded", 40, nil, now.Add(-time.Hour), now.Add(-time.Hour))
	mock.ExpectQuery(regexp.QuoteMeta("FROM ingestion_runs WHERE session_id = $1 ORDER BY started_at DESC LIMIT $2 OFFSET $3")).
		WithArgs("session-1", 2, 0).
		WillReturnRows(rows)

	runs, total, err := repo.List(context.Background(), models.IngestionRunFilter{SessionID: "session-1", Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, runs, 2)
	assert.Equal(t, models.IngestionFailed, runs[0].Outcome)
	require.NotNil(t, runs[0].ErrorMessage)
	assert.Equal(t, "unreadable", *runs[0].ErrorMessage)
	assert.Nil(t, runs[1].ErrorMessage)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIngestionRunRepositoryListError(t *testing.T) {
	db, mock, cleanup := newIngestionRepoMock(t)
	defer cleanup()
	repo := NewIngestionRunRepository(db)

	mock.ExpectQuery("SELECT COUNT").WillReturnError(errors.New("connection reset"))
	_, _, err := repo.List(context.Background(), models.IngestionRunFilter{SessionID: "s"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "count ingestion runs")
}

func TestMemoryIngestionRunRepository(t *testing.T) {
	repo := NewMemoryIngestionRunRepository(2)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, name := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		run := &models.IngestionRun{SessionID: "s", FileName: name, StartedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, repo.Create(ctx, run))
		run.Outcome = models.IngestionSucceeded
		require.NoError(t, repo.Finish(ctx, run))
	}

	runs, total, err := repo.List(ctx, models.IngestionRunFilter{SessionID: "s"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, runs, 2)
	assert.Equal(t, "c.pdf", runs[0].FileName)
	assert.Equal(t, models.IngestionSucceeded, runs[0].Outcome)

	empty, _, err := repo.List(ctx, models.IngestionRunFilter{SessionID: "s", Page: 5})
	require.NoError(t, err)
	assert.Empty(t, empty)

	assert.Error(t, repo.Finish(ctx, &models.IngestionRun{ID: "nope", SessionID: "s"}))
}
