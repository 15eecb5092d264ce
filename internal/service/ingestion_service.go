package service

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/malla-api/internal/models"
	appErrors "github.com/noah-isme/malla-api/pkg/errors"
	"github.com/noah-isme/malla-api/pkg/jobs"
	"github.com/noah-isme/malla-api/pkg/pdftext"
)

// Processing phases reported while a transcript is analysed.
const (
	PhaseReading   = "reading document"
	PhaseAnalysing = "analysing transcript"

	transcriptJobType = "transcript"
)

// PhaseExtracting is the phase shown while text is pulled from the pages.
func PhaseExtracting(pages int) string {
	return fmt.Sprintf("extracting text from %d pages", pages)
}

// IngestionRunStore records transcript processing attempts.
type IngestionRunStore interface {
	Create(ctx context.Context, run *models.IngestionRun) error
	Finish(ctx context.Context, run *models.IngestionRun) error
	List(ctx context.Context, filter models.IngestionRunFilter) ([]models.IngestionRun, int, error)
}

// document is a parsed upload.
type document interface {
	Pages() int
	Text() string
}

type documentOpener func(content []byte) (document, error)

// IngestionConfig tunes upload handling.
type IngestionConfig struct {
	MaxUploadBytes int64
	MinTextChars   int
}

type ingestionTask struct {
	run     *models.IngestionRun
	content []byte
}

// IngestionService runs transcript uploads in the background: PDF text
// extraction, structuring by a TranscriptParser, then one store swap on the
// session. Any failure leaves the session's store as it was.
type IngestionService struct {
	sessions *SessionService
	parser   TranscriptParser
	runs     IngestionRunStore
	queue    jobDispatcher
	open     documentOpener
	metrics  *MetricsService
	logger   *zap.Logger
	cfg      IngestionConfig
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

// NewIngestionService constructs the ingestion service. The queue is attached
// with SetQueue once the worker pool exists, since the pool's handler is this
// service's Handle method.
func NewIngestionService(sessions *SessionService, parser TranscriptParser, runs IngestionRunStore, metrics *MetricsService, logger *zap.Logger, cfg IngestionConfig) *IngestionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
	if cfg.MinTextChars <= 0 {
		cfg.MinTextChars = 50
	}
	return &IngestionService{
		sessions: sessions,
		parser:   parser,
		runs:     runs,
		open:     openPDF(logger),
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
	}
}

func openPDF(logger *zap.Logger) documentOpener {
	return func(content []byte) (document, error) {
		return pdftext.Open(content, logger)
	}
}

// SetQueue attaches the dispatcher used by Submit.
func (s *IngestionService) SetQueue(queue jobDispatcher) {
	s.queue = queue
}

// Submit validates an upload, marks the session as processing and queues the
// work. The returned run is in the running state.
func (s *IngestionService) Submit(ctx context.Context, sessionID, fileName string, content []byte) (*models.IngestionRun, error) {
	if len(content) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "the uploaded file is empty")
	}
	if int64(len(content)) > s.cfg.MaxUploadBytes {
		return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("the transcript exceeds %d bytes", s.cfg.MaxUploadBytes))
	}
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrServiceUnavailable, "transcript processing is not available")
	}

	if err := s.sessions.BeginProcessing(ctx, sessionID, PhaseReading); err != nil {
		return nil, err
	}

	run := &models.IngestionRun{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		FileName:  fileName,
		FileSize:  int64(len(content)),
		Outcome:   models.IngestionRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := s.runs.Create(ctx, run); err != nil {
		s.logger.Warn("ingestion run not recorded", zap.String("run_id", run.ID), zap.Error(err))
	}

	task := ingestionTask{run: run, content: content}
	if err := s.queue.Enqueue(jobs.Job{ID: run.ID, Type: transcriptJobType, Payload: task}); err != nil {
		s.logger.Error("transcript job not queued", zap.String("session_id", sessionID), zap.Error(err))
		s.finish(context.Background(), run, models.IngestionFailed, 0, "the processing queue is busy, please try again shortly")
		if errors.Is(err, jobs.ErrQueueFull) {
			return nil, appErrors.Clone(appErrors.ErrServiceUnavailable, "the processing queue is busy, please try again shortly")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrServiceUnavailable.Code, appErrors.ErrServiceUnavailable.Status, "transcript processing is not available")
	}

	s.logger.Info("transcript queued",
		zap.String("session_id", sessionID),
		zap.String("run_id", run.ID),
		zap.Int64("bytes", run.FileSize),
	)
	copied := *run
	return &copied, nil
}

// Handle is the worker entry point for queued transcripts. It never asks the
// queue to retry.
func (s *IngestionService) Handle(ctx context.Context, job jobs.Job) error {
	task, ok := job.Payload.(ingestionTask)
	if !ok {
		s.logger.Error("unexpected ingestion payload", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}
	s.Process(ctx, task.run, task.content)
	return nil
}

// Process runs one ingestion synchronously and returns the final run. A panic
// while reading the document ends the run as failed and frees the session.
func (s *IngestionService) Process(ctx context.Context, run *models.IngestionRun, content []byte) (result *models.IngestionRun) {
	logger := s.logger.With(zap.String("session_id", run.SessionID), zap.String("run_id", run.ID))
	defer func() {
		if r := recover(); r != nil {
			logger.Error("transcript processing panicked", zap.Any("panic", r))
			result = s.finish(ctx, run, models.IngestionFailed, 0, appErrors.ErrDocumentUnreadable.Message)
		}
	}()

	doc, err := s.open(content)
	if err != nil {
		logger.Warn("transcript unreadable", zap.Error(err))
		return s.finish(ctx, run, models.IngestionFailed, 0, appErrors.ErrDocumentUnreadable.Message)
	}

	run.PageCount = doc.Pages()
	s.phase(ctx, run.SessionID, PhaseExtracting(run.PageCount))

	text := doc.Text()
	if utf8.RuneCountInString(text) < s.cfg.MinTextChars {
		logger.Warn("transcript has too little text", zap.Int("chars", utf8.RuneCountInString(text)), zap.Int("pages", run.PageCount))
		return s.finish(ctx, run, models.IngestionFailed, 0, appErrors.ErrDocumentUnreadable.Message)
	}

	s.phase(ctx, run.SessionID, PhaseAnalysing)
	records, err := s.parser.ParseTranscript(ctx, text)
	if err != nil {
		logger.Error("transcript parsing failed", zap.Error(err))
		return s.finish(ctx, run, models.IngestionFailed, 0, appErrors.ErrIngestion.Message)
	}
	if len(records) == 0 {
		logger.Warn("no courses found in transcript")
		return s.finish(ctx, run, models.IngestionEmpty, 0, appErrors.ErrNoCoursesFound.Message)
	}

	store := models.NewProgressStore(records)
	message := fmt.Sprintf("Analysis complete: %d courses identified", store.Len())
	if err := s.sessions.EndProcessing(ctx, run.SessionID, store.Records(), models.NotificationSuccess, message); err != nil {
		logger.Warn("session gone before transcript was applied", zap.Error(err))
		return s.record(ctx, run, models.IngestionFailed, 0, err.Error())
	}
	logger.Info("transcript applied", zap.Int("courses", store.Len()), zap.Int("pages", run.PageCount))
	return s.record(ctx, run, models.IngestionSucceeded, store.Len(), "")
}

// Runs lists the ingestion history of a session, newest first.
func (s *IngestionService) Runs(ctx context.Context, filter models.IngestionRunFilter) ([]models.IngestionRun, *models.Pagination, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	runs, total, err := s.runs.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load ingestion history")
	}
	return runs, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

func (s *IngestionService) phase(ctx context.Context, sessionID, phase string) {
	if err := s.sessions.SetPhase(ctx, sessionID, phase); err != nil {
		s.logger.Debug("phase not updated", zap.String("session_id", sessionID), zap.Error(err))
	}
}

// finish ends processing with an error notification and records the run.
func (s *IngestionService) finish(ctx context.Context, run *models.IngestionRun, outcome models.IngestionOutcome, courses int, message string) *models.IngestionRun {
	if err := s.sessions.EndProcessing(ctx, run.SessionID, nil, models.NotificationError, message); err != nil {
		s.logger.Debug("session gone before failure was reported", zap.String("session_id", run.SessionID), zap.Error(err))
	}
	return s.record(ctx, run, outcome, courses, message)
}

func (s *IngestionService) record(ctx context.Context, run *models.IngestionRun, outcome models.IngestionOutcome, courses int, message string) *models.IngestionRun {
	finished := time.Now().UTC()
	run.Outcome = outcome
	run.CourseCount = courses
	run.FinishedAt = &finished
	if message != "" {
		run.ErrorMessage = &message
	}
	s.metrics.RecordIngestion(outcome, courses, finished.Sub(run.StartedAt))
	if err := s.runs.Finish(ctx, run); err != nil {
		s.logger.Warn("ingestion run not updated", zap.String("run_id", run.ID), zap.Error(err))
	}
	return run
}
