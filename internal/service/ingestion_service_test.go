package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/malla-api/internal/models"
	"github.com/noah-isme/malla-api/internal/repository"
	appErrors "github.com/noah-isme/malla-api/pkg/errors"
	"github.com/noah-isme/malla-api/pkg/jobs"
)

type fakeDocument struct {
	pages int
	text  string
}

func (d fakeDocument) Pages() int   { return d.pages }
func (d fakeDocument) Text() string { return d.text }

type panickingDocument struct{}

func (panickingDocument) Pages() int   { return 1 }
func (panickingDocument) Text() string { panic("unexpected keyword \"xref\" parsing object") }

type recordingQueue struct {
	jobs []jobs.Job
	err  error
}

func (q *recordingQueue) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

var transcriptText = strings.Repeat("Registro de Avance Individual 518002 English I Aprobado ", 3)

type ingestionFixture struct {
	sessions *SessionService
	runs     *repository.MemoryIngestionRunRepository
	queue    *recordingQueue
	svc      *IngestionService
	session  string
}

func newIngestionFixture(t *testing.T, parser TranscriptParser, doc document, openErr error) *ingestionFixture {
	t.Helper()
	sessions := NewSessionService(nil, nil, nil, SessionConfig{})
	runs := repository.NewMemoryIngestionRunRepository(10)
	queue := &recordingQueue{}
	svc := NewIngestionService(sessions, parser, runs, nil, nil, IngestionConfig{MaxUploadBytes: 1024})
	svc.SetQueue(queue)
	svc.open = func([]byte) (document, error) {
		if openErr != nil {
			return nil, openErr
		}
		return doc, nil
	}
	view := sessions.Create(context.Background())
	return &ingestionFixture{sessions: sessions, runs: runs, queue: queue, svc: svc, session: view.ID}
}

func (f *ingestionFixture) submitAndRun(t *testing.T) *models.IngestionRun {
	t.Helper()
	ctx := context.Background()
	run, err := f.svc.Submit(ctx, f.session, "rai.pdf", []byte("%PDF-1.7 content"))
	require.NoError(t, err)
	require.Len(t, f.queue.jobs, 1)

	state, _, err := f.sessions.Processing(ctx, f.session)
	require.NoError(t, err)
	assert.True(t, state.Active)
	assert.Equal(t, PhaseReading, state.Phase)

	require.NoError(t, f.svc.Handle(ctx, f.queue.jobs[0]))
	runs, _, err := f.svc.Runs(ctx, models.IngestionRunFilter{SessionID: f.session})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
	return &runs[0]
}

func TestIngestionSuccessSwapsStore(t *testing.T) {
	records := []models.StudentCourseRecord{
		{Code: "503438689", Status: models.StatusApproved, Credits: 3},
		{Code: "518002", Status: models.StatusInProgress, Credits: 3},
		{Code: "518002", Status: models.StatusApproved, Credits: 3},
	}
	f := newIngestionFixture(t, StaticTranscriptParser{Records: records}, fakeDocument{pages: 2, text: transcriptText}, nil)

	run := f.submitAndRun(t)
	assert.Equal(t, models.IngestionSucceeded, run.Outcome)
	assert.Equal(t, 2, run.CourseCount)
	assert.Equal(t, 2, run.PageCount)
	assert.Nil(t, run.ErrorMessage)

	store, err := f.sessions.Store(context.Background(), f.session)
	require.NoError(t, err)
	assert.Equal(t, 2, store.Len())
	assert.Equal(t, models.StatusApproved, store.Status("518002"))

	state, note, err := f.sessions.Processing(context.Background(), f.session)
	require.NoError(t, err)
	assert.False(t, state.Active)
	require.NotNil(t, note)
	assert.Equal(t, models.NotificationSuccess, note.Level)
	assert.Equal(t, "Analysis complete: 2 courses identified", note.Message)
}

func TestIngestionFailuresLeaveStoreUntouched(t *testing.T) {
	cases := []struct {
		name    string
		parser  TranscriptParser
		doc     document
		openErr error
		outcome models.IngestionOutcome
		message string
	}{
		{
			name:    "unreadable pdf",
			parser:  StaticTranscriptParser{Records: approved("A")},
			openErr: errors.New("malformed xref"),
			outcome: models.IngestionFailed,
			message: appErrors.ErrDocumentUnreadable.Message,
		},
		{
			name:    "scanned pdf",
			parser:  StaticTranscriptParser{Records: approved("A")},
			doc:     fakeDocument{pages: 3, text: "too short"},
			outcome: models.IngestionFailed,
			message: appErrors.ErrDocumentUnreadable.Message,
		},
		{
			name:    "parser failure",
			parser:  StaticTranscriptParser{Err: errors.New("model unavailable")},
			doc:     fakeDocument{pages: 1, text: transcriptText},
			outcome: models.IngestionFailed,
			message: appErrors.ErrIngestion.Message,
		},
		{
			name:    "zero records",
			parser:  StaticTranscriptParser{},
			doc:     fakeDocument{pages: 1, text: transcriptText},
			outcome: models.IngestionEmpty,
			message: appErrors.ErrNoCoursesFound.Message,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newIngestionFixture(t, tc.parser, tc.doc, tc.openErr)
			prior, err := f.sessions.ReplaceRecords(context.Background(), f.session, approved("503438689", "80017"))
			require.NoError(t, err)

			run := f.submitAndRun(t)
			assert.Equal(t, tc.outcome, run.Outcome)
			require.NotNil(t, run.ErrorMessage)
			assert.Equal(t, tc.message, *run.ErrorMessage)

			store, err := f.sessions.Store(context.Background(), f.session)
			require.NoError(t, err)
			assert.Same(t, prior, store)

			state, note, err := f.sessions.Processing(context.Background(), f.session)
			require.NoError(t, err)
			assert.False(t, state.Active)
			require.NotNil(t, note)
			assert.Equal(t, models.NotificationError, note.Level)
			assert.Equal(t, tc.message, note.Message)
		})
	}
}

func TestIngestionSubmitValidation(t *testing.T) {
	f := newIngestionFixture(t, StaticTranscriptParser{}, fakeDocument{}, nil)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, f.session, "empty.pdf", nil)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = f.svc.Submit(ctx, f.session, "big.pdf", make([]byte, 2048))
	assert.True(t, errors.Is(err, appErrors.ErrPayloadTooLarge))

	_, err = f.svc.Submit(ctx, "missing", "rai.pdf", []byte("x"))
	assert.True(t, errors.Is(err, appErrors.ErrSessionNotFound))

	_, err = f.svc.Submit(ctx, f.session, "rai.pdf", []byte("x"))
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, f.session, "rai.pdf", []byte("x"))
	assert.True(t, errors.Is(err, appErrors.ErrIngestionInProgress))
	assert.Len(t, f.queue.jobs, 1)
}

func TestIngestionSubmitQueueFull(t *testing.T) {
	f := newIngestionFixture(t, StaticTranscriptParser{}, fakeDocument{}, nil)
	f.queue.err = jobs.ErrQueueFull
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, f.session, "rai.pdf", []byte("x"))
	assert.True(t, errors.Is(err, appErrors.ErrServiceUnavailable))

	state, _, err := f.sessions.Processing(ctx, f.session)
	require.NoError(t, err)
	assert.False(t, state.Active)

	runs, _, err := f.svc.Runs(ctx, models.IngestionRunFilter{SessionID: f.session})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.IngestionFailed, runs[0].Outcome)
}

func TestIngestionHandleIgnoresForeignPayload(t *testing.T) {
	f := newIngestionFixture(t, StaticTranscriptParser{}, fakeDocument{}, nil)
	assert.NoError(t, f.svc.Handle(context.Background(), jobs.Job{ID: "x", Payload: "nope"}))
}

func TestIngestionWithoutQueue(t *testing.T) {
	sessions := NewSessionService(nil, nil, nil, SessionConfig{})
	svc := NewIngestionService(sessions, StaticTranscriptParser{}, repository.NewMemoryIngestionRunRepository(1), nil, nil, IngestionConfig{})
	view := sessions.Create(context.Background())
	_, err := svc.Submit(context.Background(), view.ID, "rai.pdf", []byte("x"))
	assert.True(t, errors.Is(err, appErrors.ErrServiceUnavailable))
}

func TestIngestionPanicFreesSession(t *testing.T) {
	ctx := context.Background()
	f := newIngestionFixture(t, StaticTranscriptParser{Records: approved("518002")}, panickingDocument{}, nil)
	prior, err := f.sessions.ReplaceRecords(ctx, f.session, approved("80017"))
	require.NoError(t, err)

	var run *models.IngestionRun
	require.NotPanics(t, func() {
		run = f.submitAndRun(t)
	})
	assert.Equal(t, models.IngestionFailed, run.Outcome)
	require.NotNil(t, run.ErrorMessage)
	assert.Equal(t, appErrors.ErrDocumentUnreadable.Message, *run.ErrorMessage)

	state, note, err := f.sessions.Processing(ctx, f.session)
	require.NoError(t, err)
	assert.False(t, state.Active)
	require.NotNil(t, note)
	assert.Equal(t, models.NotificationError, note.Level)

	store, err := f.sessions.Store(ctx, f.session)
	require.NoError(t, err)
	assert.Same(t, prior, store)

	_, err = f.svc.Submit(ctx, f.session, "rai.pdf", []byte("%PDF-1.7 content"))
	assert.NoError(t, err)
	require.NoError(t, f.svc.Handle(ctx, f.queue.jobs[1]))
	_, err = f.sessions.Reset(ctx, f.session)
	assert.NoError(t, err)
}

func TestIngestionPanicThroughWorkerQueue(t *testing.T) {
	ctx := context.Background()
	f := newIngestionFixture(t, StaticTranscriptParser{Records: approved("518002")}, panickingDocument{}, nil)
	queue := jobs.NewQueue("transcripts-test", f.svc.Handle, jobs.QueueConfig{Workers: 1, BufferSize: 1})
	queue.Start(ctx)
	t.Cleanup(queue.Stop)
	f.svc.SetQueue(queue)

	_, err := f.svc.Submit(ctx, f.session, "rai.pdf", []byte("%PDF-1.7 content"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		state, _, err := f.sessions.Processing(ctx, f.session)
		return err == nil && !state.Active
	}, 2*time.Second, 10*time.Millisecond)

	_, err = f.sessions.Reset(ctx, f.session)
	assert.NoError(t, err)
}
