package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/malla-api/internal/models"
	appErrors "github.com/noah-isme/malla-api/pkg/errors"
)

const sessionCachePrefix = "session:"

// sessionCache is the subset of CacheService used for snapshots.
type sessionCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// SessionConfig governs session lifetime.
type SessionConfig struct {
	TTL time.Duration
}

type studentSession struct {
	id           string
	name         string
	store        *models.ProgressStore
	processing   models.ProcessingState
	notification *models.Notification
	createdAt    time.Time
	updatedAt    time.Time
	lastSeen     time.Time

	// version counts persisted mutations and is guarded by the service mutex.
	// persisted is the newest version written to the cache.
	version   uint64
	persistMu sync.Mutex
	persisted uint64
}

// SessionService holds student sessions. Each session owns one progress
// store that is only ever replaced whole.
type SessionService struct {
	mu       sync.RWMutex
	sessions map[string]*studentSession

	cache   sessionCache
	metrics *MetricsService
	logger  *zap.Logger
	cfg     SessionConfig
	now     func() time.Time
}

// NewSessionService constructs the session registry. cache may be nil.
func NewSessionService(cache sessionCache, metrics *MetricsService, logger *zap.Logger, cfg SessionConfig) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 12 * time.Hour
	}
	return &SessionService{
		sessions: make(map[string]*studentSession),
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Create starts an empty session.
func (s *SessionService) Create(ctx context.Context) models.SessionView {
	now := s.now().UTC()
	sess := &studentSession{
		id:         uuid.NewString(),
		name:       models.DefaultStudentName,
		store:      models.EmptyProgressStore(),
		processing: models.ProcessingState{UpdatedAt: now},
		createdAt:  now,
		updatedAt:  now,
		lastSeen:   now,
		version:    1,
	}

	s.mu.Lock()
	s.sessions[sess.id] = sess
	count := len(s.sessions)
	view := s.viewLocked(sess)
	snapshot := snapshotOf(sess)
	s.mu.Unlock()

	s.metrics.SetActiveSessions(count)
	s.persist(ctx, sess, 1, snapshot)
	s.logger.Info("session created", zap.String("session_id", sess.id))
	return view
}

// Get returns the public view of a session.
func (s *SessionService) Get(ctx context.Context, id string) (models.SessionView, error) {
	var view models.SessionView
	err := s.with(ctx, id, false, func(sess *studentSession) error {
		view = s.viewLocked(sess)
		return nil
	})
	return view, err
}

// Store returns the session's current progress store.
func (s *SessionService) Store(ctx context.Context, id string) (*models.ProgressStore, error) {
	var store *models.ProgressStore
	err := s.with(ctx, id, false, func(sess *studentSession) error {
		store = sess.store
		return nil
	})
	return store, err
}

// StudentName returns the display name of the session owner.
func (s *SessionService) StudentName(ctx context.Context, id string) (string, error) {
	var name string
	err := s.with(ctx, id, false, func(sess *studentSession) error {
		name = sess.name
		return nil
	})
	return name, err
}

// ReplaceRecords swaps the session's store for one built from records. It
// fails with ErrIngestionInProgress while a transcript is being analysed.
func (s *SessionService) ReplaceRecords(ctx context.Context, id string, records []models.StudentCourseRecord) (*models.ProgressStore, error) {
	store := models.NewProgressStore(records)
	err := s.with(ctx, id, true, func(sess *studentSession) error {
		if sess.processing.Active {
			return appErrors.ErrIngestionInProgress
		}
		sess.store = store
		return nil
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

// Rename sets the student's display name. A blank name restores the default.
func (s *SessionService) Rename(ctx context.Context, id, name string) (models.SessionView, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = models.DefaultStudentName
	}
	var view models.SessionView
	err := s.with(ctx, id, true, func(sess *studentSession) error {
		sess.name = name
		view = s.viewLocked(sess)
		return nil
	})
	return view, err
}

// Reset clears the progress store and the student name.
func (s *SessionService) Reset(ctx context.Context, id string) (models.SessionView, error) {
	var view models.SessionView
	err := s.with(ctx, id, true, func(sess *studentSession) error {
		if sess.processing.Active {
			return appErrors.ErrIngestionInProgress
		}
		sess.store = models.EmptyProgressStore()
		sess.name = models.DefaultStudentName
		sess.notification = s.notificationLocked(models.NotificationInfo, "Progress cleared. Upload a new transcript to start a new analysis.")
		view = s.viewLocked(sess)
		return nil
	})
	return view, err
}

// BeginProcessing marks the session busy. It fails with
// ErrIngestionInProgress when a transcript is already being analysed.
func (s *SessionService) BeginProcessing(ctx context.Context, id, phase string) error {
	return s.with(ctx, id, true, func(sess *studentSession) error {
		if sess.processing.Active {
			return appErrors.ErrIngestionInProgress
		}
		sess.processing = models.ProcessingState{Active: true, Phase: phase, UpdatedAt: s.now().UTC()}
		return nil
	})
}

// SetPhase updates the progress phase of an active run.
func (s *SessionService) SetPhase(ctx context.Context, id, phase string) error {
	return s.with(ctx, id, false, func(sess *studentSession) error {
		if sess.processing.Active {
			sess.processing.Phase = phase
			sess.processing.UpdatedAt = s.now().UTC()
		}
		return nil
	})
}

// EndProcessing clears the busy flag and publishes a notification. When
// records is non-nil the store is swapped in the same critical section.
func (s *SessionService) EndProcessing(ctx context.Context, id string, records []models.StudentCourseRecord, level models.NotificationLevel, message string) error {
	var store *models.ProgressStore
	if records != nil {
		store = models.NewProgressStore(records)
	}
	return s.with(ctx, id, true, func(sess *studentSession) error {
		if store != nil {
			sess.store = store
		}
		sess.processing = models.ProcessingState{UpdatedAt: s.now().UTC()}
		sess.notification = s.notificationLocked(level, message)
		return nil
	})
}

// Processing returns the processing state and latest notification.
func (s *SessionService) Processing(ctx context.Context, id string) (models.ProcessingState, *models.Notification, error) {
	var (
		state models.ProcessingState
		note  *models.Notification
	)
	err := s.with(ctx, id, false, func(sess *studentSession) error {
		state = sess.processing
		if sess.notification != nil {
			n := *sess.notification
			note = &n
		}
		return nil
	})
	return state, note, err
}

// Delete removes a session.
func (s *SessionService) Delete(ctx context.Context, id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	count := len(s.sessions)
	s.mu.Unlock()

	s.metrics.SetActiveSessions(count)
	if s.cache != nil {
		_ = s.cache.Delete(ctx, sessionCachePrefix+id)
	}
}

// Count returns the number of sessions held in memory.
func (s *SessionService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep drops in-memory sessions idle for longer than the TTL. Sessions with
// an active ingestion are kept. Cached snapshots expire on their own.
func (s *SessionService) Sweep(ctx context.Context) int {
	cutoff := s.now().UTC().Add(-s.cfg.TTL)

	s.mu.Lock()
	removed := 0
	for id, sess := range s.sessions {
		if sess.processing.Active || sess.lastSeen.After(cutoff) {
			continue
		}
		delete(s.sessions, id)
		removed++
	}
	count := len(s.sessions)
	s.mu.Unlock()

	s.metrics.SetActiveSessions(count)
	if removed > 0 {
		s.logger.Info("idle sessions swept", zap.Int("removed", removed), zap.Int("remaining", count))
	}
	return removed
}

// with runs fn on the session under the write lock. When persist is true the
// updated session is written to the cache after the lock is released.
func (s *SessionService) with(ctx context.Context, id string, persist bool, fn func(*studentSession) error) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return appErrors.ErrSessionNotFound
	}
	if err := fn(sess); err != nil {
		s.mu.Unlock()
		return err
	}
	now := s.now().UTC()
	sess.lastSeen = now
	var (
		snapshot *models.SessionSnapshot
		version  uint64
	)
	if persist {
		sess.updatedAt = now
		sess.version++
		version = sess.version
		snap := snapshotOf(sess)
		snapshot = &snap
	}
	s.mu.Unlock()

	if snapshot != nil {
		s.persist(ctx, sess, version, *snapshot)
	}
	return nil
}

// load makes sure id is in memory, rehydrating it from the cache when another
// instance created it or it was swept.
func (s *SessionService) load(ctx context.Context, id string) (*studentSession, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return sess, nil
	}
	if s.cache == nil || id == "" {
		return nil, appErrors.ErrSessionNotFound
	}

	var snap models.SessionSnapshot
	hit, err := s.cache.Get(ctx, sessionCachePrefix+id, &snap)
	if err != nil || !hit || snap.ID != id {
		return nil, appErrors.ErrSessionNotFound
	}

	now := s.now().UTC()
	restored := &studentSession{
		id:           snap.ID,
		name:         snap.StudentName,
		store:        models.NewProgressStore(snap.Records),
		processing:   models.ProcessingState{UpdatedAt: now},
		notification: snap.Notification,
		createdAt:    snap.CreatedAt,
		updatedAt:    snap.UpdatedAt,
		lastSeen:     now,
	}

	s.mu.Lock()
	if existing, ok := s.sessions[id]; ok {
		restored = existing
	} else {
		s.sessions[id] = restored
	}
	count := len(s.sessions)
	s.mu.Unlock()

	s.metrics.SetActiveSessions(count)
	s.logger.Debug("session restored from cache", zap.String("session_id", id))
	return restored, nil
}

// persist writes snap to the cache unless a newer version of the session has
// already been written. Writes for one session are serialised.
func (s *SessionService) persist(ctx context.Context, sess *studentSession, version uint64, snap models.SessionSnapshot) {
	if s.cache == nil {
		return
	}
	sess.persistMu.Lock()
	defer sess.persistMu.Unlock()

	if version <= sess.persisted {
		s.logger.Debug("stale session snapshot skipped",
			zap.String("session_id", snap.ID),
			zap.Uint64("version", version),
			zap.Uint64("persisted", sess.persisted),
		)
		return
	}
	if err := s.cache.Set(ctx, sessionCachePrefix+snap.ID, snap, s.cfg.TTL); err != nil {
		s.logger.Warn("session snapshot not saved", zap.String("session_id", snap.ID), zap.Error(err))
		return
	}
	sess.persisted = version
}

func (s *SessionService) notificationLocked(level models.NotificationLevel, message string) *models.Notification {
	return &models.Notification{Level: level, Message: message, CreatedAt: s.now().UTC()}
}

func (s *SessionService) viewLocked(sess *studentSession) models.SessionView {
	view := models.SessionView{
		ID:          sess.id,
		StudentName: sess.name,
		RecordCount: sess.store.Len(),
		Processing:  sess.processing,
		CreatedAt:   sess.createdAt,
		UpdatedAt:   sess.updatedAt,
		ExpiresAt:   sess.lastSeen.Add(s.cfg.TTL),
	}
	if sess.notification != nil {
		n := *sess.notification
		view.Notification = &n
	}
	return view
}

func snapshotOf(sess *studentSession) models.SessionSnapshot {
	return models.SessionSnapshot{
		ID:           sess.id,
		StudentName:  sess.name,
		Records:      sess.store.Records(),
		Notification: sess.notification,
		CreatedAt:    sess.createdAt,
		UpdatedAt:    sess.updatedAt,
	}
}
