package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/malla-api/internal/models"
)

// MemoryIngestionRunRepository keeps ingestion history in process memory. It
// serves deployments without the audit database; history is capped per
// session.
type MemoryIngestionRunRepository struct {
	mu         sync.RWMutex
	runs       map[string][]models.IngestionRun
	perSession int
}

// NewMemoryIngestionRunRepository constructs the in-memory store.
func NewMemoryIngestionRunRepository(perSession int) *MemoryIngestionRunRepository {
	if perSession <= 0 {
		perSession = 50
	}
	return &MemoryIngestionRunRepository{runs: make(map[string][]models.IngestionRun), perSession: perSession}
}

// Create stores a new run.
func (r *MemoryIngestionRunRepository) Create(_ context.Context, run *models.IngestionRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	list := append(r.runs[run.SessionID], *run)
	if len(list) > r.perSession {
		list = list[len(list)-r.perSession:]
	}
	r.runs[run.SessionID] = list
	return nil
}

// Finish replaces the stored run with its final state.
func (r *MemoryIngestionRunRepository) Finish(_ context.Context, run *models.IngestionRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.runs[run.SessionID]
	for i := range list {
		if list[i].ID == run.ID {
			list[i] = *run
			return nil
		}
	}
	return fmt.Errorf("finish ingestion run: %s not found", run.ID)
}

// List returns a page of runs for a session, newest first.
func (r *MemoryIngestionRunRepository) List(_ context.Context, filter models.IngestionRunFilter) ([]models.IngestionRun, int, error) {
	page, size := normalisePage(filter.Page, filter.PageSize)

	r.mu.RLock()
	all := append([]models.IngestionRun(nil), r.runs[filter.SessionID]...)
	r.mu.RUnlock()

	sort.SliceStable(all, func(i, j int) bool { return all[i].StartedAt.After(all[j].StartedAt) })
	start := (page - 1) * size
	if start >= len(all) {
		return []models.IngestionRun{}, len(all), nil
	}
	end := start + size
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], len(all), nil
}
