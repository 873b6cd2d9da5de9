package sync

import (
	"context"
	"fmt"
	gosync "sync"

	"github.com/Kamar-Folarin/fleet-sync/internal/db"
	"github.com/Kamar-Folarin/fleet-sync/internal/errors"
	"github.com/Kamar-Folarin/fleet-sync/internal/models"
)

// StatusManager persists run state and keeps a snapshot of the in-flight run so that
// status polling does not hit the database.
type StatusManager struct {
	store  db.Store
	mu     gosync.RWMutex
	active *models.SyncRun
}

// NewStatusManager creates a new status manager
func NewStatusManager(store db.Store) *StatusManager {
	return &StatusManager{store: store}
}

// Create persists a new run
func (m *StatusManager) Create(ctx context.Context, run *models.SyncRun) error {
	if run == nil {
		return errors.NewValidationError("sync run cannot be nil", nil)
	}
	if err := m.store.CreateSyncRun(ctx, run); err != nil {
		return fmt.Errorf("failed to create sync run: %w", err)
	}
	m.track(run)
	return nil
}

// Update persists the run's current state and refreshes the cached snapshot
func (m *StatusManager) Update(ctx context.Context, run *models.SyncRun) error {
	if run == nil {
		return errors.NewValidationError("sync run cannot be nil", nil)
	}

	m.track(run)
	if err := m.store.UpdateSyncRun(ctx, run); err != nil {
		return fmt.Errorf("failed to update sync run: %w", err)
	}
	return nil
}

// track caches a copy of an in-flight run and drops it once terminal
func (m *StatusManager) track(run *models.SyncRun) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if run.Status.Terminal() {
		if m.active != nil && m.active.ID == run.ID {
			m.active = nil
		}
		return
	}
	m.active = snapshot(run)
}

// Active returns a copy of the in-flight run, if any
func (m *StatusManager) Active() *models.SyncRun {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.active == nil {
		return nil
	}
	return snapshot(m.active)
}

// Get returns the run with id, preferring the in-flight snapshot
func (m *StatusManager) Get(ctx context.Context, id string) (*models.SyncRun, error) {
	if active := m.Active(); active != nil && active.ID == id {
		return active, nil
	}

	run, err := m.store.GetSyncRun(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get sync run: %w", err)
	}
	if run == nil {
		return nil, errors.NewResourceNotFoundError("sync run", id)
	}
	return run, nil
}

// Latest returns the in-flight run, or the most recent persisted one, or nil
func (m *StatusManager) Latest(ctx context.Context) (*models.SyncRun, error) {
	if active := m.Active(); active != nil {
		return active, nil
	}

	run, err := m.store.GetLatestSyncRun(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest sync run: %w", err)
	}
	return run, nil
}

// History returns one page of runs, newest first
func (m *StatusManager) History(ctx context.Context, limit, offset int) (*models.SyncHistory, error) {
	runs, total, err := m.store.ListSyncRuns(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync runs: %w", err)
	}
	return &models.SyncHistory{
		Runs:   runs,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}, nil
}

func snapshot(run *models.SyncRun) *models.SyncRun {
	c := *run
	c.Errors = append([]string{}, run.Errors...)
	if run.Metadata != nil {
		c.Metadata = make(map[string]any, len(run.Metadata))
		for k, v := range run.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}
