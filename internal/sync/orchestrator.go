// Package sync drives full synchronization runs from the onboarding portal into local storage.
package sync

import (
	"context"
	"fmt"
	"runtime/debug"
	gosync "sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/fleet-sync/internal/errors"
	"github.com/Kamar-Folarin/fleet-sync/internal/events"
	"github.com/Kamar-Folarin/fleet-sync/internal/metrics"
	"github.com/Kamar-Folarin/fleet-sync/internal/models"
	"github.com/Kamar-Folarin/fleet-sync/internal/reconcile"
	"github.com/Kamar-Folarin/fleet-sync/internal/remote"
)

// Service is the orchestrator as used by the HTTP layer and the scheduler
type Service interface {
	// Start begins a run in the background and returns its id
	Start(ctx context.Context, trigger models.TriggerKind) (string, error)
	// Run executes a run to completion
	Run(ctx context.Context, trigger models.TriggerKind) (*models.SyncRun, error)
	GetStatus(ctx context.Context, runID string) (*models.SyncRun, error)
	GetLatest(ctx context.Context) (*models.SyncRun, error)
	GetHistory(ctx context.Context, limit, offset int) (*models.SyncHistory, error)
	GetCurrentSyncStatus() models.CurrentSyncStatus
}

// Orchestrator runs vessels, users and equipment phases in order under the run lock
type Orchestrator struct {
	source     remote.Source
	reconciler *reconcile.Reconciler
	status     *StatusManager
	bus        events.Publisher
	metrics    *metrics.Metrics
	logger     *logrus.Logger

	lock RunLock
	wg   gosync.WaitGroup

	// baseCtx outlives the request that started a background run
	baseCtx context.Context
	cancel  context.CancelFunc
	newID   func() string
}

var _ Service = (*Orchestrator)(nil)

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithMetrics sets the metrics sink
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithIDGenerator overrides how run ids are allocated
func WithIDGenerator(fn func() string) Option {
	return func(o *Orchestrator) {
		o.newID = fn
	}
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(
	source remote.Source,
	reconciler *reconcile.Reconciler,
	status *StatusManager,
	bus events.Publisher,
	logger *logrus.Logger,
	opts ...Option,
) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		source:     source,
		reconciler: reconciler,
		status:     status,
		bus:        bus,
		logger:     logger,
		baseCtx:    ctx,
		cancel:     cancel,
		newID:      newRunID,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Start acquires the run lock, persists the run as in progress and executes it in the
// background. A second call while a run holds the lock fails with SyncInProgressError.
func (o *Orchestrator) Start(ctx context.Context, trigger models.TriggerKind) (string, error) {
	run, err := o.begin(ctx, trigger)
	if err != nil {
		return "", err
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.execute(o.baseCtx, run)
	}()

	return run.ID, nil
}

// Run is the synchronous form of Start
func (o *Orchestrator) Run(ctx context.Context, trigger models.TriggerKind) (*models.SyncRun, error) {
	run, err := o.begin(ctx, trigger)
	if err != nil {
		return nil, err
	}

	o.wg.Add(1)
	defer o.wg.Done()

	o.execute(ctx, run)
	return snapshot(run), nil
}

// begin performs steps that must succeed before a run is reported as started
func (o *Orchestrator) begin(ctx context.Context, trigger models.TriggerKind) (*models.SyncRun, error) {
	if !trigger.Valid() {
		return nil, errors.NewValidationError(fmt.Sprintf("unknown trigger kind %q", trigger), nil)
	}
	if !o.source.IsConfigured() {
		return nil, errors.NewValidationError("onboarding API is not configured", remote.ErrNotConfigured)
	}

	id := o.newID()
	acquired, holder := o.lock.TryAcquire(id)
	if !acquired {
		o.logger.WithFields(logrus.Fields{
			"trigger":         trigger,
			"current_sync_id": holder,
		}).Warn("Sync already in progress")
		return nil, errors.NewSyncInProgressError(holder)
	}

	run := models.NewSyncRun(id, trigger)
	if err := o.status.Create(ctx, run); err != nil {
		o.lock.Release(id)
		return nil, errors.NewInternalError("failed to record sync run", err)
	}

	run.Status = models.SyncStatusInProgress
	if err := o.status.Update(ctx, run); err != nil {
		run.Status = models.SyncStatusFailed
		run.AddError("failed to start: %v", err)
		now := time.Now().UTC()
		run.CompletedAt = &now
		_ = o.status.Update(ctx, run)
		o.lock.Release(id)
		return nil, errors.NewInternalError("failed to start sync run", err)
	}

	o.logger.WithFields(logrus.Fields{
		"sync_id": id,
		"trigger": trigger,
	}).Info("Sync run started")
	o.publish(events.TopicStarted, run, map[string]any{"syncType": trigger})

	return run, nil
}

// phase fetches one entity collection and reconciles it
type phase struct {
	name string
	run  func(ctx context.Context, syncID string) (reconcile.Result, error)
}

func (o *Orchestrator) phases() []phase {
	return []phase{
		{
			name: "vessels",
			run: func(ctx context.Context, syncID string) (reconcile.Result, error) {
				vessels, err := o.source.FetchVessels(ctx)
				if err != nil {
					return reconcile.Result{}, fmt.Errorf("failed to fetch vessels: %w", err)
				}
				return o.reconciler.ReconcileVessels(ctx, syncID, vessels), nil
			},
		},
		{
			name: "users",
			run: func(ctx context.Context, syncID string) (reconcile.Result, error) {
				users, err := o.source.FetchUsers(ctx)
				if err != nil {
					return reconcile.Result{}, fmt.Errorf("failed to fetch users: %w", err)
				}
				return o.reconciler.ReconcileUsers(ctx, syncID, users), nil
			},
		},
		{
			name: "equipment",
			run: func(ctx context.Context, syncID string) (reconcile.Result, error) {
				equipment, err := o.source.FetchEquipment(ctx)
				if err != nil {
					return reconcile.Result{}, fmt.Errorf("failed to fetch equipment: %w", err)
				}
				return o.reconciler.ReconcileEquipment(ctx, syncID, equipment), nil
			},
		},
	}
}

// execute runs every phase, finalizes the run and releases the lock. Phase errors are
// recorded on the run; only a panic or an interrupted context marks it failed.
func (o *Orchestrator) execute(ctx context.Context, run *models.SyncRun) {
	logger := o.logger.WithFields(logrus.Fields{
		"sync_id": run.ID,
		"trigger": run.TriggerKind,
	})

	defer o.lock.Release(run.ID)
	defer func() {
		if r := recover(); r != nil {
			logger.WithField("stack", string(debug.Stack())).Errorf("Sync run panicked: %v", r)
			run.AddError("unexpected error: %v", r)
			o.finish(run, models.SyncStatusFailed, logger)
		}
	}()

	companies := 0
	for _, p := range o.phases() {
		if err := ctx.Err(); err != nil {
			run.AddError("sync interrupted: %v", err)
			o.finish(run, models.SyncStatusFailed, logger)
			return
		}

		phaseLogger := logger.WithField("phase", p.name)
		phaseLogger.Info("Starting sync phase")

		result, err := p.run(ctx, run.ID)
		failed := result.Failed
		if err != nil {
			failed++
			phaseLogger.WithError(err).Error("Sync phase failed")
			run.AddError("%s: %v", p.name, err)
		} else {
			run.SyncCounters.Add(result.SyncCounters)
			for _, e := range result.Errors {
				run.AddError("%s: %s", p.name, e)
			}
			companies += result.CompaniesSynced
			run.Metadata[p.name] = map[string]int{
				"created": result.Created,
				"updated": result.Updated,
				"skipped": result.Skipped,
				"failed":  result.Failed,
			}
			run.Metadata["companiesSynced"] = companies

			phaseLogger.WithFields(logrus.Fields{
				"created": result.Created,
				"updated": result.Updated,
				"skipped": result.Skipped,
				"failed":  result.Failed,
			}).Info("Sync phase finished")
		}

		if err := o.status.Update(ctx, run); err != nil {
			phaseLogger.WithError(err).Warn("Failed to persist sync progress")
		}
		o.publish(events.TopicProgress, run, models.SyncProgress{
			SyncID:  run.ID,
			Phase:   p.name,
			Message: fmt.Sprintf("%s phase finished", p.name),
			Failed:  failed,
		})
	}

	if err := ctx.Err(); err != nil {
		run.AddError("sync interrupted: %v", err)
		o.finish(run, models.SyncStatusFailed, logger)
		return
	}
	o.finish(run, models.SyncStatusCompleted, logger)
}

// finish moves the run to a terminal status exactly once, frees the run lock and then
// announces it, so subscribers reacting to the terminal event can start the next run.
func (o *Orchestrator) finish(run *models.SyncRun, status models.SyncStatus, logger *logrus.Entry) {
	if run.Status.Terminal() {
		return
	}

	now := time.Now().UTC()
	run.Status = status
	run.CompletedAt = &now

	// The request context may already be gone; the final write must still land.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := o.status.Update(ctx, run); err != nil {
		logger.WithError(err).Error("Failed to persist final sync status")
	}
	o.lock.Release(run.ID)

	o.metrics.ObserveSyncRun(string(run.TriggerKind), string(status), run.Duration())

	fields := logrus.Fields{
		"status":           status,
		"duration":         run.Duration(),
		"vessels_synced":   run.VesselsSynced,
		"users_synced":     run.UsersSynced,
		"equipment_synced": run.EquipmentSynced,
		"errors":           len(run.Errors),
	}
	if status == models.SyncStatusFailed {
		logger.WithFields(fields).Error("Sync run failed")
		o.publish(events.TopicFailed, run, snapshot(run))
		return
	}
	logger.WithFields(fields).Info("Sync run completed")
	o.publish(events.TopicCompleted, run, snapshot(run))
}

func (o *Orchestrator) publish(topic events.Topic, run *models.SyncRun, data any) {
	if o.bus == nil {
		return
	}
	o.bus.Publish(events.New(topic, run.ID, data))
}

// GetStatus returns the run with runID, or the in-flight/latest run when runID is empty
func (o *Orchestrator) GetStatus(ctx context.Context, runID string) (*models.SyncRun, error) {
	if runID == "" {
		run, err := o.GetLatest(ctx)
		if err != nil {
			return nil, err
		}
		if run == nil {
			return nil, errors.NewNotFoundError("no sync runs recorded", nil)
		}
		return run, nil
	}
	return o.status.Get(ctx, runID)
}

// GetLatest returns the in-flight run or the most recent one, or nil when none exist
func (o *Orchestrator) GetLatest(ctx context.Context) (*models.SyncRun, error) {
	return o.status.Latest(ctx)
}

// GetHistory returns a page of runs, newest first
func (o *Orchestrator) GetHistory(ctx context.Context, limit, offset int) (*models.SyncHistory, error) {
	return o.status.History(ctx, limit, offset)
}

// GetCurrentSyncStatus reports whether a run holds the lock
func (o *Orchestrator) GetCurrentSyncStatus() models.CurrentSyncStatus {
	id, busy := o.lock.Current()
	return models.CurrentSyncStatus{
		IsSyncing:     busy,
		CurrentSyncID: id,
	}
}

// Shutdown cancels background runs and waits for them to finish or for ctx to expire
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.cancel()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timed out waiting for sync runs: %w", ctx.Err())
	}
}
