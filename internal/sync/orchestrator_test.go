package sync

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	gosync "sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kamar-Folarin/fleet-sync/internal/config"
	"github.com/Kamar-Folarin/fleet-sync/internal/db/dbtest"
	"github.com/Kamar-Folarin/fleet-sync/internal/errors"
	"github.com/Kamar-Folarin/fleet-sync/internal/events"
	"github.com/Kamar-Folarin/fleet-sync/internal/models"
	"github.com/Kamar-Folarin/fleet-sync/internal/reconcile"
)

type fakeSource struct {
	mu         gosync.Mutex
	configured bool
	vessels    []models.RemoteVessel
	users      []models.RemoteUser
	equipment  []models.RemoteEquipment
	usersErr   error
	gate       chan struct{}
	panicOn    string
}

func (f *fakeSource) FetchVessels(ctx context.Context) ([]models.RemoteVessel, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.panicOn == "vessels" {
		panic("malformed payload")
	}
	return f.vessels, nil
}

func (f *fakeSource) FetchUsers(context.Context) ([]models.RemoteUser, error) {
	return f.users, f.usersErr
}

func (f *fakeSource) FetchEquipment(context.Context) ([]models.RemoteEquipment, error) {
	return f.equipment, nil
}

func (f *fakeSource) Ping(context.Context) error { return nil }

func (f *fakeSource) IsConfigured() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.configured
}

func (f *fakeSource) Configure(baseURL, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.configured = baseURL != ""
}

type fixture struct {
	orch   *Orchestrator
	store  *dbtest.MemoryStore
	source *fakeSource
	bus    *events.Bus
}

func setup(t *testing.T) *fixture {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store := dbtest.NewMemoryStore()
	bus := events.NewBus(256, logger, nil)
	source := &fakeSource{configured: true}
	rec := reconcile.NewReconciler(store, bus, nil, logger, config.BatchConfig{Size: 10})

	var n atomic.Int64
	orch := NewOrchestrator(source, rec, NewStatusManager(store), bus, logger,
		WithIDGenerator(func() string {
			return fmt.Sprintf("run-%d", n.Add(1))
		}),
	)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = orch.Shutdown(ctx)
	})

	return &fixture{orch: orch, store: store, source: source, bus: bus}
}

func acmeVessel() models.RemoteVessel {
	return models.RemoteVessel{
		ID:          "v-1",
		Name:        "Northern Star",
		IMONumber:   "9876543",
		Status:      "approved",
		CompanyName: "Acme Shipping",
	}
}

func TestRun_FreshThenRepeat(t *testing.T) {
	f := setup(t)
	f.source.vessels = []models.RemoteVessel{acmeVessel()}
	ctx := context.Background()

	first, err := f.orch.Run(ctx, models.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusCompleted, first.Status)
	assert.Equal(t, 1, first.VesselsSynced)
	assert.Empty(t, first.Errors)
	assert.Equal(t, 1, first.Metadata["companiesSynced"])
	require.NotNil(t, first.CompletedAt)

	second, err := f.orch.Run(ctx, models.TriggerScheduled)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusCompleted, second.Status)
	assert.Equal(t, 1, second.VesselsSynced)
	assert.Len(t, f.store.Vessels(), 1)
	assert.Len(t, f.store.Companies(), 1)

	stored, err := f.orch.GetStatus(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusCompleted, stored.Status)
	assert.Equal(t, models.TriggerManual, stored.TriggerKind)
}

func TestRun_EquipmentWithoutParentVessel(t *testing.T) {
	f := setup(t)
	f.source.equipment = []models.RemoteEquipment{{
		ID:        "e-1",
		Name:      "Main Engine",
		QRCode:    "QR-1",
		VesselIMO: "0000000",
	}}

	run, err := f.orch.Run(context.Background(), models.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusCompleted, run.Status)
	assert.Equal(t, 0, run.EquipmentSynced)
	assert.Empty(t, run.Errors)
	assert.Len(t, f.store.Queue(), 1)
}

func TestRun_PhaseFailureIsRecorded(t *testing.T) {
	f := setup(t)
	f.source.vessels = []models.RemoteVessel{acmeVessel()}
	f.source.usersErr = stderrors.New("connection reset")

	run, err := f.orch.Run(context.Background(), models.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusCompleted, run.Status)
	assert.Equal(t, 1, run.VesselsSynced)
	require.Len(t, run.Errors, 1)
	assert.Contains(t, run.Errors[0], "users: failed to fetch users")
}

func TestRun_PanicMarksRunFailed(t *testing.T) {
	f := setup(t)
	f.source.panicOn = "vessels"

	sub := f.bus.Subscribe()
	defer sub.Close()

	run, err := f.orch.Run(context.Background(), models.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusFailed, run.Status)
	require.NotEmpty(t, run.Errors)
	assert.Contains(t, run.Errors[0], "malformed payload")
	assert.False(t, f.orch.GetCurrentSyncStatus().IsSyncing)

	var topics []events.Topic
	for len(sub.Events()) > 0 {
		topics = append(topics, (<-sub.Events()).Topic)
	}
	assert.Contains(t, topics, events.TopicStarted)
	assert.Contains(t, topics, events.TopicFailed)
	assert.NotContains(t, topics, events.TopicCompleted)
}

func TestStart_RejectsConcurrentRun(t *testing.T) {
	f := setup(t)
	f.source.gate = make(chan struct{})
	f.source.vessels = []models.RemoteVessel{acmeVessel()}
	ctx := context.Background()

	id, err := f.orch.Start(ctx, models.TriggerManual)
	require.NoError(t, err)

	status := f.orch.GetCurrentSyncStatus()
	assert.True(t, status.IsSyncing)
	assert.Equal(t, id, status.CurrentSyncID)

	_, err = f.orch.Start(ctx, models.TriggerScheduled)
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))
	var inProgress *errors.SyncInProgressError
	require.ErrorAs(t, err, &inProgress)
	assert.Equal(t, id, inProgress.CurrentSyncID)

	active, err := f.orch.GetStatus(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, id, active.ID)
	assert.Equal(t, models.SyncStatusInProgress, active.Status)

	close(f.source.gate)
	require.Eventually(t, func() bool {
		return !f.orch.GetCurrentSyncStatus().IsSyncing
	}, 2*time.Second, 10*time.Millisecond)

	history, err := f.orch.GetHistory(ctx, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, history.Total, "rejected trigger must not create a run")
	assert.Equal(t, models.SyncStatusCompleted, history.Runs[0].Status)
}

func TestStart_Validation(t *testing.T) {
	f := setup(t)

	_, err := f.orch.Start(context.Background(), models.TriggerKind("nightly"))
	assert.True(t, errors.IsInvalidInput(err))

	f.source.Configure("", "")
	_, err = f.orch.Start(context.Background(), models.TriggerManual)
	assert.True(t, errors.IsInvalidInput(err))
	assert.False(t, f.orch.GetCurrentSyncStatus().IsSyncing)
}

func TestGetStatus_NotFound(t *testing.T) {
	f := setup(t)

	_, err := f.orch.GetStatus(context.Background(), "missing")
	assert.True(t, errors.IsNotFound(err))

	_, err = f.orch.GetStatus(context.Background(), "")
	assert.True(t, errors.IsNotFound(err))
}

func TestGetHistory_Paging(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := f.orch.Run(ctx, models.TriggerScheduled)
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	page, err := f.orch.GetHistory(ctx, 2, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total)
	require.Len(t, page.Runs, 2)
	assert.Equal(t, "run-3", page.Runs[0].ID)

	rest, err := f.orch.GetHistory(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, rest.Runs, 1)
	assert.Equal(t, "run-1", rest.Runs[0].ID)
}

func TestShutdown_InterruptsBackgroundRun(t *testing.T) {
	f := setup(t)
	f.source.gate = make(chan struct{})

	id, err := f.orch.Start(context.Background(), models.TriggerManual)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, f.orch.Shutdown(ctx))

	run, err := f.orch.GetStatus(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusFailed, run.Status)
}

// publishFunc delivers events synchronously on the publishing goroutine
type publishFunc func(events.Event)

func (f publishFunc) Publish(e events.Event) { f(e) }

func TestRun_LockReleasedBeforeTerminalEvent(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store := dbtest.NewMemoryStore()
	source := &fakeSource{configured: true, vessels: []models.RemoteVessel{acmeVessel()}}
	rec := reconcile.NewReconciler(store, nil, nil, logger, config.BatchConfig{Size: 10})

	var (
		orch        *Orchestrator
		seen        bool
		syncingSeen bool
		retriggerID string
		retrigger   error
	)
	var n atomic.Int64
	orch = NewOrchestrator(source, rec, NewStatusManager(store), publishFunc(func(e events.Event) {
		if e.Topic != events.TopicCompleted || seen {
			return
		}
		seen = true
		syncingSeen = orch.GetCurrentSyncStatus().IsSyncing
		retriggerID, retrigger = orch.Start(context.Background(), models.TriggerManual)
	}), logger, WithIDGenerator(func() string {
		return fmt.Sprintf("run-%d", n.Add(1))
	}))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = orch.Shutdown(ctx)
	})

	run, err := orch.Run(context.Background(), models.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusCompleted, run.Status)

	require.True(t, seen)
	assert.False(t, syncingSeen)
	require.NoError(t, retrigger)
	assert.Equal(t, "run-2", retriggerID)

	require.Eventually(t, func() bool {
		return !orch.GetCurrentSyncStatus().IsSyncing
	}, 2*time.Second, 10*time.Millisecond)
}
