package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Kamar-Folarin/fleet-sync/internal/config"
	"github.com/Kamar-Folarin/fleet-sync/internal/db/dbtest"
	apperrors "github.com/Kamar-Folarin/fleet-sync/internal/errors"
	"github.com/Kamar-Folarin/fleet-sync/internal/events"
	"github.com/Kamar-Folarin/fleet-sync/internal/models"
	"github.com/Kamar-Folarin/fleet-sync/internal/scheduler"
)

const testToken = "test-token"

// MockSyncService is a mock implementation of sync.Service
type MockSyncService struct {
	mock.Mock
}

func (m *MockSyncService) Start(ctx context.Context, trigger models.TriggerKind) (string, error) {
	args := m.Called(ctx, trigger)
	return args.String(0), args.Error(1)
}

func (m *MockSyncService) Run(ctx context.Context, trigger models.TriggerKind) (*models.SyncRun, error) {
	args := m.Called(ctx, trigger)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SyncRun), args.Error(1)
}

func (m *MockSyncService) GetStatus(ctx context.Context, runID string) (*models.SyncRun, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SyncRun), args.Error(1)
}

func (m *MockSyncService) GetLatest(ctx context.Context) (*models.SyncRun, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SyncRun), args.Error(1)
}

func (m *MockSyncService) GetHistory(ctx context.Context, limit, offset int) (*models.SyncHistory, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SyncHistory), args.Error(1)
}

func (m *MockSyncService) GetCurrentSyncStatus() models.CurrentSyncStatus {
	args := m.Called()
	return args.Get(0).(models.CurrentSyncStatus)
}

// MockWebhookService is a mock implementation of webhook.Service
type MockWebhookService struct {
	mock.Mock
}

func (m *MockWebhookService) Receive(ctx context.Context, eventID, eventType string, payload json.RawMessage) (bool, error) {
	args := m.Called(ctx, eventID, eventType, payload)
	return args.Bool(0), args.Error(1)
}

func (m *MockWebhookService) List(ctx context.Context, status string, limit int) ([]*models.WebhookEvent, error) {
	args := m.Called(ctx, status, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.WebhookEvent), args.Error(1)
}

// fakeRemote records Configure calls
type fakeRemote struct {
	cfg     config.RemoteConfig
	pingErr error
}

func (f *fakeRemote) Configure(baseURL, apiKey string) {
	f.cfg.BaseURL = baseURL
	f.cfg.APIKey = apiKey
}

func (f *fakeRemote) IsConfigured() bool            { return f.cfg.BaseURL != "" }
func (f *fakeRemote) Ping(context.Context) error    { return f.pingErr }
func (f *fakeRemote) Settings() config.RemoteConfig { return f.cfg }

// fakeSchedule stores settings without running a ticker
type fakeSchedule struct {
	settings scheduler.Settings
}

func (f *fakeSchedule) Reschedule(interval time.Duration, enabled bool) scheduler.Settings {
	f.settings = scheduler.Settings{Interval: interval, Enabled: enabled}
	return f.settings
}

func (f *fakeSchedule) Settings() scheduler.Settings { return f.settings }

type testEnv struct {
	router   *gin.Engine
	sync     *MockSyncService
	webhooks *MockWebhookService
	remote   *fakeRemote
	schedule *fakeSchedule
	store    *dbtest.MemoryStore
	bus      *events.Bus
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	env := &testEnv{
		sync:     new(MockSyncService),
		webhooks: new(MockWebhookService),
		remote:   &fakeRemote{cfg: config.RemoteConfig{BaseURL: "https://onboarding.example.com", APIKey: "key-1"}},
		schedule: &fakeSchedule{settings: scheduler.Settings{Interval: time.Hour, Enabled: true}},
		store:    dbtest.NewMemoryStore(),
		bus:      events.NewBus(16, logger, nil),
	}

	handler := NewHandler(env.sync, env.webhooks, env.remote, env.schedule, env.store, env.bus, env.store, logger,
		WithKeepAlive(20*time.Millisecond))
	env.router = SetupRouter(handler, RouterConfig{APIToken: testToken})
	return env
}

func (e *testEnv) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader = http.NoBody
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = strings.NewReader(b)
		default:
			data, _ := json.Marshal(b)
			reader = bytes.NewReader(data)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+testToken)

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestTriggerSync(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		env := setupTestEnv(t)
		env.sync.On("Start", mock.Anything, models.TriggerManual).Return("run-1", nil)

		w := env.do(http.MethodPost, "/api/v1/sync/trigger", nil)

		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.Equal(t, "run-1", decodeBody[TriggerResponse](t, w).SyncID)
		env.sync.AssertExpectations(t)
	})

	t.Run("real time trigger", func(t *testing.T) {
		env := setupTestEnv(t)
		env.sync.On("Start", mock.Anything, models.TriggerRealTime).Return("run-2", nil)

		w := env.do(http.MethodPost, "/api/v1/sync/trigger", TriggerRequest{SyncType: models.TriggerRealTime})

		assert.Equal(t, http.StatusAccepted, w.Code)
		env.sync.AssertExpectations(t)
	})

	t.Run("already running", func(t *testing.T) {
		env := setupTestEnv(t)
		env.sync.On("Start", mock.Anything, models.TriggerManual).
			Return("", apperrors.NewSyncInProgressError("run-1"))

		w := env.do(http.MethodPost, "/api/v1/sync/trigger", nil)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "run-1", decodeBody[ErrorResponse](t, w).CurrentSyncID)
	})

	t.Run("not configured", func(t *testing.T) {
		env := setupTestEnv(t)
		env.sync.On("Start", mock.Anything, models.TriggerManual).
			Return("", apperrors.NewValidationError("onboarding API is not configured", nil))

		w := env.do(http.MethodPost, "/api/v1/sync/trigger", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		env := setupTestEnv(t)

		w := env.do(http.MethodPost, "/api/v1/sync/trigger", "{")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		env.sync.AssertNotCalled(t, "Start", mock.Anything, mock.Anything)
	})
}

func TestGetSyncStatus(t *testing.T) {
	t.Run("busy flag without id", func(t *testing.T) {
		env := setupTestEnv(t)
		run := models.NewSyncRun("run-1", models.TriggerScheduled)
		run.Status = models.SyncStatusInProgress
		env.sync.On("GetLatest", mock.Anything).Return(run, nil)
		env.sync.On("GetCurrentSyncStatus").Return(models.CurrentSyncStatus{IsSyncing: true, CurrentSyncID: "run-1"})

		w := env.do(http.MethodGet, "/api/v1/sync/status", nil)

		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody[map[string]any](t, w)
		assert.Equal(t, true, body["isSyncing"])
		assert.Equal(t, "run-1", body["currentSyncId"])
		assert.Equal(t, "in_progress", body["run"].(map[string]any)["status"])
	})

	t.Run("no runs yet", func(t *testing.T) {
		env := setupTestEnv(t)
		env.sync.On("GetLatest", mock.Anything).Return(nil, nil)
		env.sync.On("GetCurrentSyncStatus").Return(models.CurrentSyncStatus{})

		w := env.do(http.MethodGet, "/api/v1/sync/status", nil)

		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody[map[string]any](t, w)
		assert.Equal(t, false, body["isSyncing"])
		assert.Nil(t, body["run"])
	})

	t.Run("by id", func(t *testing.T) {
		env := setupTestEnv(t)
		run := models.NewSyncRun("run-7", models.TriggerManual)
		run.Status = models.SyncStatusCompleted
		run.VesselsSynced = 3
		env.sync.On("GetStatus", mock.Anything, "run-7").Return(run, nil)

		w := env.do(http.MethodGet, "/api/v1/sync/status/run-7", nil)

		require.Equal(t, http.StatusOK, w.Code)
		got := decodeBody[models.SyncRun](t, w)
		assert.Equal(t, "run-7", got.ID)
		assert.Equal(t, 3, got.VesselsSynced)
	})

	t.Run("unknown id", func(t *testing.T) {
		env := setupTestEnv(t)
		env.sync.On("GetStatus", mock.Anything, "nope").
			Return(nil, apperrors.NewResourceNotFoundError("sync run", "nope"))

		w := env.do(http.MethodGet, "/api/v1/sync/status/nope", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestGetSyncHistory(t *testing.T) {
	env := setupTestEnv(t)
	env.sync.On("GetHistory", mock.Anything, 100, 40).
		Return(&models.SyncHistory{Runs: []*models.SyncRun{}, Total: 41, Limit: 100, Offset: 40}, nil)
	env.sync.On("GetHistory", mock.Anything, 20, 0).
		Return(nil, errors.New("connection refused"))

	w := env.do(http.MethodGet, "/api/v1/sync/history?limit=1000&offset=40", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 41, decodeBody[models.SyncHistory](t, w).Total)

	w = env.do(http.MethodGet, "/api/v1/sync/history?limit=ten", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodGet, "/api/v1/sync/history", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", decodeBody[ErrorResponse](t, w).Error)
}

func TestReceiveWebhook(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setup          func(*MockWebhookService)
		expectedStatus int
		duplicate      bool
	}{
		{
			name: "accepted",
			body: `{"event":"vessel.approved","eventId":"evt-1","data":{"imoNumber":"9876543"}}`,
			setup: func(m *MockWebhookService) {
				m.On("Receive", mock.Anything, "evt-1", "vessel.approved", mock.Anything).Return(true, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "duplicate",
			body: `{"event":"vessel.approved","eventId":"evt-1","data":{}}`,
			setup: func(m *MockWebhookService) {
				m.On("Receive", mock.Anything, "evt-1", "vessel.approved", mock.Anything).Return(false, nil)
			},
			expectedStatus: http.StatusOK,
			duplicate:      true,
		},
		{
			name:           "missing event id",
			body:           `{"event":"vessel.approved","data":{}}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing data",
			body:           `{"event":"vessel.approved","eventId":"evt-1"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "null data",
			body:           `{"event":"vessel.approved","eventId":"evt-1","data":null}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "not json",
			body:           `event=vessel.approved`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnv(t)
			if tt.setup != nil {
				tt.setup(env.webhooks)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/webhook", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			env.router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				resp := decodeBody[WebhookResponse](t, w)
				assert.True(t, resp.Received)
				assert.Equal(t, tt.duplicate, resp.Duplicate)
			} else {
				env.webhooks.AssertNotCalled(t, "Receive", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestListWebhooks(t *testing.T) {
	env := setupTestEnv(t)
	env.webhooks.On("List", mock.Anything, "failed", 50).
		Return([]*models.WebhookEvent{{EventID: "evt-1", Status: models.WebhookStatusFailed}}, nil)
	env.webhooks.On("List", mock.Anything, "exploded", 50).
		Return(nil, apperrors.NewValidationError("unknown webhook status", nil))

	w := env.do(http.MethodGet, "/api/v1/sync/webhooks?status=failed", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decodeBody[[]models.WebhookEvent](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, "evt-1", list[0].EventID)

	w = env.do(http.MethodGet, "/api/v1/sync/webhooks?status=exploded", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListSyncQueue(t *testing.T) {
	env := setupTestEnv(t)
	require.NoError(t, env.store.EnqueueSyncItem(context.Background(), &models.SyncQueueItem{
		EntityType: "equipment",
		NaturalKey: "QR-9",
		Reason:     "vessel 0000000 not found",
		Status:     models.SyncQueuePending,
	}))

	w := env.do(http.MethodGet, "/api/v1/sync/queue?status=pending", nil)

	require.Equal(t, http.StatusOK, w.Code)
	items := decodeBody[[]models.SyncQueueItem](t, w)
	require.Len(t, items, 1)
	assert.Equal(t, "QR-9", items[0].NaturalKey)
}

func TestUpdateSettings(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(http.MethodPost, "/api/v1/sync/settings", `{"syncIntervalMinutes": 15, "apiUrl": "https://new.example.com/"}`)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody[SettingsResponse](t, w)
	assert.Equal(t, 15, resp.SyncIntervalMinutes)
	assert.True(t, resp.AutoSyncEnabled)
	assert.Equal(t, "https://new.example.com", resp.APIURL)
	assert.True(t, resp.APIKeyConfigured, "omitted apiKey keeps the current credential")
	assert.Equal(t, "key-1", env.remote.cfg.APIKey)
	assert.Equal(t, 15*time.Minute, env.schedule.settings.Interval)

	w = env.do(http.MethodPost, "/api/v1/sync/settings", `{"autoSyncEnabled": false}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, env.schedule.settings.Enabled)
	assert.Equal(t, 15*time.Minute, env.schedule.settings.Interval)

	w = env.do(http.MethodPost, "/api/v1/sync/settings", `{"syncIntervalMinutes": -1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTestConnection(t *testing.T) {
	t.Run("reachable", func(t *testing.T) {
		env := setupTestEnv(t)

		w := env.do(http.MethodGet, "/api/v1/sync/test-connection", nil)
		require.Equal(t, http.StatusOK, w.Code)
		resp := decodeBody[ConnectionResponse](t, w)
		assert.True(t, resp.Configured)
		assert.True(t, resp.Reachable)
	})

	t.Run("unreachable", func(t *testing.T) {
		env := setupTestEnv(t)
		env.remote.pingErr = errors.New("dial tcp: connection refused")

		resp := decodeBody[ConnectionResponse](t, env.do(http.MethodGet, "/api/v1/sync/test-connection", nil))
		assert.True(t, resp.Configured)
		assert.False(t, resp.Reachable)
		assert.Contains(t, resp.Message, "connection refused")
	})

	t.Run("not configured", func(t *testing.T) {
		env := setupTestEnv(t)
		env.remote.cfg = config.RemoteConfig{}

		resp := decodeBody[ConnectionResponse](t, env.do(http.MethodGet, "/api/v1/sync/test-connection", nil))
		assert.False(t, resp.Configured)
		assert.False(t, resp.Reachable)
	})
}

func TestHealth(t *testing.T) {
	env := setupTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decodeBody[HealthResponse](t, w).Status)
}

func TestStreamUpdates(t *testing.T) {
	env := setupTestEnv(t)
	env.sync.On("GetCurrentSyncStatus").Return(models.CurrentSyncStatus{IsSyncing: true, CurrentSyncID: "run-1"})

	srv := httptest.NewServer(env.router)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/sync/updates", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testToken)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string, 64)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	waitFor := func(prefix string) string {
		t.Helper()
		timeout := time.After(2 * time.Second)
		for {
			select {
			case line, ok := <-lines:
				if !ok {
					t.Fatalf("stream closed before %q", prefix)
				}
				if strings.HasPrefix(line, prefix) {
					return line
				}
			case <-timeout:
				t.Fatalf("timed out waiting for %q", prefix)
			}
		}
	}

	waitFor("event:connected")
	data := waitFor("data:")
	assert.Contains(t, data, `"currentSyncId":"run-1"`)

	require.Eventually(t, func() bool { return env.bus.SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)
	env.bus.Publish(events.New(events.TopicProgress, "run-1", models.SyncProgress{SyncID: "run-1", Phase: "vessels"}))

	waitFor("event:progress")
	data = waitFor("data:")
	assert.Contains(t, data, `"phase":"vessels"`)

	waitFor(": keepalive")

	cancel()
	require.Eventually(t, func() bool { return env.bus.SubscriberCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}
