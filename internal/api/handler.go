package api

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/fleet-sync/internal/config"
	"github.com/Kamar-Folarin/fleet-sync/internal/errors"
	"github.com/Kamar-Folarin/fleet-sync/internal/events"
	"github.com/Kamar-Folarin/fleet-sync/internal/models"
	"github.com/Kamar-Folarin/fleet-sync/internal/scheduler"
	"github.com/Kamar-Folarin/fleet-sync/internal/sync"
	"github.com/Kamar-Folarin/fleet-sync/internal/webhook"
	"github.com/Kamar-Folarin/fleet-sync/pkg/utils"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
	defaultListLimit    = 50
	maxListLimit        = 500
	connectionTimeout   = 10 * time.Second
	defaultKeepAlive    = 30 * time.Second
)

// RemoteControl is the runtime-configurable side of the onboarding client
type RemoteControl interface {
	Configure(baseURL, apiKey string)
	IsConfigured() bool
	Ping(ctx context.Context) error
	Settings() config.RemoteConfig
}

// Schedule is the runtime-configurable side of the scheduler
type Schedule interface {
	Reschedule(interval time.Duration, enabled bool) scheduler.Settings
	Settings() scheduler.Settings
}

// QueueReader lists records parked in the sync queue
type QueueReader interface {
	ListSyncQueue(ctx context.Context, status string, limit int) ([]*models.SyncQueueItem, error)
}

// Subscriber hands out live event subscriptions
type Subscriber interface {
	Subscribe() *events.Subscription
}

// Pinger checks database connectivity
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler handles HTTP requests for the sync control plane
type Handler struct {
	syncService    sync.Service
	webhookService webhook.Service
	remote         RemoteControl
	schedule       Schedule
	queue          QueueReader
	bus            Subscriber
	db             Pinger
	keepAlive      time.Duration
	logger         *logrus.Logger
}

// HandlerOption configures a Handler
type HandlerOption func(*Handler)

// WithKeepAlive sets the SSE keep-alive period
func WithKeepAlive(d time.Duration) HandlerOption {
	return func(h *Handler) {
		if d > 0 {
			h.keepAlive = d
		}
	}
}

// NewHandler creates a new handler
func NewHandler(
	syncService sync.Service,
	webhookService webhook.Service,
	remote RemoteControl,
	schedule Schedule,
	queue QueueReader,
	bus Subscriber,
	db Pinger,
	logger *logrus.Logger,
	opts ...HandlerOption,
) *Handler {
	h := &Handler{
		syncService:    syncService,
		webhookService: webhookService,
		remote:         remote,
		schedule:       schedule,
		queue:          queue,
		bus:            bus,
		db:             db,
		keepAlive:      defaultKeepAlive,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// respondError maps err onto a status code and writes {"error": ...}
func (h *Handler) respondError(c *gin.Context, err error) {
	var inProgress *errors.SyncInProgressError
	switch {
	case stderrors.As(err, &inProgress):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error(), CurrentSyncID: inProgress.CurrentSyncID})
	case errors.IsConflict(err):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.IsNotFound(err):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.IsInvalidInput(err):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.IsUnauthorized(err):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: err.Error()})
	default:
		h.logger.WithError(err).WithField("path", c.FullPath()).Error("Request failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

// TriggerSync starts a full sync run in the background
func (h *Handler) TriggerSync(c *gin.Context) {
	req := TriggerRequest{SyncType: models.TriggerManual}
	if err := c.ShouldBindJSON(&req); err != nil && !stderrors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if req.SyncType == "" {
		req.SyncType = models.TriggerManual
	}

	id, err := h.syncService.Start(c.Request.Context(), req.SyncType)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, TriggerResponse{SyncID: id, Message: "Sync started"})
}

// GetSyncStatus returns one run, or the busy flag with the latest run when no id is given
func (h *Handler) GetSyncStatus(c *gin.Context) {
	ctx := c.Request.Context()

	if id := strings.TrimSpace(c.Param("syncId")); id != "" {
		run, err := h.syncService.GetStatus(ctx, id)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, run)
		return
	}

	run, err := h.syncService.GetLatest(ctx)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, StatusResponse{
		CurrentSyncStatus: h.syncService.GetCurrentSyncStatus(),
		Run:               run,
	})
}

// GetSyncHistory returns a page of runs, newest first
func (h *Handler) GetSyncHistory(c *gin.Context) {
	limit, err := utils.ParseBoundedInt(c.Query("limit"), defaultHistoryLimit, 1, maxHistoryLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit parameter"})
		return
	}
	offset, err := utils.ParseBoundedInt(c.Query("offset"), 0, 0, 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid offset parameter"})
		return
	}

	history, err := h.syncService.GetHistory(c.Request.Context(), limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

// ReceiveWebhook acknowledges a push notification; processing happens in the background
func (h *Handler) ReceiveWebhook(c *gin.Context) {
	var req WebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if req.Event == "" || req.EventID == "" || len(req.Data) == 0 || string(req.Data) == "null" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "event, data and eventId are required"})
		return
	}

	accepted, err := h.webhookService.Receive(c.Request.Context(), req.EventID, req.Event, req.Data)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, WebhookResponse{Received: true, Duplicate: !accepted})
}

// ListWebhooks returns ingested webhook events
func (h *Handler) ListWebhooks(c *gin.Context) {
	limit, err := utils.ParseBoundedInt(c.Query("limit"), defaultListLimit, 1, maxListLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit parameter"})
		return
	}

	list, err := h.webhookService.List(c.Request.Context(), c.Query("status"), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// ListSyncQueue returns records parked because they could not be reconciled
func (h *Handler) ListSyncQueue(c *gin.Context) {
	limit, err := utils.ParseBoundedInt(c.Query("limit"), defaultListLimit, 1, maxListLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit parameter"})
		return
	}

	items, err := h.queue.ListSyncQueue(c.Request.Context(), c.Query("status"), limit)
	if err != nil {
		h.respondError(c, errors.NewInternalError("failed to list sync queue", err))
		return
	}
	c.JSON(http.StatusOK, items)
}

// UpdateSettings changes the schedule and the onboarding endpoint without a restart
func (h *Handler) UpdateSettings(c *gin.Context) {
	var req SettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if req.SyncIntervalMinutes != nil && *req.SyncIntervalMinutes < 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "syncIntervalMinutes cannot be negative"})
		return
	}

	if req.SyncIntervalMinutes != nil || req.AutoSyncEnabled != nil {
		current := h.schedule.Settings()
		interval, enabled := current.Interval, current.Enabled
		if req.SyncIntervalMinutes != nil {
			interval = time.Duration(*req.SyncIntervalMinutes) * time.Minute
		}
		if req.AutoSyncEnabled != nil {
			enabled = *req.AutoSyncEnabled
		}
		h.schedule.Reschedule(interval, enabled)
	}

	if req.APIURL != nil || req.APIKey != nil {
		current := h.remote.Settings()
		baseURL, apiKey := current.BaseURL, current.APIKey
		if req.APIURL != nil {
			baseURL = strings.TrimRight(strings.TrimSpace(*req.APIURL), "/")
		}
		if req.APIKey != nil {
			apiKey = strings.TrimSpace(*req.APIKey)
		}
		h.remote.Configure(baseURL, apiKey)
	}

	c.JSON(http.StatusOK, h.currentSettings())
}

func (h *Handler) currentSettings() SettingsResponse {
	schedule := h.schedule.Settings()
	remote := h.remote.Settings()
	return SettingsResponse{
		SyncIntervalMinutes: int(schedule.Interval / time.Minute),
		AutoSyncEnabled:     schedule.Enabled,
		APIURL:              remote.BaseURL,
		APIKeyConfigured:    remote.APIKey != "",
	}
}

// TestConnection checks that the onboarding API is configured and answers
func (h *Handler) TestConnection(c *gin.Context) {
	if !h.remote.IsConfigured() {
		c.JSON(http.StatusOK, ConnectionResponse{Message: "Onboarding API URL is not configured"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), connectionTimeout)
	defer cancel()

	if err := h.remote.Ping(ctx); err != nil {
		h.logger.WithError(err).Warn("Onboarding API connection check failed")
		c.JSON(http.StatusOK, ConnectionResponse{Configured: true, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, ConnectionResponse{Configured: true, Reachable: true, Message: "Connection successful"})
}

// Health reports liveness including database connectivity
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.logger.WithError(err).Error("Health check failed")
		c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Database: err.Error()})
		return
	}
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Database: "ok"})
}
