// Package webhook ingests push notifications from the onboarding portal. Events are
// deduplicated by event id, acknowledged immediately and reconciled in the background.
package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/fleet-sync/internal/db"
	"github.com/Kamar-Folarin/fleet-sync/internal/errors"
	"github.com/Kamar-Folarin/fleet-sync/internal/metrics"
	"github.com/Kamar-Folarin/fleet-sync/internal/models"
	"github.com/Kamar-Folarin/fleet-sync/internal/reconcile"
)

const (
	defaultListLimit = 50
	statusTimeout    = 10 * time.Second
)

// Reconciler is the subset of reconcile.Reconciler used for single-entity updates
type Reconciler interface {
	UpsertVessel(ctx context.Context, syncID string, rv models.RemoteVessel) (reconcile.UpsertResult, error)
	UpsertEquipment(ctx context.Context, syncID string, re models.RemoteEquipment) (reconcile.UpsertResult, error)
	UpsertUser(ctx context.Context, syncID string, ru models.RemoteUser) (reconcile.UpsertResult, error)
}

// Service is the intake pipeline as used by the HTTP layer
type Service interface {
	Receive(ctx context.Context, eventID, eventType string, payload json.RawMessage) (bool, error)
	List(ctx context.Context, status string, limit int) ([]*models.WebhookEvent, error)
}

// Processor stores webhook events and reconciles them asynchronously. It does not take
// the orchestrator's run lock: a webhook may be applied while a full sync is running,
// and upsert-by-natural-key keeps the two paths from creating duplicates.
type Processor struct {
	store      db.Store
	reconciler Reconciler
	metrics    *metrics.Metrics
	logger     *logrus.Logger

	wg      sync.WaitGroup
	baseCtx context.Context
	cancel  context.CancelFunc
}

var _ Service = (*Processor)(nil)

// NewProcessor creates a new webhook processor
func NewProcessor(store db.Store, reconciler Reconciler, m *metrics.Metrics, logger *logrus.Logger) *Processor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Processor{
		store:      store,
		reconciler: reconciler,
		metrics:    m,
		logger:     logger,
		baseCtx:    ctx,
		cancel:     cancel,
	}
}

// Receive records the event and schedules its processing. It returns false without error
// when eventID was already seen, in which case no work is scheduled.
func (p *Processor) Receive(ctx context.Context, eventID, eventType string, payload json.RawMessage) (bool, error) {
	eventID = strings.TrimSpace(eventID)
	eventType = strings.TrimSpace(eventType)
	if eventID == "" || eventType == "" || len(payload) == 0 {
		return false, errors.NewValidationError("eventId, event and data are required", nil)
	}

	logger := p.logger.WithFields(logrus.Fields{
		"event_id":   eventID,
		"event_type": eventType,
	})

	event := &models.WebhookEvent{
		EventID:   eventID,
		EventType: eventType,
		Payload:   payload,
		Status:    models.WebhookStatusReceived,
	}
	inserted, err := p.store.InsertWebhookEvent(ctx, event)
	if err != nil {
		return false, errors.NewInternalError("failed to record webhook event", err)
	}
	if !inserted {
		logger.Info("Duplicate webhook event ignored")
		p.metrics.WebhookEvent(eventType, "duplicate")
		return false, nil
	}

	logger.Info("Webhook event received")
	p.metrics.WebhookEvent(eventType, string(models.WebhookStatusReceived))

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.process(p.baseCtx, event)
	}()

	return true, nil
}

func (p *Processor) process(ctx context.Context, event *models.WebhookEvent) {
	logger := p.logger.WithFields(logrus.Fields{
		"event_id":   event.EventID,
		"event_type": event.EventType,
	})

	var err error
	defer func() {
		if r := recover(); r != nil {
			logger.WithField("stack", string(debug.Stack())).Errorf("Webhook processing panicked: %v", r)
			err = fmt.Errorf("unexpected error: %v", r)
		}
		p.complete(event, err, logger)
	}()

	if serr := p.setStatus(event.EventID, models.WebhookStatusProcessing, ""); serr != nil {
		logger.WithError(serr).Warn("Failed to mark webhook event processing")
	}

	err = p.dispatch(ctx, event)
}

func (p *Processor) complete(event *models.WebhookEvent, err error, logger *logrus.Entry) {
	status := models.WebhookStatusProcessed
	message := ""
	if err != nil {
		status = models.WebhookStatusFailed
		message = err.Error()
		logger.WithError(err).Error("Webhook event failed")
	} else {
		logger.Info("Webhook event processed")
	}

	if err := p.setStatus(event.EventID, status, message); err != nil {
		logger.WithError(err).Error("Failed to record webhook outcome")
	}
	p.metrics.WebhookEvent(event.EventType, string(status))
}

// setStatus uses its own deadline so that outcomes are recorded during shutdown
func (p *Processor) setStatus(eventID string, status models.WebhookStatus, message string) error {
	ctx, cancel := context.WithTimeout(context.Background(), statusTimeout)
	defer cancel()
	return p.store.UpdateWebhookEventStatus(ctx, eventID, status, message)
}

// dispatch routes the payload to the single-entity upsert for its event type. A record
// the reconciler skips is reported as a failure carrying the skip reason.
func (p *Processor) dispatch(ctx context.Context, event *models.WebhookEvent) error {
	var (
		res reconcile.UpsertResult
		err error
	)

	switch event.EventType {
	case models.EventVesselApproved:
		var rv models.RemoteVessel
		if err := decode(event.Payload, &rv); err != nil {
			return err
		}
		res, err = p.reconciler.UpsertVessel(ctx, "", rv)

	case models.EventEquipmentCreated, models.EventEquipmentUpdated:
		var re models.RemoteEquipment
		if err := decode(event.Payload, &re); err != nil {
			return err
		}
		res, err = p.reconciler.UpsertEquipment(ctx, "", re)

	case models.EventUserCreated, models.EventUserUpdated:
		var ru models.RemoteUser
		if err := decode(event.Payload, &ru); err != nil {
			return err
		}
		res, err = p.reconciler.UpsertUser(ctx, "", ru)

	default:
		return fmt.Errorf("unsupported event type %q", event.EventType)
	}

	if err != nil {
		return err
	}
	if res.Skipped() {
		return fmt.Errorf("skipped: %s", res.Reason)
	}
	return nil
}

func decode(payload json.RawMessage, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}

// List returns ingested events, newest first, optionally filtered by status
func (p *Processor) List(ctx context.Context, status string, limit int) ([]*models.WebhookEvent, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if status != "" {
		switch models.WebhookStatus(status) {
		case models.WebhookStatusReceived, models.WebhookStatusProcessing,
			models.WebhookStatusProcessed, models.WebhookStatusFailed:
		default:
			return nil, errors.NewValidationError(fmt.Sprintf("unknown webhook status %q", status), nil)
		}
	}

	events, err := p.store.ListWebhookEvents(ctx, status, limit)
	if err != nil {
		return nil, errors.NewInternalError("failed to list webhook events", err)
	}
	return events, nil
}

// Wait blocks until every scheduled event has been processed
func (p *Processor) Wait() {
	p.wg.Wait()
}

// Shutdown waits for in-flight processing. If ctx expires first the remaining work is
// cancelled.
func (p *Processor) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		p.cancel()
		return fmt.Errorf("timed out waiting for webhook processing: %w", ctx.Err())
	}
}
