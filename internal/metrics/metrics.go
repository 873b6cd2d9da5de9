// Package metrics exposes prometheus instruments for sync runs, reconciled entities and webhooks.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fleetsync"

// Reconciliation outcomes
const (
	OutcomeCreated = "created"
	OutcomeUpdated = "updated"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// Metrics holds the prometheus instruments. A nil *Metrics is a valid no-op.
type Metrics struct {
	syncRuns     *prometheus.CounterVec
	syncDuration *prometheus.HistogramVec
	entities     *prometheus.CounterVec
	webhooks     *prometheus.CounterVec
	subscribers  prometheus.Gauge
}

// New registers the instruments with reg. If reg is nil it returns nil (no-op metrics).
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}

	factory := promauto.With(reg)

	return &Metrics{
		syncRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_runs_total",
				Help:      "Total number of finished sync runs by trigger and terminal status",
			},
			[]string{"trigger", "status"},
		),
		syncDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "sync_duration_seconds",
				Help:      "Duration of sync runs in seconds",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"trigger"},
		),
		entities: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "entities_reconciled_total",
				Help:      "Total number of reconciled records by entity type and outcome",
			},
			[]string{"entity", "outcome"},
		),
		webhooks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "webhook_events_total",
				Help:      "Total number of webhook events by event type and status",
			},
			[]string{"event", "status"},
		),
		subscribers: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "event_subscribers",
				Help:      "Number of live progress event subscribers",
			},
		),
	}
}

// ObserveSyncRun records a finished run
func (m *Metrics) ObserveSyncRun(trigger, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.syncRuns.WithLabelValues(trigger, status).Inc()
	m.syncDuration.WithLabelValues(trigger).Observe(duration.Seconds())
}

// EntityReconciled counts one reconciled record
func (m *Metrics) EntityReconciled(entity, outcome string) {
	if m == nil {
		return
	}
	m.entities.WithLabelValues(entity, outcome).Inc()
}

// WebhookEvent counts a webhook event reaching status
func (m *Metrics) WebhookEvent(event, status string) {
	if m == nil {
		return
	}
	m.webhooks.WithLabelValues(event, status).Inc()
}

// SetSubscribers records the current number of event subscribers
func (m *Metrics) SetSubscribers(n int) {
	if m == nil {
		return
	}
	m.subscribers.Set(float64(n))
}
