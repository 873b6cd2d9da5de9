// Package reconcile upserts onboarding records into local storage keyed by their natural keys.
package reconcile

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/fleet-sync/internal/config"
	"github.com/Kamar-Folarin/fleet-sync/internal/db"
	"github.com/Kamar-Folarin/fleet-sync/internal/events"
	"github.com/Kamar-Folarin/fleet-sync/internal/metrics"
	"github.com/Kamar-Folarin/fleet-sync/internal/models"
)

// Entity type labels used in logs, metrics, events and the sync queue
const (
	EntityCompany   = "company"
	EntityVessel    = "vessel"
	EntityUser      = "user"
	EntityEquipment = "equipment"
)

// Outcome is what a single upsert did
type Outcome string

const (
	OutcomeCreated Outcome = metrics.OutcomeCreated
	OutcomeUpdated Outcome = metrics.OutcomeUpdated
	OutcomeSkipped Outcome = metrics.OutcomeSkipped
)

// UpsertResult describes one reconciled record
type UpsertResult struct {
	Outcome    Outcome `json:"outcome"`
	Entity     string  `json:"entity"`
	NaturalKey string  `json:"naturalKey"`
	LocalID    int64   `json:"localId,omitempty"`
	Reason     string  `json:"reason,omitempty"`

	companyCreated bool
	tasks          int
	parts          int
}

// Skipped reports whether the record was left untouched
func (r UpsertResult) Skipped() bool {
	return r.Outcome == OutcomeSkipped
}

func skipped(entity, key, reason string) UpsertResult {
	return UpsertResult{Outcome: OutcomeSkipped, Entity: entity, NaturalKey: key, Reason: reason}
}

func upserted(entity, key string, id int64, inserted bool) UpsertResult {
	outcome := OutcomeUpdated
	if inserted {
		outcome = OutcomeCreated
	}
	return UpsertResult{Outcome: outcome, Entity: entity, NaturalKey: key, LocalID: id}
}

// Result summarizes one entity-type phase
type Result struct {
	models.SyncCounters
	Created         int      `json:"created"`
	Updated         int      `json:"updated"`
	Skipped         int      `json:"skipped"`
	Failed          int      `json:"failed"`
	CompaniesSynced int      `json:"companiesSynced"`
	Errors          []string `json:"errors,omitempty"`
}

func (r *Result) record(res UpsertResult) {
	switch res.Outcome {
	case OutcomeCreated:
		r.Created++
	case OutcomeUpdated:
		r.Updated++
	case OutcomeSkipped:
		r.Skipped++
		return
	}

	if res.companyCreated {
		r.CompaniesSynced++
	}
	switch res.Entity {
	case EntityVessel:
		r.VesselsSynced++
	case EntityUser:
		r.UsersSynced++
	case EntityEquipment:
		r.EquipmentSynced++
		r.MaintenanceTasksSynced += res.tasks
		r.PartsSynced += res.parts
	}
}

func (r *Result) fail(format string, args ...any) {
	r.Failed++
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Reconciler applies remote records to the local store
type Reconciler struct {
	store   db.Store
	bus     events.Publisher
	metrics *metrics.Metrics
	logger  *logrus.Logger
	batch   config.BatchConfig
}

// NewReconciler creates a reconciler. bus and m may be nil.
func NewReconciler(store db.Store, bus events.Publisher, m *metrics.Metrics, logger *logrus.Logger, batchCfg config.BatchConfig) *Reconciler {
	return &Reconciler{
		store:   store,
		bus:     bus,
		metrics: m,
		logger:  logger,
		batch:   batchCfg,
	}
}

var itemTopics = map[string]events.Topic{
	EntityVessel:    events.TopicVesselSynced,
	EntityUser:      events.TopicUserSynced,
	EntityEquipment: events.TopicEquipmentSynced,
}

// emit reports a committed upsert: one metric sample and, unless skipped, one bus event
func (r *Reconciler) emit(syncID string, res UpsertResult) {
	r.metrics.EntityReconciled(res.Entity, string(res.Outcome))
	if res.Skipped() || r.bus == nil {
		return
	}
	if topic, ok := itemTopics[res.Entity]; ok {
		r.bus.Publish(events.New(topic, syncID, res))
	}
}

func (r *Reconciler) failed(entity string) {
	r.metrics.EntityReconciled(entity, metrics.OutcomeFailed)
}

func (r *Reconciler) publishProgress(progress models.SyncProgress) {
	if r.bus == nil {
		return
	}
	r.bus.Publish(events.New(events.TopicProgress, progress.SyncID, progress))
}

// enqueue records a skipped record for operator follow-up. Failures are logged only.
func (r *Reconciler) enqueue(ctx context.Context, es db.EntityStore, syncID string, res UpsertResult, record any) {
	payload, err := json.Marshal(record)
	if err != nil {
		payload = nil
	}

	item := &models.SyncQueueItem{
		SyncID:     syncID,
		EntityType: res.Entity,
		NaturalKey: res.NaturalKey,
		Reason:     res.Reason,
		Payload:    payload,
		Status:     models.SyncQueuePending,
	}
	if err := es.EnqueueSyncItem(ctx, item); err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"sync_id":     syncID,
			"entity":      res.Entity,
			"natural_key": res.NaturalKey,
		}).Warn("Failed to enqueue skipped record")
	}
}

func (r *Reconciler) logSkip(syncID string, res UpsertResult) {
	r.logger.WithFields(logrus.Fields{
		"sync_id":     syncID,
		"entity":      res.Entity,
		"natural_key": res.NaturalKey,
		"reason":      res.Reason,
	}).Warn("Skipping record")
}

func (r *Reconciler) logUpsert(syncID string, res UpsertResult) {
	r.logger.WithFields(logrus.Fields{
		"sync_id":     syncID,
		"entity":      res.Entity,
		"natural_key": res.NaturalKey,
		"local_id":    res.LocalID,
		"outcome":     res.Outcome,
	}).Debug("Record reconciled")
}
