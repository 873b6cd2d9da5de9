// Package dbtest provides an in-memory db.Store for tests.
package dbtest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Kamar-Folarin/fleet-sync/internal/db"
	"github.com/Kamar-Folarin/fleet-sync/internal/models"
)

type taskKey struct {
	equipmentID int64
	name        string
}

type partKey struct {
	equipmentID int64
	key         string
}

type state struct {
	nextID    int64
	companies map[string]models.Company
	vessels   map[string]models.Vessel
	users     map[string]models.User
	equipment map[string]models.Equipment
	tasks     map[taskKey]models.MaintenanceTask
	parts     map[partKey]models.CriticalPart
	queue     []models.SyncQueueItem
}

func newState() *state {
	return &state{
		companies: map[string]models.Company{},
		vessels:   map[string]models.Vessel{},
		users:     map[string]models.User{},
		equipment: map[string]models.Equipment{},
		tasks:     map[taskKey]models.MaintenanceTask{},
		parts:     map[partKey]models.CriticalPart{},
	}
}

func (s *state) clone() *state {
	c := newState()
	c.nextID = s.nextID
	for k, v := range s.companies {
		c.companies[k] = v
	}
	for k, v := range s.vessels {
		c.vessels[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.equipment {
		c.equipment[k] = v
	}
	for k, v := range s.tasks {
		c.tasks[k] = v
	}
	for k, v := range s.parts {
		c.parts[k] = v
	}
	c.queue = append(c.queue, s.queue...)
	return c
}

// MemoryStore keeps everything in maps. WithTx snapshots the entity tables and restores
// them when the callback fails.
type MemoryStore struct {
	mu sync.Mutex
	st *state

	runs     map[string]models.SyncRun
	webhooks map[string]models.WebhookEvent
	webhookN int64

	// UpsertEquipmentHook, when set, runs before every equipment upsert; a non-nil
	// return fails the upsert.
	UpsertEquipmentHook func(*models.Equipment) error
	// UpsertVesselHook, when set, runs before every vessel upsert.
	UpsertVesselHook func(*models.Vessel) error
	// UpdateSyncRunHook, when set, runs before every sync run update.
	UpdateSyncRunHook func(*models.SyncRun) error
}

var _ db.Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		st:       newState(),
		runs:     map[string]models.SyncRun{},
		webhooks: map[string]models.WebhookEvent{},
	}
}

// view implements db.EntityStore against a state without taking the lock
type view struct {
	m  *MemoryStore
	st *state
}

func (v *view) id() int64 {
	v.st.nextID++
	return v.st.nextID
}

func (v *view) FindCompanyBySlug(_ context.Context, slug string) (*models.Company, error) {
	c, ok := v.st.companies[slug]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (v *view) UpsertCompany(_ context.Context, c *models.Company) (bool, error) {
	now := time.Now().UTC()
	existing, ok := v.st.companies[c.Slug]
	if ok {
		c.ID, c.CreatedAt = existing.ID, existing.CreatedAt
	} else {
		c.ID, c.CreatedAt = v.id(), now
	}
	c.UpdatedAt = now
	v.st.companies[c.Slug] = *c
	return !ok, nil
}

func (v *view) FindVesselByIMO(_ context.Context, imo string) (*models.Vessel, error) {
	vessel, ok := v.st.vessels[imo]
	if !ok {
		return nil, nil
	}
	return &vessel, nil
}

func (v *view) UpsertVessel(_ context.Context, vessel *models.Vessel) (bool, error) {
	if v.m.UpsertVesselHook != nil {
		if err := v.m.UpsertVesselHook(vessel); err != nil {
			return false, err
		}
	}
	if !v.hasCompany(vessel.CompanyID) {
		return false, fmt.Errorf("vessel %s references unknown company %d", vessel.IMONumber, vessel.CompanyID)
	}

	now := time.Now().UTC()
	existing, ok := v.st.vessels[vessel.IMONumber]
	if ok {
		vessel.ID, vessel.CreatedAt = existing.ID, existing.CreatedAt
	} else {
		vessel.ID, vessel.CreatedAt = v.id(), now
	}
	vessel.UpdatedAt = now
	if vessel.LastSyncedAt.IsZero() {
		vessel.LastSyncedAt = now
	}
	v.st.vessels[vessel.IMONumber] = *vessel
	return !ok, nil
}

func (v *view) hasCompany(id int64) bool {
	for _, c := range v.st.companies {
		if c.ID == id {
			return true
		}
	}
	return false
}

func (v *view) UpsertUser(_ context.Context, u *models.User) (bool, error) {
	now := time.Now().UTC()
	existing, ok := v.st.users[u.Email]
	if ok {
		u.ID, u.CreatedAt = existing.ID, existing.CreatedAt
		if u.CompanyID == nil {
			u.CompanyID = existing.CompanyID
		}
	} else {
		u.ID, u.CreatedAt = v.id(), now
	}
	u.UpdatedAt = now
	v.st.users[u.Email] = *u
	return !ok, nil
}

func (v *view) FindEquipmentByVesselAndName(_ context.Context, vesselID int64, name string) (*models.Equipment, error) {
	var found *models.Equipment
	for _, e := range v.st.equipment {
		if e.VesselID == vesselID && e.Name == name {
			if found == nil || e.ID < found.ID {
				e := e
				found = &e
			}
		}
	}
	return found, nil
}

func (v *view) UpsertEquipment(_ context.Context, e *models.Equipment) (bool, error) {
	if v.m.UpsertEquipmentHook != nil {
		if err := v.m.UpsertEquipmentHook(e); err != nil {
			return false, err
		}
	}
	now := time.Now().UTC()
	existing, ok := v.st.equipment[e.Code]
	if ok {
		e.ID, e.CreatedAt = existing.ID, existing.CreatedAt
	} else {
		e.ID, e.CreatedAt = v.id(), now
	}
	e.UpdatedAt = now
	v.st.equipment[e.Code] = *e
	return !ok, nil
}

func (v *view) UpsertMaintenanceTask(_ context.Context, t *models.MaintenanceTask) (bool, error) {
	now := time.Now().UTC()
	k := taskKey{t.EquipmentID, t.Name}
	existing, ok := v.st.tasks[k]
	if ok {
		t.ID, t.CreatedAt = existing.ID, existing.CreatedAt
		if t.LastPerformedAt == nil {
			t.LastPerformedAt = existing.LastPerformedAt
		}
	} else {
		t.ID, t.CreatedAt = v.id(), now
	}
	t.UpdatedAt = now
	v.st.tasks[k] = *t
	return !ok, nil
}

func (v *view) UpsertCriticalPart(_ context.Context, p *models.CriticalPart) (bool, error) {
	now := time.Now().UTC()
	k := partKey{p.EquipmentID, p.PartKey}
	existing, ok := v.st.parts[k]
	if ok {
		p.ID, p.CreatedAt = existing.ID, existing.CreatedAt
	} else {
		p.ID, p.CreatedAt = v.id(), now
	}
	p.UpdatedAt = now
	v.st.parts[k] = *p
	return !ok, nil
}

func (v *view) EnqueueSyncItem(_ context.Context, item *models.SyncQueueItem) error {
	if item.Status == "" {
		item.Status = models.SyncQueuePending
	}
	item.ID = v.id()
	item.CreatedAt = time.Now().UTC()
	v.st.queue = append(v.st.queue, *item)
	return nil
}

func (m *MemoryStore) locked() (*view, func()) {
	m.mu.Lock()
	return &view{m: m, st: m.st}, m.mu.Unlock
}

func (m *MemoryStore) FindCompanyBySlug(ctx context.Context, slug string) (*models.Company, error) {
	v, unlock := m.locked()
	defer unlock()
	return v.FindCompanyBySlug(ctx, slug)
}

func (m *MemoryStore) UpsertCompany(ctx context.Context, c *models.Company) (bool, error) {
	v, unlock := m.locked()
	defer unlock()
	return v.UpsertCompany(ctx, c)
}

func (m *MemoryStore) FindVesselByIMO(ctx context.Context, imo string) (*models.Vessel, error) {
	v, unlock := m.locked()
	defer unlock()
	return v.FindVesselByIMO(ctx, imo)
}

func (m *MemoryStore) UpsertVessel(ctx context.Context, vessel *models.Vessel) (bool, error) {
	v, unlock := m.locked()
	defer unlock()
	return v.UpsertVessel(ctx, vessel)
}

func (m *MemoryStore) UpsertUser(ctx context.Context, u *models.User) (bool, error) {
	v, unlock := m.locked()
	defer unlock()
	return v.UpsertUser(ctx, u)
}

func (m *MemoryStore) FindEquipmentByVesselAndName(ctx context.Context, vesselID int64, name string) (*models.Equipment, error) {
	v, unlock := m.locked()
	defer unlock()
	return v.FindEquipmentByVesselAndName(ctx, vesselID, name)
}

func (m *MemoryStore) UpsertEquipment(ctx context.Context, e *models.Equipment) (bool, error) {
	v, unlock := m.locked()
	defer unlock()
	return v.UpsertEquipment(ctx, e)
}

func (m *MemoryStore) UpsertMaintenanceTask(ctx context.Context, t *models.MaintenanceTask) (bool, error) {
	v, unlock := m.locked()
	defer unlock()
	return v.UpsertMaintenanceTask(ctx, t)
}

func (m *MemoryStore) UpsertCriticalPart(ctx context.Context, p *models.CriticalPart) (bool, error) {
	v, unlock := m.locked()
	defer unlock()
	return v.UpsertCriticalPart(ctx, p)
}

func (m *MemoryStore) EnqueueSyncItem(ctx context.Context, item *models.SyncQueueItem) error {
	v, unlock := m.locked()
	defer unlock()
	return v.EnqueueSyncItem(ctx, item)
}

// WithTx serializes transactions and discards every write made by fn when it fails
func (m *MemoryStore) WithTx(_ context.Context, fn func(tx db.EntityStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	working := m.st.clone()
	if err := fn(&view{m: m, st: working}); err != nil {
		return err
	}
	m.st = working
	return nil
}

func (m *MemoryStore) CreateSyncRun(_ context.Context, run *models.SyncRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[run.ID]; ok {
		return fmt.Errorf("sync run %s already exists", run.ID)
	}
	m.runs[run.ID] = copyRun(run)
	return nil
}

func (m *MemoryStore) UpdateSyncRun(_ context.Context, run *models.SyncRun) error {
	if m.UpdateSyncRunHook != nil {
		if err := m.UpdateSyncRunHook(run); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.runs[run.ID]
	if !ok || existing.Status.Terminal() {
		return fmt.Errorf("sync run %s not found or already finished", run.ID)
	}
	m.runs[run.ID] = copyRun(run)
	return nil
}

func (m *MemoryStore) GetSyncRun(_ context.Context, id string) (*models.SyncRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, nil
	}
	c := copyRun(&run)
	return &c, nil
}

func (m *MemoryStore) sortedRuns() []models.SyncRun {
	runs := make([]models.SyncRun, 0, len(m.runs))
	for _, r := range m.runs {
		runs = append(runs, r)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.After(runs[j].StartedAt) })
	return runs
}

func (m *MemoryStore) GetLatestSyncRun(_ context.Context) (*models.SyncRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	runs := m.sortedRuns()
	if len(runs) == 0 {
		return nil, nil
	}
	c := copyRun(&runs[0])
	return &c, nil
}

func (m *MemoryStore) ListSyncRuns(_ context.Context, limit, offset int) ([]*models.SyncRun, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	runs := m.sortedRuns()
	out := make([]*models.SyncRun, 0, limit)
	for i := offset; i < len(runs) && len(out) < limit; i++ {
		c := copyRun(&runs[i])
		out = append(out, &c)
	}
	return out, int64(len(runs)), nil
}

func (m *MemoryStore) InsertWebhookEvent(_ context.Context, event *models.WebhookEvent) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.webhooks[event.EventID]; ok {
		return false, nil
	}
	if event.Status == "" {
		event.Status = models.WebhookStatusReceived
	}
	m.webhookN++
	event.ID = m.webhookN
	event.ReceivedAt = time.Now().UTC()
	m.webhooks[event.EventID] = *event
	return true, nil
}

func (m *MemoryStore) UpdateWebhookEventStatus(_ context.Context, eventID string, status models.WebhookStatus, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.webhooks[eventID]
	if !ok || e.Status == models.WebhookStatusProcessed || e.Status == models.WebhookStatusFailed {
		return fmt.Errorf("webhook event %s not found or already finished", eventID)
	}
	e.Status = status
	e.ErrorMessage = errMsg
	if status == models.WebhookStatusProcessed || status == models.WebhookStatusFailed {
		now := time.Now().UTC()
		e.ProcessedAt = &now
	}
	m.webhooks[eventID] = e
	return nil
}

func (m *MemoryStore) ListWebhookEvents(_ context.Context, status string, limit int) ([]*models.WebhookEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.WebhookEvent, 0)
	for _, e := range m.webhooks {
		if status != "" && string(e.Status) != status {
			continue
		}
		e := e
		out = append(out, &e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) ListSyncQueue(_ context.Context, status string, limit int) ([]*models.SyncQueueItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.SyncQueueItem, 0)
	for i := len(m.st.queue) - 1; i >= 0 && len(out) < limit; i-- {
		item := m.st.queue[i]
		if status != "" && string(item.Status) != status {
			continue
		}
		out = append(out, &item)
	}
	return out, nil
}

func (m *MemoryStore) Ping(context.Context) error {
	return nil
}

// Webhook returns a copy of the stored event, if any
func (m *MemoryStore) Webhook(eventID string) (models.WebhookEvent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.webhooks[eventID]
	return e, ok
}

// Vessels returns every stored vessel keyed by IMO number
func (m *MemoryStore) Vessels() map[string]models.Vessel {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]models.Vessel, len(m.st.vessels))
	for k, v := range m.st.vessels {
		out[k] = v
	}
	return out
}

// Companies returns every stored company keyed by slug
func (m *MemoryStore) Companies() map[string]models.Company {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]models.Company, len(m.st.companies))
	for k, v := range m.st.companies {
		out[k] = v
	}
	return out
}

// Users returns every stored user keyed by email
func (m *MemoryStore) Users() map[string]models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]models.User, len(m.st.users))
	for k, v := range m.st.users {
		out[k] = v
	}
	return out
}

// Equipment returns every stored equipment record keyed by code
func (m *MemoryStore) Equipment() map[string]models.Equipment {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]models.Equipment, len(m.st.equipment))
	for k, v := range m.st.equipment {
		out[k] = v
	}
	return out
}

// TaskCount returns the number of stored maintenance tasks
func (m *MemoryStore) TaskCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.st.tasks)
}

// PartCount returns the number of stored critical parts
func (m *MemoryStore) PartCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.st.parts)
}

// Queue returns every queued item in insertion order
func (m *MemoryStore) Queue() []models.SyncQueueItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.SyncQueueItem(nil), m.st.queue...)
}

func copyRun(run *models.SyncRun) models.SyncRun {
	c := *run
	c.Errors = append([]string{}, run.Errors...)
	if run.CompletedAt != nil {
		t := *run.CompletedAt
		c.CompletedAt = &t
	}
	if run.Metadata != nil {
		c.Metadata = make(map[string]any, len(run.Metadata))
		for k, v := range run.Metadata {
			c.Metadata[k] = v
		}
	}
	return c
}
