package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// TriggerKind identifies what started a sync run
type TriggerKind string

const (
	TriggerManual    TriggerKind = "manual"
	TriggerScheduled TriggerKind = "scheduled"
	TriggerWebhook   TriggerKind = "webhook"
	TriggerRealTime  TriggerKind = "real_time"
)

// Valid reports whether k is one of the known trigger kinds
func (k TriggerKind) Valid() bool {
	switch k {
	case TriggerManual, TriggerScheduled, TriggerWebhook, TriggerRealTime:
		return true
	}
	return false
}

// SyncStatus is the lifecycle state of a sync run
type SyncStatus string

const (
	SyncStatusPending    SyncStatus = "pending"
	SyncStatusInProgress SyncStatus = "in_progress"
	SyncStatusCompleted  SyncStatus = "completed"
	SyncStatusFailed     SyncStatus = "failed"
)

// Terminal reports whether no further transitions are allowed from s
func (s SyncStatus) Terminal() bool {
	return s == SyncStatusCompleted || s == SyncStatusFailed
}

// DirectionOnboardingToMaintenance is the only direction currently synchronized
const DirectionOnboardingToMaintenance = "onboarding_to_maintenance"

// SyncCounters holds per-entity-type counters for a run
type SyncCounters struct {
	VesselsSynced          int `json:"vesselsSynced"`
	EquipmentSynced        int `json:"equipmentSynced"`
	UsersSynced            int `json:"usersSynced"`
	PartsSynced            int `json:"partsSynced"`
	DocumentsSynced        int `json:"documentsSynced"`
	MaintenanceTasksSynced int `json:"maintenanceTasksSynced"`
}

// Add accumulates other into c
func (c *SyncCounters) Add(other SyncCounters) {
	c.VesselsSynced += other.VesselsSynced
	c.EquipmentSynced += other.EquipmentSynced
	c.UsersSynced += other.UsersSynced
	c.PartsSynced += other.PartsSynced
	c.DocumentsSynced += other.DocumentsSynced
	c.MaintenanceTasksSynced += other.MaintenanceTasksSynced
}

// SyncRun is one execution of the full multi-entity synchronization
type SyncRun struct {
	ID          string         `json:"id"`
	TriggerKind TriggerKind    `json:"syncType"`
	Direction   string         `json:"direction"`
	Status      SyncStatus     `json:"status"`
	StartedAt   time.Time      `json:"startedAt"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
	Errors      []string       `json:"errors"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	SyncCounters
}

// NewSyncRun creates a pending run for the given trigger
func NewSyncRun(id string, trigger TriggerKind) *SyncRun {
	return &SyncRun{
		ID:          id,
		TriggerKind: trigger,
		Direction:   DirectionOnboardingToMaintenance,
		Status:      SyncStatusPending,
		StartedAt:   time.Now().UTC(),
		Errors:      []string{},
		Metadata:    map[string]any{},
	}
}

// AddError appends a phase or record error to the run's error list
func (r *SyncRun) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Duration returns how long the run took, or has taken so far
func (r *SyncRun) Duration() time.Duration {
	if r.CompletedAt != nil {
		return r.CompletedAt.Sub(r.StartedAt)
	}
	return time.Since(r.StartedAt)
}

// String returns the JSON string representation of the sync run
func (r *SyncRun) String() string {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to marshal sync run: %v"}`, err)
	}
	return string(data)
}

// CurrentSyncStatus is the fast-polling snapshot of the process-wide run lock
type CurrentSyncStatus struct {
	IsSyncing     bool   `json:"isSyncing"`
	CurrentSyncID string `json:"currentSyncId,omitempty"`
}

// SyncHistory is one page of sync runs, newest first
type SyncHistory struct {
	Runs   []*SyncRun `json:"runs"`
	Total  int64      `json:"total"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}
