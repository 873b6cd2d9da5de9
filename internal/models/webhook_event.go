package models

import (
	"encoding/json"
	"time"
)

// WebhookStatus is the processing state of an ingested webhook event
type WebhookStatus string

const (
	WebhookStatusReceived   WebhookStatus = "received"
	WebhookStatusProcessing WebhookStatus = "processing"
	WebhookStatusProcessed  WebhookStatus = "processed"
	WebhookStatusFailed     WebhookStatus = "failed"
)

// Webhook event types pushed by the onboarding portal
const (
	EventVesselApproved   = "vessel.approved"
	EventEquipmentCreated = "equipment.created"
	EventEquipmentUpdated = "equipment.updated"
	EventUserCreated      = "user.created"
	EventUserUpdated      = "user.updated"
)

// WebhookEvent is a push notification from the onboarding portal, deduplicated by EventID
type WebhookEvent struct {
	ID           int64           `json:"id"`
	EventID      string          `json:"eventId"`
	EventType    string          `json:"eventType"`
	Payload      json.RawMessage `json:"payload"`
	Status       WebhookStatus   `json:"status"`
	ReceivedAt   time.Time       `json:"receivedAt"`
	ProcessedAt  *time.Time      `json:"processedAt,omitempty"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
}

// SyncQueueStatus is the state of a queued sync item
type SyncQueueStatus string

const (
	SyncQueuePending SyncQueueStatus = "pending"
)

// SyncQueueItem records a record that could not be reconciled and is waiting for operator attention
type SyncQueueItem struct {
	ID         int64           `json:"id"`
	SyncID     string          `json:"syncId,omitempty"`
	EntityType string          `json:"entityType"`
	NaturalKey string          `json:"naturalKey"`
	Reason     string          `json:"reason"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Status     SyncQueueStatus `json:"status"`
	CreatedAt  time.Time       `json:"createdAt"`
}
