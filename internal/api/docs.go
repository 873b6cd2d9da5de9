package api

import (
	"encoding/json"

	"github.com/Kamar-Folarin/fleet-sync/internal/models"

	_ "github.com/Kamar-Folarin/fleet-sync/docs"
)

// ErrorResponse represents an API error
// @Description Error response from the API
// @swagger:model ErrorResponse
type ErrorResponse struct {
	// Error message
	Error string `json:"error" example:"sync already in progress: 0192f0c4-5b1e-7a6e-9b8e-2f1d3c4b5a69"`
	// Id of the run holding the lock, set on 409 responses
	CurrentSyncID string `json:"currentSyncId,omitempty" example:"0192f0c4-5b1e-7a6e-9b8e-2f1d3c4b5a69"`
}

// TriggerRequest optionally selects the trigger kind recorded on the run
// @Description Manual sync trigger request
// @swagger:model TriggerRequest
type TriggerRequest struct {
	SyncType models.TriggerKind `json:"syncType" example:"manual" enums:"manual,real_time"`
}

// TriggerResponse is returned when a run has been accepted
// @Description Accepted sync run
// @swagger:model TriggerResponse
type TriggerResponse struct {
	SyncID  string `json:"syncId" example:"0192f0c4-5b1e-7a6e-9b8e-2f1d3c4b5a69"`
	Message string `json:"message" example:"Sync started"`
}

// StatusResponse is the process-wide sync status with the latest run, if any
// @Description Current sync status
// @swagger:model StatusResponse
type StatusResponse struct {
	models.CurrentSyncStatus
	Run *models.SyncRun `json:"run"`
}

// WebhookRequest is a push notification from the onboarding portal
// @Description Webhook delivery
// @swagger:model WebhookRequest
type WebhookRequest struct {
	Event   string          `json:"event" example:"equipment.updated"`
	EventID string          `json:"eventId" example:"evt_01HF8M3Q"`
	Data    json.RawMessage `json:"data" swaggertype:"object"`
}

// WebhookResponse acknowledges a delivery
// @Description Webhook acknowledgement
// @swagger:model WebhookResponse
type WebhookResponse struct {
	Received  bool `json:"received" example:"true"`
	Duplicate bool `json:"duplicate" example:"false"`
}

// SettingsRequest updates the schedule and the onboarding endpoint. Omitted fields keep
// their current value.
// @Description Runtime sync settings
// @swagger:model SettingsRequest
type SettingsRequest struct {
	SyncIntervalMinutes *int    `json:"syncIntervalMinutes,omitempty" example:"60"`
	AutoSyncEnabled     *bool   `json:"autoSyncEnabled,omitempty" example:"true"`
	APIURL              *string `json:"apiUrl,omitempty" example:"https://onboarding.example.com"`
	APIKey              *string `json:"apiKey,omitempty"`
}

// SettingsResponse is the effective configuration after an update
// @Description Effective sync settings
// @swagger:model SettingsResponse
type SettingsResponse struct {
	SyncIntervalMinutes int    `json:"syncIntervalMinutes" example:"60"`
	AutoSyncEnabled     bool   `json:"autoSyncEnabled" example:"true"`
	APIURL              string `json:"apiUrl" example:"https://onboarding.example.com"`
	APIKeyConfigured    bool   `json:"apiKeyConfigured" example:"true"`
}

// ConnectionResponse reports whether the onboarding API can be used
// @Description Onboarding API connection check
// @swagger:model ConnectionResponse
type ConnectionResponse struct {
	Configured bool   `json:"configured" example:"true"`
	Reachable  bool   `json:"reachable" example:"true"`
	Message    string `json:"message,omitempty" example:"Connection successful"`
}

// HealthResponse is the liveness probe result
// @Description Service health
// @swagger:model HealthResponse
type HealthResponse struct {
	Status   string `json:"status" example:"ok"`
	Database string `json:"database" example:"ok"`
}
