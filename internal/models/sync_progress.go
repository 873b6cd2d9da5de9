package models

// SyncProgress is the payload of a progress event emitted while a phase is being reconciled
type SyncProgress struct {
	SyncID  string `json:"syncId"`
	Phase   string `json:"phase"`
	Message string `json:"message,omitempty"`
	BatchTracking
	Failed int `json:"failed"`
}
