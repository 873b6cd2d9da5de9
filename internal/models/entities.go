package models

import (
	"encoding/json"
	"time"
)

// Company is keyed by the slug of its name
type Company struct {
	BaseModel
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Vessel is keyed by its IMO number
type Vessel struct {
	BaseModel
	CompanyID    int64     `json:"companyId"`
	Name         string    `json:"name"`
	IMONumber    string    `json:"imoNumber"`
	VesselType   string    `json:"vesselType"`
	Flag         string    `json:"flag"`
	Status       string    `json:"status"`
	YearBuilt    int       `json:"yearBuilt,omitempty"`
	GrossTonnage float64   `json:"grossTonnage,omitempty"`
	LastSyncedAt time.Time `json:"lastSyncedAt"`
}

// User is keyed by email
type User struct {
	BaseModel
	CompanyID *int64 `json:"companyId,omitempty"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
	Status    string `json:"status"`
}

// Equipment is keyed by its QR code
type Equipment struct {
	BaseModel
	VesselID       int64           `json:"vesselId"`
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	Category       string          `json:"category"`
	Manufacturer   string          `json:"manufacturer"`
	Model          string          `json:"model"`
	SerialNumber   string          `json:"serialNumber"`
	Location       string          `json:"location"`
	Status         string          `json:"status"`
	Criticality    string          `json:"criticality"`
	Specifications json.RawMessage `json:"specifications,omitempty"`
}

// MaintenanceTask is keyed by (equipment, task name)
type MaintenanceTask struct {
	BaseModel
	EquipmentID     int64      `json:"equipmentId"`
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	IntervalDays    int        `json:"intervalDays"`
	Priority        string     `json:"priority"`
	LastPerformedAt *time.Time `json:"lastPerformedAt,omitempty"`
}

// CriticalPart is keyed by (equipment, part key)
type CriticalPart struct {
	BaseModel
	EquipmentID  int64  `json:"equipmentId"`
	PartKey      string `json:"partKey"`
	PartNumber   string `json:"partNumber"`
	Name         string `json:"name"`
	Quantity     int    `json:"quantity"`
	MinimumStock int    `json:"minimumStock"`
}
