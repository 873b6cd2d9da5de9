package models

import (
	"encoding/json"
	"time"
)

// RemoteVessel is a vessel as served by the onboarding portal
type RemoteVessel struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	IMONumber    string  `json:"imoNumber"`
	VesselType   string  `json:"vesselType"`
	Flag         string  `json:"flag"`
	Status       string  `json:"status"`
	CompanyName  string  `json:"companyName"`
	YearBuilt    int     `json:"yearBuilt"`
	GrossTonnage float64 `json:"grossTonnage"`
}

// RemoteUser is a user as served by the onboarding portal
type RemoteUser struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Role        string `json:"role"`
	Status      string `json:"status"`
	CompanyName string `json:"companyName"`
}

// RemoteEquipment is an equipment record with its nested tasks and critical parts
type RemoteEquipment struct {
	ID               string                  `json:"id"`
	Name             string                  `json:"name"`
	QRCode           string                  `json:"qrCode"`
	Code             string                  `json:"code"`
	VesselIMO        string                  `json:"vesselImo"`
	Category         string                  `json:"category"`
	Manufacturer     string                  `json:"manufacturer"`
	Model            string                  `json:"model"`
	SerialNumber     string                  `json:"serialNumber"`
	Location         string                  `json:"location"`
	Status           string                  `json:"status"`
	Criticality      string                  `json:"criticality"`
	Specifications   json.RawMessage         `json:"specifications,omitempty"`
	MaintenanceTasks []RemoteMaintenanceTask `json:"maintenanceTasks"`
	CriticalParts    []RemoteCriticalPart    `json:"criticalParts"`
}

// RemoteMaintenanceTask is a maintenance task nested in a remote equipment record
type RemoteMaintenanceTask struct {
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	IntervalDays    int        `json:"intervalDays"`
	Priority        string     `json:"priority"`
	LastPerformedAt *time.Time `json:"lastPerformedAt,omitempty"`
}

// RemoteCriticalPart is a critical spare part nested in a remote equipment record
type RemoteCriticalPart struct {
	PartNumber   string `json:"partNumber"`
	Name         string `json:"name"`
	Quantity     int    `json:"quantity"`
	MinimumStock int    `json:"minimumStock"`
}
