// Package mapping translates the onboarding portal's role and status vocabulary into the
// maintenance portal's vocabulary. Every table is many-to-one and falls back to the most
// conservative local value for anything it does not know.
//
// The auth bridge applies the same role table when it materializes a local user from an
// exchanged token, so changes here change what a bridged user may do.
package mapping

import "strings"

// Maintenance portal roles
const (
	RoleAdmin      = "admin"
	RoleManager    = "manager"
	RoleTechnician = "technician"
	RoleViewer     = "viewer"
)

// Table is a static lookup with an explicit default
type Table struct {
	values   map[string]string
	fallback string
}

// Map returns the local value for a remote value, or the table default when unmapped
func (t Table) Map(remote string) string {
	key := strings.ToLower(strings.TrimSpace(remote))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	if v, ok := t.values[key]; ok {
		return v
	}
	return t.fallback
}

// Default returns the fallback value of the table
func (t Table) Default() string {
	return t.fallback
}

var roles = Table{
	fallback: RoleViewer,
	values: map[string]string{
		"super_admin":              RoleAdmin,
		"admin":                    RoleAdmin,
		"company_admin":            RoleAdmin,
		"manager":                  RoleManager,
		"fleet_manager":            RoleManager,
		"technical_manager":        RoleManager,
		"technical_superintendent": RoleManager,
		"superintendent":           RoleManager,
		"chief_engineer":           RoleTechnician,
		"engineer":                 RoleTechnician,
		"technician":               RoleTechnician,
		"crew":                     RoleTechnician,
		"inspector":                RoleViewer,
		"viewer":                   RoleViewer,
		"guest":                    RoleViewer,
	},
}

var userStatuses = Table{
	fallback: "inactive",
	values: map[string]string{
		"active":    "active",
		"approved":  "active",
		"verified":  "active",
		"pending":   "pending",
		"invited":   "pending",
		"suspended": "inactive",
		"disabled":  "inactive",
		"inactive":  "inactive",
	},
}

var vesselStatuses = Table{
	fallback: "inactive",
	values: map[string]string{
		"approved":       "active",
		"active":         "active",
		"operational":    "active",
		"pending":        "pending",
		"draft":          "pending",
		"in_review":      "pending",
		"submitted":      "pending",
		"laid_up":        "inactive",
		"inactive":       "inactive",
		"decommissioned": "inactive",
		"archived":       "inactive",
	},
}

var equipmentStatuses = Table{
	fallback: "out_of_service",
	values: map[string]string{
		"operational":       "operational",
		"active":            "operational",
		"approved":          "operational",
		"in_service":        "operational",
		"maintenance":       "maintenance",
		"under_maintenance": "maintenance",
		"under_repair":      "maintenance",
		"faulty":            "out_of_service",
		"broken":            "out_of_service",
		"out_of_service":    "out_of_service",
		"decommissioned":    "decommissioned",
		"removed":           "decommissioned",
	},
}

var criticalities = Table{
	fallback: "high",
	values: map[string]string{
		"critical": "critical",
		"vital":    "critical",
		"high":     "high",
		"medium":   "medium",
		"moderate": "medium",
		"normal":   "medium",
		"low":      "low",
		"minor":    "low",
	},
}

var priorities = Table{
	fallback: "medium",
	values: map[string]string{
		"urgent":   "critical",
		"critical": "critical",
		"high":     "high",
		"medium":   "medium",
		"normal":   "medium",
		"low":      "low",
	},
}

// Role maps an onboarding role to a maintenance role, defaulting to viewer
func Role(remote string) string { return roles.Map(remote) }

// UserStatus maps an onboarding user status, defaulting to inactive
func UserStatus(remote string) string { return userStatuses.Map(remote) }

// VesselStatus maps an onboarding vessel status, defaulting to inactive
func VesselStatus(remote string) string { return vesselStatuses.Map(remote) }

// EquipmentStatus maps an onboarding equipment status, defaulting to out_of_service
func EquipmentStatus(remote string) string { return equipmentStatuses.Map(remote) }

// Criticality maps an onboarding criticality, defaulting to high
func Criticality(remote string) string { return criticalities.Map(remote) }

// TaskPriority maps an onboarding maintenance task priority, defaulting to medium
func TaskPriority(remote string) string { return priorities.Map(remote) }
