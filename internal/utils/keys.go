package utils

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify turns a company or part name into its natural key
func Slugify(name string) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	return strings.Trim(slug, "-")
}

// NormalizeIMO strips an optional "IMO" prefix and whitespace from an IMO number
func NormalizeIMO(imo string) string {
	imo = strings.ToUpper(strings.TrimSpace(imo))
	imo = strings.TrimPrefix(imo, "IMO")
	return strings.TrimSpace(imo)
}

// NormalizeEmail lower-cases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// GenerateEquipmentCode synthesizes a code for equipment the onboarding portal sent without one
func GenerateEquipmentCode(vesselIMO string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("EQ-%s-%s", NormalizeIMO(vesselIMO), strings.ToUpper(suffix))
}

// PartKey returns the natural key of a critical part within its equipment
func PartKey(partNumber, name string) string {
	if pn := strings.TrimSpace(partNumber); pn != "" {
		return strings.ToUpper(pn)
	}
	return Slugify(name)
}
