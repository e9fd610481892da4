package formatting

import "strings"

// NormalizeCallCategory maps a free-form incident type into a small, stable category set.
func NormalizeCallCategory(incidentType string) string {
	t := strings.ToLower(strings.TrimSpace(incidentType))
	switch {
	case strings.Contains(t, "구급"), strings.Contains(t, "ems"), strings.Contains(t, "medic"):
		return "ems"
	case strings.Contains(t, "구조"), strings.Contains(t, "rescue"):
		return "rescue"
	case strings.Contains(t, "화재"), strings.Contains(t, "fire"), strings.Contains(t, "smoke"):
		return "fire"
	default:
		return "other"
	}
}
