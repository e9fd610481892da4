package formatting

import (
	"fmt"
	"strconv"
	"strings"

	"incident_extract/keywords"
)

// RenderSummary renders a one-line, operator-facing summary of an extracted
// record. Empty fields are left out.
func RenderSummary(rec keywords.Record) string {
	category := ""
	if rec.IncidentType != nil {
		category = *rec.IncidentType
	}
	parts := []string{formatCategoryPrefix(category)}

	if loc := strings.Join(rec.FacilityLocation, "/"); loc != "" {
		parts = append(parts, "장소 "+loc)
	}
	if len(rec.BuildingStructure) > 0 {
		parts = append(parts, "구조 "+strings.Join(rec.BuildingStructure, ","))
	}
	if rec.TotalFloorCount > 0 {
		parts = append(parts, strconv.Itoa(rec.TotalFloorCount)+"층")
	}
	if rec.BuildingAgreementCount > 0 {
		parts = append(parts, strconv.Itoa(rec.BuildingAgreementCount)+"세대")
	}
	if v := deref(rec.FuelType); v != "" {
		parts = append(parts, "연료 "+v)
	}
	if v := deref(rec.IgnitionMaterial); v != "" {
		parts = append(parts, "착화물 "+v)
	}
	if len(rec.Hazards) > 0 {
		parts = append(parts, "위험 "+strings.Join(rec.Hazards, ","))
	}
	if wind := formatWind(rec); wind != "" {
		parts = append(parts, wind)
	}
	if rec.MultiUseFlag {
		parts = append(parts, "다중이용")
	}
	if rec.FireManagementTargetFlag {
		parts = append(parts, "방화관리대상")
	}
	return strings.Join(parts, " | ")
}

func formatWind(rec keywords.Record) string {
	dir := deref(rec.WindDirection)
	speed := deref(rec.UnitWindSpeed)
	switch {
	case dir != "" && speed != "":
		return fmt.Sprintf("풍향 %s (%s)", dir, speed)
	case dir != "":
		return "풍향 " + dir
	case speed != "":
		return speed
	default:
		return ""
	}
}

func formatCategoryPrefix(incidentType string) string {
	switch NormalizeCallCategory(incidentType) {
	case "ems":
		return "🚑 구급"
	case "rescue":
		return "🚒 구조"
	case "fire":
		return "🔥 화재"
	default:
		return "🚨 신고"
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
