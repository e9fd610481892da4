package keywords

import (
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"
)

func TestNormalizeCoercesPerFieldKind(t *testing.T) {
	rec := Normalize(map[string]any{
		"total_floor_count":           "10층",
		"building_agreement_count":    120.0,
		"total_floor_area":            "1,250.5",
		"unit_humidity":               "습도 미상",
		"multi_use_flag":              "Yes",
		"fire_management_target_flag": 1.0,
		"building_structure":          "철골조",
		"facility_location":           []any{"주거", nil, "주거", " ", "도로"},
		"fuel_type":                   "",
		"wind_direction":              "NE",
		"not_a_field":                 "dropped",
	})
	if rec.TotalFloorCount != 10 {
		t.Fatalf("expected 10 floors, got %d", rec.TotalFloorCount)
	}
	if rec.BuildingAgreementCount != 120 {
		t.Fatalf("expected 120 units, got %d", rec.BuildingAgreementCount)
	}
	if rec.TotalFloorArea != 1250.5 {
		t.Fatalf("expected thousands separator stripped, got %v", rec.TotalFloorArea)
	}
	if rec.UnitHumidity != 0 {
		t.Fatalf("expected humidity fallback 0, got %v", rec.UnitHumidity)
	}
	if !rec.MultiUseFlag || !rec.FireManagementTargetFlag {
		t.Fatalf("expected truthy flags, got %+v", rec)
	}
	if !reflect.DeepEqual(rec.BuildingStructure, []string{"철골조"}) {
		t.Fatalf("expected scalar wrapped into list, got %v", rec.BuildingStructure)
	}
	if !reflect.DeepEqual(rec.FacilityLocation, []string{"주거", "도로"}) {
		t.Fatalf("unexpected facility list %v", rec.FacilityLocation)
	}
	if rec.FuelType != nil {
		t.Fatalf("expected empty string to become null, got %q", *rec.FuelType)
	}
	if rec.WindDirection == nil || *rec.WindDirection != "NE" {
		t.Fatalf("expected wind direction NE")
	}
	if rec.ForestFireFlag == nil || len(rec.ForestFireFlag) != 0 {
		t.Fatalf("expected absent list to default to empty slice")
	}
}

func TestParseBoolTokens(t *testing.T) {
	var cases = []struct {
		in   any
		want bool
	}{
		{"y", true},
		{"T", true},
		{" true ", true},
		{"1", true},
		{"no", false},
		{"예", false},
		{true, true},
		{0.0, false},
		{nil, false},
	}
	for _, tc := range cases {
		if got := ParseBool(tc.in); got != tc.want {
			t.Fatalf("ParseBool(%v)=%v want %v", tc.in, got, tc.want)
		}
	}
}

func TestMergeRuleValueWinsWhenNonEmpty(t *testing.T) {
	model := Default()
	model.FuelType = Str("가스 기타 가연성가스")
	model.WindDirection = Str("N")
	model.TotalFloorCount = 7
	model.FacilityLocation = []string{"주거", "도로"}

	floors := 12
	rule := Candidate{
		FuelType:         Str("가스 액화석유가스(LPG)"),
		WindDirection:    Str(""),
		TotalFloorCount:  &floors,
		FacilityLocation: []string{"도로", "지하"},
	}
	merged := Merge(rule, model)

	if merged.FuelType == nil || *merged.FuelType != "가스 액화석유가스(LPG)" {
		t.Fatalf("expected rule fuel type to win, got %v", merged.FuelType)
	}
	if merged.WindDirection == nil || *merged.WindDirection != "N" {
		t.Fatalf("expected model wind direction kept when rule empty")
	}
	if merged.TotalFloorCount != 12 {
		t.Fatalf("expected rule floor count, got %d", merged.TotalFloorCount)
	}
	want := []string{"주거", "도로", "지하"}
	if !reflect.DeepEqual(merged.FacilityLocation, want) {
		t.Fatalf("expected ordered union %v, got %v", want, merged.FacilityLocation)
	}
	if len(model.FacilityLocation) != 2 {
		t.Fatalf("merge mutated the model record")
	}
}

func TestMergeFalseSentinelOverridesModel(t *testing.T) {
	model := Default()
	model.MultiUseFlag = true
	no := false
	merged := Merge(Candidate{MultiUseFlag: &no}, model)
	if merged.MultiUseFlag {
		t.Fatalf("expected rule sentinel to override model flag")
	}
}

func TestMergeWithSelfIsIdempotentOnLists(t *testing.T) {
	rec := Default()
	rec.BuildingStructure = []string{"철골조", "SRC"}
	rec.Hazards = []string{"연기"}
	merged := Merge(rec.Candidate(), rec)
	if !reflect.DeepEqual(merged.BuildingStructure, rec.BuildingStructure) {
		t.Fatalf("expected %v, got %v", rec.BuildingStructure, merged.BuildingStructure)
	}
	if !reflect.DeepEqual(merged.Hazards, rec.Hazards) {
		t.Fatalf("expected %v, got %v", rec.Hazards, merged.Hazards)
	}
}

func TestApplyStrictIsSubtractive(t *testing.T) {
	transcript := "지하 1층 상가에서 화재가 발생해 연기가 심합니다"
	rec := Default()
	rec.FacilityLocation = []string{"지하", "판매/업무"}
	rec.Hazards = []string{"연기", "폭발"}
	rec.StructureType = Str("상가")

	out := ApplyStrict(rec, transcript)

	if !reflect.DeepEqual(out.FacilityLocation, []string{"지하"}) {
		t.Fatalf("unexpected facility list %v", out.FacilityLocation)
	}
	if !reflect.DeepEqual(out.Hazards, []string{"연기"}) {
		t.Fatalf("unexpected hazards %v", out.Hazards)
	}
	for _, item := range append(out.FacilityLocation, out.Hazards...) {
		if !LiteralIn(transcript, item) {
			t.Fatalf("%q survived but is not literal", item)
		}
	}
	if out.IncidentType == nil || *out.IncidentType != "화재" {
		t.Fatalf("expected incident type 화재, got %v", out.IncidentType)
	}
	if out.StructureType == nil || *out.StructureType != "상가" {
		t.Fatalf("expected literal structure type kept")
	}
}

func TestApplyStrictDropsStructureTypeOutsideEnumOrText(t *testing.T) {
	rec := Default()
	rec.StructureType = Str("창고")
	if out := ApplyStrict(rec, "공장 옆 창고"); out.StructureType == nil {
		t.Fatalf("expected literal enumerated type kept")
	}
	if out := ApplyStrict(rec, "공장에서 불이 났어요"); out.StructureType != nil {
		t.Fatalf("expected non-literal type dropped")
	}
	rec.StructureType = Str("비닐하우스")
	if out := ApplyStrict(rec, "비닐하우스"); out.StructureType != nil {
		t.Fatalf("expected type outside enumeration dropped")
	}
}

func TestIncidentCategoryOrder(t *testing.T) {
	var cases = []struct {
		text string
		want string
	}{
		{"사람이 갇혔어요", "구조"},
		{"아버지가 쓰러졌어요 의식 없어요", "구급"},
		{"불 이 났어요", "화재"},
		{"문의 드립니다", ""},
	}
	for _, tc := range cases {
		got := IncidentCategory(tc.text)
		if tc.want == "" {
			if got != nil {
				t.Fatalf("IncidentCategory(%q)=%q want nil", tc.text, *got)
			}
			continue
		}
		if got == nil || *got != tc.want {
			t.Fatalf("IncidentCategory(%q)=%v want %q", tc.text, got, tc.want)
		}
	}
}

func TestValidateRejectsStructuralViolations(t *testing.T) {
	rec := Default()
	rec.TotalFloorCount = -3
	if _, err := Validate(rec); !errors.Is(err, ErrSchemaViolation) {
		t.Fatalf("expected schema violation, got %v", err)
	}

	rec = Default()
	rec.UnitTemperature = math.Inf(1)
	if _, err := Validate(rec); !errors.Is(err, ErrSchemaViolation) {
		t.Fatalf("expected schema violation for infinite value")
	}

	rec = Default()
	rec.BuildingStructure = []string{"목조", "목조"}
	_, err := Validate(rec)
	if err == nil || !strings.Contains(err.Error(), "building_structure") {
		t.Fatalf("expected duplicate list entry to fail, got %v", err)
	}
}

func TestValidateNullsValuesOutsideEnumeration(t *testing.T) {
	rec := Default()
	rec.WindDirection = Str("북동쪽")
	rec.UnitWindSpeed = Str("강한 바람")
	out, err := Validate(rec)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if out.WindDirection != nil {
		t.Fatalf("expected wind direction outside enumeration nulled")
	}
	if out.UnitWindSpeed == nil || *out.UnitWindSpeed != "강한 바람" {
		t.Fatalf("expected enumerated wind speed kept")
	}
}

func TestCandidateEmpty(t *testing.T) {
	if !(Candidate{}).Empty() {
		t.Fatalf("expected zero candidate to be empty")
	}
	if (Candidate{Hazards: []string{"연기"}}).Empty() {
		t.Fatalf("expected candidate with hazards to be non-empty")
	}
}

func TestNormalizeSkipsStrictOnlyAndNegativeCounts(t *testing.T) {
	rec := Normalize(map[string]any{
		"incident_type":            "구급",
		"total_floor_count":        -2,
		"building_agreement_count": "-15세대",
		"unit_temperature":         -4.5,
	})
	if rec.IncidentType != nil {
		t.Fatalf("strict-only incident_type must not be read from model output, got %q", *rec.IncidentType)
	}
	if rec.TotalFloorCount != 0 || rec.BuildingAgreementCount != 0 {
		t.Fatalf("negative counts should fall back to 0, got %+v", rec)
	}
	if rec.UnitTemperature != -4.5 {
		t.Fatalf("negative temperature is valid, got %v", rec.UnitTemperature)
	}
	if _, err := Validate(rec); err != nil {
		t.Fatalf("normalized record should validate: %v", err)
	}
}

func TestParseIntRejectsOutOfRange(t *testing.T) {
	var cases = []struct {
		in   any
		want int
		ok   bool
	}{
		{"12층", 12, true},
		{"99999999999999999999층", 0, false},
		{1e12, 0, false},
		{-3.0, -3, true},
		{"-1e15", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseInt(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("ParseInt(%v)=(%d,%v) want (%d,%v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
