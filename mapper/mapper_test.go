package mapper

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"incident_extract/keywords"
)

func TestMapSumsFloorCounts(t *testing.T) {
	n := Map(map[string]any{"grnd_nofl": "5", "udgd_nofl": "1"})
	if n.Numeric.TotalFloorCount == nil || *n.Numeric.TotalFloorCount != 6 {
		t.Fatalf("total_floor_count=%v", n.Numeric.TotalFloorCount)
	}
	if n.Numeric.CasualtyCount != nil {
		t.Fatalf("casualty_count should be null when both sources are absent")
	}
}

func TestMapCanonicalReportDatetime(t *testing.T) {
	n := Map(map[string]any{"rcpt_dt": "20230715143000"})
	if n.Info.ReportDatetime == nil || *n.Info.ReportDatetime != "2023-07-15 14:30:00" {
		t.Fatalf("report_datetime=%v", n.Info.ReportDatetime)
	}
}

func TestMapVehicleFlagNullWithoutSources(t *testing.T) {
	n := Map(map[string]any{"fnd_fire_se_nm": "건축물"})
	if n.Info.VehicleFireFlag != nil {
		t.Fatalf("vehicle_fire_flag should be null, got %q", *n.Info.VehicleFireFlag)
	}
	if n.Info.ForestFireFlag == nil || *n.Info.ForestFireFlag != "N" {
		t.Fatalf("forest flag with a source but no hit should be N, got %v", n.Info.ForestFireFlag)
	}
}

func TestMapFullRecord(t *testing.T) {
	raw := map[string]any{
		"fire_data_pk":        float64(42),
		"bldg_rscu_dngct":     "3",
		"bldg_gfa":            "1,234.5",
		"injpsn_cnt":          "2",
		"dth_cnt":             nil,
		"bldg_srtfrm_nm":      "철근콘크리트조",
		"bldg_strctr_nm":      "NULL",
		"bldg_srtrf_nm":       "슬래브",
		"mub_yn":              "yes",
		"arson_mng_trgt_yn":   "0",
		"smtpr_lclsf_nm":      "전기",
		"smtpr_sclsf_nm":      "",
		"vhcl_igtn_pstn_nm":   "엔진룸",
		"vhcl_plc_nm":         "승용차",
		"bgnn_potfr_dt":       "2023/07/15 14:41:00",
		"grnds_arvl_dt":       "2023-07-15",
		"fnd_igtn_pstn_nm":    "임야 인근",
		"wndrct_brng":         "NE",
		"igtn_flr_nm":         "지하1층",
		"hr_unit_artmp":       float64(-3.5),
		"cntr_nm":             "강남소방서",
		"frstn_nm":            "역삼119안전센터",
		"unknown_admin_field": "ignored",
	}
	n, err := Normalize(raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	var cases = []struct {
		name string
		got  *string
		want string
	}{
		{"building_structure", n.Info.BuildingStructure, "철근콘크리트조 / 슬래브"},
		{"multi_use_flag", n.Info.MultiUseFlag, "Y"},
		{"fire_management_target_flag", n.Info.FireManagementTargetFlag, "N"},
		{"fuel_type", n.Info.FuelType, "전기"},
		{"vehicle_fire_flag", n.Info.VehicleFireFlag, "Y"},
		{"forest_fire_flag", n.Info.ForestFireFlag, "Y"},
		{"initial_extinguish_datetime", n.Info.InitialExtinguishDatetime, "2023-07-15 14:41:00"},
		{"arrival_datetime", n.Info.ArrivalDatetime, "2023-07-15 00:00:00"},
		{"fire_station_name", n.Info.FireStationName, "강남소방서 / 역삼119안전센터"},
		{"wind_direction", n.Info.WindDirection, "NE"},
	}
	for _, tc := range cases {
		if tc.got == nil || *tc.got != tc.want {
			t.Fatalf("%s=%v want %q", tc.name, tc.got, tc.want)
		}
	}
	if n.FireDataPK == nil || *n.FireDataPK != 42 {
		t.Fatalf("fire_data_pk=%v", n.FireDataPK)
	}
	if n.Numeric.CasualtyCount == nil || *n.Numeric.CasualtyCount != 2 {
		t.Fatalf("casualty_count=%v", n.Numeric.CasualtyCount)
	}
	if n.Numeric.TotalFloorArea == nil || *n.Numeric.TotalFloorArea != 1234.5 {
		t.Fatalf("total_floor_area=%v", n.Numeric.TotalFloorArea)
	}
	if n.Numeric.IgnitionFloor == nil || *n.Numeric.IgnitionFloor != 1 {
		t.Fatalf("ignition_floor=%v", n.Numeric.IgnitionFloor)
	}
	if n.Numeric.UnitTemperature == nil || *n.Numeric.UnitTemperature != -3.5 {
		t.Fatalf("unit_temperature=%v", n.Numeric.UnitTemperature)
	}
	if n.Info.ReportDatetime != nil {
		t.Fatalf("report_datetime should be absent")
	}
}

func TestMapJSONEncodesAbsentAsNull(t *testing.T) {
	body, err := json.Marshal(Map(map[string]any{"grnd_nofl": 2}))
	if err != nil {
		t.Fatal(err)
	}
	var out struct {
		FireDataPK *int           `json:"fire_data_pk"`
		Numeric    map[string]any `json:"numeric"`
		Info       map[string]any `json:"info"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), `"fire_data_pk":null`) {
		t.Fatalf("expected explicit null fire_data_pk in %s", body)
	}
	if out.Numeric["total_floor_count"] != float64(2) {
		t.Fatalf("total_floor_count=%v", out.Numeric["total_floor_count"])
	}
	for _, key := range []string{"casualty_count", "unit_humidity"} {
		if v, ok := out.Numeric[key]; !ok || v != nil {
			t.Fatalf("numeric.%s should be present and null, got %v (present=%v)", key, v, ok)
		}
	}
	for _, key := range []string{"vehicle_fire_flag", "report_datetime", "fire_type"} {
		if v, ok := out.Info[key]; !ok || v != nil {
			t.Fatalf("info.%s should be present and null, got %v (present=%v)", key, v, ok)
		}
	}
	if len(out.Numeric) != 10 || len(out.Info) != 21 {
		t.Fatalf("expected every field encoded, got %d numeric and %d info", len(out.Numeric), len(out.Info))
	}
}

func TestNullLiteralOnlyAbsentInJoinedFields(t *testing.T) {
	n := Map(map[string]any{
		"vhcl_plc_nm":    "NULL",
		"bldg_strctr_nm": "null",
		"wndrct_brng":    "NULL",
	})
	if n.Info.VehicleFireFlag == nil || *n.Info.VehicleFireFlag != "N" {
		t.Fatalf("vehicle_fire_flag=%v want N", n.Info.VehicleFireFlag)
	}
	if n.Info.BuildingStructure != nil {
		t.Fatalf("joined null literal should be absent, got %q", *n.Info.BuildingStructure)
	}
	if n.Info.WindDirection == nil || *n.Info.WindDirection != "NULL" {
		t.Fatalf("wind_direction=%v", n.Info.WindDirection)
	}
}

func TestHelpers(t *testing.T) {
	if got := join(nil, "", "null", "NULL", "  "); got != nil {
		t.Fatalf("join of empties should be nil, got %q", *got)
	}
	if got := join("a", nil, " b "); got == nil || *got != "a / b" {
		t.Fatalf("join=%v", got)
	}
	if got := sumInt(nil, nil); got != nil {
		t.Fatalf("sum of absent values should be nil")
	}
	if got := sumInt("x", nil); got == nil || *got != 0 {
		t.Fatalf("unparsable present value counts as 0, got %v", got)
	}
	if got := toInt("-"); got != nil {
		t.Fatalf("toInt(\"-\") should be nil")
	}
	if got := toFloat("abc"); got != nil {
		t.Fatalf("toFloat(\"abc\") should be nil")
	}

	var ynCases = []struct {
		in   any
		want string
	}{
		{"Y", "Y"}, {"yes", "Y"}, {"t", "Y"}, {"TRUE", "Y"}, {1, "Y"},
		{"n", "N"}, {"No", "N"}, {"F", "N"}, {"false", "N"}, {"0", "N"},
		{"maybe", ""}, {nil, ""},
	}
	for _, tc := range ynCases {
		got := yn(tc.in)
		if tc.want == "" {
			if got != nil {
				t.Fatalf("yn(%v)=%q want nil", tc.in, *got)
			}
			continue
		}
		if got == nil || *got != tc.want {
			t.Fatalf("yn(%v)=%v want %s", tc.in, got, tc.want)
		}
	}
}

func TestDatetimeLayouts(t *testing.T) {
	var cases = []struct {
		in, want string
	}{
		{"20230715143000", "2023-07-15 14:30:00"},
		{"2023-07-15 14:30:00", "2023-07-15 14:30:00"},
		{"2023/07/15 14:30:00", "2023-07-15 14:30:00"},
		{"2023-07-15", "2023-07-15 00:00:00"},
		{"2023/07/15", "2023-07-15 00:00:00"},
		{"15.07.2023", ""},
		{"2023-13-40", ""},
		{"", ""},
	}
	for _, tc := range cases {
		got := dt(tc.in)
		if tc.want == "" {
			if got != nil {
				t.Fatalf("dt(%q)=%q want nil", tc.in, *got)
			}
			continue
		}
		if got == nil || *got != tc.want {
			t.Fatalf("dt(%q)=%v want %s", tc.in, got, tc.want)
		}
	}
}

func TestValidateRejectsBadFlagsAndDates(t *testing.T) {
	n := Nested{Info: Info{MultiUseFlag: ptr("maybe"), ArrivalDatetime: ptr("2023-07-15")}}
	_, err := Validate(n)
	if !errors.Is(err, keywords.ErrSchemaViolation) {
		t.Fatalf("expected schema violation, got %v", err)
	}
	if !strings.Contains(err.Error(), "multi_use_flag") || !strings.Contains(err.Error(), "arrival_datetime") {
		t.Fatalf("error should name both fields: %v", err)
	}
	if _, err := Validate(Nested{Numeric: Numeric{CasualtyCount: ptr(-1)}}); !errors.Is(err, keywords.ErrSchemaViolation) {
		t.Fatalf("negative casualty count must fail, got %v", err)
	}
}

func TestFromTranscript(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	pk := 7
	text := "여기 강남구 역삼동 오피스텔 12층 건물인데요, 지금 6층에서 불이 나서 연기가 심하게 나고 있어요. 전기 배선 타는 냄새가 납니다."
	n, err := FromTranscript(text, nil, TranscriptOptions{FireDataPK: &pk, Now: func() time.Time { return fixed }})
	if err != nil {
		t.Fatalf("from transcript: %v", err)
	}
	if n.FireDataPK == nil || *n.FireDataPK != 7 {
		t.Fatalf("fire_data_pk=%v", n.FireDataPK)
	}
	if n.Numeric.TotalFloorCount == nil || *n.Numeric.TotalFloorCount != 12 {
		t.Fatalf("total_floor_count=%v", n.Numeric.TotalFloorCount)
	}
	if n.Numeric.IgnitionFloor == nil || *n.Numeric.IgnitionFloor != 12 {
		t.Fatalf("ignition_floor=%v", n.Numeric.IgnitionFloor)
	}
	if n.Info.ReportDatetime == nil || *n.Info.ReportDatetime != "2024-03-01 09:00:00" {
		t.Fatalf("report_datetime=%v", n.Info.ReportDatetime)
	}
	for name, v := range n.Info.flags() {
		if v == nil {
			t.Fatalf("%s must resolve to Y/N for a transcript", name)
		}
	}
	if *n.Info.VehicleFireFlag != "N" || *n.Info.ForestFireFlag != "N" {
		t.Fatalf("unexpected vehicle/forest flags")
	}
	if n.Info.FireType == nil || *n.Info.FireType != "건물 화재" {
		t.Fatalf("fire_type=%v", n.Info.FireType)
	}
	if n.Info.FacilityLocation == nil || *n.Info.FacilityLocation != "강남구 역삼동 오피스텔 12층 건물" {
		t.Fatalf("facility_location=%v", n.Info.FacilityLocation)
	}
}

func TestFromTranscriptUsesGivenReportTime(t *testing.T) {
	n, err := FromTranscript("대학교 공학관 3층에서 종이가 타요", nil, TranscriptOptions{ReportDatetime: "2023/01/02"})
	if err != nil {
		t.Fatalf("from transcript: %v", err)
	}
	if *n.Info.ReportDatetime != "2023-01-02 00:00:00" {
		t.Fatalf("report_datetime=%s", *n.Info.ReportDatetime)
	}
	if n.Info.BuildingUsageStatus == nil || *n.Info.BuildingUsageStatus != "교육연구시설" {
		t.Fatalf("building_usage_status=%v", n.Info.BuildingUsageStatus)
	}
	if n.Info.IgnitionMaterial == nil {
		t.Fatalf("expected an ignition material")
	}
}

func TestFromTranscriptVehicleFire(t *testing.T) {
	n, err := FromTranscript("지하주차장에 세워둔 승용차에서 불이 났어요", nil, TranscriptOptions{})
	if err != nil {
		t.Fatalf("from transcript: %v", err)
	}
	if *n.Info.VehicleFireFlag != "Y" || *n.Info.ForestFireFlag != "N" {
		t.Fatalf("vehicle=%s forest=%s", *n.Info.VehicleFireFlag, *n.Info.ForestFireFlag)
	}
	if n.Info.FireType == nil || *n.Info.FireType != "차량 화재" {
		t.Fatalf("fire_type=%v", n.Info.FireType)
	}
}
