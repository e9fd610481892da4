package mapper

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"incident_extract/keywords"
)

// Map converts a raw administrative record. Unknown keys are ignored and
// every output field is optional.
func Map(raw map[string]any) Nested {
	get := func(key string) any { return raw[key] }

	return Nested{
		FireDataPK: toInt(get("fire_data_pk")),
		Numeric: Numeric{
			BuildingAgreementCount: toInt(get("bldg_rscu_dngct")),
			TotalFloorArea:         toFloat(get("bldg_gfa")),
			SootArea:               toFloat(get("so_area")),
			FloorArea:              toFloat(get("bttm_area")),
			IgnitionFloor:          toInt(get("igtn_flr_nm")),
			CasualtyCount:          sumInt(get("injpsn_cnt"), get("dth_cnt")),
			UnitTemperature:        toFloat(get("hr_unit_artmp")),
			UnitHumidity:           toFloat(get("hr_unit_hum")),
			PropertyDamageAmount:   toFloat(get("prpt_dam_amt")),
			TotalFloorCount:        sumInt(get("grnd_nofl"), get("udgd_nofl")),
		},
		Info: Info{
			BuildingStructure:           join(get("bldg_srtfrm_nm"), get("bldg_strctr_nm"), get("bldg_srtrf_nm")),
			BuildingUsageStatus:         text(get("bldg_stts_nm")),
			MultiUseFlag:                yn(get("mub_yn")),
			FuelType:                    join(get("smtpr_lclsf_nm"), get("smtpr_sclsf_nm")),
			IgnitionDevice:              join(get("igtn_istr_lclsf_nm"), get("igtn_istr_sclsf_nm")),
			IgnitionHeatSource:          join(get("igtn_htsrc_nm"), get("igtn_htsrc_sclsf_nm")),
			IgnitionCause:               join(get("igtn_dmnt_lclsf_nm"), get("igtn_dmnt_sclsf_nm")),
			FireManagementTargetFlag:    yn(get("arson_mng_trgt_yn")),
			FireStationName:             join(get("cntr_nm"), get("frstn_nm")),
			UnitWindSpeed:               text(get("hr_unit_wspd_info")),
			FacilityLocation:            join(get("fclt_plc_lclsf_nm"), get("fclt_plc_sclsf_nm"), get("fclt_plc_mclsf_nm")),
			CombustionExpansionMaterial: join(get("cmbs_expobj_lclsf_nm"), get("cmbs_expobj_sclsf_nm")),
			ForestFireFlag:              keywordFlag(forestKeywords, get("fnd_igtn_pstn_nm"), get("fnd_fire_se_nm")),
			ReportDatetime:              dt(get("rcpt_dt")),
			VehicleFireFlag:             keywordFlag(vehicleKeywords, get("vhcl_igtn_pstn_nm"), get("vhcl_plc_nm")),
			InitialExtinguishDatetime:   dt(get("bgnn_potfr_dt")),
			IgnitionMaterial:            join(get("frst_igobj_lclsf_nm"), get("frst_igobj_sclsf_nm")),
			SpecialFireObjectName:       text(get("spfptg_nm")),
			WindDirection:               text(get("wndrct_brng")),
			ArrivalDatetime:             dt(get("grnds_arvl_dt")),
			FireType:                    text(get("fire_type_nm")),
		},
	}
}

// Normalize maps and validates a raw record.
func Normalize(raw map[string]any) (Nested, error) {
	return Validate(Map(raw))
}

// Validate checks the nested record: flags must be Y or N, datetimes must be
// canonical, counts must not be negative and numbers must be finite.
// Violations fail with keywords.ErrSchemaViolation.
func Validate(n Nested) (Nested, error) {
	var problems []string
	for name, v := range n.Info.flags() {
		if v != nil && *v != "Y" && *v != "N" {
			problems = append(problems, fmt.Sprintf("info.%s: %q is not Y/N", name, *v))
		}
	}
	for name, v := range n.Info.datetimes() {
		if v == nil {
			continue
		}
		if _, err := time.Parse(DatetimeLayout, *v); err != nil {
			problems = append(problems, fmt.Sprintf("info.%s: %q is not canonical", name, *v))
		}
	}
	counts := map[string]*int{
		"building_agreement_count": n.Numeric.BuildingAgreementCount,
		"casualty_count":           n.Numeric.CasualtyCount,
		"total_floor_count":        n.Numeric.TotalFloorCount,
	}
	for name, v := range counts {
		if v != nil && *v < 0 {
			problems = append(problems, fmt.Sprintf("numeric.%s: negative value %d", name, *v))
		}
	}
	floats := map[string]*float64{
		"total_floor_area":       n.Numeric.TotalFloorArea,
		"soot_area":              n.Numeric.SootArea,
		"floor_area":             n.Numeric.FloorArea,
		"unit_temperature":       n.Numeric.UnitTemperature,
		"unit_humidity":          n.Numeric.UnitHumidity,
		"property_damage_amount": n.Numeric.PropertyDamageAmount,
	}
	for name, v := range floats {
		if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
			problems = append(problems, fmt.Sprintf("numeric.%s: non-finite value", name))
		}
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return Nested{}, fmt.Errorf("%w: %s", keywords.ErrSchemaViolation, strings.Join(problems, "; "))
	}
	return n, nil
}
