// Package mapper converts raw administrative fire records, and bare call
// transcripts, into the nested numeric/info incident form. It is the only
// place the administrative field codes are known.
package mapper

// Numeric holds the measured quantities of an incident.
type Numeric struct {
	BuildingAgreementCount *int     `json:"building_agreement_count"`
	TotalFloorArea         *float64 `json:"total_floor_area"`
	SootArea               *float64 `json:"soot_area"`
	FloorArea              *float64 `json:"floor_area"`
	IgnitionFloor          *int     `json:"ignition_floor"`
	CasualtyCount          *int     `json:"casualty_count"`
	UnitTemperature        *float64 `json:"unit_temperature"`
	UnitHumidity           *float64 `json:"unit_humidity"`
	PropertyDamageAmount   *float64 `json:"property_damage_amount"`
	TotalFloorCount        *int     `json:"total_floor_count"`
}

// Info holds categorical values, Y/N flags and canonical datetimes.
type Info struct {
	BuildingStructure           *string `json:"building_structure"`
	BuildingUsageStatus         *string `json:"building_usage_status"`
	MultiUseFlag                *string `json:"multi_use_flag"`
	FuelType                    *string `json:"fuel_type"`
	IgnitionDevice              *string `json:"ignition_device"`
	IgnitionHeatSource          *string `json:"ignition_heat_source"`
	IgnitionCause               *string `json:"ignition_cause"`
	FireManagementTargetFlag    *string `json:"fire_management_target_flag"`
	FireStationName             *string `json:"fire_station_name"`
	UnitWindSpeed               *string `json:"unit_wind_speed"`
	FacilityLocation            *string `json:"facility_location"`
	CombustionExpansionMaterial *string `json:"combustion_expansion_material"`
	ForestFireFlag              *string `json:"forest_fire_flag"`
	ReportDatetime              *string `json:"report_datetime"`
	VehicleFireFlag             *string `json:"vehicle_fire_flag"`
	InitialExtinguishDatetime   *string `json:"initial_extinguish_datetime"`
	IgnitionMaterial            *string `json:"ignition_material"`
	SpecialFireObjectName       *string `json:"special_fire_object_name"`
	WindDirection               *string `json:"wind_direction"`
	ArrivalDatetime             *string `json:"arrival_datetime"`
	FireType                    *string `json:"fire_type"`
}

// Nested is the normalized incident record. Absent values encode as null.
type Nested struct {
	FireDataPK *int    `json:"fire_data_pk"`
	Numeric    Numeric `json:"numeric"`
	Info       Info    `json:"info"`
}

func (i *Info) flags() map[string]*string {
	return map[string]*string{
		"multi_use_flag":              i.MultiUseFlag,
		"fire_management_target_flag": i.FireManagementTargetFlag,
		"forest_fire_flag":            i.ForestFireFlag,
		"vehicle_fire_flag":           i.VehicleFireFlag,
	}
}

func (i *Info) datetimes() map[string]*string {
	return map[string]*string{
		"report_datetime":             i.ReportDatetime,
		"initial_extinguish_datetime": i.InitialExtinguishDatetime,
		"arrival_datetime":            i.ArrivalDatetime,
	}
}
