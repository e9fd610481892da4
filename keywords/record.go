// Package keywords defines the canonical incident attribute record produced by
// transcript extraction, plus the normalize, merge, strict-filter and
// validation passes that operate on it.
package keywords

// Record is the fully typed attribute record. Every declared field is always
// present; strings use nil for "no evidence".
type Record struct {
	BuildingAgreementCount   int      `json:"building_agreement_count"`
	BuildingStructure        []string `json:"building_structure"`
	BuildingUsageStatus      *string  `json:"building_usage_status"`
	TotalFloorArea           float64  `json:"total_floor_area"`
	SootArea                 float64  `json:"soot_area"`
	MultiUseFlag             bool     `json:"multi_use_flag"`
	FuelType                 *string  `json:"fuel_type"`
	FireManagementTargetFlag bool     `json:"fire_management_target_flag"`
	UnitTemperature          float64  `json:"unit_temperature"`
	UnitHumidity             float64  `json:"unit_humidity"`
	UnitWindSpeed            *string  `json:"unit_wind_speed"`
	FacilityLocation         []string `json:"facility_location"`
	ForestFireFlag           []string `json:"forest_fire_flag"`
	TotalFloorCount          int      `json:"total_floor_count"`
	VehicleFireFlag          []string `json:"vehicle_fire_flag"`
	IgnitionMaterial         *string  `json:"ignition_material"`
	SpecialFireObjectName    *string  `json:"special_fire_object_name"`
	WindDirection            *string  `json:"wind_direction"`
	Hazards                  []string `json:"hazards"`
	StructureType            *string  `json:"structure_type"`
	IncidentType             *string  `json:"incident_type"`
}

// Candidate is a sparse record: nil pointers and nil slices mean the source
// produced nothing for that field. Rule extraction yields a Candidate.
type Candidate struct {
	BuildingAgreementCount   *int
	BuildingStructure        []string
	BuildingUsageStatus      *string
	TotalFloorArea           *float64
	SootArea                 *float64
	MultiUseFlag             *bool
	FuelType                 *string
	FireManagementTargetFlag *bool
	UnitTemperature          *float64
	UnitHumidity             *float64
	UnitWindSpeed            *string
	FacilityLocation         []string
	ForestFireFlag           []string
	TotalFloorCount          *int
	VehicleFireFlag          []string
	IgnitionMaterial         *string
	SpecialFireObjectName    *string
	WindDirection            *string
	Hazards                  []string
	StructureType            *string
	IncidentType             *string
}

// Kind is the semantic type of a declared field.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindBool
	KindList
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindList:
		return "string[]"
	default:
		return "string"
	}
}

// Field describes one declared attribute. rec and cand return typed pointers
// into a Record or Candidate so the passes in this package can walk the
// schema without reflection.
type Field struct {
	Name string
	Kind Kind
	// Enum restricts string values; empty means unrestricted.
	Enum []string
	// StrictOnly fields are filled only by the literal strict pass.
	StrictOnly bool

	rec  func(*Record) any
	cand func(*Candidate) any
}

// Wind speed tiers, compass codes and the strict enumerations.
var (
	WindSpeedTiers = []string{"매우 강한 바람", "강한 바람", "보통 바람", "약한 바람", "잔잔함"}
	WindDirections = []string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}
	StructureTypes = []string{"공장", "창고", "상가", "차량", "야외", "산림", "공동주택"}
	IncidentTypes  = []string{"화재", "구조", "구급"}
)

var schema = []Field{
	{Name: "building_agreement_count", Kind: KindInt,
		rec: func(r *Record) any { return &r.BuildingAgreementCount }, cand: func(c *Candidate) any { return &c.BuildingAgreementCount }},
	{Name: "building_structure", Kind: KindList,
		rec: func(r *Record) any { return &r.BuildingStructure }, cand: func(c *Candidate) any { return &c.BuildingStructure }},
	{Name: "building_usage_status", Kind: KindString,
		rec: func(r *Record) any { return &r.BuildingUsageStatus }, cand: func(c *Candidate) any { return &c.BuildingUsageStatus }},
	{Name: "total_floor_area", Kind: KindFloat,
		rec: func(r *Record) any { return &r.TotalFloorArea }, cand: func(c *Candidate) any { return &c.TotalFloorArea }},
	{Name: "soot_area", Kind: KindFloat,
		rec: func(r *Record) any { return &r.SootArea }, cand: func(c *Candidate) any { return &c.SootArea }},
	{Name: "multi_use_flag", Kind: KindBool,
		rec: func(r *Record) any { return &r.MultiUseFlag }, cand: func(c *Candidate) any { return &c.MultiUseFlag }},
	{Name: "fuel_type", Kind: KindString,
		rec: func(r *Record) any { return &r.FuelType }, cand: func(c *Candidate) any { return &c.FuelType }},
	{Name: "fire_management_target_flag", Kind: KindBool,
		rec: func(r *Record) any { return &r.FireManagementTargetFlag }, cand: func(c *Candidate) any { return &c.FireManagementTargetFlag }},
	{Name: "unit_temperature", Kind: KindFloat,
		rec: func(r *Record) any { return &r.UnitTemperature }, cand: func(c *Candidate) any { return &c.UnitTemperature }},
	{Name: "unit_humidity", Kind: KindFloat,
		rec: func(r *Record) any { return &r.UnitHumidity }, cand: func(c *Candidate) any { return &c.UnitHumidity }},
	{Name: "unit_wind_speed", Kind: KindString, Enum: WindSpeedTiers,
		rec: func(r *Record) any { return &r.UnitWindSpeed }, cand: func(c *Candidate) any { return &c.UnitWindSpeed }},
	{Name: "facility_location", Kind: KindList,
		rec: func(r *Record) any { return &r.FacilityLocation }, cand: func(c *Candidate) any { return &c.FacilityLocation }},
	{Name: "forest_fire_flag", Kind: KindList,
		rec: func(r *Record) any { return &r.ForestFireFlag }, cand: func(c *Candidate) any { return &c.ForestFireFlag }},
	{Name: "total_floor_count", Kind: KindInt,
		rec: func(r *Record) any { return &r.TotalFloorCount }, cand: func(c *Candidate) any { return &c.TotalFloorCount }},
	{Name: "vehicle_fire_flag", Kind: KindList,
		rec: func(r *Record) any { return &r.VehicleFireFlag }, cand: func(c *Candidate) any { return &c.VehicleFireFlag }},
	{Name: "ignition_material", Kind: KindString,
		rec: func(r *Record) any { return &r.IgnitionMaterial }, cand: func(c *Candidate) any { return &c.IgnitionMaterial }},
	{Name: "special_fire_object_name", Kind: KindString,
		rec: func(r *Record) any { return &r.SpecialFireObjectName }, cand: func(c *Candidate) any { return &c.SpecialFireObjectName }},
	{Name: "wind_direction", Kind: KindString, Enum: WindDirections,
		rec: func(r *Record) any { return &r.WindDirection }, cand: func(c *Candidate) any { return &c.WindDirection }},
	{Name: "hazards", Kind: KindList,
		rec: func(r *Record) any { return &r.Hazards }, cand: func(c *Candidate) any { return &c.Hazards }},
	{Name: "structure_type", Kind: KindString, Enum: StructureTypes,
		rec: func(r *Record) any { return &r.StructureType }, cand: func(c *Candidate) any { return &c.StructureType }},
	{Name: "incident_type", Kind: KindString, Enum: IncidentTypes, StrictOnly: true,
		rec: func(r *Record) any { return &r.IncidentType }, cand: func(c *Candidate) any { return &c.IncidentType }},
}

// Fields returns the declared schema in output order.
func Fields() []Field {
	out := make([]Field, len(schema))
	copy(out, schema)
	return out
}

// Lookup returns the declared field with the given JSON name.
func Lookup(name string) (Field, bool) {
	for _, f := range schema {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Default returns the empty skeleton: zero numbers, false flags, empty lists
// and null strings.
func Default() Record {
	return Record{
		BuildingStructure: []string{},
		FacilityLocation:  []string{},
		ForestFireFlag:    []string{},
		VehicleFireFlag:   []string{},
		Hazards:           []string{},
	}
}

// Clone returns a deep copy so callers never share list backing arrays.
func (r Record) Clone() Record {
	out := r
	for _, f := range schema {
		switch p := f.rec(&out).(type) {
		case *[]string:
			*p = append([]string{}, (*p)...)
		case **string:
			if *p != nil {
				v := **p
				*p = &v
			}
		}
	}
	return out
}

// Candidate lifts a full record into candidate form. Every field except null
// strings is present.
func (r Record) Candidate() Candidate {
	src := r.Clone()
	var c Candidate
	for _, f := range schema {
		switch p := f.cand(&c).(type) {
		case **int:
			v := *f.rec(&src).(*int)
			*p = &v
		case **float64:
			v := *f.rec(&src).(*float64)
			*p = &v
		case **bool:
			v := *f.rec(&src).(*bool)
			*p = &v
		case *[]string:
			*p = *f.rec(&src).(*[]string)
		case **string:
			*p = *f.rec(&src).(**string)
		}
	}
	return c
}

// Map renders the record as a name -> value map in the JSON shape.
func (r Record) Map() map[string]any {
	out := make(map[string]any, len(schema))
	for _, f := range schema {
		switch p := f.rec(&r).(type) {
		case *int:
			out[f.Name] = *p
		case *float64:
			out[f.Name] = *p
		case *bool:
			out[f.Name] = *p
		case *[]string:
			out[f.Name] = append([]string{}, (*p)...)
		case **string:
			if *p == nil {
				out[f.Name] = nil
			} else {
				out[f.Name] = **p
			}
		}
	}
	return out
}

// Str returns a pointer to s for optional string fields.
func Str(s string) *string { return &s }
