package mapper

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"incident_extract/formatting"
	"incident_extract/keywords"
	"incident_extract/rules"
)

var (
	floorPattern      = regexp.MustCompile(`(\d+)\s*층`)
	campusPattern     = regexp.MustCompile(`([가-힣A-Za-z0-9\s]*대학교\s*[가-힣A-Za-z0-9\s]*관)`)
	selfLocatePattern = regexp.MustCompile(`여기\s+([^.,]+?)(?:입니다|이에요|예요|인데요)`)
)

var ignitionKeywords = []string{"고무", "종이", "목재", "플라스틱", "천", "기름", "가스", "전기"}

// usage guesses, checked in order.
var usageGuesses = []struct {
	terms []string
	usage string
}{
	{[]string{"대학교", "학교"}, "교육연구시설"},
	{[]string{"아파트", "주택"}, "공동주택"},
	{[]string{"상가", "가게", "식당", "매장", "마트"}, "근린생활시설"},
	{[]string{"공장"}, "공장"},
}

// TranscriptOptions carries the values a transcript cannot provide.
type TranscriptOptions struct {
	FireDataPK *int
	// ReportDatetime in any supported input layout; blank or unparsable
	// values fall back to Now.
	ReportDatetime string
	Now            func() time.Time
}

// FromTranscript builds the nested record from a call transcript alone. It
// combines a few direct heuristics (floor, usage, location phrase, ignition
// keyword) with the rule extractor. Forest and vehicle flags use the same
// keyword sets as Map; with a non-empty transcript every flag resolves to Y
// or N, never to null.
func FromTranscript(transcript string, ex *rules.Extractor, opts TranscriptOptions) (Nested, error) {
	if ex == nil {
		ex = rules.NewExtractor(nil)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	text := formatting.StripSpeakerTags(transcript)
	c := ex.Extract(text)

	floor := firstFloor(text)
	totalFloors := floor
	if c.TotalFloorCount != nil {
		totalFloors = c.TotalFloorCount
	}

	ignition := firstKeyword(text)
	fuel := c.FuelType
	if fuel == nil {
		fuel = ignition
	}
	material := c.IgnitionMaterial
	if material == nil {
		material = ignition
	}

	location := locationPhrase(text)
	if location == nil && len(c.FacilityLocation) > 0 {
		location = ptr(strings.Join(c.FacilityLocation, " / "))
	}

	usage := c.BuildingUsageStatus
	if guess := guessUsage(text); guess != nil {
		usage = guess
	}

	forest := keywordFlag(forestKeywords, text)
	vehicle := keywordFlag(vehicleKeywords, text)

	report := dt(opts.ReportDatetime)
	if report == nil {
		report = ptr(now().Format(DatetimeLayout))
	}

	n := Nested{
		FireDataPK: opts.FireDataPK,
		Numeric: Numeric{
			BuildingAgreementCount: c.BuildingAgreementCount,
			TotalFloorArea:         c.TotalFloorArea,
			SootArea:               c.SootArea,
			IgnitionFloor:          floor,
			CasualtyCount:          ptr(0),
			UnitTemperature:        c.UnitTemperature,
			UnitHumidity:           c.UnitHumidity,
			TotalFloorCount:        totalFloors,
		},
		Info: Info{
			BuildingStructure:        joinList(c.BuildingStructure),
			BuildingUsageStatus:      usage,
			MultiUseFlag:             flag(c.MultiUseFlag != nil && *c.MultiUseFlag),
			FuelType:                 fuel,
			FireManagementTargetFlag: flag(c.FireManagementTargetFlag != nil && *c.FireManagementTargetFlag),
			UnitWindSpeed:            c.UnitWindSpeed,
			FacilityLocation:         location,
			ForestFireFlag:           forest,
			ReportDatetime:           report,
			VehicleFireFlag:          vehicle,
			IgnitionMaterial:         material,
			SpecialFireObjectName:    c.SpecialFireObjectName,
			WindDirection:            c.WindDirection,
			FireType:                 fireType(text, forest, vehicle),
		},
	}
	return Validate(n)
}

func firstFloor(text string) *int {
	m := floorPattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &n
}

func firstKeyword(text string) *string {
	for _, k := range ignitionKeywords {
		if strings.Contains(text, k) {
			return ptr(k)
		}
	}
	return nil
}

func guessUsage(text string) *string {
	for _, g := range usageGuesses {
		for _, term := range g.terms {
			if strings.Contains(text, term) {
				return ptr(g.usage)
			}
		}
	}
	return nil
}

func locationPhrase(text string) *string {
	if m := campusPattern.FindStringSubmatch(text); m != nil {
		if s := strings.TrimSpace(m[1]); s != "" {
			return &s
		}
	}
	if m := selfLocatePattern.FindStringSubmatch(text); m != nil {
		if s := strings.TrimSpace(m[1]); s != "" {
			return &s
		}
	}
	return nil
}

func fireType(text string, forest, vehicle *string) *string {
	switch {
	case forest != nil && *forest == "Y":
		return ptr("임야 화재")
	case vehicle != nil && *vehicle == "Y":
		return ptr("차량 화재")
	}
	if cat := keywords.IncidentCategory(text); cat != nil && *cat == "화재" {
		return ptr("건물 화재")
	}
	return nil
}

func joinList(items []string) *string {
	if len(items) == 0 {
		return nil
	}
	return ptr(strings.Join(items, " / "))
}

func flag(hit bool) *string {
	if hit {
		return ptr("Y")
	}
	return ptr("N")
}
