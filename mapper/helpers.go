package mapper

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// DatetimeLayout is the canonical datetime rendering.
const DatetimeLayout = "2006-01-02 15:04:05"

var inputLayouts = []string{
	"20060102150405",
	DatetimeLayout,
	"2006/01/02 15:04:05",
	"2006-01-02",
	"2006/01/02",
}

var (
	forestKeywords  = []string{"임야", "산불", "임야화재", "산림"}
	vehicleKeywords = []string{"차량", "자동차", "승용", "트럭", "버스", "화물", "car", "vehicle"}
)

// text stringifies v; nil and blank values are absent.
func text(v any) *string {
	if v == nil {
		return nil
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// join concatenates the present values with " / ". The literal null markers
// count as absent here.
func join(vals ...any) *string {
	parts := make([]string, 0, len(vals))
	for _, v := range vals {
		if s := text(v); s != nil && *s != "null" && *s != "NULL" {
			parts = append(parts, *s)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	out := strings.Join(parts, " / ")
	return &out
}

// toInt keeps only digits and '-' from a string ("5층" -> 5). Numeric values
// are truncated.
func toInt(v any) *int {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		var b strings.Builder
		for _, r := range t {
			if (r >= '0' && r <= '9') || r == '-' {
				b.WriteRune(r)
			}
		}
		n, err := strconv.Atoi(b.String())
		if err != nil {
			return nil
		}
		return &n
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	n := int(f)
	return &n
}

// toFloat parses a decimal with thousands separators removed.
func toFloat(v any) *float64 {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(t), ",", "")
		if s == "" {
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return &f
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// sumInt adds the present values, counting unparsable ones as 0. It is nil
// only when every value is absent.
func sumInt(vals ...any) *int {
	present := false
	total := 0
	for _, v := range vals {
		if v == nil {
			continue
		}
		present = true
		if n := toInt(v); n != nil {
			total += *n
		}
	}
	if !present {
		return nil
	}
	return &total
}

// yn maps truthy and falsy tokens to "Y" and "N"; anything else is nil.
func yn(v any) *string {
	s := text(v)
	if s == nil {
		return nil
	}
	switch strings.ToUpper(*s) {
	case "Y", "YES", "T", "TRUE", "1":
		return ptr("Y")
	case "N", "NO", "F", "FALSE", "0":
		return ptr("N")
	}
	return nil
}

// dt reformats the first matching input layout to DatetimeLayout.
func dt(v any) *string {
	s := text(v)
	if s == nil {
		return nil
	}
	for _, layout := range inputLayouts {
		if t, err := time.Parse(layout, *s); err == nil {
			out := t.Format(DatetimeLayout)
			return &out
		}
	}
	return nil
}

// keywordFlag is "Y" when any keyword occurs in the lower-cased
// concatenation of vals, "N" when none does, and nil when every value is
// absent.
func keywordFlag(keywords []string, vals ...any) *string {
	parts := make([]string, 0, len(vals))
	for _, v := range vals {
		if s := text(v); s != nil {
			parts = append(parts, *s)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	haystack := strings.ToLower(strings.Join(parts, " "))
	for _, k := range keywords {
		if strings.Contains(haystack, strings.ToLower(k)) {
			return ptr("Y")
		}
	}
	return ptr("N")
}

func ptr[T any](v T) *T { return &v }
