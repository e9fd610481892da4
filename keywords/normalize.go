package keywords

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

var (
	numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
	truthyTokens  = map[string]struct{}{"1": {}, "y": {}, "yes": {}, "true": {}, "t": {}}
)

// Normalize coerces a loosely typed mapping (typically recovered model JSON)
// into a full Record. Undeclared keys, strict-only fields and negative counts
// are ignored; values that cannot be coerced fall back to the field default.
func Normalize(raw map[string]any) Record {
	rec := Default()
	for _, f := range schema {
		v, ok := raw[f.Name]
		if !ok || f.StrictOnly {
			continue
		}
		switch p := f.rec(&rec).(type) {
		case *int:
			if n, ok := ParseInt(v); ok && n > 0 {
				*p = n
			}
		case *float64:
			*p, _ = ParseFloat(v)
		case *bool:
			*p = ParseBool(v)
		case *[]string:
			*p = ParseList(v)
		case **string:
			*p = ParseString(v)
		}
	}
	return rec
}

// Normalized returns a copy of r with the record invariants re-established:
// lists trimmed, duplicate free and non-nil; blank strings nulled.
func (r Record) Normalized() Record {
	out := r.Clone()
	for _, f := range schema {
		switch p := f.rec(&out).(type) {
		case *[]string:
			*p = dedupe(*p)
		case **string:
			if *p != nil {
				*p = ParseString(**p)
			}
		case *float64:
			if math.IsNaN(*p) {
				*p = 0
			}
		}
	}
	return out
}

// ParseInt reads a signed integer from a scalar or from the first number
// embedded in a string ("10층" -> 10, "1,200세대" -> 1200). Values outside
// the int32 range are rejected.
func ParseInt(v any) (int, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case string:
		f, ok := parseNumberString(t)
		if !ok {
			return 0, false
		}
		return intInRange(f)
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return intInRange(f)
}

func intInRange(f float64) (int, bool) {
	if f < math.MinInt32 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// ParseFloat reads a decimal with thousands separators removed.
func ParseFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case string:
		return parseNumberString(t)
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parseNumberString(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f, true
	}
	m := numberPattern.FindString(s)
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ParseBool treats strings by membership in the truthy token set and other
// scalars by their truth value.
func ParseBool(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		_, ok := truthyTokens[strings.ToLower(strings.TrimSpace(t))]
		return ok
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return false
	}
	return b
}

// ParseList wraps scalars into a single-element list and stringifies each
// element, dropping null and blank entries.
func ParseList(v any) []string {
	switch t := v.(type) {
	case nil:
		return []string{}
	case []string:
		return dedupe(t)
	case []any:
		items := make([]string, 0, len(t))
		for _, item := range t {
			if s := ParseString(item); s != nil {
				items = append(items, *s)
			}
		}
		return dedupe(items)
	}
	if s := ParseString(v); s != nil {
		return []string{*s}
	}
	return []string{}
}

// ParseString stringifies a scalar; blank input is null.
func ParseString(v any) *string {
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

func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
