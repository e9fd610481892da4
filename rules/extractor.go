package rules

import (
	"math"
	"strconv"
	"strings"

	"incident_extract/keywords"
)

// Extractor applies a rule Set to transcripts. It holds no mutable state.
type Extractor struct {
	set *Set
}

// NewExtractor binds an extractor to a compiled set. A nil set means the
// built-in tables.
func NewExtractor(set *Set) *Extractor {
	if set == nil {
		set = Default()
	}
	return &Extractor{set: set}
}

// Set returns the tables the extractor reads.
func (e *Extractor) Set() *Set { return e.set }

// Extract returns the rule candidate for text. Fields with no match stay
// absent, except keyword flags which are always set.
func (e *Extractor) Extract(text string) keywords.Candidate {
	var c keywords.Candidate
	for _, t := range e.set.tables {
		switch t.Policy {
		case PolicyFirst:
			if label, ok := firstMatch(t, text); ok {
				c.Set(t.Field, label)
			}
		case PolicyUnion:
			labels := unionMatch(t, text)
			if len(labels) == 0 {
				continue
			}
			if f, _ := keywords.Lookup(t.Field); f.Kind == keywords.KindString {
				c.Set(t.Field, strings.Join(labels, " "))
			} else {
				c.Set(t.Field, labels)
			}
		case PolicyKeyword:
			_, hit := firstMatch(t, text)
			c.Set(t.Field, hit)
		case PolicyCapture:
			f, _ := keywords.Lookup(t.Field)
			v, ok := captureNumber(t, text, f.Kind == keywords.KindInt)
			if !ok {
				continue
			}
			if f.Kind == keywords.KindInt {
				c.Set(t.Field, int(v))
			} else {
				c.Set(t.Field, v)
			}
		}
	}
	return c
}

func firstMatch(t Table, text string) (string, bool) {
	for _, r := range t.Rules {
		if r.Pattern.MatchString(text) {
			return r.Label, true
		}
	}
	return "", false
}

func unionMatch(t Table, text string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, r := range t.Rules {
		if !r.Pattern.MatchString(text) {
			continue
		}
		if _, ok := seen[r.Label]; ok {
			continue
		}
		seen[r.Label] = struct{}{}
		out = append(out, r.Label)
	}
	return out
}

// captureNumber returns the first parsable capture. A rule whose capture does
// not parse, or for count fields falls outside [0, MaxInt32], is skipped and
// the next rule is tried.
func captureNumber(t Table, text string, count bool) (float64, bool) {
	for _, r := range t.Rules {
		m := r.Pattern.FindStringSubmatch(text)
		if len(m) < 2 {
			continue
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil {
			continue
		}
		if r.Label == "-" {
			v = -v
		}
		if count && (v < 0 || v > math.MaxInt32) {
			continue
		}
		return v, true
	}
	return 0, false
}
