package keywords

import "strings"

// Merge folds a rule candidate into a model record. The model record is the
// base; list fields become the ordered union (model entries first, then rule
// entries not already present); every other field takes the rule value when the
// rule produced a non-empty one. The result is renormalized.
func Merge(rule Candidate, model Record) Record {
	out := model.Clone()
	for _, f := range schema {
		switch c := f.cand(&rule).(type) {
		case **int:
			if *c != nil {
				*f.rec(&out).(*int) = **c
			}
		case **float64:
			if *c != nil {
				*f.rec(&out).(*float64) = **c
			}
		case **bool:
			if *c != nil {
				*f.rec(&out).(*bool) = **c
			}
		case *[]string:
			p := f.rec(&out).(*[]string)
			*p = append(append([]string{}, (*p)...), (*c)...)
		case **string:
			if *c != nil && strings.TrimSpace(**c) != "" {
				v := **c
				*f.rec(&out).(**string) = &v
			}
		}
	}
	return out.Normalized()
}

// Empty reports whether the candidate carries no evidence at all.
func (c Candidate) Empty() bool {
	for _, f := range schema {
		switch p := f.cand(&c).(type) {
		case **int:
			if *p != nil {
				return false
			}
		case **float64:
			if *p != nil {
				return false
			}
		case **bool:
			if *p != nil {
				return false
			}
		case *[]string:
			if len(*p) > 0 {
				return false
			}
		case **string:
			if *p != nil && strings.TrimSpace(**p) != "" {
				return false
			}
		}
	}
	return true
}

// Record expands the candidate onto the default skeleton.
func (c Candidate) Record() Record {
	return Merge(c, Default())
}

// Set assigns v to the named candidate field. v must match the field kind
// (int, float64, bool, []string or string); it reports whether the value was
// stored.
func (c *Candidate) Set(name string, v any) bool {
	f, ok := Lookup(name)
	if !ok {
		return false
	}
	switch p := f.cand(c).(type) {
	case **int:
		n, ok := v.(int)
		if !ok {
			return false
		}
		*p = &n
	case **float64:
		x, ok := v.(float64)
		if !ok {
			return false
		}
		*p = &x
	case **bool:
		b, ok := v.(bool)
		if !ok {
			return false
		}
		*p = &b
	case *[]string:
		items, ok := v.([]string)
		if !ok {
			return false
		}
		*p = append([]string{}, items...)
	case **string:
		s, ok := v.(string)
		if !ok {
			return false
		}
		*p = &s
	default:
		return false
	}
	return true
}
