// Package rules holds the ordered pattern tables used to pull incident
// attributes out of Korean call transcripts without a model.
package rules

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"incident_extract/keywords"
)

// Policy controls how a table's matches become a field value.
type Policy string

const (
	// PolicyFirst returns the label of the earliest matching rule.
	PolicyFirst Policy = "first"
	// PolicyUnion returns every matching label in table order without repeats.
	PolicyUnion Policy = "union"
	// PolicyKeyword yields true when any rule matches and false otherwise.
	PolicyKeyword Policy = "keyword"
	// PolicyCapture parses the first capture group of the first matching rule.
	PolicyCapture Policy = "capture"
)

// RuleSpec is the uncompiled form of a rule, as written in YAML overrides.
type RuleSpec struct {
	Pattern string `yaml:"pattern"`
	Label   string `yaml:"label"`
}

// TableSpec is the uncompiled form of a table.
type TableSpec struct {
	Field      string     `yaml:"field"`
	Policy     Policy     `yaml:"policy"`
	IgnoreCase bool       `yaml:"ignore_case"`
	Rules      []RuleSpec `yaml:"rules"`
}

// Rule is a compiled (pattern, label) pair.
type Rule struct {
	Pattern *regexp.Regexp
	Label   string
}

// Table is a compiled, ordered rule list for one field.
type Table struct {
	Field  string
	Policy Policy
	Rules  []Rule
}

// Set is the immutable collection of tables. It is safe for concurrent use.
type Set struct {
	tables []Table
	byName map[string]int
}

var defaultSet = sync.OnceValue(func() *Set {
	s, err := Compile(defaultSpecs)
	if err != nil {
		panic(fmt.Sprintf("rules: built-in tables: %v", err))
	}
	return s
})

// Default returns the built-in rule set, compiled on first use.
func Default() *Set { return defaultSet() }

// DefaultSpecs returns a copy of the built-in table definitions.
func DefaultSpecs() []TableSpec {
	out := make([]TableSpec, len(defaultSpecs))
	for i, t := range defaultSpecs {
		t.Rules = append([]RuleSpec{}, t.Rules...)
		out[i] = t
	}
	return out
}

// Compile validates and compiles table specs. Every table must target a
// declared record field whose kind fits the policy.
func Compile(specs []TableSpec) (*Set, error) {
	s := &Set{byName: make(map[string]int, len(specs))}
	for _, ts := range specs {
		field, ok := keywords.Lookup(ts.Field)
		if !ok {
			return nil, fmt.Errorf("table %q: unknown field", ts.Field)
		}
		if err := checkPolicy(ts, field); err != nil {
			return nil, err
		}
		if _, dup := s.byName[ts.Field]; dup {
			return nil, fmt.Errorf("table %q: declared twice", ts.Field)
		}
		t := Table{Field: ts.Field, Policy: ts.Policy, Rules: make([]Rule, 0, len(ts.Rules))}
		for i, r := range ts.Rules {
			expr := r.Pattern
			if ts.IgnoreCase {
				expr = "(?i)" + expr
			}
			re, err := regexp.Compile(expr)
			if err != nil {
				return nil, fmt.Errorf("table %q rule %d: %w", ts.Field, i, err)
			}
			if ts.Policy == PolicyCapture && re.NumSubexp() < 1 {
				return nil, fmt.Errorf("table %q rule %d: capture pattern needs a group", ts.Field, i)
			}
			t.Rules = append(t.Rules, Rule{Pattern: re, Label: r.Label})
		}
		s.byName[ts.Field] = len(s.tables)
		s.tables = append(s.tables, t)
	}
	return s, nil
}

func checkPolicy(ts TableSpec, field keywords.Field) error {
	var ok bool
	switch ts.Policy {
	case PolicyFirst:
		ok = field.Kind == keywords.KindString
	case PolicyUnion:
		ok = field.Kind == keywords.KindList || field.Kind == keywords.KindString
	case PolicyKeyword:
		ok = field.Kind == keywords.KindBool
	case PolicyCapture:
		ok = field.Kind == keywords.KindInt || field.Kind == keywords.KindFloat
	default:
		return fmt.Errorf("table %q: unknown policy %q", ts.Field, ts.Policy)
	}
	if !ok {
		return fmt.Errorf("table %q: policy %s does not fit %s field", ts.Field, ts.Policy, field.Kind)
	}
	return nil
}

// Tables returns the compiled tables in declaration order.
func (s *Set) Tables() []Table {
	out := make([]Table, len(s.tables))
	copy(out, s.tables)
	return out
}

// Table returns the compiled table for a field.
func (s *Set) Table(field string) (Table, bool) {
	i, ok := s.byName[field]
	if !ok {
		return Table{}, false
	}
	return s.tables[i], true
}

type overrideFile struct {
	Tables []TableSpec `yaml:"tables"`
}

// LoadFile reads YAML table overrides and compiles them on top of the built-in
// tables. A table listed in the file replaces the built-in table for the same
// field; omitted fields keep their defaults.
//
//	tables:
//	  - field: hazards
//	    policy: union
//	    rules:
//	      - {pattern: "연기", label: "연기"}
func LoadFile(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errors.New("empty rules file")
	}
	var parsed overrideFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	specs := DefaultSpecs()
	for _, o := range parsed.Tables {
		replaced := false
		for i := range specs {
			if specs[i].Field == o.Field {
				if o.Policy == "" {
					o.Policy = specs[i].Policy
				}
				specs[i] = o
				replaced = true
				break
			}
		}
		if !replaced {
			specs = append(specs, o)
		}
	}
	return Compile(specs)
}
