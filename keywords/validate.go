package keywords

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
)

// ErrSchemaViolation marks a record that breaks a structural invariant the
// normalizer cannot repair.
var ErrSchemaViolation = errors.New("schema violation")

// Validate checks rec against the declared schema. Structural violations
// (negative counts, non-finite numbers, blank or repeated list entries) fail
// with ErrSchemaViolation; enumerated strings outside their enumeration are
// nulled. The returned record is a fresh copy.
func Validate(rec Record) (Record, error) {
	out := rec.Clone()
	var problems []string
	for _, f := range schema {
		switch p := f.rec(&out).(type) {
		case *int:
			if *p < 0 {
				problems = append(problems, fmt.Sprintf("%s: negative value %d", f.Name, *p))
			}
		case *float64:
			if math.IsNaN(*p) || math.IsInf(*p, 0) {
				problems = append(problems, fmt.Sprintf("%s: non-finite value", f.Name))
			}
		case *[]string:
			if *p == nil {
				*p = []string{}
			}
			seen := make(map[string]struct{}, len(*p))
			for _, item := range *p {
				if strings.TrimSpace(item) == "" {
					problems = append(problems, fmt.Sprintf("%s: blank entry", f.Name))
					break
				}
				if _, dup := seen[item]; dup {
					problems = append(problems, fmt.Sprintf("%s: duplicate entry %q", f.Name, item))
					break
				}
				seen[item] = struct{}{}
			}
		case **string:
			if *p == nil {
				continue
			}
			v := strings.TrimSpace(**p)
			if v == "" || (len(f.Enum) > 0 && !slices.Contains(f.Enum, v)) {
				*p = nil
				continue
			}
			*p = &v
		}
	}
	if len(problems) > 0 {
		return Record{}, fmt.Errorf("%w: %s", ErrSchemaViolation, strings.Join(problems, "; "))
	}
	return out, nil
}
