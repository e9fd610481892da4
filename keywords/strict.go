package keywords

import (
	"regexp"
	"slices"
	"strings"
)

var spacePattern = regexp.MustCompile(`\s+`)

// incidentLiterals maps an incident category to the literal keywords that
// assert it. Categories are checked in declaration order.
var incidentLiterals = []struct {
	category string
	literals []string
}{
	{"화재", []string{"화재", "불", "불이", "불났", "불이났", "불길", "불났어요"}},
	{"구조", []string{"구조", "갇혔", "매몰", "낭떠러지", "붕괴로막혔", "빠졌"}},
	{"구급", []string{"구급", "심정지", "호흡곤란", "쓰러졌", "의식없", "출혈"}},
}

func squash(s string) string {
	return spacePattern.ReplaceAllString(strings.ToLower(s), "")
}

// LiteralIn reports whether term occurs in text once both are lower-cased and
// stripped of whitespace.
func LiteralIn(text, term string) bool {
	t := squash(term)
	return t != "" && strings.Contains(squash(text), t)
}

// IncidentCategory returns the first category whose literal keyword appears in
// the transcript, or nil.
func IncidentCategory(transcript string) *string {
	text := squash(transcript)
	for _, entry := range incidentLiterals {
		for _, kw := range entry.literals {
			if strings.Contains(text, squash(kw)) {
				return Str(entry.category)
			}
		}
	}
	return nil
}

// ApplyStrict removes everything the transcript does not literally state:
// list entries that are not substrings of the transcript, a structure type
// outside its enumeration or absent from the text. The incident category is
// derived from literal keywords only. The pass never adds list entries.
func ApplyStrict(rec Record, transcript string) Record {
	out := rec.Clone()
	text := squash(transcript)
	for _, f := range schema {
		p, ok := f.rec(&out).(*[]string)
		if !ok {
			continue
		}
		kept := make([]string, 0, len(*p))
		for _, item := range *p {
			if t := squash(item); t != "" && strings.Contains(text, t) {
				kept = append(kept, item)
			}
		}
		*p = kept
	}
	out.IncidentType = IncidentCategory(transcript)
	if out.StructureType != nil {
		st := strings.TrimSpace(*out.StructureType)
		if !slices.Contains(StructureTypes, st) || !strings.Contains(text, squash(st)) {
			out.StructureType = nil
		}
	}
	return out.Normalized()
}
