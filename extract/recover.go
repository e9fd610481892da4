package extract

import (
	"encoding/json"
	"strings"

	"incident_extract/keywords"
)

// Stage names the recovery step that produced a parsed object.
type Stage int

const (
	StageWhole Stage = iota + 1
	StageSlice
	StageBalanced
	StageDefault
)

func (s Stage) String() string {
	switch s {
	case StageWhole:
		return "whole"
	case StageSlice:
		return "slice"
	case StageBalanced:
		return "balanced"
	default:
		return "default"
	}
}

// RecoverJSON pulls a JSON object out of free-form model output. It tries, in
// order: the whole text, the slice between the first '{' and the last '}',
// and every balanced-brace object from left to right. When all of them fail
// it returns the default skeleton. It never fails.
func RecoverJSON(text string) (map[string]any, Stage) {
	text = strings.TrimSpace(text)
	if obj, ok := decodeObject(text); ok {
		return obj, StageWhole
	}
	if s, e := strings.Index(text, "{"), strings.LastIndex(text, "}"); s != -1 && e > s {
		if obj, ok := decodeObject(text[s : e+1]); ok {
			return obj, StageSlice
		}
	}
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		if obj, ok := decodeObject(balancedObject(text[i:])); ok {
			return obj, StageBalanced
		}
	}
	return keywords.Default().Map(), StageDefault
}

func decodeObject(s string) (map[string]any, bool) {
	if s == "" {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

// balancedObject returns the prefix of input (which must start with '{') up to
// its matching '}', skipping braces inside string literals. It returns "" when
// the braces never balance.
func balancedObject(input string) string {
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(input); i++ {
		ch := input[i]
		if inString {
			if escaped {
				escaped = false
				continue
			}
			if ch == '\\' {
				escaped = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return input[:i+1]
			}
		}
	}
	return ""
}
