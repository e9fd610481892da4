package extract

import (
	"context"
	"errors"
	"fmt"

	"incident_extract/keywords"
	"incident_extract/llm"
)

// ModelExtractor asks a completion backend for the attribute record. Without
// a backend it answers with the default skeleton.
type ModelExtractor struct {
	completer llm.Completer
	prompt    *PromptSource
}

func NewModelExtractor(c llm.Completer, prompt *PromptSource) *ModelExtractor {
	if prompt == nil {
		prompt = StaticPrompt("")
	}
	return &ModelExtractor{completer: c, prompt: prompt}
}

// Enabled reports whether a backend is attached.
func (m *ModelExtractor) Enabled() bool { return m.completer != nil }

// Label is the model name used in result labels.
func (m *ModelExtractor) Label() string {
	if l := m.prompt.ModelLabel(); l != "" {
		return l
	}
	if m.completer == nil {
		return "rules"
	}
	return m.completer.Name()
}

// Raw sends the system prompt and transcript and returns the reply verbatim.
func (m *ModelExtractor) Raw(ctx context.Context, transcript string) (string, error) {
	if m.completer == nil {
		return "", nil
	}
	out, err := m.completer.Complete(ctx, m.prompt.Prompt(), transcript)
	if err != nil {
		return "", fmt.Errorf("model extraction: %w", err)
	}
	return out, nil
}

// Extract runs the model and recovers a normalized record from its reply. An
// empty reply recovers to the default skeleton.
func (m *ModelExtractor) Extract(ctx context.Context, transcript string) (keywords.Record, Stage, error) {
	if m.completer == nil {
		return keywords.Default(), StageDefault, nil
	}
	raw, err := m.Raw(ctx, transcript)
	if errors.Is(err, llm.ErrEmptyCompletion) {
		raw, err = "", nil
	}
	if err != nil {
		return keywords.Record{}, 0, err
	}
	obj, stage := RecoverJSON(raw)
	return keywords.Normalize(obj), stage, nil
}
