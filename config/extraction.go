package config

import (
	"errors"
	"os"
	"strings"
)

// ExtractionConfig carries the prompt overrides for model extraction. The
// block can live in config.yaml or in its own file (JSON is also accepted).
// Empty values keep the built-in prompt.
type ExtractionConfig struct {
	SystemPrompt string `json:"system_prompt" yaml:"system_prompt"`
	// ModelLabel replaces the backend model name in result labels.
	ModelLabel string `json:"model_label" yaml:"model_label"`
}

// DefaultExtractionConfig returns an empty override set.
func DefaultExtractionConfig() ExtractionConfig {
	return ExtractionConfig{}
}

// LoadExtractionConfig reads the `extraction` block of a YAML/JSON file and
// merges it with defaults.
func LoadExtractionConfig(path string) (ExtractionConfig, error) {
	cfg := DefaultExtractionConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if len(data) == 0 {
		return cfg, errors.New("empty config file")
	}
	var parsed struct {
		Extraction ExtractionConfig `json:"extraction" yaml:"extraction"`
	}
	if err := decodeByExt(path, data, &parsed); err != nil {
		return cfg, err
	}
	return MergeExtractionConfig(cfg, parsed.Extraction), nil
}

// MergeExtractionConfig overlays non-empty fields onto the base config.
func MergeExtractionConfig(base, override ExtractionConfig) ExtractionConfig {
	if strings.TrimSpace(override.SystemPrompt) != "" {
		base.SystemPrompt = override.SystemPrompt
	}
	if v := strings.TrimSpace(override.ModelLabel); v != "" {
		base.ModelLabel = v
	}
	return base
}
