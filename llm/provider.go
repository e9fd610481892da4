// Package llm wraps the text-completion backends used by model extraction.
// Every backend is reduced to a Completer: one system prompt, one user
// prompt, one completion string back.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrEmptyCompletion is returned when a backend answers without any text.
var ErrEmptyCompletion = errors.New("llm: empty completion")

// Completer sends a single prompt pair to a completion backend.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
	// Name is the model label recorded alongside results.
	Name() string
}

// CompleterFunc adapts a plain function to Completer. Used by tests and the
// rule-only fallback.
type CompleterFunc struct {
	Label string
	Fn    func(ctx context.Context, system, user string) (string, error)
}

func (f CompleterFunc) Complete(ctx context.Context, system, user string) (string, error) {
	return f.Fn(ctx, system, user)
}

func (f CompleterFunc) Name() string {
	if f.Label == "" {
		return "func"
	}
	return f.Label
}

// Config selects and tunes a backend.
type Config struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
	// Vertex only.
	Project  string
	Location string

	Timeout        time.Duration
	MaxRetries     int
	RequestsPerSec float64
	Burst          int
}

// Enabled reports whether a backend is configured at all.
func (c Config) Enabled() bool {
	p := strings.ToLower(strings.TrimSpace(c.Provider))
	return p != "" && p != "none" && p != "off"
}

// New builds the configured backend and layers the caller-side retry and
// rate limit around it. It returns (nil, nil) when no provider is set.
func New(ctx context.Context, cfg Config) (Completer, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	var (
		base Completer
		err  error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "openai":
		base, err = NewOpenAI(cfg)
	case "vertex", "gemini":
		base, err = NewVertex(ctx, cfg)
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	c := base
	if cfg.MaxRetries > 0 {
		c = WithRetry(c, cfg.MaxRetries)
	}
	if cfg.RequestsPerSec > 0 {
		c = WithRateLimit(c, cfg.RequestsPerSec, cfg.Burst)
	}
	return c, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
