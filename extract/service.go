// Package extract turns a call transcript into a validated attribute record
// by merging rule-table matches with a model completion.
package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"incident_extract/formatting"
	"incident_extract/keywords"
	"incident_extract/metrics"
	"incident_extract/rules"
)

var (
	ErrEmptyTranscript = errors.New("extract: empty transcript")
	ErrInvalidMode     = errors.New("extract: invalid mode")
)

// Mode selects how much of the model output survives.
type Mode string

const (
	// ModeFacts keeps only what the transcript literally states.
	ModeFacts Mode = "facts"
	// ModeInsights keeps the model's inferences merged with rule matches.
	ModeInsights Mode = "insights"
)

// ParseMode accepts facts/strict and insights/hybrid. Blank means insights.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "insights", "hybrid":
		return ModeInsights, nil
	case "facts", "strict":
		return ModeFacts, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

func (m Mode) label() string {
	if m == ModeFacts {
		return "strict"
	}
	return "hybrid"
}

// Result is one extraction outcome.
type Result struct {
	Keywords  keywords.Record `json:"keywords"`
	Model     string          `json:"model"`
	Mode      Mode            `json:"mode"`
	LatencyMS int64           `json:"latency_ms"`
	Recovery  string          `json:"recovery"`
}

// Both holds the facts and insights results for the same transcript.
type Both struct {
	Facts    Result `json:"facts"`
	Insights Result `json:"insights"`
}

type Service struct {
	rules   *rules.Extractor
	model   *ModelExtractor
	metrics *metrics.Metrics
}

// NewService wires the extractors. A nil rule extractor uses the default
// tables; a nil model extractor runs on rules alone.
func NewService(r *rules.Extractor, m *ModelExtractor, mt *metrics.Metrics) *Service {
	if r == nil {
		r = rules.NewExtractor(nil)
	}
	if m == nil {
		m = NewModelExtractor(nil, nil)
	}
	return &Service{rules: r, model: m, metrics: mt}
}

// Extract runs one extraction in the given mode.
func (s *Service) Extract(ctx context.Context, transcript string, mode Mode) (Result, error) {
	if mode != ModeFacts && mode != ModeInsights {
		return Result{}, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	text := formatting.NormalizeTranscript(transcript)
	if text == "" {
		return Result{}, ErrEmptyTranscript
	}
	start := time.Now()
	res, err := s.extract(ctx, text, mode)
	s.metrics.RecordExtraction(err, errors.Is(err, keywords.ErrSchemaViolation))
	if err != nil {
		zap.L().Warn("extraction failed",
			zap.String("mode", string(mode)),
			zap.Error(err))
		return Result{}, err
	}
	res.LatencyMS = time.Since(start).Milliseconds()
	zap.L().Debug("extraction done",
		zap.String("mode", string(mode)),
		zap.String("model", res.Model),
		zap.String("recovery", res.Recovery),
		zap.Int64("duration_ms", res.LatencyMS))
	return res, nil
}

func (s *Service) extract(ctx context.Context, text string, mode Mode) (Result, error) {
	literal := formatting.StripSpeakerTags(text)
	rule := s.rules.Extract(literal)

	modelRec, stage, err := s.model.Extract(ctx, text)
	if err != nil {
		return Result{}, err
	}
	if s.model.Enabled() {
		s.metrics.RecordRecovery(int(stage))
	}

	merged := keywords.Merge(rule, modelRec)
	if mode == ModeFacts {
		merged = keywords.ApplyStrict(merged, literal)
	}
	validated, err := keywords.Validate(merged)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Keywords: validated,
		Model:    fmt.Sprintf("%s(%s)", s.model.Label(), mode.label()),
		Mode:     mode,
		Recovery: stage.String(),
	}, nil
}

// ExtractBoth runs the facts and insights variants concurrently. Either
// failure fails the call.
func (s *Service) ExtractBoth(ctx context.Context, transcript string) (Both, error) {
	var out Both
	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		r, err := s.Extract(gctx, transcript, ModeFacts)
		out.Facts = r
		return err
	})
	eg.Go(func() error {
		r, err := s.Extract(gctx, transcript, ModeInsights)
		out.Insights = r
		return err
	})
	if err := eg.Wait(); err != nil {
		return Both{}, err
	}
	return out, nil
}

// Rules exposes the rule extractor, used by the transcript-to-nested mapper.
func (s *Service) Rules() *rules.Extractor { return s.rules }
