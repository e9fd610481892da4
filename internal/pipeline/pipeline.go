// Package pipeline processes inbox files: transcripts (.txt) go through
// keyword extraction, raw records (.json) through the nested mapper.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"incident_extract/backfill"
	"incident_extract/extract"
	"incident_extract/formatting"
	"incident_extract/internal/events"
	"incident_extract/internal/notify"
	"incident_extract/internal/store"
	"incident_extract/keywords"
	"incident_extract/mapper"
	"incident_extract/metrics"
	"incident_extract/queue"
)

// Kind tells how an inbox file is processed.
type Kind string

const (
	KindTranscript Kind = "transcript"
	KindRecord     Kind = "record"
)

// KindOf classifies path by extension.
func KindOf(path string) (Kind, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		return KindTranscript, true
	case ".json":
		return KindRecord, true
	default:
		return "", false
	}
}

type Options struct {
	InboxDir string
	WorkDir  string
	Service  *extract.Service
	Store    *store.Store
	Results  *Results
	Queue    *queue.Queue
	Metrics  *metrics.Metrics
	Events   *events.Bus
	Notifier *notify.Webhook
	// EnqueueWindow bounds how long backfill waits for queue room per file.
	EnqueueWindow time.Duration
}

// Pipeline ties the inbox to the extraction service, the store and the
// worker queue. It implements backfill.Repository.
type Pipeline struct {
	opts         Options
	now          func() time.Time
	lastBackfill atomic.Pointer[backfill.Summary]
}

func New(opts Options) *Pipeline {
	if opts.EnqueueWindow <= 0 {
		opts.EnqueueWindow = 2 * time.Second
	}
	return &Pipeline{opts: opts, now: func() time.Time { return time.Now().UTC() }}
}

// Process runs one inbox file to completion on the calling goroutine. The
// file is first copied into the work dir so later edits to the inbox do not
// change what was processed.
func (p *Pipeline) Process(ctx context.Context, name string) error {
	kind, ok := KindOf(name)
	if !ok {
		return fmt.Errorf("unsupported inbox file %s", name)
	}
	src := filepath.Join(p.opts.InboxDir, name)
	dstDir := filepath.Join(p.opts.WorkDir, strings.TrimSuffix(name, filepath.Ext(name)))
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return err
	}
	dst := filepath.Join(dstDir, name)
	if _, err := copyFile(src, dst); err != nil {
		return err
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		return err
	}

	switch kind {
	case KindTranscript:
		return p.processTranscript(ctx, name, string(data))
	default:
		return p.processRecords(ctx, name, data)
	}
}

func (p *Pipeline) processTranscript(ctx context.Context, name, transcript string) error {
	both, err := p.opts.Service.ExtractBoth(ctx, transcript)
	if err != nil {
		return fmt.Errorf("extract %s: %w", name, err)
	}
	saved, err := p.opts.Results.SaveBoth(ctx, name, transcript, both)
	if err != nil {
		return err
	}
	for _, e := range saved {
		zap.L().Info("extraction stored",
			zap.String("file", name),
			zap.String("id", e.ID),
			zap.String("mode", e.Mode),
			zap.String("model", e.Model))
		p.opts.Events.Publish(events.Event{Type: events.TypeExtraction, ID: e.ID, Source: name, Detail: e.Model})
	}
	summary := fmt.Sprintf("%s | %s", formatting.RenderSummary(both.Facts.Keywords), name)
	if err := p.opts.Notifier.Send(ctx, summary); err != nil {
		zap.L().Warn("notify failed", zap.String("file", name), zap.Error(err))
	}
	return nil
}

func (p *Pipeline) processRecords(ctx context.Context, name string, data []byte) error {
	raws, err := DecodeRecords(data)
	if err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	var errs []error
	for i, raw := range raws {
		n, err := mapper.Normalize(raw)
		p.opts.Metrics.RecordNormalized(err, errors.Is(err, keywords.ErrSchemaViolation))
		if err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		rec, err := p.opts.Results.SaveNormalized(ctx, name, n)
		if err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		zap.L().Info("normalized record stored", zap.String("file", name), zap.String("id", rec.ID))
		p.opts.Events.Publish(events.Event{Type: events.TypeNormalized, ID: rec.ID, Source: name})
	}
	return errors.Join(errs...)
}

// DecodeRecords accepts a single JSON object or an array of objects.
func DecodeRecords(data []byte) ([]map[string]any, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var list []map[string]any
		if err := json.Unmarshal([]byte(trimmed), &list); err != nil {
			return nil, err
		}
		return list, nil
	}
	var one map[string]any
	if err := json.Unmarshal([]byte(trimmed), &one); err != nil {
		return nil, err
	}
	if one == nil {
		return nil, errors.New("record is null")
	}
	return []map[string]any{one}, nil
}

// Enqueue records the file as queued and hands it to the worker queue. A
// positive window retries while the queue is full.
func (p *Pipeline) Enqueue(ctx context.Context, name string, window time.Duration) (backfill.EnqueueResult, error) {
	kind, ok := KindOf(name)
	if !ok {
		return backfill.EnqueueResult{}, fmt.Errorf("unsupported inbox file %s", name)
	}
	info, err := os.Stat(filepath.Join(p.opts.InboxDir, name))
	if err != nil {
		return backfill.EnqueueResult{}, err
	}
	if err := p.opts.Store.UpsertSource(ctx, store.Source{
		Filename:  name,
		Kind:      string(kind),
		SizeBytes: info.Size(),
		ModTime:   info.ModTime().UTC(),
		Status:    backfill.StatusQueued,
		UpdatedAt: p.now(),
	}); err != nil {
		return backfill.EnqueueResult{}, err
	}

	job := queue.Job{
		Source: name,
		Work: func(ctx context.Context) error {
			p.setStatus(name, backfill.StatusProcessing, nil)
			return p.Process(ctx, name)
		},
		OnFinish: func(err error) {
			if err != nil {
				msg := err.Error()
				p.setStatus(name, backfill.StatusError, &msg)
				p.opts.Events.Publish(events.Event{Type: events.TypeFailed, Source: name, Detail: msg})
				return
			}
			p.setStatus(name, backfill.StatusDone, nil)
		},
	}
	if window <= 0 {
		if p.opts.Queue.Enqueue(job) {
			return backfill.EnqueueResult{Enqueued: true}, nil
		}
		return backfill.EnqueueResult{DroppedFull: true}, nil
	}
	enqueued, dropped := p.opts.Queue.EnqueueWithRetry(ctx, job, window, 100*time.Millisecond)
	return backfill.EnqueueResult{Enqueued: enqueued, DroppedFull: dropped}, nil
}

func (p *Pipeline) setStatus(name, status string, errMsg *string) {
	if err := p.opts.Store.SetSourceStatus(context.Background(), name, status, errMsg, p.now()); err != nil {
		zap.L().Warn("source status update failed", zap.String("file", name), zap.String("status", status), zap.Error(err))
	}
}

// ListCandidates lists supported inbox files joined with their stored status.
func (p *Pipeline) ListCandidates(ctx context.Context) ([]backfill.Record, error) {
	entries, err := os.ReadDir(p.opts.InboxDir)
	if err != nil {
		return nil, err
	}
	known, err := p.opts.Store.Sources(ctx)
	if err != nil {
		return nil, err
	}
	var out []backfill.Record
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := KindOf(e.Name()); !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		rec := backfill.Record{Filename: e.Name(), ModTime: info.ModTime().UTC(), SizeBytes: info.Size()}
		if src, ok := known[e.Name()]; ok {
			rec.Status = src.Status
			rec.UpdatedAt = src.UpdatedAt
			// a file rewritten after it was processed counts as new
			if src.Status == backfill.StatusDone && (src.SizeBytes != info.Size() || !src.ModTime.Truncate(time.Second).Equal(rec.ModTime.Truncate(time.Second))) {
				rec.Status = ""
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func (p *Pipeline) QueueRecord(ctx context.Context, rec backfill.Record) (backfill.EnqueueResult, error) {
	return p.Enqueue(ctx, rec.Filename, p.opts.EnqueueWindow)
}

func (p *Pipeline) OnBackfillComplete(summary backfill.Summary) {
	p.lastBackfill.Store(&summary)
}

// LastBackfill returns the most recent backfill summary, or nil.
func (p *Pipeline) LastBackfill() *backfill.Summary {
	return p.lastBackfill.Load()
}

func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	defer out.Close()
	return out.ReadFrom(in)
}
