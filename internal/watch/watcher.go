// Package watch feeds new inbox files to the pipeline.
package watch

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"incident_extract/backfill"
	"incident_extract/internal/pipeline"
)

// Enqueuer accepts inbox file names for processing.
type Enqueuer interface {
	Enqueue(ctx context.Context, name string, window time.Duration) (backfill.EnqueueResult, error)
}

// Watcher monitors the inbox dir for transcripts and raw records.
type Watcher struct {
	dir     string
	enabled bool
	target  Enqueuer
	settle  time.Duration
	mu      sync.Mutex
	pending map[string]*time.Timer
}

// New returns a watcher. Files are enqueued once no event has touched them
// for settle, so a transcript still being written is not picked up early.
func New(dir string, enabled bool, target Enqueuer, settle time.Duration) *Watcher {
	if settle <= 0 {
		settle = 500 * time.Millisecond
	}
	return &Watcher{dir: dir, enabled: enabled, target: target, settle: settle, pending: map[string]*time.Timer{}}
}

func (w *Watcher) Start(ctx context.Context) error {
	if !w.enabled {
		zap.L().Info("watcher disabled")
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(w.dir); err != nil {
		watcher.Close()
		return err
	}
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				w.stopTimers()
				return
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if evt.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
					continue
				}
				if _, ok := pipeline.KindOf(evt.Name); ok {
					w.schedule(ctx, filepath.Base(evt.Name))
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				zap.L().Warn("watcher error", zap.Error(err))
			}
		}
	}()
	zap.L().Info("watching inbox", zap.String("dir", w.dir))
	return nil
}

func (w *Watcher) schedule(ctx context.Context, name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[name]; ok {
		t.Reset(w.settle)
		return
	}
	w.pending[name] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.pending, name)
		w.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		res, err := w.target.Enqueue(ctx, name, 0)
		switch {
		case err != nil:
			// renamed away before it settled
			zap.L().Debug("inbox file skipped", zap.String("file", name), zap.Error(err))
		case res.DroppedFull:
			zap.L().Warn("queue full, inbox file left for backfill", zap.String("file", name))
		}
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for name, t := range w.pending {
		t.Stop()
		delete(w.pending, name)
	}
}
