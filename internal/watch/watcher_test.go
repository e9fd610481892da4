package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"incident_extract/backfill"
)

type recorder struct {
	mu    sync.Mutex
	names []string
}

func (r *recorder) Enqueue(ctx context.Context, name string, window time.Duration) (backfill.EnqueueResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
	return backfill.EnqueueResult{Enqueued: true}, nil
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.names...)
}

func TestWatcherEnqueuesSettledInboxFiles(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	w := New(dir, true, rec, 50*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	path := filepath.Join(dir, "call.txt")
	for _, chunk := range []string{"지하 ", "화재"} {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			t.Fatal(err)
		}
		f.WriteString(chunk)
		f.Close()
	}
	if err := os.WriteFile(filepath.Join(dir, "audio.mp3"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for len(rec.snapshot()) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expected call.txt to be enqueued")
		}
		time.Sleep(20 * time.Millisecond)
	}
	time.Sleep(200 * time.Millisecond)
	got := rec.snapshot()
	if len(got) != 1 || got[0] != "call.txt" {
		t.Fatalf("expected a single call.txt enqueue, got %v", got)
	}
}

func TestDisabledWatcherIsNoop(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "missing"), false, &recorder{}, 0)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("disabled watcher should not touch the dir: %v", err)
	}
}
