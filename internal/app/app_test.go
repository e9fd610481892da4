package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"incident_extract/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	root := t.TempDir()
	return config.Config{
		HTTPPort:             ":0",
		InboxDir:             filepath.Join(root, "inbox"),
		WorkDir:              filepath.Join(root, "work"),
		ResultsDir:           filepath.Join(root, "results"),
		DBPath:               filepath.Join(root, "test.db"),
		JobQueueSize:         8,
		WorkerCount:          2,
		JobTimeoutSec:        10,
		BackfillLimit:        25,
		ExtractionConfigPath: filepath.Join(root, "missing.yaml"),
	}
}

func TestLLMConfigConversion(t *testing.T) {
	got := LLMConfig(config.LLMConfig{Provider: "openai", Model: "m", TimeoutSec: 7, MaxRetries: 3, RequestsPerSec: 1.5, Burst: 2})
	if got.Timeout != 7*time.Second || got.MaxRetries != 3 || got.Burst != 2 || got.Model != "m" {
		t.Fatalf("unexpected conversion %+v", got)
	}
}

func TestNewServiceRulesOnly(t *testing.T) {
	svc, prompt, err := NewService(context.Background(), testConfig(t), nil)
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	if prompt.Prompt() == "" {
		t.Fatalf("expected default prompt")
	}
	res, err := svc.Extract(context.Background(), "지하 주차장에서 연기", "facts")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if res.Model != "rules(strict)" {
		t.Fatalf("model=%q", res.Model)
	}
}

func TestNewServiceRejectsBadRules(t *testing.T) {
	cfg := testConfig(t)
	cfg.RulesPath = filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(cfg.RulesPath, []byte("tables:\n  - field: nope\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := NewService(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected rule table error")
	}
}

func TestBatchProcessesInbox(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer a.Close()
	if err := os.WriteFile(filepath.Join(cfg.InboxDir, "call.txt"), []byte("아파트 2층 화재, 연기가 많아요"), 0o644); err != nil {
		t.Fatal(err)
	}

	summary, err := a.Batch(context.Background(), 0)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if summary.Enqueued != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	list, err := a.Store().ListExtractions(context.Background(), "call.txt", 10)
	if err != nil || len(list) != 2 {
		t.Fatalf("expected two stored extractions, got %d (%v)", len(list), err)
	}
	if snap := a.Metrics().Snapshot(); snap.ProcessedJobs != 1 {
		t.Fatalf("unexpected job count %+v", snap)
	}
}
