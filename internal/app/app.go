// Package app wires configuration into the running service.
package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"incident_extract/backfill"
	"incident_extract/config"
	"incident_extract/extract"
	"incident_extract/internal/events"
	"incident_extract/internal/httpapi"
	"incident_extract/internal/notify"
	"incident_extract/internal/pipeline"
	"incident_extract/internal/store"
	"incident_extract/internal/watch"
	"incident_extract/llm"
	"incident_extract/metrics"
	"incident_extract/queue"
	"incident_extract/rules"
)

// LLMConfig converts the file/env settings into a backend config.
func LLMConfig(c config.LLMConfig) llm.Config {
	return llm.Config{
		Provider:       c.Provider,
		Model:          c.Model,
		BaseURL:        c.BaseURL,
		APIKey:         c.APIKey,
		Project:        c.Project,
		Location:       c.Location,
		Timeout:        time.Duration(c.TimeoutSec) * time.Second,
		MaxRetries:     c.MaxRetries,
		RequestsPerSec: c.RequestsPerSec,
		Burst:          c.Burst,
	}
}

// NewService builds the extraction service alone: rule tables, prompt and
// completion backend. It is all the CLI extract and mcp commands need.
func NewService(ctx context.Context, cfg config.Config, m *metrics.Metrics) (*extract.Service, *extract.PromptSource, error) {
	var set *rules.Set
	if cfg.RulesPath != "" {
		s, err := rules.LoadFile(cfg.RulesPath)
		if err != nil {
			return nil, nil, err
		}
		set = s
		zap.L().Info("rule tables loaded", zap.String("path", cfg.RulesPath))
	}

	prompt := extract.StaticPrompt(cfg.Extraction.SystemPrompt)
	if _, err := os.Stat(cfg.ExtractionConfigPath); err == nil {
		p, err := extract.NewPromptSource(cfg.ExtractionConfigPath)
		if err != nil {
			zap.L().Warn("prompt file unreadable, using configured prompt", zap.String("path", cfg.ExtractionConfigPath), zap.Error(err))
		} else {
			prompt = p
		}
	}

	completer, err := llm.New(ctx, LLMConfig(cfg.LLM))
	if err != nil {
		return nil, nil, err
	}
	if completer == nil {
		zap.L().Info("no llm provider configured, extracting with rule tables only")
	} else {
		zap.L().Info("llm provider ready", zap.String("provider", cfg.LLM.Provider), zap.String("model", completer.Name()))
	}
	svc := extract.NewService(rules.NewExtractor(set), extract.NewModelExtractor(completer, prompt), m)
	return svc, prompt, nil
}

// App wires the data plane components together.
type App struct {
	cfg      config.Config
	store    *store.Store
	metrics  *metrics.Metrics
	service  *extract.Service
	prompt   *extract.PromptSource
	queue    *queue.Queue
	pipeline *pipeline.Pipeline
	watcher  *watch.Watcher
	router   *httpapi.Router
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	for _, dir := range []string{cfg.InboxDir, cfg.WorkDir, cfg.ResultsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	m := metrics.New()
	svc, prompt, err := NewService(ctx, cfg, m)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	bus := events.NewBus()
	q := queue.New(cfg.JobQueueSize, cfg.WorkerCount, time.Duration(cfg.JobTimeoutSec)*time.Second, m)
	results := pipeline.NewResults(st, cfg.ResultsDir)
	pipe := pipeline.New(pipeline.Options{
		InboxDir: cfg.InboxDir,
		WorkDir:  cfg.WorkDir,
		Service:  svc,
		Store:    st,
		Results:  results,
		Queue:    q,
		Metrics:  m,
		Events:   bus,
		Notifier: notify.NewWebhook(cfg.NotifyWebhookURL, cfg.NotifyBotID),
	})
	router := httpapi.NewRouter(httpapi.Deps{
		Service:       svc,
		Store:         st,
		Results:       results,
		Pipeline:      pipe,
		Queue:         q,
		Metrics:       m,
		Events:        bus,
		BackfillLimit: cfg.BackfillLimit,
		BaseContext:   ctx,
	})
	return &App{
		cfg:      cfg,
		store:    st,
		metrics:  m,
		service:  svc,
		prompt:   prompt,
		queue:    q,
		pipeline: pipe,
		watcher:  watch.New(cfg.InboxDir, cfg.EnableWatcher, pipe, 0),
		router:   router,
	}, nil
}

// Run starts workers, watchers, the startup backfill and the HTTP server. It
// returns after ctx is cancelled and the server has shut down.
func (a *App) Run(ctx context.Context) error {
	a.queue.Start(ctx)
	if err := a.prompt.Watch(ctx); err != nil {
		zap.L().Warn("prompt watch disabled", zap.Error(err))
	}
	if err := a.watcher.Start(ctx); err != nil {
		return err
	}
	backfill.Run(ctx, a.pipeline, a.cfg.BackfillLimit)

	srv := httpapi.Server(a.cfg.HTTPPort, a.router.Handler())
	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("http listening", zap.String("addr", a.cfg.HTTPPort))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		a.drain()
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Warn("http shutdown", zap.Error(err))
	}
	a.drain()
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(a.cfg.JobTimeoutSec)*time.Second)
	defer cancel()
	a.queue.Stop(ctx)
}

// Batch processes every pending inbox file once and waits for the workers to
// finish. limit <= 0 processes all pending files.
func (a *App) Batch(ctx context.Context, limit int) (backfill.Summary, error) {
	a.queue.Start(ctx)
	if limit <= 0 {
		limit = -1
	}
	summary, err := backfill.RunSync(ctx, a.pipeline, limit)
	a.queue.Stop(ctx)
	return summary, err
}

func (a *App) Service() *extract.Service { return a.service }
func (a *App) Store() *store.Store       { return a.store }
func (a *App) Metrics() *metrics.Metrics { return a.metrics }
func (a *App) Handler() http.Handler     { return a.router.Handler() }

func (a *App) Close() error { return a.store.Close() }
