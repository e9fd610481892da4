// Package backfill re-enqueues inbox files that never reached a terminal
// state, newest first.
package backfill

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
)

// Record represents an inbox file and its processing state.
type Record struct {
	Filename  string
	ModTime   time.Time
	SizeBytes int64
	Status    string
	UpdatedAt time.Time
}

// Status constants used by selection logic.
const (
	StatusDone       = "done"
	StatusProcessing = "processing"
	StatusQueued     = "queued"
	StatusError      = "error"
)

// Summary captures backfill execution counts.
type Summary struct {
	TotalCandidates  int `json:"total"`
	AlreadyProcessed int `json:"already_processed"`
	Unprocessed      int `json:"unprocessed"`
	Selected         int `json:"selected"`
	AttemptedEnqueue int `json:"attempted_enqueue"`
	Enqueued         int `json:"enqueued"`
	DroppedFull      int `json:"dropped_full"`
	Failed           int `json:"failed"`
}

// EnqueueResult captures the queueing outcome for a record.
type EnqueueResult struct {
	Enqueued    bool
	DroppedFull bool
}

// Repository describes the data source needed for backfill.
type Repository interface {
	ListCandidates(ctx context.Context) ([]Record, error)
	QueueRecord(ctx context.Context, rec Record) (EnqueueResult, error)
	OnBackfillComplete(summary Summary)
}

// SelectPending returns up to limit records sorted by recency that are not
// done, plus a summary of the candidate set.
func SelectPending(records []Record, limit int) ([]Record, Summary) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].ModTime.After(records[j].ModTime)
	})

	summary := Summary{TotalCandidates: len(records)}
	unprocessed := make([]Record, 0, len(records))
	for _, r := range records {
		if r.Status == StatusDone {
			summary.AlreadyProcessed++
			continue
		}
		unprocessed = append(unprocessed, r)
	}

	summary.Unprocessed = len(unprocessed)
	if limit >= 0 && limit < summary.Unprocessed {
		unprocessed = unprocessed[:limit]
	}
	summary.Selected = len(unprocessed)
	return unprocessed, summary
}

// Run executes the backfill asynchronously.
func Run(ctx context.Context, repo Repository, limit int) {
	go func() {
		if _, err := RunSync(ctx, repo, limit); err != nil {
			zap.L().Warn("backfill failed", zap.Error(err))
		}
	}()
}

// RunSync selects and enqueues pending records on the calling goroutine.
// OnBackfillComplete is called with the summary on success.
func RunSync(ctx context.Context, repo Repository, limit int) (Summary, error) {
	if err := ctx.Err(); err != nil {
		return Summary{}, err
	}
	records, err := repo.ListCandidates(ctx)
	if err != nil {
		return Summary{}, err
	}

	selected, summary := SelectPending(records, limit)
	summary.AttemptedEnqueue = len(selected)

	for _, rec := range selected {
		result, err := repo.QueueRecord(ctx, rec)
		if err != nil {
			summary.Failed++
			zap.L().Warn("backfill enqueue failed", zap.String("file", rec.Filename), zap.Error(err))
			continue
		}
		if result.Enqueued {
			summary.Enqueued++
		}
		if result.DroppedFull {
			summary.DroppedFull++
		}
	}

	zap.L().Info("backfill summary",
		zap.Int("total", summary.TotalCandidates),
		zap.Int("unprocessed", summary.Unprocessed),
		zap.Int("selected", summary.Selected),
		zap.Int("enqueued", summary.Enqueued),
		zap.Int("dropped_full", summary.DroppedFull),
		zap.Int("failed", summary.Failed),
		zap.Int("already_processed", summary.AlreadyProcessed))
	repo.OnBackfillComplete(summary)
	return summary, nil
}
