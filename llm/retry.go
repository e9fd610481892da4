package llm

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

type retrying struct {
	next       Completer
	maxRetries int
	initial    time.Duration
}

// WithRetry retries transient failures with exponential backoff. Client
// errors other than 429, empty completions and context cancellation are not
// retried.
func WithRetry(next Completer, maxRetries int) Completer {
	return &retrying{next: next, maxRetries: maxRetries, initial: 500 * time.Millisecond}
}

func (r *retrying) Name() string { return r.next.Name() }

func (r *retrying) Complete(ctx context.Context, system, user string) (string, error) {
	var out string
	op := func() error {
		res, err := r.next.Complete(ctx, system, user)
		if err != nil {
			if !retryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		out = res
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initial
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(r.maxRetries)), ctx)

	notify := func(err error, wait time.Duration) {
		zap.L().Warn("llm completion failed, retrying",
			zap.String("model", r.next.Name()),
			zap.Duration("wait", wait),
			zap.Error(err))
	}
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return "", err
	}
	return out, nil
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, ErrEmptyCompletion) {
		return false
	}
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	if status == http.StatusTooManyRequests {
		return true
	}
	return status < 400 || status >= 500
}
