package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

type limited struct {
	next    Completer
	limiter *rate.Limiter
}

// WithRateLimit caps the request rate to the backend with a token bucket.
func WithRateLimit(next Completer, perSecond float64, burst int) Completer {
	if burst < 1 {
		burst = 1
	}
	return &limited{next: next, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (l *limited) Name() string { return l.next.Name() }

func (l *limited) Complete(ctx context.Context, system, user string) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("llm rate limit: %w", err)
	}
	return l.next.Complete(ctx, system, user)
}
