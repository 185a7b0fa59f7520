package usecase

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"
)

// retryPolicy bounds repeated attempts at one downstream call.
type retryPolicy struct {
	attempts  int
	baseDelay time.Duration
	timeout   time.Duration
}

// run invokes fn up to attempts times with exponential backoff and jitter.
// Each attempt runs under its own timeout derived from ctx. Errors matching
// one of permanent stop the retries immediately.
func (p retryPolicy) run(ctx context.Context, logger *slog.Logger, step string, fn func(context.Context) error, permanent ...error) error {
	var lastErr error
	for attempt := 1; attempt <= p.attempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, p.timeout)
		err := fn(callCtx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err

		for _, p := range permanent {
			if errors.Is(err, p) {
				return err
			}
		}

		logger.Warn("step attempt failed",
			slog.String("step", step),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)

		if attempt == p.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoffDelay(p.baseDelay, attempt)):
		}
	}
	return lastErr
}

// backoffDelay doubles the base per attempt and adds up to 50% jitter so
// competing retries against the same dependency spread out.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	delay := base << (attempt - 1)
	jitter := time.Duration(rand.Int63n(int64(delay)/2 + 1))
	return delay + jitter
}
