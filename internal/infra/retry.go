package infra

import (
	"context"
	"errors"
	"time"
)

// RetryPolicy bounds how often a unit of work aborted for contention is re-run.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
}

// Run is Retry with the policy's limits.
func (p RetryPolicy) Run(ctx context.Context, fn func(attempt int) error) error {
	return Retry(ctx, p.MaxRetries, p.Backoff, fn)
}

// Retry runs fn and re-runs it from scratch while it fails with ErrConcurrencyAborted,
// up to retries additional times. The wait between runs grows linearly with backoff.
// Every other outcome, including ErrStorageUnavailable, is returned immediately.
func Retry(ctx context.Context, retries int, backoff time.Duration, fn func(attempt int) error) error {
	for attempt := 0; ; attempt++ {
		err := fn(attempt)
		if err == nil || !errors.Is(err, ErrConcurrencyAborted) || attempt >= retries {
			return err
		}
		if backoff <= 0 {
			continue
		}
		timer := time.NewTimer(backoff * time.Duration(attempt+1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
