package pipeline

import (
	"context"
	"time"
)

// RetryPolicy bounds retries of an idempotent collaborator call.
type RetryPolicy struct {
	Attempts int           // total attempts, at least 1
	Backoff  time.Duration // wait before the second attempt, doubled after each failure
}

// retry calls fn until it succeeds, attempts run out or ctx is done.
// The last error from fn is returned.
func retry(ctx context.Context, p RetryPolicy, fn func(context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	wait := p.Backoff
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 && wait > 0 {
			t := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				t.Stop()
				return err
			case <-t.C:
			}
			wait *= 2
		}
		if err = fn(ctx); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
	}
	return err
}
