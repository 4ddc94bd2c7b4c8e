package worker

import (
	"context"
	"time"
)

// maxAttempts is the attempt budget of every job handler.
const maxAttempts = 3

// baseBackoff is the first wait of withRetry; later waits double.
var baseBackoff = time.Second

// withRetry calls fn up to attempts times with exponential backoff.
// Backoff schedule: attempt 1 = immediate, 2 = 1s, 3 = 2s.
// Returns nil if any attempt succeeds; last error otherwise.
func withRetry(ctx context.Context, attempts int, fn func(attempt int) error) error {
	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			wait := baseBackoff * time.Duration(1<<uint(i-1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		if err := fn(i); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}
