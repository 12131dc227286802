package application

import (
	"context"
	"errors"
	"time"
)

const (
	defaultRetryAttempts = 3
	defaultRetryBaseWait = 500 * time.Millisecond
)

// withRetry runs fn up to attempts times, doubling the wait between tries.
// Only transient provider failures are retried; every other error returns
// immediately.
func withRetry(ctx context.Context, attempts int, baseWait time.Duration, fn func(context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	wait := baseWait
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			wait *= 2
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !errors.Is(lastErr, ErrRemoteUnavailable) {
			return lastErr
		}
	}
	return lastErr
}
