package queue

import (
	"context"
	"errors"
	"time"

	"vidpipe/internal/services"
)

// RetryTerminal runs a terminal write up to attempts times with doubling
// backoff. Conflicts, invalid transitions and missing rows are final and
// returned immediately. The last error is returned when every attempt fails.
func RetryTerminal(ctx context.Context, attempts int, backoff time.Duration, write func(context.Context) error) error {
	if attempts <= 0 {
		attempts = 1
	}
	if backoff <= 0 {
		backoff = 100 * time.Millisecond
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = write(ctx)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, ErrConflict) || errors.Is(lastErr, ErrInvalidTransition) || errors.Is(lastErr, services.ErrNotFound) {
			return lastErr
		}
		if attempt == attempts {
			break
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return errors.Join(lastErr, ctx.Err())
		}
		backoff *= 2
	}
	if !errors.Is(lastErr, services.ErrPersistence) {
		lastErr = services.Wrap(services.ErrPersistence, "", "terminal write", "retries exhausted", lastErr)
	}
	return lastErr
}
