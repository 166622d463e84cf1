package exchange

import (
	"context"
	"log"
	"time"
)

const (
	readAttempts = 3
	retryBase    = 500 * time.Millisecond
)

// withRetry runs fn up to readAttempts times with exponential backoff.
// Only read-only calls go through here; order submission is never retried.
func withRetry(ctx context.Context, what string, fn func() error) error {
	var err error
	delay := retryBase
	for attempt := 1; attempt <= readAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == readAttempts {
			break
		}
		log.Printf("[OKX] %s attempt %d/%d failed: %v", what, attempt, readAttempts, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}
