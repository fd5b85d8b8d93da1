package ai

import (
	"context"
	"log"
	"time"
)

const (
	defaultRetries = 3
	retryBaseDelay = time.Second
)

// withRetry runs fn up to attempts times with doubling delays between
// tries. The context cancels the wait, not a call already in flight.
func withRetry(ctx context.Context, label string, attempts int, fn func() error) error {
	if attempts <= 0 {
		attempts = defaultRetries
	}

	var err error
	delay := retryBaseDelay
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		log.Printf("[AI] %s attempt %d failed: %v", label, i+1, err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}
