// Package retry bounds the attempts a persistence driver makes against its
// backing store. Logic errors from the engine are never retried; drivers wrap
// only snapshot load and persist calls, which fail for infrastructure
// reasons.
package retry

import (
	"context"
	"time"
)

const (
	// DefaultAttempts is the bounded attempt count drivers use for snapshot
	// operations.
	DefaultAttempts = 3
	// DefaultDelay is the pause between attempts.
	DefaultDelay = 50 * time.Millisecond
)

// Do invokes fn up to attempts times, pausing delay between attempts, and
// returns the last error once the budget is exhausted. A cancelled context
// stops further attempts and returns the context error.
func Do(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}
