// Package retry re-runs an operation with exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrMaxAttempts = errors.New("retry: max attempts reached")

// BackoffFunc returns the wait before the given one-based retry attempt.
type BackoffFunc func(attempt int) time.Duration

// Exponential yields initial, initial*2, initial*4 ... capped at max (0 = no cap).
func Exponential(initial, max time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		d := initial
		for i := 1; i < attempt; i++ {
			d *= 2
			if max > 0 && d >= max {
				return max
			}
		}
		return d
	}
}

// Policy is the message-delivery default: 500ms, 1s, 2s, then give up.
type Policy struct {
	Retries     int
	Backoff     BackoffFunc
	ShouldRetry func(error) bool
}

func Default() Policy {
	return Policy{
		Retries: 3,
		Backoff: Exponential(500*time.Millisecond, 0),
	}
}

// Do runs fn until it succeeds, ShouldRetry rejects the error, retries are
// exhausted or ctx ends. The last error is wrapped with ErrMaxAttempts when
// retries run out.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := p.Backoff
	if backoff == nil {
		backoff = Exponential(500*time.Millisecond, 0)
	}

	var err error
	for attempt := 0; ; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if p.ShouldRetry != nil && !p.ShouldRetry(err) {
			return err
		}
		if attempt >= p.Retries {
			return fmt.Errorf("%w: %w", ErrMaxAttempts, err)
		}

		t := time.NewTimer(backoff(attempt + 1))
		select {
		case <-ctx.Done():
			t.Stop()
			return errors.Join(ctx.Err(), err)
		case <-t.C:
		}
	}
}
