package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestExponential(t *testing.T) {
	t.Parallel()

	b := Exponential(500*time.Millisecond, 0)
	want := []time.Duration{500 * time.Millisecond, time.Second, 2 * time.Second}
	for i, w := range want {
		if got := b(i + 1); got != w {
			t.Fatalf("attempt %d: expected %s, got %s", i+1, w, got)
		}
	}

	capped := Exponential(time.Second, 3*time.Second)
	if got := capped(5); got != 3*time.Second {
		t.Fatalf("expected cap of 3s, got %s", got)
	}
}

func TestPolicyDo(t *testing.T) {
	t.Parallel()

	fast := func(int) time.Duration { return time.Millisecond }

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		err := Policy{Retries: 3, Backoff: fast}.Do(context.Background(), func(context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if calls != 3 {
			t.Fatalf("expected 3 calls, got %d", calls)
		}
	})

	t.Run("gives up after retries", func(t *testing.T) {
		calls := 0
		boom := errors.New("boom")
		err := Policy{Retries: 2, Backoff: fast}.Do(context.Background(), func(context.Context) error {
			calls++
			return boom
		})
		if !errors.Is(err, ErrMaxAttempts) || !errors.Is(err, boom) {
			t.Fatalf("expected ErrMaxAttempts wrapping boom, got %v", err)
		}
		if calls != 3 {
			t.Fatalf("expected 1 attempt + 2 retries, got %d", calls)
		}
	})

	t.Run("does not retry permanent errors", func(t *testing.T) {
		calls := 0
		permanent := errors.New("permanent")
		err := Policy{
			Retries:     5,
			Backoff:     fast,
			ShouldRetry: func(err error) bool { return !errors.Is(err, permanent) },
		}.Do(context.Background(), func(context.Context) error {
			calls++
			return permanent
		})
		if !errors.Is(err, permanent) || errors.Is(err, ErrMaxAttempts) {
			t.Fatalf("expected bare permanent error, got %v", err)
		}
		if calls != 1 {
			t.Fatalf("expected a single call, got %d", calls)
		}
	})

	t.Run("stops on context cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := Policy{Retries: 3, Backoff: func(int) time.Duration { return time.Hour }}.Do(ctx, func(context.Context) error {
			return errors.New("transient")
		})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})
}
