package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmehra2102/hotel-booking-saga/pkg/retry"
)

type Store interface {
	LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration) ([]Event, error)
	MarkSent(ctx context.Context, ids []int64) error
	MarkFailed(ctx context.Context, id int64, errMsg string, retryAfter time.Duration) error
	MarkDead(ctx context.Context, id int64, errMsg string) error
}

type Relay struct {
	log         *slog.Logger
	store       Store
	dispatch    *Dispatcher
	relayID     string
	batchSize   int
	interval    time.Duration
	lease       time.Duration
	maxAttempts int
	backoff     retry.BackoffFunc
}

type RelayOption func(*Relay)

func WithInterval(d time.Duration) RelayOption {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithBatchSize(n int) RelayOption {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// WithMaxAttempts sets how many publish attempts a row gets before it is
// parked as dead.
func WithMaxAttempts(n int) RelayOption {
	return func(r *Relay) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

func WithBackoff(b retry.BackoffFunc) RelayOption {
	return func(r *Relay) {
		if b != nil {
			r.backoff = b
		}
	}
}

func NewRelay(log *slog.Logger, store Store, dispatch *Dispatcher, relayID string, opts ...RelayOption) *Relay {
	r := &Relay{
		log:         log,
		store:       store,
		dispatch:    dispatch,
		relayID:     relayID,
		batchSize:   100,
		interval:    500 * time.Millisecond,
		lease:       5 * time.Second,
		maxAttempts: 4,
		backoff:     retry.Exponential(500*time.Millisecond, 30*time.Second),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Relay) Run(ctx context.Context) error {
	t := time.NewTicker(r.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("relay stopping", "relay_id", r.relayID)
			return nil
		case <-t.C:
			if _, err := r.Tick(ctx); err != nil {
				r.log.Error("relay lock batch error", "relay_id", r.relayID, "err", err)
			}
		}
	}
}

// Tick publishes one leased batch and reports how many rows were sent.
func (r *Relay) Tick(ctx context.Context) (int, error) {
	events, err := r.store.LockBatch(ctx, r.relayID, r.batchSize, r.lease)
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}

	ids := make([]int64, 0, len(events))
	for _, e := range events {
		if err := r.dispatch.Dispatch(ctx, e); err != nil {
			r.fail(ctx, e, err)
			continue
		}
		ids = append(ids, e.ID)
	}
	if len(ids) > 0 {
		if err := r.store.MarkSent(ctx, ids); err != nil {
			r.log.Error("relay mark sent error", "relay_id", r.relayID, "err", err)
		}
	}
	return len(ids), nil
}

func (r *Relay) fail(ctx context.Context, e Event, cause error) {
	attempt := e.RetryCount + 1
	if attempt >= r.maxAttempts {
		r.log.Error("outbox event dead-lettered", "event_id", e.ID, "type", e.Type, "booking_id", e.AggregateID, "attempts", attempt, "err", cause)
		if err := r.store.MarkDead(ctx, e.ID, cause.Error()); err != nil {
			r.log.Error("relay mark dead error", "event_id", e.ID, "err", err)
		}
		return
	}
	if err := r.store.MarkFailed(ctx, e.ID, cause.Error(), r.backoff(attempt)); err != nil {
		r.log.Error("relay mark failed error", "event_id", e.ID, "err", err)
	}
}
