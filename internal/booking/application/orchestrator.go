package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmehra2102/hotel-booking-saga/internal/booking/domain"
	"github.com/dmehra2102/hotel-booking-saga/pkg/clock"
	"github.com/dmehra2102/hotel-booking-saga/pkg/contracts"
)

const maxConflictRetries = 5

// Orchestrator feeds booking events into the saga state machine and persists
// the result. A save that loses an optimistic-concurrency race is retried
// against freshly loaded state.
type Orchestrator struct {
	log          *slog.Logger
	repo         SagaRepository
	clock        clock.Clock
	holdDuration time.Duration
}

func NewOrchestrator(log *slog.Logger, repo SagaRepository, clk clock.Clock, holdDuration time.Duration) *Orchestrator {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Orchestrator{log: log, repo: repo, clock: clk, holdDuration: holdDuration}
}

func (o *Orchestrator) Handle(ctx context.Context, msg contracts.Message) error {
	switch m := msg.(type) {
	case contracts.BookingRequested:
		return o.start(ctx, m)
	case contracts.RoomConfirmed:
		o.log.Info("room confirmed", "booking_id", m.BookingID, "hold_reference", m.RoomHoldReference)
		return nil
	default:
		return o.advance(ctx, msg)
	}
}

func (o *Orchestrator) start(ctx context.Context, ev contracts.BookingRequested) error {
	saga, out := domain.Start(ev, o.holdDuration, o.clock.Now())
	err := o.repo.Create(ctx, saga, out)
	if errors.Is(err, domain.ErrSagaExists) {
		o.log.Info("duplicate booking request ignored", "booking_id", ev.BookingID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("create saga %s: %w", ev.BookingID, err)
	}
	o.log.Info("booking saga started", "booking_id", ev.BookingID, "state", saga.State)
	return nil
}

func (o *Orchestrator) advance(ctx context.Context, msg contracts.Message) error {
	log := o.log.With("booking_id", msg.CorrelationID(), "event_type", msg.MessageType())

	for attempt := 1; attempt <= maxConflictRetries; attempt++ {
		saga, err := o.repo.Get(ctx, msg.CorrelationID())
		if errors.Is(err, domain.ErrSagaNotFound) {
			log.Warn("event for unknown booking discarded")
			return nil
		}
		if err != nil {
			return fmt.Errorf("load saga %s: %w", msg.CorrelationID(), err)
		}

		from := saga.State
		out, applied := domain.Apply(&saga, msg, o.clock.Now())
		if !applied {
			log.Warn("event does not match saga state, discarded", "state", from)
			return nil
		}

		err = o.repo.Update(ctx, saga, out)
		if errors.Is(err, domain.ErrConcurrencyConflict) {
			log.Info("saga changed concurrently, reloading", "attempt", attempt)
			continue
		}
		if err != nil {
			return fmt.Errorf("save saga %s: %w", saga.BookingID, err)
		}
		log.Info("saga advanced", "from", from, "to", saga.State, "commands", len(out))
		return nil
	}
	return fmt.Errorf("%w: %s after %d attempts", domain.ErrConcurrencyConflict, msg.CorrelationID(), maxConflictRetries)
}
