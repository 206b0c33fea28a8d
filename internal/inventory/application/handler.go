package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmehra2102/hotel-booking-saga/internal/inventory/domain"
	"github.com/dmehra2102/hotel-booking-saga/pkg/clock"
	"github.com/dmehra2102/hotel-booking-saga/pkg/contracts"
	"github.com/dmehra2102/hotel-booking-saga/pkg/daterange"
	"github.com/dmehra2102/hotel-booking-saga/pkg/retry"
)

const (
	aggregateType = "inventory"
	// Bookings carry no room count; each one holds a single room.
	roomsPerBooking = 1
)

// CommandHandler turns inventory commands into engine calls and always
// answers HoldRoom and ReleaseRoom with an event, so a waiting saga never
// hangs. The outcome event commits in the same transaction as the inventory
// change.
type CommandHandler struct {
	log    *slog.Logger
	engine *Engine
	repo   Repository
	outbox Outbox
	clock  clock.Clock
	policy retry.Policy
}

func NewCommandHandler(log *slog.Logger, engine *Engine, repo Repository, outbox Outbox, policy retry.Policy) *CommandHandler {
	policy.ShouldRetry = func(err error) bool { return !isBusinessError(err) }
	return &CommandHandler{
		log:    log,
		engine: engine,
		repo:   repo,
		outbox: outbox,
		clock:  engine.clock,
		policy: policy,
	}
}

func (h *CommandHandler) Handle(ctx context.Context, msg contracts.Message) error {
	switch m := msg.(type) {
	case contracts.HoldRoom:
		return h.holdRoom(ctx, m)
	case contracts.ReleaseRoom:
		return h.releaseRoom(ctx, m)
	case contracts.ConfirmRoom:
		return h.confirmRoom(ctx, m)
	default:
		h.log.Warn("unexpected message on inventory commands", "event_type", msg.MessageType(), "booking_id", msg.CorrelationID())
		return nil
	}
}

func (h *CommandHandler) holdRoom(ctx context.Context, cmd contracts.HoldRoom) error {
	log := h.log.With("booking_id", cmd.BookingID, "hotel_id", cmd.HotelID, "room_type_id", cmd.RoomTypeID)
	log.Info("processing room hold request")

	err := h.policy.Do(ctx, func(ctx context.Context) error {
		return h.repo.WithTx(ctx, func(ctx context.Context) error {
			dates, err := daterange.New(cmd.CheckInDate, cmd.CheckOutDate)
			if err != nil {
				err = fmt.Errorf("%w: %w", domain.ErrValidation, err)
			}
			var hold domain.RoomHold
			if err == nil {
				hold, err = h.engine.HoldRooms(ctx, HoldRequest{
					BookingID:    cmd.BookingID,
					HotelID:      cmd.HotelID,
					RoomTypeID:   cmd.RoomTypeID,
					Dates:        dates,
					RoomCount:    roomsPerBooking,
					HoldDuration: cmd.HoldDuration,
				})
			}
			if err != nil {
				if !isBusinessError(err) {
					return err
				}
				log.Warn("room hold failed", "err", err)
				return h.emit(ctx, contracts.RoomHoldFailed{BookingID: cmd.BookingID, Reason: err.Error(), FailedAt: h.clock.Now()})
			}
			log.Info("room hold succeeded", "hold_reference", hold.HoldReference)
			return h.emit(ctx, contracts.RoomHeld{
				BookingID:         cmd.BookingID,
				RoomHoldReference: hold.HoldReference,
				HeldUntil:         hold.ExpiresAt,
			})
		})
	})
	if err == nil || ctx.Err() != nil {
		return err
	}

	log.Error("room hold errored", "err", err)
	return h.emit(ctx, contracts.RoomHoldFailed{
		BookingID: cmd.BookingID,
		Reason:    "System error: " + err.Error(),
		FailedAt:  h.clock.Now(),
	})
}

func (h *CommandHandler) releaseRoom(ctx context.Context, cmd contracts.ReleaseRoom) error {
	log := h.log.With("booking_id", cmd.BookingID, "hold_reference", cmd.RoomHoldReference)
	log.Info("releasing room")

	released := func(reason string) contracts.RoomReleased {
		return contracts.RoomReleased{
			BookingID:         cmd.BookingID,
			RoomHoldReference: cmd.RoomHoldReference,
			ReleasedAt:        h.clock.Now(),
			Reason:            reason,
		}
	}

	err := h.policy.Do(ctx, func(ctx context.Context) error {
		return h.repo.WithTx(ctx, func(ctx context.Context) error {
			hold, err := h.repo.GetHoldByReference(ctx, cmd.RoomHoldReference)
			if errors.Is(err, domain.ErrHoldNotFound) {
				log.Warn("hold not found for release")
				return h.emit(ctx, released("Hold not found - already released or expired"))
			}
			if err != nil {
				return err
			}

			err = h.engine.ReleaseHold(ctx, hold.ID, "Saga compensation - payment failed or booking cancelled")
			switch {
			case err == nil:
				return h.emit(ctx, released("Compensation - payment failed"))
			case isBusinessError(err):
				log.Warn("room release failed", "err", err)
				return h.emit(ctx, released(fmt.Sprintf("Release failed: %v - marked as complete for saga completion", err)))
			default:
				return err
			}
		})
	})
	if err == nil || ctx.Err() != nil {
		return err
	}

	log.Error("room release errored", "err", err)
	return h.emit(ctx, released("System error: "+err.Error()))
}

func (h *CommandHandler) confirmRoom(ctx context.Context, cmd contracts.ConfirmRoom) error {
	log := h.log.With("booking_id", cmd.BookingID, "hold_reference", cmd.RoomHoldReference)

	return h.policy.Do(ctx, func(ctx context.Context) error {
		return h.repo.WithTx(ctx, func(ctx context.Context) error {
			hold, err := h.repo.GetHoldByReference(ctx, cmd.RoomHoldReference)
			if err == nil {
				err = h.engine.ConfirmHold(ctx, hold.ID)
			}
			if err != nil {
				if isBusinessError(err) {
					log.Error("room confirmation failed", "err", err)
					return nil
				}
				return err
			}
			log.Info("room confirmed")
			return h.emit(ctx, contracts.RoomConfirmed{
				BookingID:         cmd.BookingID,
				RoomHoldReference: cmd.RoomHoldReference,
				ConfirmedAt:       h.clock.Now(),
			})
		})
	})
}

func (h *CommandHandler) emit(ctx context.Context, msg contracts.Message) error {
	env, err := contracts.Wrap(msg)
	if err != nil {
		return err
	}
	return h.outbox.Enqueue(ctx, aggregateType, env)
}

func isBusinessError(err error) bool {
	return errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, domain.ErrInsufficientInventory) ||
		errors.Is(err, domain.ErrInvalidHoldOperation) ||
		errors.Is(err, domain.ErrHoldNotFound)
}
