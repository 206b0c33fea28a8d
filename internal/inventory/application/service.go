package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmehra2102/hotel-booking-saga/internal/inventory/domain"
	"github.com/dmehra2102/hotel-booking-saga/pkg/clock"
	"github.com/dmehra2102/hotel-booking-saga/pkg/daterange"
	"github.com/dmehra2102/hotel-booking-saga/pkg/money"
)

const (
	MaxRoomsPerHold = 50
	MaxHoldDuration = 24 * time.Hour
	expiryBatchSize = 500
)

type HoldRequest struct {
	BookingID    string
	HotelID      string
	RoomTypeID   string
	Dates        daterange.Range
	RoomCount    int
	HoldDuration time.Duration
}

type Availability struct {
	Available    bool
	MinAvailable int
	Quote        money.Money
}

// Engine owns every mutation of inventory days and holds.
type Engine struct {
	log   *slog.Logger
	repo  Repository
	clock clock.Clock
}

type Option func(*Engine)

func WithClock(c clock.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

func NewEngine(log *slog.Logger, repo Repository, opts ...Option) *Engine {
	e := &Engine{log: log, repo: repo, clock: clock.NewSystem()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CanHold reports whether every night of r has at least roomCount rooms
// available. A night without an inventory row has none.
func (e *Engine) CanHold(ctx context.Context, hotelID, roomTypeID string, r daterange.Range, roomCount int) (bool, error) {
	days, err := e.repo.GetDays(ctx, hotelID, roomTypeID, r)
	if err != nil {
		return false, err
	}
	return coversRange(days, r, roomCount) == nil, nil
}

// CalculateTotalAmount sums the nightly price times roomCount. Nights without
// a row contribute nothing, so callers check CanHold as well.
func (e *Engine) CalculateTotalAmount(ctx context.Context, hotelID, roomTypeID string, r daterange.Range, roomCount int) (money.Money, error) {
	days, err := e.repo.GetDays(ctx, hotelID, roomTypeID, r)
	if err != nil {
		return money.Money{}, err
	}
	return quote(days, roomCount)
}

func (e *Engine) Availability(ctx context.Context, hotelID, roomTypeID string, r daterange.Range, roomCount int) (Availability, error) {
	days, err := e.repo.GetDays(ctx, hotelID, roomTypeID, r)
	if err != nil {
		return Availability{}, err
	}
	total, err := quote(days, roomCount)
	if err != nil {
		return Availability{}, err
	}
	minAvailable := 0
	if len(days) == r.Nights() {
		minAvailable = days[0].AvailableRooms
		for _, d := range days[1:] {
			minAvailable = min(minAvailable, d.AvailableRooms)
		}
	}
	return Availability{
		Available:    coversRange(days, r, roomCount) == nil,
		MinAvailable: minAvailable,
		Quote:        total,
	}, nil
}

// HoldRooms reserves capacity on every night of the request or on none. A
// booking that already has an active hold gets that hold back.
func (e *Engine) HoldRooms(ctx context.Context, req HoldRequest) (domain.RoomHold, error) {
	now := e.clock.Now()
	if err := validateHold(req, now); err != nil {
		return domain.RoomHold{}, err
	}

	var hold domain.RoomHold
	err := e.repo.WithTx(ctx, func(ctx context.Context) error {
		existing, err := e.repo.FindActiveHold(ctx, req.BookingID)
		switch {
		case err == nil && existing.IsActive(now):
			e.log.Info("existing active hold returned", "booking_id", req.BookingID, "hold_reference", existing.HoldReference)
			hold = existing
			return nil
		case err == nil:
			// Lapsed but not yet swept; reclaim it before holding again.
			if err := existing.Expire(now); err != nil {
				return err
			}
			if err := e.moveRooms(ctx, existing, (*domain.RoomInventoryDay).Release); err != nil {
				return err
			}
			if err := e.repo.UpdateHold(ctx, existing); err != nil {
				return err
			}
		case !errors.Is(err, domain.ErrHoldNotFound):
			return err
		}

		days, err := e.repo.LockDays(ctx, req.HotelID, req.RoomTypeID, req.Dates)
		if err != nil {
			return err
		}
		if err := coversRange(days, req.Dates, req.RoomCount); err != nil {
			return err
		}
		for i := range days {
			if err := days[i].Hold(req.RoomCount); err != nil {
				return err
			}
			days[i].UpdatedAt = now
		}
		if err := e.repo.SaveDays(ctx, days...); err != nil {
			return err
		}

		amount, err := quote(days, req.RoomCount)
		if err != nil {
			return err
		}
		hold = domain.NewHold(req.BookingID, req.HotelID, req.RoomTypeID, req.Dates, req.RoomCount, amount, now, req.HoldDuration)
		return e.repo.CreateHold(ctx, hold)
	})
	if err != nil {
		return domain.RoomHold{}, err
	}
	e.log.Info("rooms held", "booking_id", req.BookingID, "hold_reference", hold.HoldReference, "dates", req.Dates.String(), "rooms", req.RoomCount)
	return hold, nil
}

// ReleaseHold returns an active hold's rooms to availability. Releasing a
// hold that is no longer active fails with ErrInvalidHoldOperation.
func (e *Engine) ReleaseHold(ctx context.Context, holdID, reason string) error {
	return e.repo.WithTx(ctx, func(ctx context.Context) error {
		hold, err := e.repo.LockHold(ctx, holdID)
		if err != nil {
			return err
		}
		if err := hold.Release(e.clock.Now(), reason); err != nil {
			return err
		}
		if err := e.moveRooms(ctx, hold, (*domain.RoomInventoryDay).Release); err != nil {
			return err
		}
		e.log.Info("hold released", "booking_id", hold.BookingID, "hold_reference", hold.HoldReference, "reason", reason)
		return e.repo.UpdateHold(ctx, hold)
	})
}

func (e *Engine) ConfirmHold(ctx context.Context, holdID string) error {
	return e.repo.WithTx(ctx, func(ctx context.Context) error {
		hold, err := e.repo.LockHold(ctx, holdID)
		if err != nil {
			return err
		}
		if err := hold.Confirm(e.clock.Now()); err != nil {
			return err
		}
		if err := e.moveRooms(ctx, hold, (*domain.RoomInventoryDay).Confirm); err != nil {
			return err
		}
		e.log.Info("hold confirmed", "booking_id", hold.BookingID, "hold_reference", hold.HoldReference)
		return e.repo.UpdateHold(ctx, hold)
	})
}

// ProcessExpiredHolds expires every active hold past its deadline and
// returns how many were reclaimed. Each hold commits on its own; a failure is
// logged and the sweep moves on.
func (e *Engine) ProcessExpiredHolds(ctx context.Context) (int, error) {
	now := e.clock.Now()
	ids, err := e.repo.ListExpiredHolds(ctx, now, expiryBatchSize)
	if err != nil {
		return 0, fmt.Errorf("list expired holds: %w", err)
	}

	processed := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}
		err := e.repo.WithTx(ctx, func(ctx context.Context) error {
			hold, err := e.repo.LockHold(ctx, id)
			if err != nil {
				return err
			}
			if err := hold.Expire(now); err != nil {
				return err
			}
			if err := e.moveRooms(ctx, hold, (*domain.RoomInventoryDay).Release); err != nil {
				return err
			}
			return e.repo.UpdateHold(ctx, hold)
		})
		if err != nil {
			e.log.Error("expire hold failed", "hold_id", id, "err", err)
			continue
		}
		processed++
	}
	if processed > 0 {
		e.log.Info("expired holds processed", "count", processed)
	}
	return processed, nil
}

// SetCapacity creates or resizes the inventory row for one night.
func (e *Engine) SetCapacity(ctx context.Context, hotelID, roomTypeID string, date time.Time, total int, price money.Money) (domain.RoomInventoryDay, error) {
	if hotelID == "" || roomTypeID == "" {
		return domain.RoomInventoryDay{}, fmt.Errorf("%w: hotel and room type are required", domain.ErrValidation)
	}
	night, err := daterange.New(date, date.AddDate(0, 0, 1))
	if err != nil {
		return domain.RoomInventoryDay{}, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	var day domain.RoomInventoryDay
	err = e.repo.WithTx(ctx, func(ctx context.Context) error {
		// A room type is priced in one currency across all its nights.
		currency, err := e.repo.RoomTypeCurrency(ctx, hotelID, roomTypeID)
		if err != nil {
			return err
		}
		if currency != "" && currency != price.Currency {
			return fmt.Errorf("%w: %s/%s is priced in %s, got %s", domain.ErrValidation, hotelID, roomTypeID, currency, price.Currency)
		}

		days, err := e.repo.LockDays(ctx, hotelID, roomTypeID, night)
		if err != nil {
			return err
		}
		if len(days) == 0 {
			day, err = domain.NewInventoryDay(hotelID, roomTypeID, night.Start(), total, price)
			if err != nil {
				return err
			}
		} else {
			day = days[0]
			if err := day.SetCapacity(total); err != nil {
				return err
			}
			day.CurrentPrice = price
		}
		day.UpdatedAt = e.clock.Now()
		return e.repo.SaveDays(ctx, day)
	})
	return day, err
}

func (e *Engine) moveRooms(ctx context.Context, hold domain.RoomHold, move func(*domain.RoomInventoryDay, int) error) error {
	days, err := e.repo.LockDays(ctx, hold.HotelID, hold.RoomTypeID, hold.Dates)
	if err != nil {
		return err
	}
	if len(days) != hold.Dates.Nights() {
		return fmt.Errorf("%w: hold %s covers %d nights, %d inventory rows found",
			domain.ErrInvariant, hold.HoldReference, hold.Dates.Nights(), len(days))
	}
	now := e.clock.Now()
	for i := range days {
		if err := move(&days[i], hold.RoomCount); err != nil {
			return err
		}
		days[i].UpdatedAt = now
	}
	return e.repo.SaveDays(ctx, days...)
}

func coversRange(days []domain.RoomInventoryDay, r daterange.Range, roomCount int) error {
	byDate := make(map[time.Time]domain.RoomInventoryDay, len(days))
	for _, d := range days {
		byDate[daterange.Day(d.Date)] = d
	}
	for _, date := range r.Dates() {
		d, ok := byDate[date]
		if !ok {
			return fmt.Errorf("%w: no inventory on %s", domain.ErrInsufficientInventory, date.Format(time.DateOnly))
		}
		if d.AvailableRooms < roomCount {
			return fmt.Errorf("%w: %s has %d available, %d requested",
				domain.ErrInsufficientInventory, date.Format(time.DateOnly), d.AvailableRooms, roomCount)
		}
	}
	return nil
}

// quote refuses rows priced in different currencies instead of letting
// money.Add panic on them.
func quote(days []domain.RoomInventoryDay, roomCount int) (money.Money, error) {
	if len(days) == 0 {
		return money.Zero(money.DefaultCurrency), nil
	}
	total := money.Zero(days[0].CurrentPrice.Currency)
	for _, d := range days {
		if d.CurrentPrice.Currency != total.Currency {
			return money.Money{}, fmt.Errorf("%w: %s/%s mixes %s and %s prices",
				domain.ErrInvariant, d.HotelID, d.RoomTypeID, total.Currency, d.CurrentPrice.Currency)
		}
		total = total.Add(d.CurrentPrice.Mul(int64(roomCount)))
	}
	return total, nil
}

func validateHold(req HoldRequest, now time.Time) error {
	var problems []error
	if req.BookingID == "" {
		problems = append(problems, errors.New("booking id is required"))
	}
	if req.HotelID == "" {
		problems = append(problems, errors.New("hotel id is required"))
	}
	if req.RoomTypeID == "" {
		problems = append(problems, errors.New("room type id is required"))
	}
	if req.Dates.IsZero() {
		problems = append(problems, errors.New("check-out must be after check-in"))
	} else if req.Dates.Start().Before(daterange.Day(now)) {
		problems = append(problems, errors.New("check-in cannot be in the past"))
	}
	if req.RoomCount < 1 || req.RoomCount > MaxRoomsPerHold {
		problems = append(problems, fmt.Errorf("room count must be between 1 and %d", MaxRoomsPerHold))
	}
	if req.HoldDuration <= 0 || req.HoldDuration > MaxHoldDuration {
		problems = append(problems, fmt.Errorf("hold duration must be positive and at most %s", MaxHoldDuration))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrValidation, errors.Join(problems...))
	}
	return nil
}
