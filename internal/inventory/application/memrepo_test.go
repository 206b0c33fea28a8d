package application

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/dmehra2102/hotel-booking-saga/internal/inventory/domain"
	"github.com/dmehra2102/hotel-booking-saga/pkg/contracts"
	"github.com/dmehra2102/hotel-booking-saga/pkg/daterange"
)

type txMarker struct{}

type dayKey struct {
	hotel, roomType string
	date            time.Time
}

// memRepo serialises transactions on one mutex and restores a snapshot when
// a transaction fails, which is enough to exercise rollback behaviour.
type memRepo struct {
	mu     sync.Mutex
	days   map[dayKey]domain.RoomInventoryDay
	holds  map[string]domain.RoomHold
	events []contracts.Envelope

	failSaveDays error
	// Called at the start of SaveDays and CreateHold, e.g. to cancel the
	// caller's context part way through a transaction.
	beforeSaveDays   func()
	beforeCreateHold func()
}

func newMemRepo() *memRepo {
	return &memRepo{days: map[dayKey]domain.RoomInventoryDay{}, holds: map[string]domain.RoomHold{}}
}

func (r *memRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txMarker{}) != nil {
		return fn(ctx)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	days := make(map[dayKey]domain.RoomInventoryDay, len(r.days))
	for k, v := range r.days {
		days[k] = v
	}
	holds := make(map[string]domain.RoomHold, len(r.holds))
	for k, v := range r.holds {
		holds[k] = v
	}
	events := append([]contracts.Envelope(nil), r.events...)

	if err := fn(context.WithValue(ctx, txMarker{}, true)); err != nil {
		r.days, r.holds, r.events = days, holds, events
		return err
	}
	return nil
}

func (r *memRepo) locked(ctx context.Context) func() {
	if ctx.Value(txMarker{}) != nil {
		return func() {}
	}
	r.mu.Lock()
	return r.mu.Unlock
}

func (r *memRepo) GetDays(ctx context.Context, hotelID, roomTypeID string, rng daterange.Range) ([]domain.RoomInventoryDay, error) {
	defer r.locked(ctx)()
	var out []domain.RoomInventoryDay
	for _, d := range rng.Dates() {
		if day, ok := r.days[dayKey{hotelID, roomTypeID, d}]; ok {
			out = append(out, day)
		}
	}
	return out, nil
}

func (r *memRepo) LockDays(ctx context.Context, hotelID, roomTypeID string, rng daterange.Range) ([]domain.RoomInventoryDay, error) {
	return r.GetDays(ctx, hotelID, roomTypeID, rng)
}

func (r *memRepo) SaveDays(ctx context.Context, days ...domain.RoomInventoryDay) error {
	defer r.locked(ctx)()
	if r.beforeSaveDays != nil {
		r.beforeSaveDays()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.failSaveDays != nil {
		return r.failSaveDays
	}
	for _, d := range days {
		r.days[dayKey{d.HotelID, d.RoomTypeID, daterange.Day(d.Date)}] = d
	}
	return nil
}

func (r *memRepo) RoomTypeCurrency(ctx context.Context, hotelID, roomTypeID string) (string, error) {
	defer r.locked(ctx)()
	for k, d := range r.days {
		if k.hotel == hotelID && k.roomType == roomTypeID {
			return d.CurrentPrice.Currency, nil
		}
	}
	return "", nil
}

func (r *memRepo) CreateHold(ctx context.Context, h domain.RoomHold) error {
	defer r.locked(ctx)()
	if r.beforeCreateHold != nil {
		r.beforeCreateHold()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, existing := range r.holds {
		if existing.HoldReference == h.HoldReference {
			return errors.New("duplicate hold reference")
		}
		if existing.BookingID == h.BookingID && existing.Status == domain.HoldActive {
			return errors.New("duplicate active hold")
		}
	}
	r.holds[h.ID] = h
	return nil
}

func (r *memRepo) UpdateHold(ctx context.Context, h domain.RoomHold) error {
	defer r.locked(ctx)()
	if _, ok := r.holds[h.ID]; !ok {
		return domain.ErrHoldNotFound
	}
	r.holds[h.ID] = h
	return nil
}

func (r *memRepo) LockHold(ctx context.Context, id string) (domain.RoomHold, error) {
	defer r.locked(ctx)()
	h, ok := r.holds[id]
	if !ok {
		return domain.RoomHold{}, domain.ErrHoldNotFound
	}
	return h, nil
}

func (r *memRepo) GetHoldByReference(ctx context.Context, ref string) (domain.RoomHold, error) {
	defer r.locked(ctx)()
	for _, h := range r.holds {
		if h.HoldReference == ref {
			return h, nil
		}
	}
	return domain.RoomHold{}, domain.ErrHoldNotFound
}

func (r *memRepo) FindActiveHold(ctx context.Context, bookingID string) (domain.RoomHold, error) {
	defer r.locked(ctx)()
	for _, h := range r.holds {
		if h.BookingID == bookingID && h.Status == domain.HoldActive {
			return h, nil
		}
	}
	return domain.RoomHold{}, domain.ErrHoldNotFound
}

func (r *memRepo) ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]string, error) {
	defer r.locked(ctx)()
	var ids []string
	for id, h := range r.holds {
		if h.Status == domain.HoldActive && !h.ExpiresAt.After(now) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (r *memRepo) Enqueue(ctx context.Context, _ string, envs ...contracts.Envelope) error {
	defer r.locked(ctx)()
	r.events = append(r.events, envs...)
	return nil
}

func (r *memRepo) day(hotelID, roomTypeID string, date time.Time) domain.RoomInventoryDay {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.days[dayKey{hotelID, roomTypeID, daterange.Day(date)}]
}

func (r *memRepo) hold(id string) domain.RoomHold {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.holds[id]
}

func (r *memRepo) published() []contracts.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]contracts.Envelope(nil), r.events...)
}
