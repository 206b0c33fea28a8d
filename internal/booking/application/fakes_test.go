package application

import (
	"context"
	"sync"

	"github.com/dmehra2102/hotel-booking-saga/internal/booking/domain"
	"github.com/dmehra2102/hotel-booking-saga/pkg/contracts"
	"github.com/dmehra2102/hotel-booking-saga/pkg/daterange"
)

type fakeSagaRepo struct {
	mu       sync.Mutex
	sagas    map[string]domain.BookingSaga
	sent     []contracts.Message
	conflict int // next N updates fail with a conflict
}

func newFakeSagaRepo() *fakeSagaRepo {
	return &fakeSagaRepo{sagas: map[string]domain.BookingSaga{}}
}

func (r *fakeSagaRepo) Get(_ context.Context, id string) (domain.BookingSaga, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sagas[id]
	if !ok {
		return domain.BookingSaga{}, domain.ErrSagaNotFound
	}
	return s, nil
}

func (r *fakeSagaRepo) Create(_ context.Context, s domain.BookingSaga, out []contracts.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sagas[s.BookingID]; ok {
		return domain.ErrSagaExists
	}
	s.Version = 1
	r.sagas[s.BookingID] = s
	r.sent = append(r.sent, out...)
	return nil
}

func (r *fakeSagaRepo) Update(_ context.Context, s domain.BookingSaga, out []contracts.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conflict > 0 {
		r.conflict--
		// Simulate another writer having bumped the row.
		cur := r.sagas[s.BookingID]
		cur.Version++
		r.sagas[s.BookingID] = cur
		return domain.ErrConcurrencyConflict
	}
	cur, ok := r.sagas[s.BookingID]
	if !ok {
		return domain.ErrSagaNotFound
	}
	if cur.Version != s.Version {
		return domain.ErrConcurrencyConflict
	}
	s.Version++
	r.sagas[s.BookingID] = s
	r.sent = append(r.sent, out...)
	return nil
}

func (r *fakeSagaRepo) commands(typ string) []contracts.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []contracts.Message
	for _, m := range r.sent {
		if m.MessageType() == typ {
			out = append(out, m)
		}
	}
	return out
}

type fakeOutbox struct {
	mu   sync.Mutex
	envs []contracts.Envelope
	err  error
}

func (o *fakeOutbox) Enqueue(_ context.Context, _ string, envs ...contracts.Envelope) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.envs = append(o.envs, envs...)
	return nil
}

type fakeInventory struct {
	quote Quote
	err   error
	calls int
}

func (f *fakeInventory) Quote(context.Context, string, string, daterange.Range, int) (Quote, error) {
	f.calls++
	return f.quote, f.err
}
