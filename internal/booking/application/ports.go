package application

import (
	"context"

	"github.com/dmehra2102/hotel-booking-saga/internal/booking/domain"
	"github.com/dmehra2102/hotel-booking-saga/pkg/contracts"
	"github.com/dmehra2102/hotel-booking-saga/pkg/daterange"
	"github.com/dmehra2102/hotel-booking-saga/pkg/money"
)

// SagaRepository stores sagas together with the commands each change
// issues, in one transaction.
type SagaRepository interface {
	// Get returns domain.ErrSagaNotFound for an unknown booking.
	Get(ctx context.Context, bookingID string) (domain.BookingSaga, error)
	// Create returns domain.ErrSagaExists when the booking already has a saga.
	Create(ctx context.Context, s domain.BookingSaga, out []contracts.Message) error
	// Update stores s if its Version still matches the stored one and bumps
	// the version; otherwise it returns domain.ErrConcurrencyConflict.
	Update(ctx context.Context, s domain.BookingSaga, out []contracts.Message) error
}

type Outbox interface {
	Enqueue(ctx context.Context, aggregateType string, envs ...contracts.Envelope) error
}

type Quote struct {
	Available    bool
	MinAvailable int
	Total        money.Money
}

type InventoryClient interface {
	Quote(ctx context.Context, hotelID, roomTypeID string, dates daterange.Range, rooms int) (Quote, error)
}
