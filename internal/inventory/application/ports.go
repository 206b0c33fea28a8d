package application

import (
	"context"
	"time"

	"github.com/dmehra2102/hotel-booking-saga/internal/inventory/domain"
	"github.com/dmehra2102/hotel-booking-saga/pkg/contracts"
	"github.com/dmehra2102/hotel-booking-saga/pkg/daterange"
)

// Repository persists inventory days and holds. Methods called with a
// context from WithTx run inside that transaction.
type Repository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	// GetDays returns the existing rows for the nights of r in date order.
	// Nights without a row are absent from the result.
	GetDays(ctx context.Context, hotelID, roomTypeID string, r daterange.Range) ([]domain.RoomInventoryDay, error)
	// LockDays is GetDays under row locks taken in date order.
	LockDays(ctx context.Context, hotelID, roomTypeID string, r daterange.Range) ([]domain.RoomInventoryDay, error)
	SaveDays(ctx context.Context, days ...domain.RoomInventoryDay) error
	// RoomTypeCurrency returns the currency the room type is priced in, or ""
	// when it has no rows yet. Inside a transaction it also serialises
	// capacity changes for the room type.
	RoomTypeCurrency(ctx context.Context, hotelID, roomTypeID string) (string, error)

	CreateHold(ctx context.Context, h domain.RoomHold) error
	UpdateHold(ctx context.Context, h domain.RoomHold) error
	// LockHold returns domain.ErrHoldNotFound when id is unknown.
	LockHold(ctx context.Context, id string) (domain.RoomHold, error)
	GetHoldByReference(ctx context.Context, ref string) (domain.RoomHold, error)
	FindActiveHold(ctx context.Context, bookingID string) (domain.RoomHold, error)
	ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]string, error)
}

// Outbox is satisfied by outbox.Writer.
type Outbox interface {
	Enqueue(ctx context.Context, aggregateType string, envs ...contracts.Envelope) error
}
