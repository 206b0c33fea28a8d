// Package domain holds the booking saga: the per-booking record and the
// transition table that moves it from request to confirmation or failure.
package domain

import (
	"time"

	"github.com/dmehra2102/hotel-booking-saga/pkg/daterange"
	"github.com/dmehra2102/hotel-booking-saga/pkg/money"
)

type State string

const (
	StateSubmitted            State = "Submitted"
	StateRoomHoldRequested    State = "RoomHoldRequested"
	StatePaymentProcessing    State = "PaymentProcessing"
	StateRoomReleaseRequested State = "RoomReleaseRequested"
	StateConfirmed            State = "Confirmed"
	StateFailed               State = "Failed"
)

func (s State) Terminal() bool {
	return s == StateConfirmed || s == StateFailed
}

const (
	DefaultHoldDuration  = 10 * time.Minute
	DefaultPaymentMethod = "CreditCard"
)

// BookingSaga is the durable state of one booking. BookingID doubles as the
// correlation id of every message in the workflow. Version is compared and
// incremented on every save.
type BookingSaga struct {
	BookingID      string
	HotelID        string
	RoomTypeID     string
	GuestEmail     string
	TotalPrice     money.Money
	CheckIn        time.Time
	CheckOut       time.Time
	NumberOfGuests int

	State             State
	RoomHoldReference string
	PaymentReference  string
	FailureReason     string

	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int
}

func (s BookingSaga) Nights() int {
	if r, err := daterange.New(s.CheckIn, s.CheckOut); err == nil {
		return r.Nights()
	}
	return 0
}

// PricePerNight divides by at least one night.
func (s BookingSaga) PricePerNight() money.Money {
	return s.TotalPrice.Div(int64(max(1, s.Nights())))
}
