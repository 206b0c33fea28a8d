package domain

import (
	"time"

	"github.com/dmehra2102/hotel-booking-saga/pkg/money"
)

// StatusView is what the booking API shows for a saga.
type StatusView struct {
	BookingID     string         `json:"bookingId"`
	Status        State          `json:"status"`
	Message       string         `json:"statusMessage"`
	Progress      int            `json:"progressPercentage"`
	IsCompleted   bool           `json:"isCompleted"`
	IsSuccess     bool           `json:"isSuccess"`
	FailureReason string         `json:"failureReason,omitempty"`
	LastUpdated   time.Time      `json:"lastUpdated"`
	Details       BookingDetails `json:"bookingDetails"`
}

type BookingDetails struct {
	HotelID        string      `json:"hotelId"`
	RoomTypeID     string      `json:"roomTypeId"`
	GuestEmail     string      `json:"guestEmail"`
	TotalPrice     money.Money `json:"totalPrice"`
	CheckIn        string      `json:"checkInDate"`
	CheckOut       string      `json:"checkOutDate"`
	NumberOfGuests int         `json:"numberOfGuests"`
	Nights         int         `json:"numberOfNights"`
	PricePerNight  money.Money `json:"pricePerNight"`
}

var statusMessages = map[State]string{
	StateSubmitted:            "Booking request received and being processed",
	StateRoomHoldRequested:    "Checking room availability",
	StatePaymentProcessing:    "Processing payment",
	StateRoomReleaseRequested: "Payment failed, releasing room hold",
	StateConfirmed:            "Booking confirmed successfully!",
	StateFailed:               "Booking failed",
}

var progress = map[State]int{
	StateSubmitted:            10,
	StateRoomHoldRequested:    30,
	StatePaymentProcessing:    80,
	StateRoomReleaseRequested: 90,
	StateConfirmed:            100,
	StateFailed:               100,
}

func (s BookingSaga) Status() StatusView {
	msg, ok := statusMessages[s.State]
	if !ok {
		msg = "Unknown status"
	}
	return StatusView{
		BookingID:     s.BookingID,
		Status:        s.State,
		Message:       msg,
		Progress:      progress[s.State],
		IsCompleted:   s.State.Terminal(),
		IsSuccess:     s.State == StateConfirmed,
		FailureReason: s.FailureReason,
		LastUpdated:   s.UpdatedAt,
		Details: BookingDetails{
			HotelID:        s.HotelID,
			RoomTypeID:     s.RoomTypeID,
			GuestEmail:     s.GuestEmail,
			TotalPrice:     s.TotalPrice,
			CheckIn:        s.CheckIn.Format(time.DateOnly),
			CheckOut:       s.CheckOut.Format(time.DateOnly),
			NumberOfGuests: s.NumberOfGuests,
			Nights:         s.Nights(),
			PricePerNight:  s.PricePerNight(),
		},
	}
}
