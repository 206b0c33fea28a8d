package domain

import (
	"time"

	"github.com/dmehra2102/hotel-booking-saga/pkg/contracts"
	"github.com/dmehra2102/hotel-booking-saga/pkg/money"
)

type transitionKey struct {
	state State
	event string
}

// A transition mutates the saga for one accepted event and returns the next
// state together with the commands to send.
type transition func(s *BookingSaga, msg contracts.Message, now time.Time) (State, []contracts.Message)

var transitions = map[transitionKey]transition{
	{StateRoomHoldRequested, contracts.TypeRoomHeld}:         onRoomHeld,
	{StateRoomHoldRequested, contracts.TypeRoomHoldFailed}:   onRoomHoldFailed,
	{StatePaymentProcessing, contracts.TypePaymentSucceeded}: onPaymentSucceeded,
	{StatePaymentProcessing, contracts.TypePaymentFailed}:    onPaymentFailed,
	{StateRoomReleaseRequested, contracts.TypeRoomReleased}:  onRoomReleased,
}

// Accepts reports whether msg is expected in state.
func Accepts(state State, msgType string) bool {
	_, ok := transitions[transitionKey{state, msgType}]
	return ok
}

// Start creates the saga for a booking request and returns the HoldRoom
// command it issues.
func Start(ev contracts.BookingRequested, holdFor time.Duration, now time.Time) (BookingSaga, []contracts.Message) {
	if holdFor <= 0 {
		holdFor = DefaultHoldDuration
	}
	currency := ev.Currency
	if currency == "" {
		currency = money.DefaultCurrency
	}
	s := BookingSaga{
		BookingID:      ev.BookingID,
		HotelID:        ev.HotelID,
		RoomTypeID:     ev.RoomTypeID,
		GuestEmail:     ev.GuestEmail,
		TotalPrice:     money.Money{Amount: ev.TotalPrice, Currency: currency},
		CheckIn:        ev.CheckInDate,
		CheckOut:       ev.CheckOutDate,
		NumberOfGuests: ev.NumberOfGuests,
		State:          StateSubmitted,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	hold := contracts.HoldRoom{
		BookingID:      s.BookingID,
		RoomTypeID:     s.RoomTypeID,
		HotelID:        s.HotelID,
		CheckInDate:    s.CheckIn,
		CheckOutDate:   s.CheckOut,
		NumberOfGuests: s.NumberOfGuests,
		HoldDuration:   holdFor,
	}
	s.State = StateRoomHoldRequested
	return s, []contracts.Message{hold}
}

// Apply advances s by msg. An event that the current state does not expect
// leaves s untouched and reports applied=false; redelivered and out-of-order
// events end up here.
func Apply(s *BookingSaga, msg contracts.Message, now time.Time) (out []contracts.Message, applied bool) {
	t, ok := transitions[transitionKey{s.State, msg.MessageType()}]
	if !ok || msg.CorrelationID() != s.BookingID {
		return nil, false
	}
	next, out := t(s, msg, now)
	s.State = next
	s.UpdatedAt = now
	return out, true
}

func onRoomHeld(s *BookingSaga, msg contracts.Message, _ time.Time) (State, []contracts.Message) {
	ev := msg.(contracts.RoomHeld)
	s.RoomHoldReference = ev.RoomHoldReference
	return StatePaymentProcessing, []contracts.Message{contracts.ProcessPayment{
		BookingID:         s.BookingID,
		GuestEmail:        s.GuestEmail,
		Amount:            s.TotalPrice.Amount,
		Currency:          s.TotalPrice.Currency,
		PaymentMethod:     DefaultPaymentMethod,
		RoomHoldReference: s.RoomHoldReference,
	}}
}

func onRoomHoldFailed(s *BookingSaga, msg contracts.Message, _ time.Time) (State, []contracts.Message) {
	ev := msg.(contracts.RoomHoldFailed)
	s.FailureReason = "Room hold failed: " + ev.Reason
	return StateFailed, nil
}

// onPaymentSucceeded also asks inventory to turn the hold into a booking, so
// the sweeper does not reclaim a paid room.
func onPaymentSucceeded(s *BookingSaga, msg contracts.Message, _ time.Time) (State, []contracts.Message) {
	ev := msg.(contracts.PaymentSucceeded)
	s.PaymentReference = ev.TransactionID
	var out []contracts.Message
	if s.RoomHoldReference != "" {
		out = append(out, contracts.ConfirmRoom{BookingID: s.BookingID, RoomHoldReference: s.RoomHoldReference})
	}
	return StateConfirmed, out
}

func onPaymentFailed(s *BookingSaga, msg contracts.Message, now time.Time) (State, []contracts.Message) {
	ev := msg.(contracts.PaymentFailed)
	s.FailureReason = "Payment failed: " + ev.Reason
	if s.RoomHoldReference == "" {
		return StateFailed, nil
	}
	return StateRoomReleaseRequested, []contracts.Message{contracts.ReleaseRoom{
		BookingID:         s.BookingID,
		RoomHoldReference: s.RoomHoldReference,
		ReleasedAt:        now,
	}}
}

func onRoomReleased(*BookingSaga, contracts.Message, time.Time) (State, []contracts.Message) {
	return StateFailed, nil
}
