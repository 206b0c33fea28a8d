package domain

import (
	"testing"
	"time"

	"github.com/dmehra2102/hotel-booking-saga/pkg/contracts"
)

var t0 = time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)

func requested() contracts.BookingRequested {
	return contracts.BookingRequested{
		BookingID:      "b1",
		RoomTypeID:     "deluxe",
		HotelID:        "hotel-1",
		GuestEmail:     "guest@example.com",
		TotalPrice:     45000,
		Currency:       "USD",
		CheckInDate:    time.Date(2030, 1, 10, 0, 0, 0, 0, time.UTC),
		CheckOutDate:   time.Date(2030, 1, 13, 0, 0, 0, 0, time.UTC),
		NumberOfGuests: 2,
		RequestedAt:    t0,
	}
}

func started(t *testing.T) BookingSaga {
	t.Helper()
	s, out := Start(requested(), 0, t0)
	if s.State != StateRoomHoldRequested {
		t.Fatalf("expected RoomHoldRequested, got %s", s.State)
	}
	if len(out) != 1 {
		t.Fatalf("expected one command, got %d", len(out))
	}
	hold, ok := out[0].(contracts.HoldRoom)
	if !ok {
		t.Fatalf("expected HoldRoom, got %T", out[0])
	}
	if hold.BookingID != "b1" || hold.HoldDuration != DefaultHoldDuration || !hold.CheckOutDate.Equal(requested().CheckOutDate) {
		t.Fatalf("unexpected HoldRoom %+v", hold)
	}
	return s
}

func apply(t *testing.T, s *BookingSaga, msg contracts.Message) []contracts.Message {
	t.Helper()
	out, applied := Apply(s, msg, t0.Add(time.Minute))
	if !applied {
		t.Fatalf("expected %s to apply in %s", msg.MessageType(), s.State)
	}
	return out
}

func TestSaga_HappyPath(t *testing.T) {
	s := started(t)

	out := apply(t, &s, contracts.RoomHeld{BookingID: "b1", RoomHoldReference: "HOLD-1"})
	if s.State != StatePaymentProcessing || s.RoomHoldReference != "HOLD-1" {
		t.Fatalf("unexpected saga after RoomHeld: %+v", s)
	}
	pay, ok := out[0].(contracts.ProcessPayment)
	if !ok || pay.Amount != 45000 || pay.Currency != "USD" || pay.RoomHoldReference != "HOLD-1" || pay.GuestEmail != "guest@example.com" {
		t.Fatalf("unexpected ProcessPayment %+v", out)
	}

	out = apply(t, &s, contracts.PaymentSucceeded{BookingID: "b1", TransactionID: "PAY-1", Amount: 45000, Currency: "USD"})
	if s.State != StateConfirmed || s.PaymentReference != "PAY-1" || s.FailureReason != "" {
		t.Fatalf("unexpected saga after PaymentSucceeded: %+v", s)
	}
	if len(out) != 1 {
		t.Fatalf("expected ConfirmRoom, got %v", out)
	}
	if c, ok := out[0].(contracts.ConfirmRoom); !ok || c.RoomHoldReference != "HOLD-1" {
		t.Fatalf("expected ConfirmRoom for HOLD-1, got %+v", out[0])
	}
}

func TestSaga_PaymentFailureCompensates(t *testing.T) {
	s := started(t)
	apply(t, &s, contracts.RoomHeld{BookingID: "b1", RoomHoldReference: "HOLD-1"})

	out := apply(t, &s, contracts.PaymentFailed{BookingID: "b1", Reason: "card declined"})
	if s.State != StateRoomReleaseRequested {
		t.Fatalf("expected RoomReleaseRequested, got %s", s.State)
	}
	if s.FailureReason != "Payment failed: card declined" {
		t.Fatalf("unexpected failure reason %q", s.FailureReason)
	}
	if len(out) != 1 {
		t.Fatalf("expected one ReleaseRoom, got %v", out)
	}
	if rel, ok := out[0].(contracts.ReleaseRoom); !ok || rel.RoomHoldReference != "HOLD-1" {
		t.Fatalf("unexpected compensation %+v", out[0])
	}

	// Redelivered PaymentFailed must not compensate a second time.
	if out, applied := Apply(&s, contracts.PaymentFailed{BookingID: "b1", Reason: "card declined"}, t0); applied || out != nil {
		t.Fatalf("expected redelivered PaymentFailed to be discarded")
	}

	out = apply(t, &s, contracts.RoomReleased{BookingID: "b1", RoomHoldReference: "HOLD-1", Reason: "Compensation - payment failed"})
	if s.State != StateFailed || len(out) != 0 {
		t.Fatalf("expected Failed with no commands, got %s %v", s.State, out)
	}
	if s.FailureReason != "Payment failed: card declined" {
		t.Fatalf("failure reason changed to %q", s.FailureReason)
	}
}

func TestSaga_PaymentFailureWithoutHoldFailsDirectly(t *testing.T) {
	s := started(t)
	s.State = StatePaymentProcessing

	out := apply(t, &s, contracts.PaymentFailed{BookingID: "b1", Reason: "limit exceeded"})
	if s.State != StateFailed || len(out) != 0 {
		t.Fatalf("expected Failed without compensation, got %s %v", s.State, out)
	}
}

func TestSaga_RoomHoldFailed(t *testing.T) {
	s := started(t)
	out := apply(t, &s, contracts.RoomHoldFailed{BookingID: "b1", Reason: "insufficient inventory"})
	if s.State != StateFailed || len(out) != 0 {
		t.Fatalf("expected Failed, got %s %v", s.State, out)
	}
	if s.FailureReason != "Room hold failed: insufficient inventory" {
		t.Fatalf("unexpected failure reason %q", s.FailureReason)
	}
}

func TestSaga_RedeliveryIsNoOp(t *testing.T) {
	events := []contracts.Message{
		contracts.RoomHeld{BookingID: "b1", RoomHoldReference: "HOLD-1"},
		contracts.PaymentSucceeded{BookingID: "b1", TransactionID: "PAY-1"},
	}
	s := started(t)
	for _, ev := range events {
		apply(t, &s, ev)
	}
	before := s

	for _, ev := range append(events, contracts.RoomHoldFailed{BookingID: "b1"}, contracts.PaymentFailed{BookingID: "b1"}, contracts.RoomReleased{BookingID: "b1"}) {
		if out, applied := Apply(&s, ev, t0.Add(time.Hour)); applied || out != nil {
			t.Fatalf("expected %s to be discarded in %s", ev.MessageType(), s.State)
		}
		if s != before {
			t.Fatalf("saga changed by discarded %s: %+v", ev.MessageType(), s)
		}
	}
}

func TestSaga_OutOfOrderEventDiscarded(t *testing.T) {
	s := started(t)
	before := s

	for _, ev := range []contracts.Message{
		contracts.PaymentSucceeded{BookingID: "b1", TransactionID: "PAY-1"},
		contracts.PaymentFailed{BookingID: "b1"},
		contracts.RoomReleased{BookingID: "b1"},
		contracts.RoomHeld{BookingID: "other", RoomHoldReference: "HOLD-X"},
	} {
		if _, applied := Apply(&s, ev, t0); applied {
			t.Fatalf("expected %s to be discarded", ev.MessageType())
		}
	}
	if s != before {
		t.Fatalf("saga changed: %+v", s)
	}
}

func TestTransitionTable_TerminalStatesAcceptNothing(t *testing.T) {
	all := []string{
		contracts.TypeBookingRequested, contracts.TypeRoomHeld, contracts.TypeRoomHoldFailed,
		contracts.TypePaymentSucceeded, contracts.TypePaymentFailed, contracts.TypeRoomReleased, contracts.TypeRoomConfirmed,
	}
	for _, state := range []State{StateConfirmed, StateFailed} {
		for _, typ := range all {
			if Accepts(state, typ) {
				t.Fatalf("terminal state %s accepts %s", state, typ)
			}
		}
	}
	if Accepts(StateSubmitted, contracts.TypeBookingRequested) {
		t.Fatalf("BookingRequested must only create sagas, never transition one")
	}
}
