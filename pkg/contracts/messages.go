// Package contracts holds the commands and events exchanged over the broker
// between the booking orchestrator, the inventory service and the payment
// collaborator. Every message is correlated by BookingID.
package contracts

import "time"

const (
	TypeHoldRoom       = "HoldRoom"
	TypeProcessPayment = "ProcessPayment"
	TypeReleaseRoom    = "ReleaseRoom"
	TypeConfirmRoom    = "ConfirmRoom"

	TypeBookingRequested = "BookingRequested"
	TypeRoomHeld         = "RoomHeld"
	TypeRoomHoldFailed   = "RoomHoldFailed"
	TypePaymentSucceeded = "PaymentSucceeded"
	TypePaymentFailed    = "PaymentFailed"
	TypeRoomReleased     = "RoomReleased"
	TypeRoomConfirmed    = "RoomConfirmed"
)

// Message is implemented by every command and event.
type Message interface {
	MessageType() string
	CorrelationID() string
}

// Commands

type HoldRoom struct {
	BookingID      string        `json:"bookingId"`
	RoomTypeID     string        `json:"roomTypeId"`
	HotelID        string        `json:"hotelId"`
	CheckInDate    time.Time     `json:"checkInDate"`
	CheckOutDate   time.Time     `json:"checkOutDate"`
	NumberOfGuests int           `json:"numberOfGuests"`
	HoldDuration   time.Duration `json:"holdDuration"`
}

type ProcessPayment struct {
	BookingID         string `json:"bookingId"`
	GuestEmail        string `json:"guestEmail"`
	Amount            int64  `json:"amount"`
	Currency          string `json:"currency"`
	PaymentMethod     string `json:"paymentMethod,omitempty"`
	RoomHoldReference string `json:"roomHoldReference"`
}

type ReleaseRoom struct {
	BookingID         string    `json:"bookingId"`
	RoomHoldReference string    `json:"roomHoldReference"`
	ReleasedAt        time.Time `json:"releasedAt"`
}

type ConfirmRoom struct {
	BookingID         string `json:"bookingId"`
	RoomHoldReference string `json:"roomHoldReference"`
}

// Events

type BookingRequested struct {
	BookingID      string    `json:"bookingId"`
	RoomTypeID     string    `json:"roomTypeId"`
	HotelID        string    `json:"hotelId"`
	GuestEmail     string    `json:"guestEmail"`
	TotalPrice     int64     `json:"totalPrice"`
	Currency       string    `json:"currency"`
	CheckInDate    time.Time `json:"checkInDate"`
	CheckOutDate   time.Time `json:"checkOutDate"`
	NumberOfGuests int       `json:"numberOfGuests"`
	RequestedAt    time.Time `json:"requestedAt"`
}

type RoomHeld struct {
	BookingID         string    `json:"bookingId"`
	RoomHoldReference string    `json:"roomHoldReference"`
	HeldUntil         time.Time `json:"heldUntil"`
	RoomNumber        string    `json:"roomNumber,omitempty"`
}

type RoomHoldFailed struct {
	BookingID string    `json:"bookingId"`
	Reason    string    `json:"reason"`
	FailedAt  time.Time `json:"failedAt"`
}

type PaymentSucceeded struct {
	BookingID     string    `json:"bookingId"`
	TransactionID string    `json:"transactionId"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	ProcessedAt   time.Time `json:"processedAt"`
}

type PaymentFailed struct {
	BookingID string    `json:"bookingId"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	Reason    string    `json:"reason"`
	FailedAt  time.Time `json:"failedAt"`
}

type RoomReleased struct {
	BookingID         string    `json:"bookingId"`
	RoomHoldReference string    `json:"roomHoldReference"`
	ReleasedAt        time.Time `json:"releasedAt"`
	Reason            string    `json:"reason"`
}

type RoomConfirmed struct {
	BookingID         string    `json:"bookingId"`
	RoomHoldReference string    `json:"roomHoldReference"`
	ConfirmedAt       time.Time `json:"confirmedAt"`
}

func (HoldRoom) MessageType() string         { return TypeHoldRoom }
func (ProcessPayment) MessageType() string   { return TypeProcessPayment }
func (ReleaseRoom) MessageType() string      { return TypeReleaseRoom }
func (ConfirmRoom) MessageType() string      { return TypeConfirmRoom }
func (BookingRequested) MessageType() string { return TypeBookingRequested }
func (RoomHeld) MessageType() string         { return TypeRoomHeld }
func (RoomHoldFailed) MessageType() string   { return TypeRoomHoldFailed }
func (PaymentSucceeded) MessageType() string { return TypePaymentSucceeded }
func (PaymentFailed) MessageType() string    { return TypePaymentFailed }
func (RoomReleased) MessageType() string     { return TypeRoomReleased }
func (RoomConfirmed) MessageType() string    { return TypeRoomConfirmed }

func (m HoldRoom) CorrelationID() string         { return m.BookingID }
func (m ProcessPayment) CorrelationID() string   { return m.BookingID }
func (m ReleaseRoom) CorrelationID() string      { return m.BookingID }
func (m ConfirmRoom) CorrelationID() string      { return m.BookingID }
func (m BookingRequested) CorrelationID() string { return m.BookingID }
func (m RoomHeld) CorrelationID() string         { return m.BookingID }
func (m RoomHoldFailed) CorrelationID() string   { return m.BookingID }
func (m PaymentSucceeded) CorrelationID() string { return m.BookingID }
func (m PaymentFailed) CorrelationID() string    { return m.BookingID }
func (m RoomReleased) CorrelationID() string     { return m.BookingID }
func (m RoomConfirmed) CorrelationID() string    { return m.BookingID }
