package contracts

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

const (
	HeaderEventType = "event_type"
	HeaderMessageID = "message_id"
)

var ErrUnknownMessageType = errors.New("unknown message type")

// Envelope is the broker-neutral form of a message: what the outbox stores
// and what consumers decode.
type Envelope struct {
	ID      string
	Type    string
	Key     string
	Payload []byte
}

func Wrap(m Message) (Envelope, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s: %w", m.MessageType(), err)
	}
	return Envelope{
		ID:      uuid.NewString(),
		Type:    m.MessageType(),
		Key:     m.CorrelationID(),
		Payload: payload,
	}, nil
}

func WrapAll(msgs ...Message) ([]Envelope, error) {
	out := make([]Envelope, 0, len(msgs))
	for _, m := range msgs {
		env, err := Wrap(m)
		if err != nil {
			return nil, err
		}
		out = append(out, env)
	}
	return out, nil
}

// Decode turns a typed payload back into its contract struct.
func Decode(msgType string, payload []byte) (Message, error) {
	var m Message
	switch msgType {
	case TypeHoldRoom:
		m = &HoldRoom{}
	case TypeProcessPayment:
		m = &ProcessPayment{}
	case TypeReleaseRoom:
		m = &ReleaseRoom{}
	case TypeConfirmRoom:
		m = &ConfirmRoom{}
	case TypeBookingRequested:
		m = &BookingRequested{}
	case TypeRoomHeld:
		m = &RoomHeld{}
	case TypeRoomHoldFailed:
		m = &RoomHoldFailed{}
	case TypePaymentSucceeded:
		m = &PaymentSucceeded{}
	case TypePaymentFailed:
		m = &PaymentFailed{}
	case TypeRoomReleased:
		m = &RoomReleased{}
	case TypeRoomConfirmed:
		m = &RoomConfirmed{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, msgType)
	}
	if err := json.Unmarshal(payload, m); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", msgType, err)
	}
	return deref(m), nil
}

func deref(m Message) Message {
	switch v := m.(type) {
	case *HoldRoom:
		return *v
	case *ProcessPayment:
		return *v
	case *ReleaseRoom:
		return *v
	case *ConfirmRoom:
		return *v
	case *BookingRequested:
		return *v
	case *RoomHeld:
		return *v
	case *RoomHoldFailed:
		return *v
	case *PaymentSucceeded:
		return *v
	case *PaymentFailed:
		return *v
	case *RoomReleased:
		return *v
	case *RoomConfirmed:
		return *v
	}
	return m
}
