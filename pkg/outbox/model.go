package outbox

import (
	"context"
	"time"

	"github.com/dmehra2102/hotel-booking-saga/pkg/contracts"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusSent       Status = "sent"
	StatusDead       Status = "dead"
)

type Event struct {
	ID            int64
	MessageID     string
	AggregateType string
	AggregateID   string
	Type          string
	Payload       []byte
	Headers       map[string]string
	Traceparent   string
	CreatedAt     time.Time
	Status        Status
	RelayID       string
	RetryCount    int
	LastError     *string
}

// Writer appends messages to the outbox. Implementations join the
// transaction carried by ctx, if any, so that a state change and the messages
// it produces commit together.
type Writer interface {
	Enqueue(ctx context.Context, aggregateType string, envs ...contracts.Envelope) error
}
