package outbox

import (
	"context"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/dmehra2102/hotel-booking-saga/pkg/contracts"
	"github.com/dmehra2102/hotel-booking-saga/pkg/tracing"
)

type Producer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Dispatcher struct {
	log      *slog.Logger
	producer Producer
	topics   contracts.Topics
}

func NewDispatcher(log *slog.Logger, producer Producer, topics contracts.Topics) *Dispatcher {
	return &Dispatcher{log: log, producer: producer, topics: topics}
}

func (d *Dispatcher) Dispatch(ctx context.Context, event Event) error {
	headers := make([]kafka.Header, 0, len(event.Headers)+3)

	for k, v := range event.Headers {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	headers = append(headers,
		kafka.Header{Key: contracts.HeaderEventType, Value: []byte(event.Type)},
		kafka.Header{Key: contracts.HeaderMessageID, Value: []byte(event.MessageID)},
	)
	if event.Traceparent != "" {
		tracing.HeaderCarrier{Headers: &headers}.Set(tracing.TraceparentHeader, event.Traceparent)
	}

	topic := d.topics.For(event.Type)
	msg := kafka.Message{
		Topic:   topic,
		Key:     []byte(event.AggregateID),
		Value:   event.Payload,
		Headers: headers,
	}
	if err := d.producer.WriteMessages(ctx, msg); err != nil {
		d.log.Error("outbox dispatch failed", "event_id", event.ID, "type", event.Type, "topic", topic, "err", err)
		return err
	}
	d.log.Info("outbox dispatched", "event_id", event.ID, "type", event.Type, "topic", topic, "booking_id", event.AggregateID)
	return nil
}
