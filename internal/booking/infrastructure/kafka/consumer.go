package kafka

import (
	"context"
	"log/slog"

	"github.com/dmehra2102/hotel-booking-saga/internal/booking/application"
	"github.com/dmehra2102/hotel-booking-saga/pkg/consumer"
	"github.com/dmehra2102/hotel-booking-saga/pkg/contracts"
)

// NewSagaConsumer feeds booking.events into the orchestrator.
func NewSagaConsumer(log *slog.Logger, brokers []string, topic, group string, orch *application.Orchestrator, opts ...consumer.Option) *consumer.Consumer {
	reader := consumer.NewReader(brokers, topic, group)
	return consumer.New(log, "booking-saga-consumer", reader, func(ctx context.Context, _ consumer.Meta, msg contracts.Message) error {
		return orch.Handle(ctx, msg)
	}, opts...)
}
