package kafka

import (
	"context"
	"log/slog"

	"github.com/dmehra2102/hotel-booking-saga/internal/inventory/application"
	"github.com/dmehra2102/hotel-booking-saga/pkg/consumer"
	"github.com/dmehra2102/hotel-booking-saga/pkg/contracts"
)

// NewConsumer subscribes the inventory command handler to the inventory
// commands topic.
func NewConsumer(log *slog.Logger, brokers []string, topic, group string, handler *application.CommandHandler, opts ...consumer.Option) *consumer.Consumer {
	reader := consumer.NewReader(brokers, topic, group)
	return consumer.New(log, "inventory-consumer", reader, func(ctx context.Context, meta consumer.Meta, msg contracts.Message) error {
		return handler.Handle(ctx, msg)
	}, opts...)
}
