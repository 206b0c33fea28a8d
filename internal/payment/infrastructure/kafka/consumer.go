package kafka

import (
	"context"
	"log/slog"

	"github.com/dmehra2102/hotel-booking-saga/internal/payment/application"
	"github.com/dmehra2102/hotel-booking-saga/pkg/consumer"
	"github.com/dmehra2102/hotel-booking-saga/pkg/contracts"
)

// NewConsumer subscribes the payment simulator to payment.commands.
func NewConsumer(log *slog.Logger, brokers []string, topic, group string, svc *application.Service, opts ...consumer.Option) *consumer.Consumer {
	reader := consumer.NewReader(brokers, topic, group)
	return consumer.New(log, "payment-consumer", reader, func(ctx context.Context, _ consumer.Meta, msg contracts.Message) error {
		return svc.Handle(ctx, msg)
	}, opts...)
}
