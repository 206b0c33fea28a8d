package application

import (
	"context"

	"github.com/dmehra2102/hotel-booking-saga/internal/payment/domain"
	"github.com/dmehra2102/hotel-booking-saga/pkg/contracts"
)

type Repository interface {
	// Record stores p and enqueues out in one transaction unless the booking
	// already has a payment, in which case it returns the stored one and
	// created=false without enqueuing anything.
	Record(ctx context.Context, p domain.Payment, out ...contracts.Message) (stored domain.Payment, created bool, err error)
	Get(ctx context.Context, bookingID string) (domain.Payment, error)
}
