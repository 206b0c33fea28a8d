package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmehra2102/hotel-booking-saga/internal/payment/domain"
	"github.com/dmehra2102/hotel-booking-saga/pkg/clock"
	"github.com/dmehra2102/hotel-booking-saga/pkg/contracts"
)

type Service struct {
	log       *slog.Logger
	repo      Repository
	clock     clock.Clock
	threshold int64
}

func NewService(log *slog.Logger, repo Repository, clk clock.Clock, threshold int64) *Service {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Service{log: log, repo: repo, clock: clk, threshold: threshold}
}

func (s *Service) Handle(ctx context.Context, msg contracts.Message) error {
	cmd, ok := msg.(contracts.ProcessPayment)
	if !ok {
		s.log.Warn("unexpected message on payment commands", "type", msg.MessageType(), "booking_id", msg.CorrelationID())
		return nil
	}
	_, err := s.Process(ctx, cmd)
	return err
}

// Process charges the booking once. A repeated command returns the outcome of
// the first one.
func (s *Service) Process(ctx context.Context, cmd contracts.ProcessPayment) (domain.Payment, error) {
	p := domain.Authorize(cmd, s.threshold, s.clock.Now())

	stored, created, err := s.repo.Record(ctx, p, p.Outcome())
	if err != nil {
		return domain.Payment{}, fmt.Errorf("record payment %s: %w", cmd.BookingID, err)
	}
	if !created {
		s.log.Info("payment already processed", "booking_id", cmd.BookingID, "status", stored.Status, "transaction_id", stored.TransactionID)
		return stored, nil
	}

	log := s.log.With("booking_id", cmd.BookingID, "amount", stored.Amount.String())
	if stored.Status == domain.StatusSucceeded {
		log.Info("payment succeeded", "transaction_id", stored.TransactionID)
	} else {
		log.Warn("payment failed", "reason", stored.Reason)
	}
	return stored, nil
}
