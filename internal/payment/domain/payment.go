package domain

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/dmehra2102/hotel-booking-saga/pkg/contracts"
	"github.com/dmehra2102/hotel-booking-saga/pkg/money"
)

type Status string

const (
	StatusSucceeded Status = "Succeeded"
	StatusFailed    Status = "Failed"
)

const (
	ReasonInvalidAmount       = "Invalid payment amount"
	ReasonLimitExceeded       = "Amount exceeds card limit"
	ReasonUnsupportedCurrency = "Unsupported currency"
)

var ErrPaymentNotFound = errors.New("payment not found")

// Payment is the single charge attempt for a booking. A booking is charged at
// most once; later commands for it see the stored outcome.
type Payment struct {
	BookingID     string
	TransactionID string
	Amount        money.Money
	Status        Status
	Reason        string
	CreatedAt     time.Time
}

// Authorize simulates the card processor. The threshold is in minor units of
// money.DefaultCurrency, so charges in any other currency are declined rather
// than compared against it.
func Authorize(cmd contracts.ProcessPayment, threshold int64, now time.Time) Payment {
	p := Payment{
		BookingID: cmd.BookingID,
		Amount:    money.Money{Amount: cmd.Amount, Currency: strings.ToUpper(cmd.Currency)},
		CreatedAt: now.UTC(),
	}
	switch {
	case cmd.Amount <= 0:
		p.Status, p.Reason = StatusFailed, ReasonInvalidAmount
	case p.Amount.Currency != money.DefaultCurrency:
		p.Status, p.Reason = StatusFailed, ReasonUnsupportedCurrency
	case cmd.Amount > threshold:
		p.Status, p.Reason = StatusFailed, ReasonLimitExceeded
	default:
		p.Status = StatusSucceeded
		p.TransactionID = NewTransactionID(now)
	}
	return p
}

// Outcome is the event announcing p to the saga.
func (p Payment) Outcome() contracts.Message {
	if p.Status == StatusSucceeded {
		return contracts.PaymentSucceeded{
			BookingID:     p.BookingID,
			TransactionID: p.TransactionID,
			Amount:        p.Amount.Amount,
			Currency:      p.Amount.Currency,
			ProcessedAt:   p.CreatedAt,
		}
	}
	return contracts.PaymentFailed{
		BookingID: p.BookingID,
		Amount:    p.Amount.Amount,
		Currency:  p.Amount.Currency,
		Reason:    p.Reason,
		FailedAt:  p.CreatedAt,
	}
}

// NewTransactionID returns PAY-<8 hex>-<yyyyMMddHHmmss>.
func NewTransactionID(now time.Time) string {
	var b [4]byte
	_, _ = rand.Read(b[:])
	return "PAY-" + strings.ToUpper(hex.EncodeToString(b[:])) + "-" + now.UTC().Format("20060102150405")
}
