package domain

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmehra2102/hotel-booking-saga/pkg/daterange"
	"github.com/dmehra2102/hotel-booking-saga/pkg/money"
)

type HoldStatus string

const (
	HoldActive    HoldStatus = "Active"
	HoldConfirmed HoldStatus = "Confirmed"
	HoldReleased  HoldStatus = "Released"
	HoldExpired   HoldStatus = "Expired"
)

const ExpiredReason = "Expired"

// RoomHold reserves RoomCount rooms on every night of Dates until ExpiresAt.
// Once it leaves Active its status never changes again.
type RoomHold struct {
	ID            string
	HoldReference string
	BookingID     string
	HotelID       string
	RoomTypeID    string
	Dates         daterange.Range
	RoomCount     int
	TotalAmount   money.Money
	Status        HoldStatus
	CreatedAt     time.Time
	ExpiresAt     time.Time
	ConfirmedAt   *time.Time
	ReleasedAt    *time.Time
	ReleaseReason string
}

func NewHold(bookingID, hotelID, roomTypeID string, dates daterange.Range, roomCount int, amount money.Money, now time.Time, holdFor time.Duration) RoomHold {
	return RoomHold{
		ID:            uuid.NewString(),
		HoldReference: NewHoldReference(bookingID, now),
		BookingID:     bookingID,
		HotelID:       hotelID,
		RoomTypeID:    roomTypeID,
		Dates:         dates,
		RoomCount:     roomCount,
		TotalAmount:   amount,
		Status:        HoldActive,
		CreatedAt:     now,
		ExpiresAt:     now.Add(holdFor),
	}
}

// NewHoldReference renders HOLD-<booking prefix>-<timestamp>-<random>.
func NewHoldReference(bookingID string, now time.Time) string {
	prefix := strings.ReplaceAll(bookingID, "-", "")
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	r := uuid.New()
	return fmt.Sprintf("HOLD-%s-%s-%s", strings.ToUpper(prefix), now.UTC().Format("20060102150405"), strings.ToUpper(hex.EncodeToString(r[:2])))
}

func (h RoomHold) IsExpired(now time.Time) bool {
	return now.After(h.ExpiresAt)
}

func (h RoomHold) IsActive(now time.Time) bool {
	return h.Status == HoldActive && !h.IsExpired(now)
}

func (h *RoomHold) Release(now time.Time, reason string) error {
	if h.Status != HoldActive {
		return fmt.Errorf("%w: hold %s is %s", ErrInvalidHoldOperation, h.HoldReference, h.Status)
	}
	h.Status = HoldReleased
	h.ReleasedAt = &now
	h.ReleaseReason = reason
	return nil
}

func (h *RoomHold) Confirm(now time.Time) error {
	if h.Status != HoldActive {
		return fmt.Errorf("%w: hold %s is %s", ErrInvalidHoldOperation, h.HoldReference, h.Status)
	}
	if h.IsExpired(now) {
		return fmt.Errorf("%w: hold %s expired at %s", ErrInvalidHoldOperation, h.HoldReference, h.ExpiresAt.Format(time.RFC3339))
	}
	h.Status = HoldConfirmed
	h.ConfirmedAt = &now
	return nil
}

// Expire marks an active hold whose time has passed.
func (h *RoomHold) Expire(now time.Time) error {
	if h.Status != HoldActive {
		return fmt.Errorf("%w: hold %s is %s", ErrInvalidHoldOperation, h.HoldReference, h.Status)
	}
	if now.Before(h.ExpiresAt) {
		return fmt.Errorf("%w: hold %s expires at %s", ErrInvalidHoldOperation, h.HoldReference, h.ExpiresAt.Format(time.RFC3339))
	}
	h.Status = HoldExpired
	h.ReleasedAt = &now
	h.ReleaseReason = ExpiredReason
	return nil
}
