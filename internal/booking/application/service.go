package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmehra2102/hotel-booking-saga/internal/booking/domain"
	"github.com/dmehra2102/hotel-booking-saga/pkg/clock"
	"github.com/dmehra2102/hotel-booking-saga/pkg/contracts"
	"github.com/dmehra2102/hotel-booking-saga/pkg/daterange"
	"github.com/dmehra2102/hotel-booking-saga/pkg/money"
)

var ErrRoomUnavailable = errors.New("room unavailable for the requested dates")

const maxGuests = 10

type BookingRequest struct {
	HotelID        string
	RoomTypeID     string
	GuestEmail     string
	CheckIn        time.Time
	CheckOut       time.Time
	NumberOfGuests int
}

type Accepted struct {
	BookingID  string
	TotalPrice money.Money
	Nights     int
}

// Service is the booking API's application layer: it accepts requests by
// publishing BookingRequested and answers status queries from saga state.
type Service struct {
	log    *slog.Logger
	repo   SagaRepository
	outbox Outbox
	inv    InventoryClient
	clock  clock.Clock
}

func NewService(log *slog.Logger, repo SagaRepository, outbox Outbox, inv InventoryClient, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Service{log: log, repo: repo, outbox: outbox, inv: inv, clock: clk}
}

func (s *Service) RequestBooking(ctx context.Context, req BookingRequest) (Accepted, error) {
	dates, err := s.validate(req)
	if err != nil {
		return Accepted{}, err
	}

	quote, err := s.inv.Quote(ctx, req.HotelID, req.RoomTypeID, dates, 1)
	if err != nil {
		return Accepted{}, fmt.Errorf("quote: %w", err)
	}
	if !quote.Available {
		return Accepted{}, ErrRoomUnavailable
	}

	now := s.clock.Now()
	ev := contracts.BookingRequested{
		BookingID:      uuid.NewString(),
		RoomTypeID:     req.RoomTypeID,
		HotelID:        req.HotelID,
		GuestEmail:     strings.TrimSpace(req.GuestEmail),
		TotalPrice:     quote.Total.Amount,
		Currency:       quote.Total.Currency,
		CheckInDate:    dates.Start(),
		CheckOutDate:   dates.End(),
		NumberOfGuests: req.NumberOfGuests,
		RequestedAt:    now,
	}
	env, err := contracts.Wrap(ev)
	if err != nil {
		return Accepted{}, err
	}
	if err := s.outbox.Enqueue(ctx, "booking", env); err != nil {
		return Accepted{}, fmt.Errorf("enqueue booking request: %w", err)
	}

	s.log.Info("booking requested", "booking_id", ev.BookingID, "hotel_id", req.HotelID, "total", quote.Total.String())
	return Accepted{BookingID: ev.BookingID, TotalPrice: quote.Total, Nights: dates.Nights()}, nil
}

func (s *Service) Status(ctx context.Context, bookingID string) (domain.StatusView, error) {
	saga, err := s.repo.Get(ctx, bookingID)
	if err != nil {
		return domain.StatusView{}, err
	}
	return saga.Status(), nil
}

func (s *Service) validate(req BookingRequest) (daterange.Range, error) {
	var problems []error
	if strings.TrimSpace(req.HotelID) == "" {
		problems = append(problems, errors.New("hotelId is required"))
	}
	if strings.TrimSpace(req.RoomTypeID) == "" {
		problems = append(problems, errors.New("roomTypeId is required"))
	}
	if _, err := mail.ParseAddress(req.GuestEmail); err != nil {
		problems = append(problems, errors.New("guestEmail must be a valid email address"))
	}
	if req.NumberOfGuests < 1 || req.NumberOfGuests > maxGuests {
		problems = append(problems, fmt.Errorf("numberOfGuests must be between 1 and %d", maxGuests))
	}
	dates, err := daterange.New(req.CheckIn, req.CheckOut)
	if err != nil {
		problems = append(problems, errors.New("checkOutDate must be after checkInDate"))
	} else if dates.Start().Before(daterange.Day(s.clock.Now())) {
		problems = append(problems, errors.New("checkInDate cannot be in the past"))
	}
	if len(problems) > 0 {
		return daterange.Range{}, fmt.Errorf("%w: %w", domain.ErrValidation, errors.Join(problems...))
	}
	return dates, nil
}
