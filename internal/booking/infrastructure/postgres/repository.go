package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/hotel-booking-saga/internal/booking/domain"
	"github.com/dmehra2102/hotel-booking-saga/pkg/contracts"
	"github.com/dmehra2102/hotel-booking-saga/pkg/daterange"
	"github.com/dmehra2102/hotel-booking-saga/pkg/money"
	"github.com/dmehra2102/hotel-booking-saga/pkg/pgstore"
)

const aggregateType = "booking"

type Repository struct {
	log    *slog.Logger
	pool   *pgxpool.Pool
	conn   pgstore.Conn
	outbox *pgstore.OutboxStore
}

// NewRepository stores sagas in booking_sagas and the commands they issue in
// booking_outbox, atomically.
func NewRepository(log *slog.Logger, pool *pgxpool.Pool, outbox *pgstore.OutboxStore) *Repository {
	return &Repository{log: log, pool: pool, conn: pgstore.Conn{Pool: pool}, outbox: outbox}
}

func (r *Repository) Get(ctx context.Context, bookingID string) (domain.BookingSaga, error) {
	var (
		s               domain.BookingSaga
		amount          int64
		currency, state string
		holdRef, payRef *string
		failure         *string
	)
	err := r.conn.QueryRow(ctx, `
		SELECT booking_id, hotel_id, room_type_id, guest_email, total_price, currency, check_in, check_out,
		       number_of_guests, current_state, room_hold_reference, payment_reference, failure_reason,
		       created_at, updated_at, version
		FROM booking_sagas WHERE booking_id=$1`, bookingID).
		Scan(&s.BookingID, &s.HotelID, &s.RoomTypeID, &s.GuestEmail, &amount, &currency, &s.CheckIn, &s.CheckOut,
			&s.NumberOfGuests, &state, &holdRef, &payRef, &failure, &s.CreatedAt, &s.UpdatedAt, &s.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.BookingSaga{}, domain.ErrSagaNotFound
	}
	if err != nil {
		return domain.BookingSaga{}, fmt.Errorf("get saga %s: %w", bookingID, err)
	}
	s.TotalPrice = money.Money{Amount: amount, Currency: currency}
	s.State = domain.State(state)
	s.CheckIn = daterange.Day(s.CheckIn)
	s.CheckOut = daterange.Day(s.CheckOut)
	s.RoomHoldReference = deref(holdRef)
	s.PaymentReference = deref(payRef)
	s.FailureReason = deref(failure)
	return s, nil
}

func (r *Repository) Create(ctx context.Context, s domain.BookingSaga, out []contracts.Message) error {
	return pgstore.WithTx(ctx, r.pool, func(ctx context.Context) error {
		_, err := r.conn.Exec(ctx, `
			INSERT INTO booking_sagas (booking_id, hotel_id, room_type_id, guest_email, total_price, currency,
				check_in, check_out, number_of_guests, current_state, room_hold_reference, payment_reference,
				failure_reason, created_at, updated_at, version)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,1)`,
			s.BookingID, s.HotelID, s.RoomTypeID, s.GuestEmail, s.TotalPrice.Amount, s.TotalPrice.Currency,
			s.CheckIn, s.CheckOut, s.NumberOfGuests, string(s.State), nullable(s.RoomHoldReference),
			nullable(s.PaymentReference), nullable(s.FailureReason), s.CreatedAt, s.UpdatedAt)
		if pgstore.IsUniqueViolation(err) {
			return domain.ErrSagaExists
		}
		if err != nil {
			return fmt.Errorf("insert saga %s: %w", s.BookingID, err)
		}
		return r.enqueue(ctx, out)
	})
}

func (r *Repository) Update(ctx context.Context, s domain.BookingSaga, out []contracts.Message) error {
	return pgstore.WithTx(ctx, r.pool, func(ctx context.Context) error {
		tag, err := r.conn.Exec(ctx, `
			UPDATE booking_sagas
			SET current_state=$3, room_hold_reference=$4, payment_reference=$5, failure_reason=$6,
			    updated_at=$7, version=version+1
			WHERE booking_id=$1 AND version=$2`,
			s.BookingID, s.Version, string(s.State), nullable(s.RoomHoldReference),
			nullable(s.PaymentReference), nullable(s.FailureReason), s.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update saga %s: %w", s.BookingID, err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrConcurrencyConflict
		}
		return r.enqueue(ctx, out)
	})
}

func (r *Repository) enqueue(ctx context.Context, out []contracts.Message) error {
	envs, err := contracts.WrapAll(out...)
	if err != nil {
		return err
	}
	return r.outbox.Enqueue(ctx, aggregateType, envs...)
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
