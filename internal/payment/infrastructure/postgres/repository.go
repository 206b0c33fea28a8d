package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/hotel-booking-saga/internal/payment/domain"
	"github.com/dmehra2102/hotel-booking-saga/pkg/contracts"
	"github.com/dmehra2102/hotel-booking-saga/pkg/money"
	"github.com/dmehra2102/hotel-booking-saga/pkg/pgstore"
)

type Repository struct {
	log    *slog.Logger
	pool   *pgxpool.Pool
	conn   pgstore.Conn
	outbox *pgstore.OutboxStore
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool, outbox *pgstore.OutboxStore) *Repository {
	return &Repository{log: log, pool: pool, conn: pgstore.Conn{Pool: pool}, outbox: outbox}
}

func (r *Repository) Record(ctx context.Context, p domain.Payment, out ...contracts.Message) (domain.Payment, bool, error) {
	var (
		stored  domain.Payment
		created bool
	)
	err := pgstore.WithTx(ctx, r.pool, func(ctx context.Context) error {
		tag, err := r.conn.Exec(ctx, `
			INSERT INTO payments (booking_id, transaction_id, amount, currency, status, reason, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
			ON CONFLICT (booking_id) DO NOTHING`,
			p.BookingID, nullable(p.TransactionID), p.Amount.Amount, p.Amount.Currency, string(p.Status),
			nullable(p.Reason), p.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert payment %s: %w", p.BookingID, err)
		}
		if tag.RowsAffected() == 0 {
			stored, err = r.Get(ctx, p.BookingID)
			return err
		}
		envs, err := contracts.WrapAll(out...)
		if err != nil {
			return err
		}
		stored, created = p, true
		return r.outbox.Enqueue(ctx, "payment", envs...)
	})
	if err != nil {
		return domain.Payment{}, false, err
	}
	return stored, created, nil
}

func (r *Repository) Get(ctx context.Context, bookingID string) (domain.Payment, error) {
	var (
		p               domain.Payment
		txID, reason    *string
		amount          int64
		currency, state string
	)
	err := r.conn.QueryRow(ctx, `
		SELECT booking_id, transaction_id, amount, currency, status, reason, created_at
		FROM payments WHERE booking_id=$1`, bookingID).
		Scan(&p.BookingID, &txID, &amount, &currency, &state, &reason, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Payment{}, domain.ErrPaymentNotFound
	}
	if err != nil {
		return domain.Payment{}, fmt.Errorf("get payment %s: %w", bookingID, err)
	}
	p.Amount = money.Money{Amount: amount, Currency: currency}
	p.Status = domain.Status(state)
	if txID != nil {
		p.TransactionID = *txID
	}
	if reason != nil {
		p.Reason = *reason
	}
	return p, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
