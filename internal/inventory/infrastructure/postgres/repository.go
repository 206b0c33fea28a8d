package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/hotel-booking-saga/internal/inventory/domain"
	"github.com/dmehra2102/hotel-booking-saga/pkg/daterange"
	"github.com/dmehra2102/hotel-booking-saga/pkg/money"
	"github.com/dmehra2102/hotel-booking-saga/pkg/pgstore"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
	conn pgstore.Conn
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool, conn: pgstore.Conn{Pool: pool}}
}

func (r *Repository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return pgstore.WithTx(ctx, r.pool, fn)
}

const dayColumns = `hotel_id, room_type_id, day, total_rooms, available_rooms, held_rooms, booked_rooms, base_price, current_price, currency, updated_at`

func (r *Repository) GetDays(ctx context.Context, hotelID, roomTypeID string, rng daterange.Range) ([]domain.RoomInventoryDay, error) {
	return r.queryDays(ctx, `SELECT `+dayColumns+` FROM room_inventory_days
		WHERE hotel_id=$1 AND room_type_id=$2 AND day >= $3 AND day < $4
		ORDER BY day`, hotelID, roomTypeID, rng)
}

// LockDays takes row locks in date order so that concurrent holds over
// overlapping ranges cannot deadlock.
func (r *Repository) LockDays(ctx context.Context, hotelID, roomTypeID string, rng daterange.Range) ([]domain.RoomInventoryDay, error) {
	if pgstore.TxFromContext(ctx) == nil {
		return nil, errors.New("lock days outside a transaction")
	}
	return r.queryDays(ctx, `SELECT `+dayColumns+` FROM room_inventory_days
		WHERE hotel_id=$1 AND room_type_id=$2 AND day >= $3 AND day < $4
		ORDER BY day
		FOR UPDATE`, hotelID, roomTypeID, rng)
}

func (r *Repository) queryDays(ctx context.Context, sql, hotelID, roomTypeID string, rng daterange.Range) ([]domain.RoomInventoryDay, error) {
	rows, err := r.conn.Query(ctx, sql, hotelID, roomTypeID, rng.Start(), rng.End())
	if err != nil {
		return nil, fmt.Errorf("query inventory days: %w", err)
	}
	defer rows.Close()

	var days []domain.RoomInventoryDay
	for rows.Next() {
		var (
			d             domain.RoomInventoryDay
			base, current int64
			currency      string
		)
		if err := rows.Scan(&d.HotelID, &d.RoomTypeID, &d.Date, &d.TotalRooms, &d.AvailableRooms, &d.HeldRooms,
			&d.BookedRooms, &base, &current, &currency, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan inventory day: %w", err)
		}
		d.Date = daterange.Day(d.Date)
		d.BasePrice = money.Money{Amount: base, Currency: currency}
		d.CurrentPrice = money.Money{Amount: current, Currency: currency}
		days = append(days, d)
	}
	return days, rows.Err()
}

func (r *Repository) SaveDays(ctx context.Context, days ...domain.RoomInventoryDay) error {
	for _, d := range days {
		if err := d.Check(); err != nil {
			return err
		}
		_, err := r.conn.Exec(ctx, `INSERT INTO room_inventory_days (`+dayColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
			ON CONFLICT (hotel_id, room_type_id, day) DO UPDATE SET
				total_rooms=EXCLUDED.total_rooms,
				available_rooms=EXCLUDED.available_rooms,
				held_rooms=EXCLUDED.held_rooms,
				booked_rooms=EXCLUDED.booked_rooms,
				current_price=EXCLUDED.current_price,
				updated_at=EXCLUDED.updated_at`,
			d.HotelID, d.RoomTypeID, d.Date, d.TotalRooms, d.AvailableRooms, d.HeldRooms, d.BookedRooms,
			d.BasePrice.Amount, d.CurrentPrice.Amount, d.CurrentPrice.Currency, d.UpdatedAt)
		if err != nil {
			return fmt.Errorf("save inventory day %s: %w", d.Date.Format(time.DateOnly), err)
		}
	}
	return nil
}

func (r *Repository) RoomTypeCurrency(ctx context.Context, hotelID, roomTypeID string) (string, error) {
	if pgstore.TxFromContext(ctx) != nil {
		if _, err := r.conn.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1 || '/' || $2))`, hotelID, roomTypeID); err != nil {
			return "", fmt.Errorf("lock room type %s/%s: %w", hotelID, roomTypeID, err)
		}
	}
	var currency string
	err := r.conn.QueryRow(ctx, `SELECT currency FROM room_inventory_days
		WHERE hotel_id=$1 AND room_type_id=$2 LIMIT 1`, hotelID, roomTypeID).Scan(&currency)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("room type currency %s/%s: %w", hotelID, roomTypeID, err)
	}
	return currency, nil
}

const holdColumns = `id, hold_reference, booking_id, hotel_id, room_type_id, check_in, check_out, room_count,
	total_amount, currency, status, created_at, expires_at, confirmed_at, released_at, release_reason`

func (r *Repository) CreateHold(ctx context.Context, h domain.RoomHold) error {
	_, err := r.conn.Exec(ctx, `INSERT INTO room_holds (`+holdColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		h.ID, h.HoldReference, h.BookingID, h.HotelID, h.RoomTypeID, h.Dates.Start(), h.Dates.End(), h.RoomCount,
		h.TotalAmount.Amount, h.TotalAmount.Currency, string(h.Status), h.CreatedAt, h.ExpiresAt,
		h.ConfirmedAt, h.ReleasedAt, nullable(h.ReleaseReason))
	if err != nil {
		return fmt.Errorf("insert hold: %w", err)
	}
	return nil
}

func (r *Repository) UpdateHold(ctx context.Context, h domain.RoomHold) error {
	ct, err := r.conn.Exec(ctx, `UPDATE room_holds SET status=$2, confirmed_at=$3, released_at=$4, release_reason=$5 WHERE id=$1`,
		h.ID, string(h.Status), h.ConfirmedAt, h.ReleasedAt, nullable(h.ReleaseReason))
	if err != nil {
		return fmt.Errorf("update hold: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrHoldNotFound
	}
	return nil
}

func (r *Repository) LockHold(ctx context.Context, id string) (domain.RoomHold, error) {
	return r.getHold(ctx, `SELECT `+holdColumns+` FROM room_holds WHERE id=$1 FOR UPDATE`, id)
}

func (r *Repository) GetHoldByReference(ctx context.Context, ref string) (domain.RoomHold, error) {
	return r.getHold(ctx, `SELECT `+holdColumns+` FROM room_holds WHERE hold_reference=$1`, ref)
}

func (r *Repository) FindActiveHold(ctx context.Context, bookingID string) (domain.RoomHold, error) {
	return r.getHold(ctx, `SELECT `+holdColumns+` FROM room_holds WHERE booking_id=$1 AND status='Active' FOR UPDATE`, bookingID)
}

func (r *Repository) ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]string, error) {
	rows, err := r.conn.Query(ctx, `SELECT id::text FROM room_holds
		WHERE status='Active' AND expires_at <= $1
		ORDER BY expires_at
		LIMIT $2`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired holds: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (r *Repository) getHold(ctx context.Context, sql string, arg any) (domain.RoomHold, error) {
	var (
		h                 domain.RoomHold
		checkIn, checkOut time.Time
		amount            int64
		currency, status  string
		reason            *string
	)
	err := r.conn.QueryRow(ctx, sql, arg).Scan(&h.ID, &h.HoldReference, &h.BookingID, &h.HotelID, &h.RoomTypeID,
		&checkIn, &checkOut, &h.RoomCount, &amount, &currency, &status, &h.CreatedAt, &h.ExpiresAt,
		&h.ConfirmedAt, &h.ReleasedAt, &reason)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.RoomHold{}, domain.ErrHoldNotFound
	}
	if err != nil {
		return domain.RoomHold{}, fmt.Errorf("get hold: %w", err)
	}
	h.Dates, err = daterange.New(checkIn, checkOut)
	if err != nil {
		return domain.RoomHold{}, fmt.Errorf("hold %s dates: %w", h.HoldReference, err)
	}
	h.TotalAmount = money.Money{Amount: amount, Currency: currency}
	h.Status = domain.HoldStatus(status)
	if reason != nil {
		h.ReleaseReason = *reason
	}
	return h, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
