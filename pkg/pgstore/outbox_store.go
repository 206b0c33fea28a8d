package pgstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/hotel-booking-saga/pkg/contracts"
	"github.com/dmehra2102/hotel-booking-saga/pkg/outbox"
	"github.com/dmehra2102/hotel-booking-saga/pkg/tracing"
)

// OutboxStore persists outgoing messages of one service in its own outbox
// table (booking_outbox, inventory_outbox, payment_outbox).
type OutboxStore struct {
	log    *slog.Logger
	conn   Conn
	table  string
	source string
}

var (
	_ outbox.Writer = (*OutboxStore)(nil)
	_ outbox.Store  = (*OutboxStore)(nil)
)

func NewOutboxStore(log *slog.Logger, pool *pgxpool.Pool, table, source string) *OutboxStore {
	return &OutboxStore{log: log, conn: Conn{Pool: pool}, table: pgx.Identifier{table}.Sanitize(), source: source}
}

func (s *OutboxStore) Enqueue(ctx context.Context, aggregateType string, envs ...contracts.Envelope) error {
	if len(envs) == 0 {
		return nil
	}
	traceparent := tracing.Traceparent(ctx)
	headers := map[string]string{"source": s.source}

	stmt := fmt.Sprintf(`INSERT INTO %s (message_id, aggregate_type, aggregate_id, type, payload, headers, traceparent, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,'pending')`, s.table)
	for _, env := range envs {
		if _, err := s.conn.Exec(ctx, stmt, env.ID, aggregateType, env.Key, env.Type, env.Payload, headers, traceparent); err != nil {
			return fmt.Errorf("enqueue %s: %w", env.Type, err)
		}
	}
	return nil
}

func (s *OutboxStore) LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration) ([]outbox.Event, error) {
	var events []outbox.Event
	err := WithTx(ctx, s.conn.Pool, func(txCtx context.Context) error {
		rows, err := s.conn.Query(txCtx, fmt.Sprintf(`
			SELECT id, message_id, aggregate_type, aggregate_id, type, payload, headers, traceparent, created_at, retry_count
			FROM %s
			WHERE (status = 'pending' AND next_attempt_at <= now())
			   OR (status = 'in_progress' AND lease_until < now())
			ORDER BY id
			FOR UPDATE SKIP LOCKED
			LIMIT $1`, s.table), batchSize)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var event outbox.Event
			var headers map[string]string
			if err := rows.Scan(&event.ID, &event.MessageID, &event.AggregateType, &event.AggregateID, &event.Type,
				&event.Payload, &headers, &event.Traceparent, &event.CreatedAt, &event.RetryCount); err != nil {
				return err
			}
			event.Headers = headers
			event.Status = outbox.StatusInProgress
			event.RelayID = relayID
			events = append(events, event)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		ids := make([]int64, 0, len(events))
		for _, ev := range events {
			ids = append(ids, ev.ID)
		}
		_, err = s.conn.Exec(txCtx, fmt.Sprintf(`UPDATE %s SET status='in_progress', relay_id=$1, lease_until=now() + $2::interval WHERE id = ANY($3)`, s.table),
			relayID, lease.String(), ids)
		return err
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (s *OutboxStore) MarkSent(ctx context.Context, ids []int64) error {
	ct, err := s.conn.Exec(ctx, fmt.Sprintf(`UPDATE %s SET status='sent', sent_at=now() WHERE id = ANY($1)`, s.table), ids)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errors.New("no rows updated")
	}
	return nil
}

func (s *OutboxStore) MarkFailed(ctx context.Context, id int64, errMsg string, retryAfter time.Duration) error {
	_, err := s.conn.Exec(ctx, fmt.Sprintf(`UPDATE %s SET status='pending', last_error=$2, retry_count=retry_count+1,
		next_attempt_at=now() + $3::interval WHERE id=$1`, s.table), id, errMsg, retryAfter.String())
	return err
}

func (s *OutboxStore) MarkDead(ctx context.Context, id int64, errMsg string) error {
	_, err := s.conn.Exec(ctx, fmt.Sprintf(`UPDATE %s SET status='dead', last_error=$2, retry_count=retry_count+1 WHERE id=$1`, s.table), id, errMsg)
	return err
}
