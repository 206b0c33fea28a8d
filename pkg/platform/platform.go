// Package platform opens the infrastructure every service shares: Postgres,
// Redis, the Kafka writer and the tracer provider.
package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/dmehra2102/hotel-booking-saga/migrations"
	"github.com/dmehra2102/hotel-booking-saga/pkg/config"
	"github.com/dmehra2102/hotel-booking-saga/pkg/consumer"
	"github.com/dmehra2102/hotel-booking-saga/pkg/contracts"
	"github.com/dmehra2102/hotel-booking-saga/pkg/idempotency"
	"github.com/dmehra2102/hotel-booking-saga/pkg/outbox"
	"github.com/dmehra2102/hotel-booking-saga/pkg/pgstore"
	"github.com/dmehra2102/hotel-booking-saga/pkg/retry"
	"github.com/dmehra2102/hotel-booking-saga/pkg/tracing"
)

type Platform struct {
	Service string
	Log     *slog.Logger
	Pool    *pgxpool.Pool
	Redis   *redis.Client
	Writer  *kafka.Writer
	Tracer  *sdktrace.TracerProvider

	cfg config.Common
}

func Open(ctx context.Context, service string, cfg config.Common, log *slog.Logger) (*Platform, error) {
	p := &Platform{Service: service, Log: log, cfg: cfg}

	tp, err := tracing.Init(ctx, service, cfg.Tracing.Endpoint, log)
	if err != nil {
		return nil, fmt.Errorf("otel init: %w", err)
	}
	p.Tracer = tp

	pgCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("parse pg url: %w", err)
	}
	if cfg.Database.MaxConns > 0 {
		pgCfg.MaxConns = cfg.Database.MaxConns
	}
	if p.Pool, err = pgxpool.NewWithConfig(ctx, pgCfg); err != nil {
		return nil, fmt.Errorf("pg connect: %w", err)
	}
	if err := p.Pool.Ping(ctx); err != nil {
		p.Close(ctx)
		return nil, fmt.Errorf("pg ping: %w", err)
	}
	if cfg.Database.Migrate {
		if err := migrations.Apply(ctx, p.Pool); err != nil {
			p.Close(ctx)
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	p.Redis = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	p.Writer = outbox.NewKafkaWriter(cfg.Kafka.Brokers)
	return p, nil
}

// OutboxStore returns the store for this service's outbox table.
func (p *Platform) OutboxStore(table string) *pgstore.OutboxStore {
	return pgstore.NewOutboxStore(p.Log, p.Pool, table, p.Service)
}

func (p *Platform) Relay(store outbox.Store) *outbox.Relay {
	dispatch := outbox.NewDispatcher(p.Log, p.Writer, p.cfg.Topics)
	return outbox.NewRelay(p.Log, store, dispatch, p.Service+"-relay",
		outbox.WithInterval(p.cfg.Outbox.Interval),
		outbox.WithBatchSize(p.cfg.Outbox.BatchSize),
		outbox.WithMaxAttempts(p.cfg.Outbox.MaxAttempts),
	)
}

// ConsumerOptions wires de-duplication, retries and the dead-letter topic.
func (p *Platform) ConsumerOptions() []consumer.Option {
	policy := retry.Default()
	policy.Retries = p.cfg.Consumer.Retries
	return []consumer.Option{
		consumer.WithDeduper(idempotency.NewStore(p.Redis, p.cfg.Redis.IdempotencyTTL, p.Service)),
		consumer.WithDeadLetter(p.Writer),
		consumer.WithPolicy(policy),
		consumer.WithConcurrency(p.cfg.Consumer.Concurrency),
		consumer.WithBatch(p.cfg.Consumer.BatchSize, p.cfg.Consumer.BatchWait),
	}
}

func (p *Platform) Topics() contracts.Topics { return p.cfg.Topics }

func (p *Platform) Brokers() []string { return p.cfg.Kafka.Brokers }

func (p *Platform) Close(ctx context.Context) {
	var errs []error
	if p.Writer != nil {
		errs = append(errs, p.Writer.Close())
	}
	if p.Redis != nil {
		errs = append(errs, p.Redis.Close())
	}
	if p.Pool != nil {
		p.Pool.Close()
	}
	if p.Tracer != nil {
		errs = append(errs, p.Tracer.Shutdown(ctx))
	}
	if err := errors.Join(errs...); err != nil {
		p.Log.Warn("shutdown", "err", err)
	}
}
