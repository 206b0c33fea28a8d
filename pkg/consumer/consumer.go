// Package consumer runs a Kafka consumer group that decodes contract
// messages, de-duplicates them, retries handler failures and parks
// exhausted messages on a dead-letter topic.
//
// Messages are fetched in batches and grouped by key. Groups run
// concurrently up to the configured limit while the messages of one group run
// in delivery order, so two messages for the same booking never overlap. The
// batch is committed once every group has finished.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/dmehra2102/hotel-booking-saga/pkg/contracts"
	"github.com/dmehra2102/hotel-booking-saga/pkg/retry"
	"github.com/dmehra2102/hotel-booking-saga/pkg/tracing"
)

// Handler processes one decoded message. A returned error is retried
// according to the consumer's policy.
type Handler func(ctx context.Context, meta Meta, msg contracts.Message) error

// Meta describes the delivery a message arrived in.
type Meta struct {
	MessageID string
	Type      string
	Key       string
	Topic     string
	Partition int
	Offset    int64
}

type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Deduper is satisfied by idempotency.Store.
type Deduper interface {
	Key(messageID string) string
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}

type Consumer struct {
	log         *slog.Logger
	name        string
	reader      Reader
	dlq         Writer
	idem        Deduper
	handler     Handler
	policy      retry.Policy
	tracer      trace.Tracer
	concurrency int
	batchSize   int
	batchWait   time.Duration
}

type Option func(*Consumer)

func WithDeduper(d Deduper) Option {
	return func(c *Consumer) { c.idem = d }
}

func WithDeadLetter(w Writer) Option {
	return func(c *Consumer) { c.dlq = w }
}

func WithPolicy(p retry.Policy) Option {
	return func(c *Consumer) { c.policy = p }
}

func WithConcurrency(n int) Option {
	return func(c *Consumer) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

func WithBatch(size int, wait time.Duration) Option {
	return func(c *Consumer) {
		if size > 0 {
			c.batchSize = size
		}
		if wait > 0 {
			c.batchWait = wait
		}
	}
}

func New(log *slog.Logger, name string, reader Reader, handler Handler, opts ...Option) *Consumer {
	c := &Consumer{
		log:         log.With("consumer", name),
		name:        name,
		reader:      reader,
		handler:     handler,
		policy:      retry.Default(),
		tracer:      otel.Tracer(name),
		concurrency: 10,
		batchSize:   50,
		batchWait:   200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewReader builds the consumer-group reader every service uses.
func NewReader(brokers []string, topic, group string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        group,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0,
		StartOffset:    kafka.FirstOffset,
	})
}

// Run consumes until ctx ends. It returns nil on cancellation and the
// underlying error when a batch could neither be processed nor parked.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()

	for {
		batch, err := c.fetchBatch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.log.Info("consumer stopping")
				return nil
			}
			return err
		}
		if err := c.ProcessBatch(ctx, batch); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := c.reader.CommitMessages(ctx, batch...); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("commit: %w", err)
		}
	}
}

func (c *Consumer) fetchBatch(ctx context.Context) ([]kafka.Message, error) {
	first, err := c.reader.FetchMessage(ctx)
	if err != nil {
		return nil, err
	}
	batch := []kafka.Message{first}

	waitCtx, cancel := context.WithTimeout(ctx, c.batchWait)
	defer cancel()
	for len(batch) < c.batchSize {
		msg, err := c.reader.FetchMessage(waitCtx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			break
		}
		batch = append(batch, msg)
	}
	return batch, nil
}

// ProcessBatch handles batch without committing it.
func (c *Consumer) ProcessBatch(ctx context.Context, batch []kafka.Message) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for _, group := range groupByKey(batch) {
		group := group // per-iteration copy; go.mod targets go1.21 loop semantics
		g.Go(func() error {
			for _, msg := range group {
				if err := c.process(gctx, msg); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func groupByKey(batch []kafka.Message) [][]kafka.Message {
	index := make(map[string]int)
	var groups [][]kafka.Message
	for _, msg := range batch {
		key := string(msg.Key)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], msg)
	}
	return groups
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) error {
	meta := Meta{
		MessageID: header(msg.Headers, contracts.HeaderMessageID),
		Type:      header(msg.Headers, contracts.HeaderEventType),
		Key:       string(msg.Key),
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
	}
	log := c.log.With("booking_id", meta.Key, "event_type", meta.Type, "message_id", meta.MessageID)

	var idemKey string
	if c.idem != nil && meta.MessageID != "" {
		idemKey = c.idem.Key(meta.MessageID)
		seen, err := c.idem.Seen(ctx, idemKey)
		if err != nil {
			log.Warn("idempotency check failed", "err", err)
		} else if seen {
			log.Info("duplicate message skipped")
			return nil
		}
	}

	msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
	msgCtx, span := c.tracer.Start(msgCtx, "Consume"+meta.Type, trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.destination", msg.Topic),
			attribute.String("booking.id", meta.Key),
		))
	defer span.End()

	decoded, err := contracts.Decode(meta.Type, msg.Value)
	if err != nil {
		log.Error("undecodable message", "err", err)
		span.RecordError(err)
		return c.deadLetter(ctx, msg, err)
	}

	err = c.policy.Do(msgCtx, func(ctx context.Context) error {
		return c.handler(ctx, meta, decoded)
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Error("message handling failed", "err", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if dlqErr := c.deadLetter(ctx, msg, err); dlqErr != nil {
			return dlqErr
		}
	}

	if idemKey != "" {
		if err := c.idem.Mark(ctx, idemKey); err != nil {
			log.Warn("idempotency mark failed", "err", err)
		}
	}
	return nil
}

func (c *Consumer) deadLetter(ctx context.Context, msg kafka.Message, cause error) error {
	if c.dlq == nil {
		c.log.Error("message dropped, no dead-letter writer", "topic", msg.Topic, "offset", msg.Offset, "err", cause)
		return nil
	}
	headers := append([]kafka.Header(nil), msg.Headers...)
	headers = append(headers,
		kafka.Header{Key: "dlq_error", Value: []byte(cause.Error())},
		kafka.Header{Key: "dlq_source_topic", Value: []byte(msg.Topic)},
	)
	dead := kafka.Message{
		Topic:   contracts.DeadLetter(msg.Topic),
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
	}
	err := retry.Default().Do(ctx, func(ctx context.Context) error {
		return c.dlq.WriteMessages(ctx, dead)
	})
	if err != nil {
		return errors.Join(fmt.Errorf("dead-letter %s: %w", dead.Topic, err), cause)
	}
	c.log.Warn("message dead-lettered", "topic", dead.Topic, "booking_id", string(msg.Key))
	return nil
}

func header(h []kafka.Header, key string) string {
	for _, hh := range h {
		if hh.Key == key {
			return string(hh.Value)
		}
	}
	return ""
}
