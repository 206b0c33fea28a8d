package integration

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/testcontainers/testcontainers-go"

	"github.com/dmehra2102/hotel-booking-saga/pkg/consumer"
	"github.com/dmehra2102/hotel-booking-saga/pkg/contracts"
	"github.com/dmehra2102/hotel-booking-saga/pkg/logging"
	"github.com/dmehra2102/hotel-booking-saga/pkg/outbox"
	"github.com/dmehra2102/hotel-booking-saga/pkg/retry"
)

// memStore hands every pending event to the relay once.
type memStore struct {
	mu      sync.Mutex
	pending []outbox.Event
	sent    []int64
}

func (s *memStore) LockBatch(context.Context, string, int, time.Duration) ([]outbox.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.pending
	s.pending = nil
	return out, nil
}

func (s *memStore) MarkSent(_ context.Context, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, ids...)
	return nil
}

func (s *memStore) MarkFailed(_ context.Context, id int64, _ string, _ time.Duration) error {
	return nil
}

func (s *memStore) MarkDead(context.Context, int64, string) error { return nil }

func createTopics(t *testing.T, broker string, topics ...string) {
	t.Helper()
	conn, err := kafka.Dial("tcp", broker)
	if err != nil {
		t.Fatalf("dial kafka: %v", err)
	}
	defer conn.Close()
	cfgs := make([]kafka.TopicConfig, 0, len(topics))
	for _, tp := range topics {
		cfgs = append(cfgs, kafka.TopicConfig{Topic: tp, NumPartitions: 3, ReplicationFactor: 1})
	}
	if err := conn.CreateTopics(cfgs...); err != nil {
		t.Fatalf("create topics: %v", err)
	}
}

func outboxEvent(t *testing.T, id int64, msg contracts.Message) outbox.Event {
	t.Helper()
	env, err := contracts.Wrap(msg)
	if err != nil {
		t.Fatal(err)
	}
	return outbox.Event{ID: id, MessageID: env.ID, AggregateType: "booking", AggregateID: env.Key, Type: env.Type, Payload: env.Payload}
}

func TestRelayToConsumer(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test skipped in -short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	k, err := StartKafka(ctx)
	if err != nil {
		t.Skipf("kafka container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = k.Terminate(context.Background()) })

	topics := contracts.Topics{Events: "it.booking.events", InventoryCommands: "it.inventory.commands", PaymentCommands: "it.payment.commands"}
	createTopics(t, k.Brokers[0], topics.Events, contracts.DeadLetter(topics.Events))

	log := logging.Discard()
	writer := outbox.NewKafkaWriter(k.Brokers)
	defer writer.Close()

	store := &memStore{pending: []outbox.Event{
		outboxEvent(t, 1, contracts.RoomHeld{BookingID: "b1", RoomHoldReference: "HOLD-1"}),
		outboxEvent(t, 2, contracts.PaymentSucceeded{BookingID: "b1", TransactionID: "PAY-1"}),
		outboxEvent(t, 3, contracts.RoomHoldFailed{BookingID: "poison", Reason: "x"}),
	}}
	relay := outbox.NewRelay(log, store, outbox.NewDispatcher(log, writer, topics), "it-relay")
	if n, err := relay.Tick(ctx); err != nil || n != 3 {
		t.Fatalf("relay tick: sent=%d err=%v", n, err)
	}

	var (
		mu  sync.Mutex
		got []string
	)
	done := make(chan struct{})
	handler := func(_ context.Context, meta consumer.Meta, msg contracts.Message) error {
		if msg.CorrelationID() == "poison" {
			return errors.New("cannot process")
		}
		mu.Lock()
		defer mu.Unlock()
		got = append(got, meta.Type)
		if len(got) == 2 {
			close(done)
		}
		return nil
	}
	c := consumer.New(log, "it-consumer", consumer.NewReader(k.Brokers, topics.Events, "it-group"), handler,
		consumer.WithDeadLetter(writer),
		consumer.WithPolicy(retry.Policy{Retries: 1, Backoff: retry.Exponential(10*time.Millisecond, 0)}),
	)
	runCtx, stop := context.WithCancel(ctx)
	runErr := make(chan error, 1)
	go func() { runErr <- c.Run(runCtx) }()

	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("timed out waiting for relayed messages")
	}

	mu.Lock()
	if got[0] != contracts.TypeRoomHeld || got[1] != contracts.TypePaymentSucceeded {
		t.Fatalf("per-booking order not preserved: %v", got)
	}
	mu.Unlock()

	dlq := kafka.NewReader(kafka.ReaderConfig{Brokers: k.Brokers, GroupID: "it-dlq", Topic: contracts.DeadLetter(topics.Events), StartOffset: kafka.FirstOffset})
	defer dlq.Close()
	dead, err := dlq.ReadMessage(ctx)
	if err != nil {
		t.Fatalf("read dead letter: %v", err)
	}
	if string(dead.Key) != "poison" {
		t.Fatalf("unexpected dead letter key %q", dead.Key)
	}

	stop()
	if err := <-runErr; err != nil {
		t.Fatalf("consumer run: %v", err)
	}
}
