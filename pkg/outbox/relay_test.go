package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/dmehra2102/hotel-booking-saga/pkg/contracts"
	"github.com/dmehra2102/hotel-booking-saga/pkg/logging"
)

type fakeStore struct {
	mu      sync.Mutex
	pending []Event
	sent    []int64
	failed  map[int64]time.Duration
	dead    []int64
}

func (s *fakeStore) LockBatch(_ context.Context, _ string, batchSize int, _ time.Duration) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := min(batchSize, len(s.pending))
	out := append([]Event(nil), s.pending[:n]...)
	s.pending = s.pending[n:]
	return out, nil
}

func (s *fakeStore) MarkSent(_ context.Context, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, ids...)
	return nil
}

func (s *fakeStore) MarkFailed(_ context.Context, id int64, _ string, retryAfter time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failed == nil {
		s.failed = map[int64]time.Duration{}
	}
	s.failed[id] = retryAfter
	return nil
}

func (s *fakeStore) MarkDead(_ context.Context, id int64, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dead = append(s.dead, id)
	return nil
}

type fakeProducer struct {
	msgs    []kafka.Message
	failFor map[string]bool
}

func (p *fakeProducer) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		if p.failFor[string(m.Key)] {
			return errors.New("broker unavailable")
		}
	}
	p.msgs = append(p.msgs, msgs...)
	return nil
}

func headerValue(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestRelayTick(t *testing.T) {
	t.Parallel()

	topics := contracts.Topics{Events: "booking.events", InventoryCommands: "inventory.commands", PaymentCommands: "payment.commands"}

	t.Run("routes by type and marks sent", func(t *testing.T) {
		store := &fakeStore{pending: []Event{
			{ID: 1, MessageID: "m-1", AggregateID: "b-1", Type: contracts.TypeHoldRoom, Payload: []byte(`{}`), Traceparent: "00-abc-def-01"},
			{ID: 2, MessageID: "m-2", AggregateID: "b-2", Type: contracts.TypeProcessPayment, Payload: []byte(`{}`)},
		}}
		producer := &fakeProducer{}
		relay := NewRelay(logging.Discard(), store, NewDispatcher(logging.Discard(), producer, topics), "test")

		sent, err := relay.Tick(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if sent != 2 || len(store.sent) != 2 {
			t.Fatalf("expected 2 sent, got %d (%v)", sent, store.sent)
		}
		if producer.msgs[0].Topic != "inventory.commands" || producer.msgs[1].Topic != "payment.commands" {
			t.Fatalf("unexpected topics: %s, %s", producer.msgs[0].Topic, producer.msgs[1].Topic)
		}
		if got := headerValue(producer.msgs[0], contracts.HeaderEventType); got != contracts.TypeHoldRoom {
			t.Fatalf("expected event_type header, got %q", got)
		}
		if got := headerValue(producer.msgs[0], contracts.HeaderMessageID); got != "m-1" {
			t.Fatalf("expected message_id header m-1, got %q", got)
		}
		if got := headerValue(producer.msgs[0], "traceparent"); got != "00-abc-def-01" {
			t.Fatalf("expected traceparent header, got %q", got)
		}
		if string(producer.msgs[1].Key) != "b-2" {
			t.Fatalf("expected booking id as key, got %s", producer.msgs[1].Key)
		}
	})

	t.Run("reschedules with backoff then dead-letters", func(t *testing.T) {
		store := &fakeStore{pending: []Event{
			{ID: 7, AggregateID: "b-down", Type: contracts.TypeReleaseRoom, RetryCount: 0},
			{ID: 8, AggregateID: "b-down", Type: contracts.TypeReleaseRoom, RetryCount: 3},
		}}
		producer := &fakeProducer{failFor: map[string]bool{"b-down": true}}
		relay := NewRelay(logging.Discard(), store, NewDispatcher(logging.Discard(), producer, topics), "test", WithMaxAttempts(4))

		if _, err := relay.Tick(context.Background()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := store.failed[7]; got != 500*time.Millisecond {
			t.Fatalf("expected first retry after 500ms, got %s", got)
		}
		if len(store.dead) != 1 || store.dead[0] != 8 {
			t.Fatalf("expected event 8 dead-lettered, got %v", store.dead)
		}
		if len(store.sent) != 0 {
			t.Fatalf("expected nothing sent, got %v", store.sent)
		}
	})
}
