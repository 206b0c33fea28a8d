package consumer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/dmehra2102/hotel-booking-saga/pkg/contracts"
	"github.com/dmehra2102/hotel-booking-saga/pkg/logging"
	"github.com/dmehra2102/hotel-booking-saga/pkg/retry"
)

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return nil
}

type fakeDeduper struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (d *fakeDeduper) Key(id string) string { return "idem:test:" + id }

func (d *fakeDeduper) Seen(_ context.Context, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seen[key], nil
}

func (d *fakeDeduper) Mark(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen == nil {
		d.seen = map[string]bool{}
	}
	d.seen[key] = true
	return nil
}

func message(t *testing.T, m contracts.Message) kafka.Message {
	t.Helper()
	env, err := contracts.Wrap(m)
	if err != nil {
		t.Fatalf("wrap: %v", err)
	}
	return kafka.Message{
		Topic: "booking.events",
		Key:   []byte(env.Key),
		Value: env.Payload,
		Headers: []kafka.Header{
			{Key: contracts.HeaderEventType, Value: []byte(env.Type)},
			{Key: contracts.HeaderMessageID, Value: []byte(env.ID)},
		},
	}
}

func fastPolicy(retries int) retry.Policy {
	return retry.Policy{Retries: retries, Backoff: func(int) time.Duration { return time.Millisecond }}
}

func TestProcessBatch_PreservesOrderPerKey(t *testing.T) {
	var mu sync.Mutex
	got := map[string][]string{}

	h := func(_ context.Context, meta Meta, msg contracts.Message) error {
		mu.Lock()
		defer mu.Unlock()
		got[meta.Key] = append(got[meta.Key], msg.MessageType())
		return nil
	}
	c := New(logging.Discard(), "test", nil, h, WithConcurrency(4))

	batch := []kafka.Message{
		message(t, contracts.RoomHeld{BookingID: "b1"}),
		message(t, contracts.RoomHeld{BookingID: "b2"}),
		message(t, contracts.PaymentSucceeded{BookingID: "b1"}),
		message(t, contracts.RoomHoldFailed{BookingID: "b2"}),
		message(t, contracts.RoomConfirmed{BookingID: "b1"}),
	}
	if err := c.ProcessBatch(context.Background(), batch); err != nil {
		t.Fatalf("process batch: %v", err)
	}

	want := map[string][]string{
		"b1": {contracts.TypeRoomHeld, contracts.TypePaymentSucceeded, contracts.TypeRoomConfirmed},
		"b2": {contracts.TypeRoomHeld, contracts.TypeRoomHoldFailed},
	}
	for key, types := range want {
		if len(got[key]) != len(types) {
			t.Fatalf("key %s: expected %v, got %v", key, types, got[key])
		}
		for i := range types {
			if got[key][i] != types[i] {
				t.Fatalf("key %s: expected %v, got %v", key, types, got[key])
			}
		}
	}
}

func TestProcessBatch_BoundsConcurrency(t *testing.T) {
	var running, peak int32
	h := func(context.Context, Meta, contracts.Message) error {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return nil
	}
	c := New(logging.Discard(), "test", nil, h, WithConcurrency(2))

	var batch []kafka.Message
	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		batch = append(batch, message(t, contracts.RoomHeld{BookingID: id}))
	}
	if err := c.ProcessBatch(context.Background(), batch); err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if peak > 2 {
		t.Fatalf("expected at most 2 concurrent handlers, got %d", peak)
	}
}

func TestProcess_RetriesThenDeadLetters(t *testing.T) {
	var calls int32
	h := func(context.Context, Meta, contracts.Message) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("db down")
	}
	dlq := &fakeWriter{}
	c := New(logging.Discard(), "test", nil, h, WithPolicy(fastPolicy(3)), WithDeadLetter(dlq))

	if err := c.ProcessBatch(context.Background(), []kafka.Message{message(t, contracts.RoomHeld{BookingID: "b1"})}); err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if calls != 4 {
		t.Fatalf("expected 4 attempts, got %d", calls)
	}
	if len(dlq.msgs) != 1 {
		t.Fatalf("expected 1 dead-lettered message, got %d", len(dlq.msgs))
	}
	if dlq.msgs[0].Topic != "booking.events.dlq" {
		t.Fatalf("expected dlq topic, got %s", dlq.msgs[0].Topic)
	}
	if string(dlq.msgs[0].Key) != "b1" {
		t.Fatalf("expected key b1, got %s", dlq.msgs[0].Key)
	}
}

func TestProcess_UndecodableGoesStraightToDeadLetter(t *testing.T) {
	var calls int32
	h := func(context.Context, Meta, contracts.Message) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}
	dlq := &fakeWriter{}
	c := New(logging.Discard(), "test", nil, h, WithDeadLetter(dlq))

	msg := kafka.Message{
		Topic:   "inventory.commands",
		Key:     []byte("b1"),
		Value:   []byte(`{}`),
		Headers: []kafka.Header{{Key: contracts.HeaderEventType, Value: []byte("Bogus")}},
	}
	if err := c.ProcessBatch(context.Background(), []kafka.Message{msg}); err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected handler not called, got %d calls", calls)
	}
	if len(dlq.msgs) != 1 || dlq.msgs[0].Topic != "inventory.commands.dlq" {
		t.Fatalf("expected message parked on inventory.commands.dlq, got %+v", dlq.msgs)
	}
}

func TestProcess_SkipsRedeliveredMessage(t *testing.T) {
	var calls int32
	h := func(context.Context, Meta, contracts.Message) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}
	c := New(logging.Discard(), "test", nil, h, WithDeduper(&fakeDeduper{}))

	msg := message(t, contracts.PaymentSucceeded{BookingID: "b1"})
	for i := 0; i < 2; i++ {
		if err := c.ProcessBatch(context.Background(), []kafka.Message{msg}); err != nil {
			t.Fatalf("process batch: %v", err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected 1 handler call, got %d", calls)
	}
}
