package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/dmehra2102/hotel-booking-saga/pkg/money"
)

func newDay(t *testing.T, total int) RoomInventoryDay {
	t.Helper()
	d, err := NewInventoryDay("h1", "rt1", time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), total, money.MustNew(10000, "USD"))
	if err != nil {
		t.Fatalf("new day: %v", err)
	}
	return d
}

func TestInventoryDay_CountersStayBalanced(t *testing.T) {
	d := newDay(t, 5)

	steps := []struct {
		name string
		op   func() error
		want [3]int
	}{
		{"hold 2", func() error { return d.Hold(2) }, [3]int{3, 2, 0}},
		{"confirm 1", func() error { return d.Confirm(1) }, [3]int{3, 1, 1}},
		{"release 1", func() error { return d.Release(1) }, [3]int{4, 0, 1}},
		{"grow to 8", func() error { return d.SetCapacity(8) }, [3]int{7, 0, 1}},
		{"shrink to 1", func() error { return d.SetCapacity(1) }, [3]int{0, 0, 1}},
	}
	for _, s := range steps {
		if err := s.op(); err != nil {
			t.Fatalf("%s: %v", s.name, err)
		}
		got := [3]int{d.AvailableRooms, d.HeldRooms, d.BookedRooms}
		if got != s.want {
			t.Fatalf("%s: expected %v, got %v", s.name, s.want, got)
		}
		if err := d.Check(); err != nil {
			t.Fatalf("%s: %v", s.name, err)
		}
	}
}

func TestInventoryDay_Rejections(t *testing.T) {
	t.Run("hold more than available", func(t *testing.T) {
		d := newDay(t, 3)
		if err := d.Hold(4); !errors.Is(err, ErrInsufficientInventory) {
			t.Fatalf("expected ErrInsufficientInventory, got %v", err)
		}
		if d.AvailableRooms != 3 || d.HeldRooms != 0 {
			t.Fatalf("expected counters unchanged, got %+v", d)
		}
	})
	t.Run("release more than held", func(t *testing.T) {
		d := newDay(t, 3)
		if err := d.Release(1); !errors.Is(err, ErrInvariant) {
			t.Fatalf("expected ErrInvariant, got %v", err)
		}
	})
	t.Run("capacity below committed rooms", func(t *testing.T) {
		d := newDay(t, 3)
		_ = d.Hold(2)
		if err := d.SetCapacity(1); !errors.Is(err, ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
		if d.TotalRooms != 3 {
			t.Fatalf("expected total unchanged, got %d", d.TotalRooms)
		}
	})
	t.Run("non-positive hold", func(t *testing.T) {
		d := newDay(t, 3)
		if err := d.Hold(0); !errors.Is(err, ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
	})
}
