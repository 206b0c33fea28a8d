package domain

import (
	"fmt"
	"time"

	"github.com/dmehra2102/hotel-booking-saga/pkg/money"
)

// RoomInventoryDay is the capacity of one room type at one hotel on one
// night. Available, held and booked always add up to total.
type RoomInventoryDay struct {
	HotelID        string
	RoomTypeID     string
	Date           time.Time
	TotalRooms     int
	AvailableRooms int
	HeldRooms      int
	BookedRooms    int
	BasePrice      money.Money
	CurrentPrice   money.Money
	UpdatedAt      time.Time
}

func NewInventoryDay(hotelID, roomTypeID string, date time.Time, total int, price money.Money) (RoomInventoryDay, error) {
	if total < 0 {
		return RoomInventoryDay{}, fmt.Errorf("%w: total rooms cannot be negative", ErrValidation)
	}
	return RoomInventoryDay{
		HotelID:        hotelID,
		RoomTypeID:     roomTypeID,
		Date:           date,
		TotalRooms:     total,
		AvailableRooms: total,
		BasePrice:      price,
		CurrentPrice:   price,
	}, nil
}

func (d *RoomInventoryDay) Hold(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: room count must be positive", ErrValidation)
	}
	if d.AvailableRooms < n {
		return fmt.Errorf("%w: %s has %d available, %d requested", ErrInsufficientInventory, d.Date.Format(time.DateOnly), d.AvailableRooms, n)
	}
	d.AvailableRooms -= n
	d.HeldRooms += n
	return d.Check()
}

func (d *RoomInventoryDay) Release(n int) error {
	if d.HeldRooms < n {
		return fmt.Errorf("%w: release of %d rooms on %s with %d held", ErrInvariant, n, d.Date.Format(time.DateOnly), d.HeldRooms)
	}
	d.HeldRooms -= n
	d.AvailableRooms += n
	return d.Check()
}

func (d *RoomInventoryDay) Confirm(n int) error {
	if d.HeldRooms < n {
		return fmt.Errorf("%w: confirm of %d rooms on %s with %d held", ErrInvariant, n, d.Date.Format(time.DateOnly), d.HeldRooms)
	}
	d.HeldRooms -= n
	d.BookedRooms += n
	return d.Check()
}

// SetCapacity changes the total and moves the difference into or out of
// available. Rooms already held or booked cannot be removed.
func (d *RoomInventoryDay) SetCapacity(total int) error {
	if total < d.HeldRooms+d.BookedRooms {
		return fmt.Errorf("%w: capacity %d is below %d held and %d booked rooms", ErrValidation, total, d.HeldRooms, d.BookedRooms)
	}
	d.AvailableRooms += total - d.TotalRooms
	d.TotalRooms = total
	return d.Check()
}

func (d RoomInventoryDay) Check() error {
	if d.AvailableRooms < 0 || d.HeldRooms < 0 || d.BookedRooms < 0 {
		return fmt.Errorf("%w: negative counter on %s", ErrInvariant, d.Date.Format(time.DateOnly))
	}
	if d.AvailableRooms+d.HeldRooms+d.BookedRooms != d.TotalRooms {
		return fmt.Errorf("%w: %d+%d+%d != %d on %s", ErrInvariant,
			d.AvailableRooms, d.HeldRooms, d.BookedRooms, d.TotalRooms, d.Date.Format(time.DateOnly))
	}
	return nil
}
