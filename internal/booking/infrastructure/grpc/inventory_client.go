package grpc

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/dmehra2102/hotel-booking-saga/internal/booking/application"
	invgrpc "github.com/dmehra2102/hotel-booking-saga/internal/inventory/infrastructure/grpc"
	"github.com/dmehra2102/hotel-booking-saga/pkg/daterange"
	"github.com/dmehra2102/hotel-booking-saga/pkg/money"
)

const quoteTimeout = 3 * time.Second

type InventoryClient struct {
	log  *slog.Logger
	conn *grpc.ClientConn
	cc   invgrpc.InventoryServiceClient
}

func NewInventoryClient(log *slog.Logger, addr string) (*InventoryClient, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	return &InventoryClient{
		log:  log,
		conn: conn,
		cc:   invgrpc.NewInventoryServiceClient(conn),
	}, nil
}

func (c *InventoryClient) Quote(ctx context.Context, hotelID, roomTypeID string, dates daterange.Range, rooms int) (application.Quote, error) {
	ctx, cancel := context.WithTimeout(ctx, quoteTimeout)
	defer cancel()

	resp, err := c.cc.CheckAvailability(ctx, &invgrpc.AvailabilityRequest{
		HotelID:    hotelID,
		RoomTypeID: roomTypeID,
		CheckIn:    dates.Start().Format(time.DateOnly),
		CheckOut:   dates.End().Format(time.DateOnly),
		Rooms:      rooms,
	})
	if err != nil {
		return application.Quote{}, err
	}
	return application.Quote{
		Available:    resp.Available,
		MinAvailable: resp.MinAvailable,
		Total:        money.Money{Amount: resp.Amount, Currency: resp.Currency},
	}, nil
}

func (c *InventoryClient) Close() error {
	return c.conn.Close()
}
