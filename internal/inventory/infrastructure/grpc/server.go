package grpc

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dmehra2102/hotel-booking-saga/internal/inventory/application"
	"github.com/dmehra2102/hotel-booking-saga/internal/inventory/domain"
	"github.com/dmehra2102/hotel-booking-saga/pkg/daterange"
	"github.com/dmehra2102/hotel-booking-saga/pkg/money"
)

type Server struct {
	log    *slog.Logger
	engine *application.Engine
	tracer trace.Tracer
}

func NewServer(log *slog.Logger, engine *application.Engine) *Server {
	return &Server{log: log, engine: engine, tracer: otel.Tracer("inventory-grpc")}
}

func (s *Server) CheckAvailability(ctx context.Context, req *AvailabilityRequest) (*AvailabilityResponse, error) {
	ctx, span := s.tracer.Start(ctx, "CheckAvailability")
	defer span.End()

	if req.HotelID == "" || req.RoomTypeID == "" {
		return nil, status.Error(codes.InvalidArgument, "hotelId and roomTypeId are required")
	}
	dates, err := daterange.Parse(req.CheckIn, req.CheckOut)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid stay: %v", err)
	}
	rooms := req.Rooms
	if rooms <= 0 {
		rooms = 1
	}

	av, err := s.engine.Availability(ctx, req.HotelID, req.RoomTypeID, dates, rooms)
	if err != nil {
		s.log.Error("availability check failed", "hotel_id", req.HotelID, "room_type_id", req.RoomTypeID, "err", err)
		return nil, status.Error(codes.Internal, "availability check failed")
	}
	return &AvailabilityResponse{
		Available:    av.Available,
		MinAvailable: av.MinAvailable,
		Nights:       dates.Nights(),
		Amount:       av.Quote.Amount,
		Currency:     av.Quote.Currency,
	}, nil
}

func (s *Server) SetCapacity(ctx context.Context, req *SetCapacityRequest) (*SetCapacityResponse, error) {
	ctx, span := s.tracer.Start(ctx, "SetCapacity")
	defer span.End()

	date, err := time.Parse(time.DateOnly, req.Date)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid date: %v", err)
	}
	currency := req.Currency
	if currency == "" {
		currency = money.DefaultCurrency
	}
	price, err := money.New(req.Price, currency)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid price: %v", err)
	}

	day, err := s.engine.SetCapacity(ctx, req.HotelID, req.RoomTypeID, date, req.TotalRooms, price)
	switch {
	case errors.Is(err, domain.ErrValidation):
		return nil, status.Error(codes.FailedPrecondition, err.Error())
	case err != nil:
		s.log.Error("set capacity failed", "hotel_id", req.HotelID, "room_type_id", req.RoomTypeID, "err", err)
		return nil, status.Error(codes.Internal, "set capacity failed")
	}
	s.log.Info("capacity set", "hotel_id", req.HotelID, "room_type_id", req.RoomTypeID, "date", req.Date, "total", day.TotalRooms)
	return &SetCapacityResponse{
		TotalRooms:     day.TotalRooms,
		AvailableRooms: day.AvailableRooms,
		HeldRooms:      day.HeldRooms,
		BookedRooms:    day.BookedRooms,
	}, nil
}

func Run(addr string, srv *Server) (*grpc.Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	gs := grpc.NewServer(grpc.ChainUnaryInterceptor(recoverInterceptor(srv.log)))
	RegisterInventoryServiceServer(gs, srv)
	go func() {
		if err := gs.Serve(lis); err != nil {
			srv.log.Error("grpc server stopped", "err", err)
		}
	}()
	return gs, nil
}

// recoverInterceptor turns a handler panic into codes.Internal so one bad
// request cannot take the server down.
func recoverInterceptor(log *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("grpc handler panicked", "method", info.FullMethod, "panic", r)
				err = status.Error(codes.Internal, "internal error")
			}
		}()
		return handler(ctx, req)
	}
}
