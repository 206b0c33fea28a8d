package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/hotel-booking-saga/internal/booking/application"
	"github.com/dmehra2102/hotel-booking-saga/internal/booking/domain"
	"github.com/dmehra2102/hotel-booking-saga/pkg/money"
)

type BookingService interface {
	RequestBooking(ctx context.Context, req application.BookingRequest) (application.Accepted, error)
	Status(ctx context.Context, bookingID string) (domain.StatusView, error)
}

type Handler struct {
	log     *slog.Logger
	service BookingService
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service BookingService) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("booking-http"),
	}
}

type createBookingReq struct {
	HotelID        string `json:"hotelId"`
	RoomTypeID     string `json:"roomTypeId"`
	GuestEmail     string `json:"guestEmail"`
	CheckInDate    string `json:"checkInDate"`
	CheckOutDate   string `json:"checkOutDate"`
	NumberOfGuests int    `json:"numberOfGuests"`
}

type createBookingResp struct {
	BookingID  string      `json:"bookingId"`
	Status     string      `json:"status"`
	TotalPrice money.Money `json:"totalPrice"`
	Nights     int         `json:"numberOfNights"`
	Message    string      `json:"message"`
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Post("/bookings", h.createBooking)
	r.Get("/bookings/{id}", h.getBooking)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	return r
}

func (h *Handler) createBooking(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := h.tracer.Start(ctx, "CreateBooking")
	defer span.End()

	var req createBookingReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	checkIn, err1 := time.Parse(time.DateOnly, req.CheckInDate)
	checkOut, err2 := time.Parse(time.DateOnly, req.CheckOutDate)
	if err := errors.Join(err1, err2); err != nil {
		writeError(w, http.StatusBadRequest, "dates must use the YYYY-MM-DD format")
		return
	}

	acc, err := h.service.RequestBooking(ctx, application.BookingRequest{
		HotelID:        req.HotelID,
		RoomTypeID:     req.RoomTypeID,
		GuestEmail:     req.GuestEmail,
		CheckIn:        checkIn,
		CheckOut:       checkOut,
		NumberOfGuests: req.NumberOfGuests,
	})
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, application.ErrRoomUnavailable):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		h.log.Error("booking request failed", "hotel_id", req.HotelID, "err", err)
		writeError(w, http.StatusInternalServerError, "booking request failed")
		return
	}

	writeJSON(w, http.StatusAccepted, createBookingResp{
		BookingID:  acc.BookingID,
		Status:     string(domain.StateSubmitted),
		TotalPrice: acc.TotalPrice,
		Nights:     acc.Nights,
		Message:    "Booking request accepted and is being processed",
	})
}

func (h *Handler) getBooking(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	view, err := h.service.Status(r.Context(), id)
	if errors.Is(err, domain.ErrSagaNotFound) {
		writeError(w, http.StatusNotFound, "booking not found")
		return
	}
	if err != nil {
		h.log.Error("booking status failed", "booking_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "booking status failed")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
