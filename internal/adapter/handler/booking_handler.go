package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/srgjo27/bookingcore/internal/core/ports"
)

type BookingHandler struct {
	svc          ports.BookingUseCase
	availability ports.AvailabilityReader
	log          *zap.Logger
}

func NewBookingHandler(svc ports.BookingUseCase, availability ports.AvailabilityReader, log *zap.Logger) *BookingHandler {
	return &BookingHandler{svc: svc, availability: availability, log: log.Named("http.booking")}
}

func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req CreateBookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	b, err := h.svc.Reserve(r.Context(), principalFrom(r.Context()).UserID, req.EventID, req.Seats)
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, toBookingResponse(b))
}

func (h *BookingHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListByUser(r.Context(), principalFrom(r.Context()).UserID)
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	out := make([]BookingResponse, len(list))
	for i := range list {
		out[i] = toBookingResponse(&list[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	b, err := h.svc.Get(r.Context(), id, principalFrom(r.Context()).UserID)
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, toBookingResponse(b))
}

func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	b, err := h.svc.Cancel(r.Context(), id, principalFrom(r.Context()).UserID)
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, toBookingResponse(b))
}

func (h *BookingHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	a, err := h.availability.Availability(r.Context(), id)
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, a)
}
