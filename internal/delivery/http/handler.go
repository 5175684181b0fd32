package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/go-chi/chi/v5"
	"github.com/vogiaan1904/transit-reservation/internal/service"
	"github.com/vogiaan1904/transit-reservation/pkg/logger"
)

type HTTPHandler struct {
	trips     service.TripService
	holds     service.HoldService
	payments  service.PaymentService
	tickets   service.TicketService
	transfers service.TransferService
	cancels   service.CancellationService
	bookings  service.RoundTripService
	sweeper   service.HoldSweeper
	l         logger.Logger
	validator *validator.Validate
}

func NewHTTPHandler(
	trips service.TripService,
	holds service.HoldService,
	payments service.PaymentService,
	tickets service.TicketService,
	transfers service.TransferService,
	cancels service.CancellationService,
	bookings service.RoundTripService,
	sweeper service.HoldSweeper,
	l logger.Logger,
) *HTTPHandler {
	return &HTTPHandler{
		trips:     trips,
		holds:     holds,
		payments:  payments,
		tickets:   tickets,
		transfers: transfers,
		cancels:   cancels,
		bookings:  bookings,
		sweeper:   sweeper,
		l:         l,
		validator: validator.New(),
	}
}

// HealthCheck handles health check requests
func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "healthy",
		"service": "transit-reservation",
		"version": "1.0.0",
	}
	h.respondJSON(w, http.StatusOK, response)
}

// SweeperStatus exposes the background sweeper's counters.
func (h *HTTPHandler) SweeperStatus(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.sweeper.Status())
}

// CreateHold handles seat hold requests
func (h *HTTPHandler) CreateHold(w http.ResponseWriter, r *http.Request) {
	var req service.CreateHoldInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Validation failed", err)
		return
	}

	hold, err := h.holds.CreateHold(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSeatUnavailable):
			h.respondError(w, r, http.StatusConflict, "One or more requested seats are not available", err)
		case errors.Is(err, service.ErrTripNotFound):
			h.respondError(w, r, http.StatusNotFound, "Trip not found", err)
		case errors.Is(err, service.ErrTripNotBookable):
			h.respondError(w, r, http.StatusConflict, "Trip is not open for booking", err)
		case errors.Is(err, service.ErrInvalidHoldRequest):
			h.respondError(w, r, http.StatusBadRequest, "Invalid hold request", err)
		default:
			h.l.Errorf(r.Context(), "Failed to create hold: %v", err)
			h.respondError(w, r, http.StatusInternalServerError, "Failed to create hold", err)
		}
		return
	}

	h.respondJSON(w, http.StatusCreated, newHoldResponse(hold))
}

// GetHold handles hold status requests
func (h *HTTPHandler) GetHold(w http.ResponseWriter, r *http.Request) {
	holdID := chi.URLParam(r, "holdID")
	if holdID == "" {
		h.respondError(w, r, http.StatusBadRequest, "Hold ID is required", nil)
		return
	}

	hold, err := h.holds.GetHold(r.Context(), holdID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrHoldNotFound):
			h.respondError(w, r, http.StatusNotFound, "Hold not found", err)
		default:
			h.l.Errorf(r.Context(), "Failed to get hold: %v", err)
			h.respondError(w, r, http.StatusInternalServerError, "Failed to get hold", err)
		}
		return
	}

	h.respondJSON(w, http.StatusOK, newHoldResponse(hold))
}

// CancelHold handles explicit hold release requests
func (h *HTTPHandler) CancelHold(w http.ResponseWriter, r *http.Request) {
	holdID := chi.URLParam(r, "holdID")
	if holdID == "" {
		h.respondError(w, r, http.StatusBadRequest, "Hold ID is required", nil)
		return
	}

	if err := h.holds.CancelHold(r.Context(), holdID); err != nil {
		switch {
		case errors.Is(err, service.ErrHoldNotFound):
			h.respondError(w, r, http.StatusNotFound, "Hold not found", err)
		case errors.Is(err, service.ErrHoldAlreadyConsumed):
			h.respondError(w, r, http.StatusConflict, "Hold has already been paid", err)
		case errors.Is(err, service.ErrHoldExpired):
			h.respondError(w, r, http.StatusGone, "Hold is no longer active", err)
		default:
			h.l.Errorf(r.Context(), "Failed to cancel hold: %v", err)
			h.respondError(w, r, http.StatusInternalServerError, "Failed to cancel hold", err)
		}
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"hold_id": holdID,
		"message": "Hold released",
	})
}

// ConfirmPayment handles payment confirmation requests
func (h *HTTPHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var req service.ConfirmPaymentInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Validation failed", err)
		return
	}

	tickets, err := h.payments.ConfirmPayment(r.Context(), req)
	if err != nil {
		h.respondPaymentError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, newTicketListResponse(tickets))
}

// BookRoundTrip handles round-trip booking requests
func (h *HTTPHandler) BookRoundTrip(w http.ResponseWriter, r *http.Request) {
	var req service.BookRoundTripInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Validation failed", err)
		return
	}

	out, err := h.bookings.BookRoundTrip(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSeatUnavailable):
			h.respondError(w, r, http.StatusConflict, "One or more requested seats are not available", err)
		case errors.Is(err, service.ErrTripNotFound):
			h.respondError(w, r, http.StatusNotFound, "Trip not found", err)
		case errors.Is(err, service.ErrTripNotBookable):
			h.respondError(w, r, http.StatusConflict, "Trip is not open for booking", err)
		case errors.Is(err, service.ErrInvalidHoldRequest):
			h.respondError(w, r, http.StatusBadRequest, "Invalid booking request", err)
		default:
			h.l.Errorf(r.Context(), "Failed to book round trip: %v", err)
			h.respondError(w, r, http.StatusInternalServerError, "Failed to book round trip", err)
		}
		return
	}

	h.respondJSON(w, http.StatusCreated, newRoundTripResponse(out))
}

// ConfirmBooking handles round-trip payment confirmation requests
func (h *HTTPHandler) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingID")
	if bookingID == "" {
		h.respondError(w, r, http.StatusBadRequest, "Booking ID is required", nil)
		return
	}

	var req service.ConfirmBookingInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	req.BookingID = bookingID

	if err := h.validator.Struct(req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Validation failed", err)
		return
	}

	tickets, err := h.bookings.ConfirmBooking(r.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrBookingNotFound) {
			h.respondError(w, r, http.StatusNotFound, "Booking not found", err)
			return
		}
		h.respondPaymentError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, newTicketListResponse(tickets))
}

// GetBooking handles round-trip booking lookup requests
func (h *HTTPHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingID")
	if bookingID == "" {
		h.respondError(w, r, http.StatusBadRequest, "Booking ID is required", nil)
		return
	}

	booking, err := h.bookings.GetBooking(r.Context(), bookingID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBookingNotFound):
			h.respondError(w, r, http.StatusNotFound, "Booking not found", err)
		default:
			h.l.Errorf(r.Context(), "Failed to get booking: %v", err)
			h.respondError(w, r, http.StatusInternalServerError, "Failed to get booking", err)
		}
		return
	}

	h.respondJSON(w, http.StatusOK, booking)
}

// respondPaymentError maps the shared payment outcomes; both the
// one-way and the round-trip confirmation paths produce the same set.
func (h *HTTPHandler) respondPaymentError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrHoldNotFound):
		h.respondError(w, r, http.StatusNotFound, "Hold not found", err)
	case errors.Is(err, service.ErrHoldExpired):
		h.respondError(w, r, http.StatusGone, "Hold expired before payment completed", err)
	case errors.Is(err, service.ErrHoldAlreadyConsumed):
		h.respondError(w, r, http.StatusConflict, "Hold has already been paid", err)
	case errors.Is(err, service.ErrIdempotencyConflict):
		h.respondError(w, r, http.StatusConflict, "Idempotency key was already used with a different request", err)
	case errors.Is(err, service.ErrAmountMismatch):
		h.respondError(w, r, http.StatusUnprocessableEntity, "Payment amount does not match the quoted amount", err)
	default:
		h.l.Errorf(r.Context(), "Failed to confirm payment: %v", err)
		h.respondError(w, r, http.StatusInternalServerError, "Failed to confirm payment", err)
	}
}

// Helper functions

func (h *HTTPHandler) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.l.Errorf(context.Background(), "Failed to encode JSON response: %v", err)
	}
}

func (h *HTTPHandler) respondError(w http.ResponseWriter, r *http.Request, statusCode int, message string, err error) {
	response := map[string]interface{}{
		"error": message,
		"code":  statusCode,
	}

	if err != nil {
		h.l.Debugf(r.Context(), "Error response: %s: %v", message, err)
	}

	h.respondJSON(w, statusCode, response)
}
