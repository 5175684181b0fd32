package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/vogiaan1904/transit-reservation/internal/models"
	"github.com/vogiaan1904/transit-reservation/internal/service"
)

type registerTripRequest struct {
	ID       string           `json:"id" validate:"required"`
	Route    string           `json:"route" validate:"required"`
	Segments []segmentRequest `json:"segments" validate:"required,min=1,dive"`
}

type segmentRequest struct {
	ID         string    `json:"id" validate:"required"`
	FromStop   string    `json:"from_stop" validate:"required"`
	ToStop     string    `json:"to_stop" validate:"required"`
	DepartsAt  time.Time `json:"departs_at" validate:"required"`
	ArrivesAt  time.Time `json:"arrives_at" validate:"required"`
	TotalSeats int       `json:"total_seats" validate:"gt=0"`
	SeatPrice  int64     `json:"seat_price" validate:"gte=0"`
}

// RegisterTrip handles trip registration requests
func (h *HTTPHandler) RegisterTrip(w http.ResponseWriter, r *http.Request) {
	var req registerTripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Validation failed", err)
		return
	}

	trip := &models.Trip{ID: req.ID, Route: req.Route}
	for _, seg := range req.Segments {
		trip.Segments = append(trip.Segments, &models.Segment{
			ID:         seg.ID,
			FromStop:   seg.FromStop,
			ToStop:     seg.ToStop,
			DepartsAt:  seg.DepartsAt,
			ArrivesAt:  seg.ArrivesAt,
			TotalSeats: seg.TotalSeats,
			SeatPrice:  seg.SeatPrice,
		})
	}

	if err := h.trips.RegisterTrip(r.Context(), trip); err != nil {
		if errors.Is(err, service.ErrInvalidHoldRequest) {
			h.respondError(w, r, http.StatusBadRequest, "Invalid trip definition", err)
			return
		}
		h.l.Errorf(r.Context(), "Failed to register trip: %v", err)
		h.respondError(w, r, http.StatusInternalServerError, "Failed to register trip", err)
		return
	}

	h.respondJSON(w, http.StatusCreated, trip)
}

// GetTrip handles trip occupancy requests
func (h *HTTPHandler) GetTrip(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "tripID")
	if tripID == "" {
		h.respondError(w, r, http.StatusBadRequest, "Trip ID is required", nil)
		return
	}

	occ, err := h.trips.Occupancy(r.Context(), tripID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTripNotFound):
			h.respondError(w, r, http.StatusNotFound, "Trip not found", err)
		default:
			h.l.Errorf(r.Context(), "Failed to get trip occupancy: %v", err)
			h.respondError(w, r, http.StatusInternalServerError, "Failed to get trip occupancy", err)
		}
		return
	}

	h.respondJSON(w, http.StatusOK, occ)
}

type updateTripStatusRequest struct {
	Status models.TripStatus `json:"status" validate:"required"`
}

// UpdateTripStatus handles trip lifecycle transitions
func (h *HTTPHandler) UpdateTripStatus(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "tripID")
	if tripID == "" {
		h.respondError(w, r, http.StatusBadRequest, "Trip ID is required", nil)
		return
	}

	var req updateTripStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Validation failed", err)
		return
	}

	trip, err := h.trips.UpdateTripStatus(r.Context(), tripID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTripNotFound):
			h.respondError(w, r, http.StatusNotFound, "Trip not found", err)
		case errors.Is(err, service.ErrInvalidTripStatus):
			h.respondError(w, r, http.StatusConflict, "Status transition is not allowed", err)
		default:
			h.l.Errorf(r.Context(), "Failed to update trip status: %v", err)
			h.respondError(w, r, http.StatusInternalServerError, "Failed to update trip status", err)
		}
		return
	}

	h.respondJSON(w, http.StatusOK, trip)
}
