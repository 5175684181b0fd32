package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-chi/chi/v5"
	"github.com/vogiaan1904/transit-reservation/config"
	"github.com/vogiaan1904/transit-reservation/internal/delivery/kafka/producer"
	"github.com/vogiaan1904/transit-reservation/internal/inventory"
	"github.com/vogiaan1904/transit-reservation/internal/repository/memory"
	"github.com/vogiaan1904/transit-reservation/internal/service"
	"github.com/vogiaan1904/transit-reservation/pkg/logger"
)

func newTestRouter(t *testing.T) chi.Router {
	t.Helper()

	cfg := config.BookingConfig{
		HoldTTL:                  10 * time.Minute,
		SweepInterval:            20 * time.Second,
		CancelCutoff:             time.Hour,
		MaxTransferCount:         1,
		TransferTokenTTL:         24 * time.Hour,
		OnlineCommissionRate:     0.10,
		RefundForfeitsCommission: true,
		QRSecret:                 "test-qr-secret",
	}
	l := logger.InitializeTestZapLogger()
	prod := producer.NewNoopProducer()
	inv := inventory.NewStore()

	trips := memory.NewTripRepository()
	holds := memory.NewHoldRepository()
	tickets := memory.NewTicketRepository()
	tokens := memory.NewTransferTokenRepository()
	idem := memory.NewIdempotencyRepository()
	bookings := memory.NewBookingRepository()

	tripSvc := service.NewTripService(trips, inv, nil, l)
	holdSvc := service.NewHoldService(holds, trips, inv, prod, cfg, l)
	ticketSvc := service.NewTicketService(tickets, trips, inv, nil, prod, cfg, l)
	paySvc := service.NewPaymentService(holds, tickets, idem, ticketSvc, inv, prod, l)
	transferSvc := service.NewTransferService(tickets, tokens, nil, prod, cfg, l)
	cancelSvc := service.NewCancellationService(tickets, inv, nil, prod, cfg, l)
	rtSvc := service.NewRoundTripService(bookings, holdSvc, paySvc, l)
	sweeper := service.NewHoldSweeper(holds, tickets, inv, prod, cfg, l)

	h := NewHTTPHandler(tripSvc, holdSvc, paySvc, ticketSvc, transferSvc, cancelSvc, rtSvc, sweeper, l)
	return NewRouter(h)
}

func doJSON(t *testing.T, router chi.Router, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(out))
}

func registerTestTrip(t *testing.T, router chi.Router, id string) {
	t.Helper()

	depart := time.Now().Add(3 * time.Hour)
	rec := doJSON(t, router, http.MethodPost, "/api/v1/trips", map[string]interface{}{
		"id":    id,
		"route": "HAN-SGN",
		"segments": []map[string]interface{}{
			{
				"id":          id + "-leg1",
				"from_stop":   "HAN",
				"to_stop":     "VIN",
				"departs_at":  depart,
				"arrives_at":  depart.Add(time.Hour),
				"total_seats": 8,
				"seat_price":  10000,
			},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func createTestHold(t *testing.T, router chi.Router, tripID string, seat int) holdResponse {
	t.Helper()

	rec := doJSON(t, router, http.MethodPost, "/api/v1/holds", map[string]interface{}{
		"trip_id": tripID,
		"segments": []map[string]interface{}{
			{"segment_id": tripID + "-leg1", "seat_numbers": []int{seat}},
		},
		"passengers": []string{"Alice Tran"},
		"channel":    "online",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var hold holdResponse
	decode(t, rec, &hold)
	return hold
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHoldToTicketFlow(t *testing.T) {
	router := newTestRouter(t)
	registerTestTrip(t, router, "trip-1")

	hold := createTestHold(t, router, "trip-1", 1)
	assert.Equal(t, int64(11000), hold.Amount) // 10000 + 10% online commission

	confirm := map[string]interface{}{
		"hold_id":         hold.HoldID,
		"idempotency_key": "pay-1",
		"amount":          hold.Amount,
		"payment_ref":     "txn-1",
	}
	rec := doJSON(t, router, http.MethodPost, "/api/v1/payments/confirm", confirm)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var issued ticketListResponse
	decode(t, rec, &issued)
	require.Len(t, issued.Tickets, 1)
	ticket := issued.Tickets[0]

	// The confirmation is idempotent end to end.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/payments/confirm", confirm)
	require.Equal(t, http.StatusOK, rec.Code)
	var replayed ticketListResponse
	decode(t, rec, &replayed)
	require.Len(t, replayed.Tickets, 1)
	assert.Equal(t, ticket.TicketID, replayed.Tickets[0].TicketID)

	// Lookup by ID and by printed code.
	rec = doJSON(t, router, http.MethodGet, "/api/v1/tickets/"+ticket.TicketID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, router, http.MethodGet, "/api/v1/tickets/code/"+ticket.Code, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Boarding with the issued QR payload.
	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/tickets/%s/board", ticket.TicketID),
		map[string]interface{}{"qr_payload": ticket.QRPayload})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var boarded ticketResponse
	decode(t, rec, &boarded)
	assert.Equal(t, "embarked", string(boarded.Status))
}

func TestCreateHoldSeatConflictHTTP(t *testing.T) {
	router := newTestRouter(t)
	registerTestTrip(t, router, "trip-1")

	createTestHold(t, router, "trip-1", 1)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/holds", map[string]interface{}{
		"trip_id": "trip-1",
		"segments": []map[string]interface{}{
			{"segment_id": "trip-1-leg1", "seat_numbers": []int{1}},
		},
		"passengers": []string{"Bob Le"},
		"channel":    "online",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestConfirmPaymentAmountMismatchHTTP(t *testing.T) {
	router := newTestRouter(t)
	registerTestTrip(t, router, "trip-1")
	hold := createTestHold(t, router, "trip-1", 1)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/payments/confirm", map[string]interface{}{
		"hold_id":         hold.HoldID,
		"idempotency_key": "pay-1",
		"amount":          hold.Amount + 1,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCancelHoldHTTP(t *testing.T) {
	router := newTestRouter(t)
	registerTestTrip(t, router, "trip-1")
	hold := createTestHold(t, router, "trip-1", 2)

	rec := doJSON(t, router, http.MethodDelete, "/api/v1/holds/"+hold.HoldID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// The seat is free again.
	createTestHold(t, router, "trip-1", 2)
}

func TestTransferFlowHTTP(t *testing.T) {
	router := newTestRouter(t)
	registerTestTrip(t, router, "trip-1")
	hold := createTestHold(t, router, "trip-1", 1)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/payments/confirm", map[string]interface{}{
		"hold_id":         hold.HoldID,
		"idempotency_key": "pay-1",
		"amount":          hold.Amount,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var issued ticketListResponse
	decode(t, rec, &issued)
	ticket := issued.Tickets[0]

	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/tickets/%s/transfer", ticket.TicketID), nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var token transferTokenResponse
	decode(t, rec, &token)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/transfers/redeem", map[string]interface{}{
		"token":         token.Token,
		"new_passenger": "Bob Le",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var transferred ticketResponse
	decode(t, rec, &transferred)
	assert.Equal(t, "Bob Le", transferred.Passenger)

	// Single use.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/transfers/redeem", map[string]interface{}{
		"token":         token.Token,
		"new_passenger": "Carol Vo",
	})
	assert.Equal(t, http.StatusGone, rec.Code)
}

func TestRoundTripFlowHTTP(t *testing.T) {
	router := newTestRouter(t)
	registerTestTrip(t, router, "trip-out")
	registerTestTrip(t, router, "trip-ret")

	legInput := func(tripID string) map[string]interface{} {
		return map[string]interface{}{
			"trip_id": tripID,
			"segments": []map[string]interface{}{
				{"segment_id": tripID + "-leg1", "seat_numbers": []int{1}},
			},
			"passengers": []string{"Alice Tran"},
			"channel":    "online",
		}
	}

	rec := doJSON(t, router, http.MethodPost, "/api/v1/bookings/round-trip", map[string]interface{}{
		"outbound": legInput("trip-out"),
		"return":   legInput("trip-ret"),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var booking roundTripResponse
	decode(t, rec, &booking)
	assert.Equal(t, booking.Outbound.Amount+booking.Return.Amount, booking.Amount)

	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/bookings/%s/confirm", booking.BookingID), map[string]interface{}{
		"booking_id":      booking.BookingID,
		"idempotency_key": "pay-rt",
		"amount":          booking.Amount,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var issued ticketListResponse
	decode(t, rec, &issued)
	assert.Len(t, issued.Tickets, 2)
}

func TestTicketNotFoundHTTP(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/tickets/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
