package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vogiaan1904/transit-reservation/config"
	"github.com/vogiaan1904/transit-reservation/internal/delivery/kafka/producer"
	"github.com/vogiaan1904/transit-reservation/internal/inventory"
	"github.com/vogiaan1904/transit-reservation/internal/models"
	"github.com/vogiaan1904/transit-reservation/internal/repository"
	"github.com/vogiaan1904/transit-reservation/internal/repository/memory"
	"github.com/vogiaan1904/transit-reservation/pkg/logger"
)

// testEnv wires the full service graph over in-memory repositories with
// a controllable clock, so expiry and cutoff windows can be crossed
// without sleeping.
type testEnv struct {
	current time.Time

	trips    repository.TripRepository
	holds    repository.HoldRepository
	tickets  repository.TicketRepository
	tokens   repository.TransferTokenRepository
	idem     repository.IdempotencyRepository
	bookings repository.BookingRepository
	inv      *inventory.Store
	cfg      config.BookingConfig

	tripSvc     TripService
	holdSvc     HoldService
	ticketSvc   TicketService
	paySvc      PaymentService
	transferSvc TransferService
	cancelSvc   CancellationService
	rtSvc       RoundTripService
	sweeper     HoldSweeper
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		current: time.Date(2026, time.March, 14, 9, 0, 0, 0, time.UTC),
		cfg: config.BookingConfig{
			HoldTTL:                  10 * time.Minute,
			SweepInterval:            20 * time.Second,
			CancelCutoff:             time.Hour,
			MaxTransferCount:         1,
			TransferTokenTTL:         24 * time.Hour,
			OnlineCommissionRate:     0.10,
			RefundForfeitsCommission: true,
			QRSecret:                 "test-qr-secret",
		},
	}
	clock := func() time.Time { return env.current }

	l := logger.InitializeTestZapLogger()
	prod := producer.NewNoopProducer()

	env.trips = memory.NewTripRepository()
	env.holds = memory.NewHoldRepository()
	env.tickets = memory.NewTicketRepository()
	env.tokens = memory.NewTransferTokenRepository()
	env.idem = memory.NewIdempotencyRepository()
	env.bookings = memory.NewBookingRepository()
	env.inv = inventory.NewStore()

	env.tripSvc = NewTripService(env.trips, env.inv, nil, l)
	env.tripSvc.(*tripService).now = clock

	env.holdSvc = NewHoldService(env.holds, env.trips, env.inv, prod, env.cfg, l)
	env.holdSvc.(*holdService).now = clock

	env.ticketSvc = NewTicketService(env.tickets, env.trips, env.inv, nil, prod, env.cfg, l)
	env.ticketSvc.(*ticketService).now = clock

	env.paySvc = NewPaymentService(env.holds, env.tickets, env.idem, env.ticketSvc, env.inv, prod, l)
	env.paySvc.(*paymentService).now = clock

	env.transferSvc = NewTransferService(env.tickets, env.tokens, nil, prod, env.cfg, l)
	env.transferSvc.(*transferService).now = clock

	env.cancelSvc = NewCancellationService(env.tickets, env.inv, nil, prod, env.cfg, l)
	env.cancelSvc.(*cancellationService).now = clock

	env.rtSvc = NewRoundTripService(env.bookings, env.holdSvc, env.paySvc, l)
	env.rtSvc.(*roundTripService).now = clock

	env.sweeper = NewHoldSweeper(env.holds, env.tickets, env.inv, prod, env.cfg, l)
	env.sweeper.(*holdSweeper).now = clock

	return env
}

func (e *testEnv) advance(d time.Duration) {
	e.current = e.current.Add(d)
}

// registerTrip sets up a two-segment trip departing departIn from the
// current test time. Segment IDs derive from the trip ID so hold inputs
// can be built without threading the trip around.
func (e *testEnv) registerTrip(t *testing.T, id string, departIn time.Duration) *models.Trip {
	t.Helper()

	trip := &models.Trip{
		ID:    id,
		Route: "HAN-SGN",
		Segments: []*models.Segment{
			{
				ID:         id + "-leg1",
				FromStop:   "HAN",
				ToStop:     "VIN",
				DepartsAt:  e.current.Add(departIn),
				ArrivesAt:  e.current.Add(departIn + time.Hour),
				TotalSeats: 8,
				SeatPrice:  10000,
			},
			{
				ID:         id + "-leg2",
				FromStop:   "VIN",
				ToStop:     "SGN",
				DepartsAt:  e.current.Add(departIn + 90*time.Minute),
				ArrivesAt:  e.current.Add(departIn + 3*time.Hour),
				TotalSeats: 8,
				SeatPrice:  15000,
			},
		},
	}
	require.NoError(t, e.tripSvc.RegisterTrip(context.Background(), trip))
	return trip
}

// holdInput requests the same seat numbers on both legs of the trip
// built by registerTrip.
func holdInput(tripID string, seats []int, passengers []string, ch models.SalesChannel) CreateHoldInput {
	return CreateHoldInput{
		TripID: tripID,
		Segments: []SegmentSeatsInput{
			{SegmentID: tripID + "-leg1", SeatNumbers: seats},
			{SegmentID: tripID + "-leg2", SeatNumbers: seats},
		},
		Passengers: passengers,
		Channel:    ch,
	}
}

// issueOne walks one passenger through hold and payment, returning the
// issued ticket.
func (e *testEnv) issueOne(t *testing.T, tripID string, seat int, channel models.SalesChannel) *models.Ticket {
	t.Helper()

	ctx := context.Background()
	hold, err := e.holdSvc.CreateHold(ctx, holdInput(tripID, []int{seat}, []string{"Alice Tran"}, channel))
	require.NoError(t, err)

	tickets, err := e.paySvc.ConfirmPayment(ctx, ConfirmPaymentInput{
		HoldID:         hold.ID,
		IdempotencyKey: "pay-" + hold.ID,
		Amount:         hold.Amount,
		PaymentRef:     "txn-0001",
	})
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	return tickets[0]
}
