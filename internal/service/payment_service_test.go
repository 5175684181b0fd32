package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vogiaan1904/transit-reservation/internal/models"
)

func TestConfirmPaymentIssuesTickets(t *testing.T) {
	env := newTestEnv(t)
	env.registerTrip(t, "trip-1", 2*time.Hour)
	ctx := context.Background()

	hold, err := env.holdSvc.CreateHold(ctx, holdInput("trip-1", []int{1, 2}, []string{"Alice Tran", "Bob Le"}, models.ChannelOnline))
	require.NoError(t, err)

	tickets, err := env.paySvc.ConfirmPayment(ctx, ConfirmPaymentInput{
		HoldID:         hold.ID,
		IdempotencyKey: "pay-1",
		Amount:         hold.Amount,
		PaymentRef:     "txn-42",
	})
	require.NoError(t, err)
	require.Len(t, tickets, 2)

	assert.Equal(t, models.HoldStateConsumed, hold.State())
	for i, ticket := range tickets {
		assert.Equal(t, hold.Passengers[i], ticket.Passenger)
		assert.Equal(t, int64(27500), ticket.Price)
		assert.Equal(t, int64(2500), ticket.Commission)
		assert.Equal(t, models.TicketStatusActive, ticket.Status)
		assert.Equal(t, "txn-42", ticket.PaymentRef)
		// Passenger i sits in seat i+1 on both legs.
		for _, ss := range ticket.SegmentSeats {
			assert.Equal(t, []int{i + 1}, ss.SeatNumbers)
		}
	}

	// The seats are sold now; a new hold on them must fail even though
	// the original hold is gone.
	_, err = env.holdSvc.CreateHold(ctx, holdInput("trip-1", []int{1}, []string{"Carol Vo"}, models.ChannelOnline))
	assert.ErrorIs(t, err, ErrSeatUnavailable)
}

func TestConfirmPaymentReplaysByIdempotencyKey(t *testing.T) {
	env := newTestEnv(t)
	env.registerTrip(t, "trip-1", 2*time.Hour)
	ctx := context.Background()

	hold, err := env.holdSvc.CreateHold(ctx, holdInput("trip-1", []int{1}, []string{"Alice Tran"}, models.ChannelOnline))
	require.NoError(t, err)

	in := ConfirmPaymentInput{HoldID: hold.ID, IdempotencyKey: "pay-1", Amount: hold.Amount}
	first, err := env.paySvc.ConfirmPayment(ctx, in)
	require.NoError(t, err)

	second, err := env.paySvc.ConfirmPayment(ctx, in)
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, first[i].Code, second[i].Code)
	}
}

func TestConfirmPaymentIdempotencyConflict(t *testing.T) {
	env := newTestEnv(t)
	env.registerTrip(t, "trip-1", 2*time.Hour)
	ctx := context.Background()

	hold, err := env.holdSvc.CreateHold(ctx, holdInput("trip-1", []int{1}, []string{"Alice Tran"}, models.ChannelOnline))
	require.NoError(t, err)

	_, err = env.paySvc.ConfirmPayment(ctx, ConfirmPaymentInput{HoldID: hold.ID, IdempotencyKey: "pay-1", Amount: hold.Amount})
	require.NoError(t, err)

	// Same key, different amount: not a retry.
	_, err = env.paySvc.ConfirmPayment(ctx, ConfirmPaymentInput{HoldID: hold.ID, IdempotencyKey: "pay-1", Amount: hold.Amount + 1})
	assert.ErrorIs(t, err, ErrIdempotencyConflict)
}

func TestConfirmPaymentAmountMismatch(t *testing.T) {
	env := newTestEnv(t)
	env.registerTrip(t, "trip-1", 2*time.Hour)
	ctx := context.Background()

	hold, err := env.holdSvc.CreateHold(ctx, holdInput("trip-1", []int{1}, []string{"Alice Tran"}, models.ChannelOnline))
	require.NoError(t, err)

	_, err = env.paySvc.ConfirmPayment(ctx, ConfirmPaymentInput{HoldID: hold.ID, IdempotencyKey: "pay-1", Amount: hold.Amount - 100})
	assert.ErrorIs(t, err, ErrAmountMismatch)

	// The hold survives a bad amount and can still be confirmed.
	assert.Equal(t, models.HoldStateActive, hold.State())
	_, err = env.paySvc.ConfirmPayment(ctx, ConfirmPaymentInput{HoldID: hold.ID, IdempotencyKey: "pay-2", Amount: hold.Amount})
	assert.NoError(t, err)
}

func TestConfirmPaymentExpiredHold(t *testing.T) {
	env := newTestEnv(t)
	env.registerTrip(t, "trip-1", 2*time.Hour)
	ctx := context.Background()

	hold, err := env.holdSvc.CreateHold(ctx, holdInput("trip-1", []int{7}, []string{"Alice Tran"}, models.ChannelOnline))
	require.NoError(t, err)

	env.advance(env.cfg.HoldTTL + time.Second)

	_, err = env.paySvc.ConfirmPayment(ctx, ConfirmPaymentInput{HoldID: hold.ID, IdempotencyKey: "pay-1", Amount: hold.Amount})
	assert.ErrorIs(t, err, ErrHoldExpired)
	assert.Equal(t, models.HoldStateExpired, hold.State())

	// The late confirmation itself released the seats.
	_, err = env.holdSvc.CreateHold(ctx, holdInput("trip-1", []int{7}, []string{"Bob Le"}, models.ChannelOnline))
	assert.NoError(t, err)
}

func TestConfirmPaymentCancelledHold(t *testing.T) {
	env := newTestEnv(t)
	env.registerTrip(t, "trip-1", 2*time.Hour)
	ctx := context.Background()

	hold, err := env.holdSvc.CreateHold(ctx, holdInput("trip-1", []int{1}, []string{"Alice Tran"}, models.ChannelOnline))
	require.NoError(t, err)
	require.NoError(t, env.holdSvc.CancelHold(ctx, hold.ID))

	_, err = env.paySvc.ConfirmPayment(ctx, ConfirmPaymentInput{HoldID: hold.ID, IdempotencyKey: "pay-1", Amount: hold.Amount})
	assert.ErrorIs(t, err, ErrHoldExpired)
}

// Many gateways deliver the same webhook more than once, sometimes
// concurrently. However the calls interleave, the hold must produce its
// tickets exactly once.
func TestConcurrentConfirmIssuesOnce(t *testing.T) {
	env := newTestEnv(t)
	env.registerTrip(t, "trip-1", 2*time.Hour)
	ctx := context.Background()

	hold, err := env.holdSvc.CreateHold(ctx, holdInput("trip-1", []int{1}, []string{"Alice Tran"}, models.ChannelOnline))
	require.NoError(t, err)

	in := ConfirmPaymentInput{HoldID: hold.ID, IdempotencyKey: "pay-1", Amount: hold.Amount}

	const callers = 16
	var wg sync.WaitGroup
	results := make([][]*models.Ticket, callers)
	errs := make([]error, callers)

	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = env.paySvc.ConfirmPayment(ctx, in)
		}(i)
	}
	wg.Wait()

	ids := map[string]bool{}
	wins := 0
	for i := 0; i < callers; i++ {
		if errs[i] == nil {
			wins++
			for _, ticket := range results[i] {
				ids[ticket.ID] = true
			}
		} else {
			// A loser that raced ahead of the winner's record write.
			assert.ErrorIs(t, errs[i], ErrHoldAlreadyConsumed)
		}
	}

	require.GreaterOrEqual(t, wins, 1)
	// Every successful response names the same single ticket.
	assert.Len(t, ids, 1)

	all, err := env.tickets.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestConfirmRacesSweeperSingleOutcome(t *testing.T) {
	env := newTestEnv(t)
	env.registerTrip(t, "trip-1", 2*time.Hour)
	ctx := context.Background()

	hold, err := env.holdSvc.CreateHold(ctx, holdInput("trip-1", []int{2}, []string{"Alice Tran"}, models.ChannelOnline))
	require.NoError(t, err)

	env.advance(env.cfg.HoldTTL + time.Second)

	var wg sync.WaitGroup
	var confirmErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		env.sweeper.SweepOnce(ctx)
	}()
	go func() {
		defer wg.Done()
		_, confirmErr = env.paySvc.ConfirmPayment(ctx, ConfirmPaymentInput{
			HoldID: hold.ID, IdempotencyKey: "pay-1", Amount: hold.Amount,
		})
	}()
	wg.Wait()

	// Past the TTL both paths expire; neither may issue.
	assert.ErrorIs(t, confirmErr, ErrHoldExpired)
	assert.Equal(t, models.HoldStateExpired, hold.State())

	tickets, err := env.tickets.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, tickets)
}
