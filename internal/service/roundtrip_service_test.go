package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vogiaan1904/transit-reservation/internal/models"
)

func bookRoundTrip(t *testing.T, env *testEnv) *BookRoundTripOutput {
	t.Helper()

	env.registerTrip(t, "trip-out", 2*time.Hour)
	env.registerTrip(t, "trip-ret", 50*time.Hour)

	out, err := env.rtSvc.BookRoundTrip(context.Background(), BookRoundTripInput{
		Outbound: holdInput("trip-out", []int{1}, []string{"Alice Tran"}, models.ChannelOnline),
		Return:   holdInput("trip-ret", []int{1}, []string{"Alice Tran"}, models.ChannelOnline),
	})
	require.NoError(t, err)
	return out
}

func TestBookRoundTripCombinesLegs(t *testing.T) {
	env := newTestEnv(t)
	out := bookRoundTrip(t, env)

	assert.Equal(t, out.Outbound.Amount+out.Return.Amount, out.Booking.Amount)
	assert.Equal(t, out.Outbound.ID, out.Booking.OutboundHoldID)
	assert.Equal(t, out.Return.ID, out.Booking.ReturnHoldID)

	stored, err := env.rtSvc.GetBooking(context.Background(), out.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, out.Booking.ID, stored.ID)
}

func TestBookRoundTripRollsBackOutbound(t *testing.T) {
	env := newTestEnv(t)
	env.registerTrip(t, "trip-out", 2*time.Hour)
	env.registerTrip(t, "trip-ret", 50*time.Hour)
	ctx := context.Background()

	// Occupy the return seat so the second leg fails.
	_, err := env.holdSvc.CreateHold(ctx, holdInput("trip-ret", []int{1}, []string{"Bob Le"}, models.ChannelOnline))
	require.NoError(t, err)

	_, err = env.rtSvc.BookRoundTrip(ctx, BookRoundTripInput{
		Outbound: holdInput("trip-out", []int{1}, []string{"Alice Tran"}, models.ChannelOnline),
		Return:   holdInput("trip-ret", []int{1}, []string{"Alice Tran"}, models.ChannelOnline),
	})
	require.ErrorIs(t, err, ErrSeatUnavailable)

	// The outbound seat came back when the return leg failed.
	_, err = env.holdSvc.CreateHold(ctx, holdInput("trip-out", []int{1}, []string{"Carol Vo"}, models.ChannelOnline))
	assert.NoError(t, err)
}

func TestConfirmBookingIssuesBothLegs(t *testing.T) {
	env := newTestEnv(t)
	out := bookRoundTrip(t, env)
	ctx := context.Background()

	in := ConfirmBookingInput{
		BookingID:      out.Booking.ID,
		IdempotencyKey: "pay-rt-1",
		Amount:         out.Booking.Amount,
		PaymentRef:     "txn-77",
	}
	tickets, err := env.rtSvc.ConfirmBooking(ctx, in)
	require.NoError(t, err)
	require.Len(t, tickets, 2)

	trips := map[string]bool{}
	for _, ticket := range tickets {
		trips[ticket.TripID] = true
	}
	assert.True(t, trips["trip-out"])
	assert.True(t, trips["trip-ret"])

	// Replaying the webhook returns the same tickets, no new issuance.
	again, err := env.rtSvc.ConfirmBooking(ctx, in)
	require.NoError(t, err)
	require.Len(t, again, 2)
	assert.Equal(t, tickets[0].ID, again[0].ID)
	assert.Equal(t, tickets[1].ID, again[1].ID)

	all, err := env.tickets.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestConfirmBookingAmountMismatch(t *testing.T) {
	env := newTestEnv(t)
	out := bookRoundTrip(t, env)

	_, err := env.rtSvc.ConfirmBooking(context.Background(), ConfirmBookingInput{
		BookingID:      out.Booking.ID,
		IdempotencyKey: "pay-rt-1",
		Amount:         out.Outbound.Amount, // one leg only
	})
	assert.ErrorIs(t, err, ErrAmountMismatch)
	assert.Equal(t, models.HoldStateActive, out.Outbound.State())
	assert.Equal(t, models.HoldStateActive, out.Return.State())
}

// A payment landing after the holds lapsed must not issue either leg,
// even though one hold could still have won its transition first.
func TestConfirmBookingExpiredHolds(t *testing.T) {
	env := newTestEnv(t)
	out := bookRoundTrip(t, env)
	ctx := context.Background()

	env.advance(env.cfg.HoldTTL + time.Second)

	_, err := env.rtSvc.ConfirmBooking(ctx, ConfirmBookingInput{
		BookingID:      out.Booking.ID,
		IdempotencyKey: "pay-rt-1",
		Amount:         out.Booking.Amount,
	})
	assert.ErrorIs(t, err, ErrHoldExpired)

	tickets, err := env.tickets.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, tickets)
}

func TestConfirmBookingUnknownBooking(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.rtSvc.ConfirmBooking(context.Background(), ConfirmBookingInput{
		BookingID:      "missing",
		IdempotencyKey: "pay-rt-1",
		Amount:         1000,
	})
	assert.ErrorIs(t, err, ErrBookingNotFound)
}
