package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vogiaan1904/transit-reservation/internal/models"
)

func TestCancelOnlineForfeitsCommission(t *testing.T) {
	env := newTestEnv(t)
	env.registerTrip(t, "trip-1", 2*time.Hour)
	ctx := context.Background()

	ticket := env.issueOne(t, "trip-1", 1, models.ChannelOnline)

	refund, err := env.cancelSvc.Cancel(ctx, ticket.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(25000), refund.Amount)
	assert.Equal(t, int64(2500), refund.CommissionForfeited)

	cancelled, err := env.ticketSvc.GetTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketStatusCancelled, cancelled.Status)
}

func TestCancelCounterRefundsFull(t *testing.T) {
	env := newTestEnv(t)
	env.registerTrip(t, "trip-1", 2*time.Hour)
	ctx := context.Background()

	ticket := env.issueOne(t, "trip-1", 1, models.ChannelCounter)

	refund, err := env.cancelSvc.Cancel(ctx, ticket.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(25000), refund.Amount)
	assert.Equal(t, int64(0), refund.CommissionForfeited)
}

func TestCancelReleasesSeats(t *testing.T) {
	env := newTestEnv(t)
	env.registerTrip(t, "trip-1", 2*time.Hour)
	ctx := context.Background()

	ticket := env.issueOne(t, "trip-1", 2, models.ChannelOnline)

	_, err := env.cancelSvc.Cancel(ctx, ticket.ID)
	require.NoError(t, err)

	// The sold seats return to the pool on every segment.
	_, err = env.holdSvc.CreateHold(ctx, holdInput("trip-1", []int{2}, []string{"Bob Le"}, models.ChannelOnline))
	assert.NoError(t, err)
}

// The cutoff boundary is inclusive: exactly the configured window before
// departure still cancels, one minute less does not.
func TestCancelCutoffBoundary(t *testing.T) {
	env := newTestEnv(t)
	env.registerTrip(t, "trip-1", 2*time.Hour)
	ctx := context.Background()

	atCutoff := env.issueOne(t, "trip-1", 1, models.ChannelOnline)
	inside := env.issueOne(t, "trip-1", 2, models.ChannelOnline)

	env.advance(time.Hour) // exactly CancelCutoff before departure

	ok, err := env.cancelSvc.CanCancel(ctx, atCutoff.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	_, err = env.cancelSvc.Cancel(ctx, atCutoff.ID)
	assert.NoError(t, err)

	env.advance(time.Minute)

	ok, err = env.cancelSvc.CanCancel(ctx, inside.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = env.cancelSvc.Cancel(ctx, inside.ID)
	assert.ErrorIs(t, err, ErrNotCancellable)
}

func TestCancelTwice(t *testing.T) {
	env := newTestEnv(t)
	env.registerTrip(t, "trip-1", 2*time.Hour)
	ctx := context.Background()

	ticket := env.issueOne(t, "trip-1", 1, models.ChannelOnline)

	_, err := env.cancelSvc.Cancel(ctx, ticket.ID)
	require.NoError(t, err)

	_, err = env.cancelSvc.Cancel(ctx, ticket.ID)
	assert.ErrorIs(t, err, ErrNotCancellable)
}

func TestCancelBoardedTicket(t *testing.T) {
	env := newTestEnv(t)
	env.registerTrip(t, "trip-1", 2*time.Hour)
	ctx := context.Background()

	ticket := env.issueOne(t, "trip-1", 1, models.ChannelOnline)
	_, err := env.ticketSvc.Board(ctx, ticket.ID, "")
	require.NoError(t, err)

	_, err = env.cancelSvc.Cancel(ctx, ticket.ID)
	assert.ErrorIs(t, err, ErrNotCancellable)
}

func TestCancelUnknownTicket(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.cancelSvc.Cancel(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrTicketNotFound)

	_, err = env.cancelSvc.CanCancel(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrTicketNotFound)
}
