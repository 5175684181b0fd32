package repository

import (
	"context"
	"errors"

	"github.com/vogiaan1904/transit-reservation/internal/models"
)

var ErrNotFound = errors.New("not found")

type TripRepository interface {
	Create(ctx context.Context, trip *models.Trip) error
	Get(ctx context.Context, id string) (*models.Trip, error)
	List(ctx context.Context) ([]*models.Trip, error)
	// Update runs fn on the trip under its per-trip lock and returns a
	// copy of the result. Status changes go through here so they never
	// race a concurrent bookability check.
	Update(ctx context.Context, id string, fn func(*models.Trip) error) (*models.Trip, error)
}

type HoldRepository interface {
	Create(ctx context.Context, hold *models.Hold) error
	Get(ctx context.Context, id string) (*models.Hold, error)
	// ListActive returns holds whose state is active at scan time. The
	// sweep re-checks state with a compare-and-swap before acting.
	ListActive(ctx context.Context) ([]*models.Hold, error)
}

type TicketRepository interface {
	Create(ctx context.Context, ticket *models.Ticket) error
	Get(ctx context.Context, id string) (*models.Ticket, error)
	GetByCode(ctx context.Context, code string) (*models.Ticket, error)
	// Update runs fn on the ticket under its per-ticket lock and returns
	// a copy of the result. fn returning an error leaves the ticket
	// untouched. This is the single mutation path for issued tickets.
	Update(ctx context.Context, id string, fn func(*models.Ticket) error) (*models.Ticket, error)
	ListActive(ctx context.Context) ([]*models.Ticket, error)
}

type TransferTokenRepository interface {
	Create(ctx context.Context, token *models.TransferToken) error
	Get(ctx context.Context, token string) (*models.TransferToken, error)
}

type IdempotencyRepository interface {
	// Put stores the record for its key. Keys are never overwritten.
	Put(ctx context.Context, rec *models.IdempotencyRecord) error
	Get(ctx context.Context, key string) (*models.IdempotencyRecord, error)
}

type BookingRepository interface {
	Create(ctx context.Context, booking *models.RoundTripBooking) error
	Get(ctx context.Context, id string) (*models.RoundTripBooking, error)
}
