package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/vogiaan1904/transit-reservation/internal/models"
	"github.com/vogiaan1904/transit-reservation/internal/repository"
)

// tripEntry pairs a trip with its mutation lock. Readers get copies,
// so a status change never races a bookability check on the shared
// struct. The segment slice is shared but immutable after Create.
type tripEntry struct {
	mu   sync.Mutex
	trip models.Trip
}

type tripRepository struct {
	mu    sync.RWMutex
	trips map[string]*tripEntry
}

func NewTripRepository() repository.TripRepository {
	return &tripRepository{trips: make(map[string]*tripEntry)}
}

func (r *tripRepository) Create(_ context.Context, trip *models.Trip) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.trips[trip.ID]; ok {
		return fmt.Errorf("trip %s already exists", trip.ID)
	}
	r.trips[trip.ID] = &tripEntry{trip: *trip}
	return nil
}

func (r *tripRepository) Get(_ context.Context, id string) (*models.Trip, error) {
	r.mu.RLock()
	e, ok := r.trips[id]
	r.mu.RUnlock()
	if !ok {
		return nil, repository.ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	t := e.trip
	return &t, nil
}

func (r *tripRepository) List(_ context.Context) ([]*models.Trip, error) {
	r.mu.RLock()
	entries := make([]*tripEntry, 0, len(r.trips))
	for _, e := range r.trips {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	trips := make([]*models.Trip, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		t := e.trip
		e.mu.Unlock()
		trips = append(trips, &t)
	}
	return trips, nil
}

func (r *tripRepository) Update(_ context.Context, id string, fn func(*models.Trip) error) (*models.Trip, error) {
	r.mu.RLock()
	e, ok := r.trips[id]
	r.mu.RUnlock()
	if !ok {
		return nil, repository.ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := fn(&e.trip); err != nil {
		return nil, err
	}
	t := e.trip
	return &t, nil
}

type transferTokenRepository struct {
	mu     sync.RWMutex
	tokens map[string]*models.TransferToken
}

func NewTransferTokenRepository() repository.TransferTokenRepository {
	return &transferTokenRepository{tokens: make(map[string]*models.TransferToken)}
}

func (r *transferTokenRepository) Create(_ context.Context, token *models.TransferToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tokens[token.Token]; ok {
		return fmt.Errorf("transfer token already exists")
	}
	r.tokens[token.Token] = token
	return nil
}

func (r *transferTokenRepository) Get(_ context.Context, token string) (*models.TransferToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tokens[token]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return t, nil
}

type idempotencyRepository struct {
	mu      sync.RWMutex
	records map[string]*models.IdempotencyRecord
}

func NewIdempotencyRepository() repository.IdempotencyRepository {
	return &idempotencyRepository{records: make(map[string]*models.IdempotencyRecord)}
}

func (r *idempotencyRepository) Put(_ context.Context, rec *models.IdempotencyRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[rec.Key]; ok {
		return fmt.Errorf("idempotency key %s already recorded", rec.Key)
	}
	r.records[rec.Key] = rec
	return nil
}

func (r *idempotencyRepository) Get(_ context.Context, key string) (*models.IdempotencyRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return rec, nil
}

type bookingRepository struct {
	mu       sync.RWMutex
	bookings map[string]*models.RoundTripBooking
}

func NewBookingRepository() repository.BookingRepository {
	return &bookingRepository{bookings: make(map[string]*models.RoundTripBooking)}
}

func (r *bookingRepository) Create(_ context.Context, booking *models.RoundTripBooking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bookings[booking.ID]; ok {
		return fmt.Errorf("booking %s already exists", booking.ID)
	}
	r.bookings[booking.ID] = booking
	return nil
}

func (r *bookingRepository) Get(_ context.Context, id string) (*models.RoundTripBooking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	booking, ok := r.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return booking, nil
}
