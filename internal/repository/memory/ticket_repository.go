package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/vogiaan1904/transit-reservation/internal/models"
	"github.com/vogiaan1904/transit-reservation/internal/repository"
)

// entry pairs a ticket with its mutation lock. Locking at ticket
// granularity keeps a cancellation and an unrelated seat hold on the
// same trip from contending.
type ticketEntry struct {
	mu     sync.Mutex
	ticket models.Ticket
}

type ticketRepository struct {
	mu      sync.RWMutex
	tickets map[string]*ticketEntry
	byCode  map[string]string
}

func NewTicketRepository() repository.TicketRepository {
	return &ticketRepository{
		tickets: make(map[string]*ticketEntry),
		byCode:  make(map[string]string),
	}
}

func (r *ticketRepository) Create(_ context.Context, ticket *models.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tickets[ticket.ID]; ok {
		return fmt.Errorf("ticket %s already exists", ticket.ID)
	}
	r.tickets[ticket.ID] = &ticketEntry{ticket: *ticket}
	r.byCode[ticket.Code] = ticket.ID
	return nil
}

func (r *ticketRepository) Get(_ context.Context, id string) (*models.Ticket, error) {
	r.mu.RLock()
	e, ok := r.tickets[id]
	r.mu.RUnlock()
	if !ok {
		return nil, repository.ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	t := e.ticket
	return &t, nil
}

func (r *ticketRepository) GetByCode(ctx context.Context, code string) (*models.Ticket, error) {
	r.mu.RLock()
	id, ok := r.byCode[code]
	r.mu.RUnlock()
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r *ticketRepository) Update(_ context.Context, id string, fn func(*models.Ticket) error) (*models.Ticket, error) {
	r.mu.RLock()
	e, ok := r.tickets[id]
	r.mu.RUnlock()
	if !ok {
		return nil, repository.ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := fn(&e.ticket); err != nil {
		return nil, err
	}
	t := e.ticket
	return &t, nil
}

func (r *ticketRepository) ListActive(_ context.Context) ([]*models.Ticket, error) {
	r.mu.RLock()
	entries := make([]*ticketEntry, 0, len(r.tickets))
	for _, e := range r.tickets {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	var active []*models.Ticket
	for _, e := range entries {
		e.mu.Lock()
		if e.ticket.IsActive() {
			t := e.ticket
			active = append(active, &t)
		}
		e.mu.Unlock()
	}
	return active, nil
}
