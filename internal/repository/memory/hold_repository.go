package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/vogiaan1904/transit-reservation/internal/models"
	"github.com/vogiaan1904/transit-reservation/internal/repository"
)

type holdRepository struct {
	mu    sync.RWMutex
	holds map[string]*models.Hold
}

func NewHoldRepository() repository.HoldRepository {
	return &holdRepository{holds: make(map[string]*models.Hold)}
}

func (r *holdRepository) Create(_ context.Context, hold *models.Hold) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.holds[hold.ID]; ok {
		return fmt.Errorf("hold %s already exists", hold.ID)
	}
	r.holds[hold.ID] = hold
	return nil
}

func (r *holdRepository) Get(_ context.Context, id string) (*models.Hold, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	hold, ok := r.holds[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return hold, nil
}

func (r *holdRepository) ListActive(_ context.Context) ([]*models.Hold, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var active []*models.Hold
	for _, hold := range r.holds {
		if hold.State() == models.HoldStateActive {
			active = append(active, hold)
		}
	}
	return active, nil
}
