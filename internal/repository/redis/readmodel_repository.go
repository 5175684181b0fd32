package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vogiaan1904/transit-reservation/internal/models"
	"github.com/vogiaan1904/transit-reservation/pkg/logger"
)

// ReadModelRepository mirrors ticket and occupancy state into Redis for
// dashboard collaborators. The in-memory engine stays authoritative;
// mirror writes are best effort and never gate a booking operation.
type ReadModelRepository interface {
	SaveTicket(ctx context.Context, ticket *models.Ticket) error
	GetTicket(ctx context.Context, id string) (*models.Ticket, error)
	SaveTripOccupancy(ctx context.Context, occ *models.TripOccupancy) error
	GetTripOccupancy(ctx context.Context, tripID string) (*models.TripOccupancy, error)
}

const readModelTTL = 72 * time.Hour

type redisReadModelRepository struct {
	cli *redis.Client
	l   logger.Logger
}

func NewRedisReadModelRepository(cli *redis.Client, l logger.Logger) ReadModelRepository {
	return &redisReadModelRepository{cli: cli, l: l}
}

func (r *redisReadModelRepository) ticketKey(id string) string {
	return fmt.Sprintf("reservation:ticket:%s", id)
}

func (r *redisReadModelRepository) occupancyKey(tripID string) string {
	return fmt.Sprintf("reservation:trip:%s:occupancy", tripID)
}

func (r *redisReadModelRepository) SaveTicket(ctx context.Context, ticket *models.Ticket) error {
	data, err := json.Marshal(ticket)
	if err != nil {
		return fmt.Errorf("failed to marshal ticket: %w", err)
	}

	pipe := r.cli.Pipeline()
	pipe.Set(ctx, r.ticketKey(ticket.ID), data, readModelTTL)
	// Secondary index for counter lookups by alphanumeric code.
	pipe.Set(ctx, fmt.Sprintf("reservation:code:%s", ticket.Code), ticket.ID, readModelTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		r.l.Errorf(ctx, "redisReadModelRepository.SaveTicket: %v", err)
		return err
	}
	return nil
}

func (r *redisReadModelRepository) GetTicket(ctx context.Context, id string) (*models.Ticket, error) {
	data, err := r.cli.Get(ctx, r.ticketKey(id)).Bytes()
	if err != nil {
		return nil, err
	}

	var ticket models.Ticket
	if err := json.Unmarshal(data, &ticket); err != nil {
		r.l.Errorf(ctx, "redisReadModelRepository.GetTicket: %v", err)
		return nil, err
	}
	return &ticket, nil
}

func (r *redisReadModelRepository) SaveTripOccupancy(ctx context.Context, occ *models.TripOccupancy) error {
	data, err := json.Marshal(occ)
	if err != nil {
		return fmt.Errorf("failed to marshal occupancy: %w", err)
	}

	if err := r.cli.Set(ctx, r.occupancyKey(occ.TripID), data, readModelTTL).Err(); err != nil {
		r.l.Errorf(ctx, "redisReadModelRepository.SaveTripOccupancy: %v", err)
		return err
	}
	return nil
}

func (r *redisReadModelRepository) GetTripOccupancy(ctx context.Context, tripID string) (*models.TripOccupancy, error) {
	data, err := r.cli.Get(ctx, r.occupancyKey(tripID)).Bytes()
	if err != nil {
		return nil, err
	}

	var occ models.TripOccupancy
	if err := json.Unmarshal(data, &occ); err != nil {
		r.l.Errorf(ctx, "redisReadModelRepository.GetTripOccupancy: %v", err)
		return nil, err
	}
	return &occ, nil
}
