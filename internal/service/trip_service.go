package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/vogiaan1904/transit-reservation/internal/inventory"
	"github.com/vogiaan1904/transit-reservation/internal/models"
	"github.com/vogiaan1904/transit-reservation/internal/repository"
	redisrepo "github.com/vogiaan1904/transit-reservation/internal/repository/redis"
	"github.com/vogiaan1904/transit-reservation/pkg/logger"
)

type TripService interface {
	RegisterTrip(ctx context.Context, trip *models.Trip) error
	GetTrip(ctx context.Context, id string) (*models.Trip, error)
	UpdateTripStatus(ctx context.Context, id string, status models.TripStatus) (*models.Trip, error)
	// Occupancy is the live read model for dashboards.
	Occupancy(ctx context.Context, tripID string) (*models.TripOccupancy, error)
}

type tripService struct {
	trips     repository.TripRepository
	inv       *inventory.Store
	readModel redisrepo.ReadModelRepository
	l         logger.Logger
	now       func() time.Time
	sf        singleflight.Group
}

func NewTripService(
	trips repository.TripRepository,
	inv *inventory.Store,
	readModel redisrepo.ReadModelRepository,
	l logger.Logger,
) TripService {
	return &tripService{
		trips:     trips,
		inv:       inv,
		readModel: readModel,
		l:         l,
		now:       time.Now,
	}
}

func (s *tripService) RegisterTrip(ctx context.Context, trip *models.Trip) error {
	if trip.ID == "" || len(trip.Segments) == 0 {
		return fmt.Errorf("%w: trip needs an id and at least one segment", ErrInvalidHoldRequest)
	}

	now := s.now()
	trip.Status = models.TripStatusScheduled
	trip.CreatedAt = now
	trip.UpdatedAt = now

	for i, seg := range trip.Segments {
		seg.TripID = trip.ID
		if err := s.inv.Register(seg.ID, seg.TotalSeats); err != nil {
			for _, done := range trip.Segments[:i] {
				s.inv.Deregister(done.ID)
			}
			return fmt.Errorf("failed to register segment %s: %w", seg.ID, err)
		}
	}

	if err := s.trips.Create(ctx, trip); err != nil {
		for _, seg := range trip.Segments {
			s.inv.Deregister(seg.ID)
		}
		return fmt.Errorf("failed to store trip: %w", err)
	}

	s.mirrorOccupancy(ctx, trip)

	s.l.Infof(ctx, "Trip registered - trip_id: %s, segments: %d", trip.ID, len(trip.Segments))
	return nil
}

func (s *tripService) GetTrip(ctx context.Context, id string) (*models.Trip, error) {
	trip, err := s.trips.Get(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrTripNotFound
		}
		return nil, err
	}
	return trip, nil
}

func (s *tripService) UpdateTripStatus(ctx context.Context, id string, status models.TripStatus) (*models.Trip, error) {
	trip, err := s.trips.Update(ctx, id, func(t *models.Trip) error {
		if !t.Status.CanTransitionTo(status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTripStatus, t.Status, status)
		}
		t.Status = status
		t.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrTripNotFound
		}
		return nil, err
	}

	s.mirrorOccupancy(ctx, trip)

	s.l.Infof(ctx, "Trip status updated - trip_id: %s, status: %s", id, status)
	return trip, nil
}

func (s *tripService) Occupancy(ctx context.Context, tripID string) (*models.TripOccupancy, error) {
	// Dashboards poll this; concurrent requests for the same trip
	// collapse into one inventory scan.
	v, err, _ := s.sf.Do(tripID, func() (interface{}, error) {
		trip, err := s.GetTrip(ctx, tripID)
		if err != nil {
			return nil, err
		}
		return s.occupancy(trip)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.TripOccupancy), nil
}

func (s *tripService) occupancy(trip *models.Trip) (*models.TripOccupancy, error) {
	occ := &models.TripOccupancy{
		TripID:    trip.ID,
		Route:     trip.Route,
		Status:    trip.Status,
		UpdatedAt: s.now(),
	}
	for _, seg := range trip.Segments {
		so, err := s.inv.Occupancy(seg.ID)
		if err != nil {
			return nil, err
		}
		so.FromStop = seg.FromStop
		so.ToStop = seg.ToStop
		occ.Segments = append(occ.Segments, so)
	}
	return occ, nil
}

// mirrorOccupancy pushes a snapshot to the Redis read model. Best
// effort: a mirror failure never fails the operation.
func (s *tripService) mirrorOccupancy(ctx context.Context, trip *models.Trip) {
	if s.readModel == nil {
		return
	}

	occ, err := s.occupancy(trip)
	if err != nil {
		s.l.Warnf(ctx, "tripService.mirrorOccupancy: %v", err)
		return
	}
	if err := s.readModel.SaveTripOccupancy(ctx, occ); err != nil {
		s.l.Warnf(ctx, "tripService.mirrorOccupancy: %v", err)
	}
}
