package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/vogiaan1904/transit-reservation/config"
	kafka "github.com/vogiaan1904/transit-reservation/internal/delivery/kafka"
	"github.com/vogiaan1904/transit-reservation/internal/delivery/kafka/producer"
	"github.com/vogiaan1904/transit-reservation/internal/inventory"
	"github.com/vogiaan1904/transit-reservation/internal/models"
	"github.com/vogiaan1904/transit-reservation/internal/repository"
	"github.com/vogiaan1904/transit-reservation/pkg/logger"
)

type HoldService interface {
	CreateHold(ctx context.Context, in CreateHoldInput) (*models.Hold, error)
	// CancelHold is the explicit client-initiated release, usable only
	// while the hold is still active.
	CancelHold(ctx context.Context, holdID string) error
	GetHold(ctx context.Context, holdID string) (*models.Hold, error)
}

type holdService struct {
	holds repository.HoldRepository
	trips repository.TripRepository
	inv   *inventory.Store
	prod  producer.Producer
	cfg   config.BookingConfig
	l     logger.Logger
	now   func() time.Time
}

func NewHoldService(
	holds repository.HoldRepository,
	trips repository.TripRepository,
	inv *inventory.Store,
	prod producer.Producer,
	cfg config.BookingConfig,
	l logger.Logger,
) HoldService {
	return &holdService{
		holds: holds,
		trips: trips,
		inv:   inv,
		prod:  prod,
		cfg:   cfg,
		l:     l,
		now:   time.Now,
	}
}

func (s *holdService) CreateHold(ctx context.Context, in CreateHoldInput) (*models.Hold, error) {
	trip, err := s.trips.Get(ctx, in.TripID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrTripNotFound
		}
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}

	if !trip.Bookable() {
		return nil, ErrTripNotBookable
	}

	if !in.Channel.Valid() {
		return nil, fmt.Errorf("%w: unknown sales channel %q", ErrInvalidHoldRequest, in.Channel)
	}

	passengerCount := len(in.Passengers)
	segmentSeats := make([]models.SegmentSeats, 0, len(in.Segments))
	for _, seg := range in.Segments {
		if trip.Segment(seg.SegmentID) == nil {
			return nil, fmt.Errorf("%w: segment %s does not belong to trip %s",
				ErrInvalidHoldRequest, seg.SegmentID, in.TripID)
		}
		if len(seg.SeatNumbers) != passengerCount {
			return nil, fmt.Errorf("%w: segment %s has %d seats for %d passengers",
				ErrInvalidHoldRequest, seg.SegmentID, len(seg.SeatNumbers), passengerCount)
		}
		segmentSeats = append(segmentSeats, models.SegmentSeats{
			SegmentID:   seg.SegmentID,
			SeatNumbers: seg.SeatNumbers,
		})
	}

	// All segments reserve independently; a failure on any releases
	// everything reserved so far in this request.
	if err := s.inv.ReserveMany(segmentSeats); err != nil {
		return nil, err
	}

	now := s.now()
	base, commission := s.quotePerPassenger(trip, segmentSeats, in.Channel)
	hold := &models.Hold{
		ID:             uuid.New().String(),
		TripID:         in.TripID,
		SegmentSeats:   segmentSeats,
		PassengerCount: passengerCount,
		Passengers:     in.Passengers,
		Channel:        in.Channel,
		Amount:         int64(passengerCount) * (base + commission),
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.cfg.HoldTTL),
	}

	if err := s.holds.Create(ctx, hold); err != nil {
		s.inv.ReleaseMany(segmentSeats)
		return nil, fmt.Errorf("failed to store hold: %w", err)
	}

	if err := s.prod.PublishHoldCreated(ctx, kafka.HoldCreatedEvent{
		HoldID:         hold.ID,
		TripID:         hold.TripID,
		SeatCount:      hold.SeatCount(),
		PassengerCount: hold.PassengerCount,
		Channel:        string(hold.Channel),
		Amount:         hold.Amount,
		ExpiresAt:      hold.ExpiresAt,
	}); err != nil {
		// Log error but don't fail the request
		s.l.Errorf(ctx, "holdService.CreateHold: failed to publish event: %v", err)
	}

	s.l.Infof(ctx, "Hold created - hold_id: %s, trip_id: %s, seats: %d, expires_at: %s",
		hold.ID, hold.TripID, hold.SeatCount(), hold.ExpiresAt.Format(time.RFC3339))

	return hold, nil
}

func (s *holdService) CancelHold(ctx context.Context, holdID string) error {
	hold, err := s.GetHold(ctx, holdID)
	if err != nil {
		return err
	}

	if !hold.CompareAndSwapState(models.HoldStateActive, models.HoldStateReleased) {
		switch hold.State() {
		case models.HoldStateConsumed:
			return ErrHoldAlreadyConsumed
		default:
			return ErrHoldExpired
		}
	}

	s.inv.ReleaseMany(hold.SegmentSeats)

	s.l.Infof(ctx, "Hold cancelled - hold_id: %s", holdID)
	return nil
}

func (s *holdService) GetHold(ctx context.Context, holdID string) (*models.Hold, error) {
	hold, err := s.holds.Get(ctx, holdID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrHoldNotFound
		}
		return nil, err
	}
	return hold, nil
}

// quotePerPassenger prices one passenger's journey across the held
// segments. The ticket issuer uses the same arithmetic so the hold
// amount always equals the sum of the issued ticket prices.
func (s *holdService) quotePerPassenger(trip *models.Trip, segs []models.SegmentSeats, channel models.SalesChannel) (base, commission int64) {
	for _, ss := range segs {
		if seg := trip.Segment(ss.SegmentID); seg != nil {
			base += seg.SeatPrice
		}
	}
	if channel == models.ChannelOnline {
		commission = int64(math.Round(float64(base) * s.cfg.OnlineCommissionRate))
	}
	return base, commission
}
