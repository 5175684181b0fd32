package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vogiaan1904/transit-reservation/internal/models"
	"github.com/vogiaan1904/transit-reservation/internal/repository"
	"github.com/vogiaan1904/transit-reservation/pkg/logger"
)

// RoundTripService composes two single-journey holds into one booking
// paid as a unit. Composition never touches the inventory directly;
// each leg goes through the same hold and payment paths as a one-way
// purchase.
type RoundTripService interface {
	BookRoundTrip(ctx context.Context, in BookRoundTripInput) (*BookRoundTripOutput, error)
	ConfirmBooking(ctx context.Context, in ConfirmBookingInput) ([]*models.Ticket, error)
	GetBooking(ctx context.Context, bookingID string) (*models.RoundTripBooking, error)
}

type roundTripService struct {
	bookings repository.BookingRepository
	holdSvc  HoldService
	paySvc   PaymentService
	l        logger.Logger
	now      func() time.Time
}

func NewRoundTripService(
	bookings repository.BookingRepository,
	holdSvc HoldService,
	paySvc PaymentService,
	l logger.Logger,
) RoundTripService {
	return &roundTripService{
		bookings: bookings,
		holdSvc:  holdSvc,
		paySvc:   paySvc,
		l:        l,
		now:      time.Now,
	}
}

func (s *roundTripService) BookRoundTrip(ctx context.Context, in BookRoundTripInput) (*BookRoundTripOutput, error) {
	outbound, err := s.holdSvc.CreateHold(ctx, in.Outbound)
	if err != nil {
		return nil, err
	}

	ret, err := s.holdSvc.CreateHold(ctx, in.Return)
	if err != nil {
		// The outbound seats must not stay locked behind a leg that
		// never materialized.
		if cErr := s.holdSvc.CancelHold(ctx, outbound.ID); cErr != nil {
			s.l.Errorf(ctx, "roundTripService.BookRoundTrip: failed to roll back outbound hold %s: %v", outbound.ID, cErr)
		}
		return nil, err
	}

	booking := &models.RoundTripBooking{
		ID:             uuid.NewString(),
		OutboundHoldID: outbound.ID,
		ReturnHoldID:   ret.ID,
		Amount:         outbound.Amount + ret.Amount,
		CreatedAt:      s.now(),
	}
	if err := s.bookings.Create(ctx, booking); err != nil {
		if cErr := s.holdSvc.CancelHold(ctx, outbound.ID); cErr != nil {
			s.l.Errorf(ctx, "roundTripService.BookRoundTrip: failed to roll back outbound hold %s: %v", outbound.ID, cErr)
		}
		if cErr := s.holdSvc.CancelHold(ctx, ret.ID); cErr != nil {
			s.l.Errorf(ctx, "roundTripService.BookRoundTrip: failed to roll back return hold %s: %v", ret.ID, cErr)
		}
		return nil, err
	}

	s.l.Infof(ctx, "Round trip booked - booking_id: %s, amount: %d", booking.ID, booking.Amount)
	return &BookRoundTripOutput{Booking: booking, Outbound: outbound, Return: ret}, nil
}

func (s *roundTripService) ConfirmBooking(ctx context.Context, in ConfirmBookingInput) ([]*models.Ticket, error) {
	booking, err := s.bookings.Get(ctx, in.BookingID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return s.paySvc.ConfirmRoundTrip(ctx, booking, in)
}

func (s *roundTripService) GetBooking(ctx context.Context, bookingID string) (*models.RoundTripBooking, error) {
	booking, err := s.bookings.Get(ctx, bookingID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return booking, nil
}
