package service

import (
	"context"
	"fmt"
	"time"

	kafka "github.com/vogiaan1904/transit-reservation/internal/delivery/kafka"
	"github.com/vogiaan1904/transit-reservation/internal/delivery/kafka/producer"
	"github.com/vogiaan1904/transit-reservation/internal/inventory"
	"github.com/vogiaan1904/transit-reservation/internal/models"
	"github.com/vogiaan1904/transit-reservation/internal/repository"
	"github.com/vogiaan1904/transit-reservation/pkg/logger"
)

// PaymentService converts holds into paid tickets exactly once. The
// ACTIVE -> CONSUMED compare-and-swap is the whole guarantee: two
// concurrent confirmations, or a confirmation racing the expiry sweep,
// resolve to a single winner without any store-wide lock. Gateway I/O
// never happens here; only the local state transition is coordinated.
type PaymentService interface {
	ConfirmPayment(ctx context.Context, in ConfirmPaymentInput) ([]*models.Ticket, error)
	// ConfirmRoundTrip settles both legs of a round-trip booking under
	// one payment. Both holds are consumed before any ticket is issued,
	// so a losing second leg can hand its seats back by reverting the
	// first leg's transition.
	ConfirmRoundTrip(ctx context.Context, booking *models.RoundTripBooking, in ConfirmBookingInput) ([]*models.Ticket, error)
}

type paymentService struct {
	holds   repository.HoldRepository
	tickets repository.TicketRepository
	idem    repository.IdempotencyRepository
	issuer  TicketService
	inv     *inventory.Store
	prod    producer.Producer
	l       logger.Logger
	now     func() time.Time
}

func NewPaymentService(
	holds repository.HoldRepository,
	tickets repository.TicketRepository,
	idem repository.IdempotencyRepository,
	issuer TicketService,
	inv *inventory.Store,
	prod producer.Producer,
	l logger.Logger,
) PaymentService {
	return &paymentService{
		holds:   holds,
		tickets: tickets,
		idem:    idem,
		issuer:  issuer,
		inv:     inv,
		prod:    prod,
		l:       l,
		now:     time.Now,
	}
}

func (s *paymentService) ConfirmPayment(ctx context.Context, in ConfirmPaymentInput) ([]*models.Ticket, error) {
	if rec := s.record(ctx, in.IdempotencyKey); rec != nil {
		return s.replay(ctx, rec, in.HoldID, in.Amount)
	}

	hold, err := s.holds.Get(ctx, in.HoldID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrHoldNotFound
		}
		return nil, err
	}

	tickets, err := s.confirmHold(ctx, hold, in.IdempotencyKey, in.Amount, in.PaymentRef)
	if err != nil {
		return nil, err
	}

	s.l.Infof(ctx, "Payment confirmed - hold_id: %s, tickets: %d", hold.ID, len(tickets))
	return tickets, nil
}

// confirmHold runs the single-hold transition: validate amount, win the
// state CAS, issue, record. The caller has already ruled out a replay.
func (s *paymentService) confirmHold(ctx context.Context, hold *models.Hold, key string, amount int64, paymentRef string) ([]*models.Ticket, error) {
	if amount != hold.Amount {
		return nil, fmt.Errorf("%w: got %d, hold quotes %d", ErrAmountMismatch, amount, hold.Amount)
	}

	s.expireIfOverdue(ctx, hold)

	if !hold.CompareAndSwapState(models.HoldStateActive, models.HoldStateConsumed) {
		if hold.State() == models.HoldStateConsumed {
			// A concurrent confirmation may have just won under the
			// same key; its record replays the identical result. If the
			// winner has not stored its record yet this returns
			// ErrHoldAlreadyConsumed instead, and the caller's next
			// retry finds the record and replays.
			if rec := s.record(ctx, key); rec != nil {
				return s.replay(ctx, rec, hold.ID, amount)
			}
			return nil, ErrHoldAlreadyConsumed
		}
		return nil, ErrHoldExpired
	}

	tickets, err := s.issuer.Issue(ctx, hold, paymentRef)
	if err != nil {
		// Nothing was issued; hand the hold back so a retry can win it.
		hold.CompareAndSwapState(models.HoldStateConsumed, models.HoldStateActive)
		return nil, fmt.Errorf("failed to issue tickets: %w", err)
	}

	ids := make([]string, 0, len(tickets))
	for _, t := range tickets {
		ids = append(ids, t.ID)
	}
	if err := s.idem.Put(ctx, &models.IdempotencyRecord{
		Key:       key,
		HoldID:    hold.ID,
		Amount:    amount,
		TicketIDs: ids,
		CreatedAt: s.now(),
	}); err != nil {
		// The tickets stand; losing the record only costs replay
		// capability, never double issuance.
		s.l.Errorf(ctx, "paymentService.confirmHold: failed to store idempotency record: %v", err)
	}

	return tickets, nil
}

// expireIfOverdue lets a confirmation arriving after the TTL retire the
// hold itself instead of waiting for the sweep. Both paths attempt the
// same CAS, so the outcome is single.
func (s *paymentService) expireIfOverdue(ctx context.Context, hold *models.Hold) {
	if !hold.IsExpired(s.now()) {
		return
	}
	if hold.CompareAndSwapState(models.HoldStateActive, models.HoldStateExpired) {
		s.inv.ReleaseMany(hold.SegmentSeats)
		if err := s.prod.PublishHoldExpired(ctx, kafka.HoldExpiredEvent{
			HoldID:    hold.ID,
			TripID:    hold.TripID,
			SeatCount: hold.SeatCount(),
			ExpiredAt: s.now(),
		}); err != nil {
			s.l.Errorf(ctx, "paymentService.expireIfOverdue: failed to publish event: %v", err)
		}
	}
}

func (s *paymentService) record(ctx context.Context, key string) *models.IdempotencyRecord {
	rec, err := s.idem.Get(ctx, key)
	if err != nil {
		return nil
	}
	return rec
}

// replay returns the outcome of a previously settled confirmation. The
// same key arriving with a different hold or amount is an integrity
// violation, not a retry.
func (s *paymentService) replay(ctx context.Context, rec *models.IdempotencyRecord, holdID string, amount int64) ([]*models.Ticket, error) {
	if rec.HoldID != holdID || rec.Amount != amount {
		return nil, ErrIdempotencyConflict
	}

	tickets := make([]*models.Ticket, 0, len(rec.TicketIDs))
	for _, id := range rec.TicketIDs {
		t, err := s.tickets.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load replayed ticket %s: %w", id, err)
		}
		tickets = append(tickets, t)
	}

	s.l.Infof(ctx, "Payment confirmation replayed - hold_id: %s, key: %s", holdID, rec.Key)
	return tickets, nil
}

func (s *paymentService) ConfirmRoundTrip(ctx context.Context, booking *models.RoundTripBooking, in ConfirmBookingInput) ([]*models.Ticket, error) {
	outKey := in.IdempotencyKey + "#out"
	retKey := in.IdempotencyKey + "#ret"

	outHold, err := s.holds.Get(ctx, booking.OutboundHoldID)
	if err != nil {
		return nil, ErrHoldNotFound
	}
	retHold, err := s.holds.Get(ctx, booking.ReturnHoldID)
	if err != nil {
		return nil, ErrHoldNotFound
	}

	if in.Amount != outHold.Amount+retHold.Amount {
		return nil, fmt.Errorf("%w: got %d, booking quotes %d",
			ErrAmountMismatch, in.Amount, outHold.Amount+retHold.Amount)
	}

	outRec := s.record(ctx, outKey)
	retRec := s.record(ctx, retKey)

	// Consume both legs before issuing anything. A leg already settled
	// under this key (a replayed webhook, or a retry after a partial
	// failure) is adopted rather than re-consumed.
	outConsumedNow := false
	if outRec == nil {
		s.expireIfOverdue(ctx, outHold)
		if !outHold.CompareAndSwapState(models.HoldStateActive, models.HoldStateConsumed) {
			return nil, s.legStateError(outHold)
		}
		outConsumedNow = true
	}
	if retRec == nil {
		s.expireIfOverdue(ctx, retHold)
		if !retHold.CompareAndSwapState(models.HoldStateActive, models.HoldStateConsumed) {
			if outConsumedNow {
				// No outbound ticket exists yet; hand the leg back.
				outHold.CompareAndSwapState(models.HoldStateConsumed, models.HoldStateActive)
			}
			return nil, s.legStateError(retHold)
		}
	}

	outTickets, err := s.settleLeg(ctx, outHold, outRec, outKey, in.PaymentRef)
	if err != nil {
		if outConsumedNow {
			outHold.CompareAndSwapState(models.HoldStateConsumed, models.HoldStateActive)
		}
		if retRec == nil {
			retHold.CompareAndSwapState(models.HoldStateConsumed, models.HoldStateActive)
		}
		return nil, err
	}

	retTickets, err := s.settleLeg(ctx, retHold, retRec, retKey, in.PaymentRef)
	if err != nil {
		// The outbound leg is settled and recorded; a retried webhook
		// adopts it and completes the return leg.
		if retRec == nil {
			retHold.CompareAndSwapState(models.HoldStateConsumed, models.HoldStateActive)
		}
		return nil, err
	}

	s.l.Infof(ctx, "Round trip confirmed - booking_id: %s, tickets: %d",
		booking.ID, len(outTickets)+len(retTickets))
	return append(outTickets, retTickets...), nil
}

// settleLeg issues and records one consumed leg, or replays its
// existing record.
func (s *paymentService) settleLeg(ctx context.Context, hold *models.Hold, rec *models.IdempotencyRecord, key, paymentRef string) ([]*models.Ticket, error) {
	if rec != nil {
		return s.replay(ctx, rec, hold.ID, hold.Amount)
	}

	tickets, err := s.issuer.Issue(ctx, hold, paymentRef)
	if err != nil {
		return nil, fmt.Errorf("failed to issue tickets: %w", err)
	}

	ids := make([]string, 0, len(tickets))
	for _, t := range tickets {
		ids = append(ids, t.ID)
	}
	if err := s.idem.Put(ctx, &models.IdempotencyRecord{
		Key:       key,
		HoldID:    hold.ID,
		Amount:    hold.Amount,
		TicketIDs: ids,
		CreatedAt: s.now(),
	}); err != nil {
		s.l.Errorf(ctx, "paymentService.settleLeg: failed to store idempotency record: %v", err)
	}
	return tickets, nil
}

func (s *paymentService) legStateError(hold *models.Hold) error {
	if hold.State() == models.HoldStateConsumed {
		return ErrHoldAlreadyConsumed
	}
	return ErrHoldExpired
}
