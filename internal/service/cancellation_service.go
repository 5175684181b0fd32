package service

import (
	"context"
	"time"

	"github.com/vogiaan1904/transit-reservation/config"
	kafka "github.com/vogiaan1904/transit-reservation/internal/delivery/kafka"
	"github.com/vogiaan1904/transit-reservation/internal/delivery/kafka/producer"
	"github.com/vogiaan1904/transit-reservation/internal/inventory"
	"github.com/vogiaan1904/transit-reservation/internal/models"
	"github.com/vogiaan1904/transit-reservation/internal/repository"
	redisrepo "github.com/vogiaan1904/transit-reservation/internal/repository/redis"
	"github.com/vogiaan1904/transit-reservation/pkg/logger"
)

// CancellationService voids tickets ahead of departure and computes the
// refund. The cutoff is measured against the trip's departure time, not
// the cancellation request's arrival order.
type CancellationService interface {
	// CanCancel reports whether the ticket is currently cancellable
	// without mutating anything.
	CanCancel(ctx context.Context, ticketID string) (bool, error)
	Cancel(ctx context.Context, ticketID string) (*models.Refund, error)
}

type cancellationService struct {
	tickets   repository.TicketRepository
	inv       *inventory.Store
	readModel redisrepo.ReadModelRepository
	prod      producer.Producer
	cfg       config.BookingConfig
	l         logger.Logger
	now       func() time.Time
}

func NewCancellationService(
	tickets repository.TicketRepository,
	inv *inventory.Store,
	readModel redisrepo.ReadModelRepository,
	prod producer.Producer,
	cfg config.BookingConfig,
	l logger.Logger,
) CancellationService {
	return &cancellationService{
		tickets:   tickets,
		inv:       inv,
		readModel: readModel,
		prod:      prod,
		cfg:       cfg,
		l:         l,
		now:       time.Now,
	}
}

func (s *cancellationService) CanCancel(ctx context.Context, ticketID string) (bool, error) {
	ticket, err := s.tickets.Get(ctx, ticketID)
	if err != nil {
		if err == repository.ErrNotFound {
			return false, ErrTicketNotFound
		}
		return false, err
	}
	return s.cancellable(ticket), nil
}

// cancellable requires an active ticket and at least the cutoff window
// remaining before departure. Exactly the cutoff still qualifies.
func (s *cancellationService) cancellable(t *models.Ticket) bool {
	return t.IsActive() && t.DepartureTime.Sub(s.now()) >= s.cfg.CancelCutoff
}

func (s *cancellationService) Cancel(ctx context.Context, ticketID string) (*models.Refund, error) {
	var refund *models.Refund

	ticket, err := s.tickets.Update(ctx, ticketID, func(t *models.Ticket) error {
		if !s.cancellable(t) {
			return ErrNotCancellable
		}
		t.Status = models.TicketStatusCancelled
		t.UpdatedAt = s.now()

		forfeited := int64(0)
		if t.Channel == models.ChannelOnline && s.cfg.RefundForfeitsCommission {
			forfeited = t.Commission
		}
		refund = &models.Refund{
			TicketID:            t.ID,
			Amount:              t.Price - forfeited,
			CommissionForfeited: forfeited,
		}
		return nil
	})
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}

	// The seats go back on sale for every segment of the journey.
	s.inv.ReleaseMany(ticket.SegmentSeats)

	s.mirror(ctx, ticket)
	if err := s.prod.PublishTicketCancelled(ctx, kafka.TicketCancelledEvent{
		TicketID:            ticket.ID,
		TripID:              ticket.TripID,
		RefundAmount:        refund.Amount,
		CommissionForfeited: refund.CommissionForfeited,
		Timestamp:           s.now(),
	}); err != nil {
		s.l.Errorf(ctx, "cancellationService.Cancel: failed to publish event: %v", err)
	}

	s.l.Infof(ctx, "Ticket cancelled - ticket_id: %s, refund: %d, forfeited: %d",
		ticket.ID, refund.Amount, refund.CommissionForfeited)
	return refund, nil
}

func (s *cancellationService) mirror(ctx context.Context, ticket *models.Ticket) {
	if s.readModel == nil {
		return
	}
	if err := s.readModel.SaveTicket(ctx, ticket); err != nil {
		s.l.Warnf(ctx, "cancellationService.mirror: %v", err)
	}
}
