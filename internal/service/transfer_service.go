package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vogiaan1904/transit-reservation/config"
	kafka "github.com/vogiaan1904/transit-reservation/internal/delivery/kafka"
	"github.com/vogiaan1904/transit-reservation/internal/delivery/kafka/producer"
	"github.com/vogiaan1904/transit-reservation/internal/models"
	"github.com/vogiaan1904/transit-reservation/internal/repository"
	redisrepo "github.com/vogiaan1904/transit-reservation/internal/repository/redis"
	"github.com/vogiaan1904/transit-reservation/pkg/logger"
)

// TransferService reassigns a ticket to a new passenger through a
// single-use token. Redemption races resolve on the token's redeemed
// flag, so handing the same token to two people yields exactly one
// transfer.
type TransferService interface {
	CreateTransferToken(ctx context.Context, ticketID string) (*models.TransferToken, error)
	RedeemTransferToken(ctx context.Context, in RedeemTransferInput) (*models.Ticket, error)
}

type transferService struct {
	tickets   repository.TicketRepository
	tokens    repository.TransferTokenRepository
	readModel redisrepo.ReadModelRepository
	prod      producer.Producer
	cfg       config.BookingConfig
	l         logger.Logger
	now       func() time.Time
}

func NewTransferService(
	tickets repository.TicketRepository,
	tokens repository.TransferTokenRepository,
	readModel redisrepo.ReadModelRepository,
	prod producer.Producer,
	cfg config.BookingConfig,
	l logger.Logger,
) TransferService {
	return &transferService{
		tickets:   tickets,
		tokens:    tokens,
		readModel: readModel,
		prod:      prod,
		cfg:       cfg,
		l:         l,
		now:       time.Now,
	}
}

func (s *transferService) CreateTransferToken(ctx context.Context, ticketID string) (*models.TransferToken, error) {
	ticket, err := s.tickets.Get(ctx, ticketID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	if !ticket.IsActive() {
		return nil, ErrTicketNotActive
	}
	if ticket.TransferCount >= s.cfg.MaxTransferCount {
		return nil, ErrTransferLimitExceeded
	}

	now := s.now()
	token := &models.TransferToken{
		Token:     uuid.NewString(),
		TicketID:  ticket.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.TransferTokenTTL),
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		return nil, err
	}

	s.l.Infof(ctx, "Transfer token created - ticket_id: %s, expires_at: %s",
		ticket.ID, token.ExpiresAt.Format(time.RFC3339))
	return token, nil
}

func (s *transferService) RedeemTransferToken(ctx context.Context, in RedeemTransferInput) (*models.Ticket, error) {
	token, err := s.tokens.Get(ctx, in.Token)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}

	// All checks and the reassignment run under the ticket's lock;
	// marking the token redeemed is the step only one caller can win.
	ticket, err := s.tickets.Update(ctx, token.TicketID, func(t *models.Ticket) error {
		if !t.IsActive() {
			return ErrTicketNotActive
		}
		if t.TransferCount >= s.cfg.MaxTransferCount {
			return ErrTransferLimitExceeded
		}
		if token.IsExpired(s.now()) {
			return ErrTokenExpired
		}
		if !token.MarkRedeemed() {
			return ErrTokenAlreadyRedeemed
		}
		t.Passenger = in.NewPassenger
		t.TransferCount++
		t.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}

	s.mirror(ctx, ticket)
	if err := s.prod.PublishTicketTransferred(ctx, kafka.TicketTransferredEvent{
		TicketID:      ticket.ID,
		TripID:        ticket.TripID,
		NewPassenger:  ticket.Passenger,
		TransferCount: ticket.TransferCount,
		Timestamp:     s.now(),
	}); err != nil {
		s.l.Errorf(ctx, "transferService.RedeemTransferToken: failed to publish event: %v", err)
	}

	s.l.Infof(ctx, "Ticket transferred - ticket_id: %s, transfer_count: %d", ticket.ID, ticket.TransferCount)
	return ticket, nil
}

func (s *transferService) mirror(ctx context.Context, ticket *models.Ticket) {
	if s.readModel == nil {
		return
	}
	if err := s.readModel.SaveTicket(ctx, ticket); err != nil {
		s.l.Warnf(ctx, "transferService.mirror: %v", err)
	}
}
