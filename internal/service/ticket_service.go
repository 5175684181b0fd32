package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vogiaan1904/transit-reservation/config"
	kafka "github.com/vogiaan1904/transit-reservation/internal/delivery/kafka"
	"github.com/vogiaan1904/transit-reservation/internal/delivery/kafka/producer"
	"github.com/vogiaan1904/transit-reservation/internal/inventory"
	"github.com/vogiaan1904/transit-reservation/internal/models"
	"github.com/vogiaan1904/transit-reservation/internal/repository"
	redisrepo "github.com/vogiaan1904/transit-reservation/internal/repository/redis"
	"github.com/vogiaan1904/transit-reservation/pkg/logger"
	"github.com/vogiaan1904/transit-reservation/pkg/ticketcode"
)

type TicketService interface {
	// Issue creates one ticket per passenger of a consumed hold and
	// marks the held seats as sold. Called only by the payment
	// coordinator after it has won the hold's state CAS.
	Issue(ctx context.Context, hold *models.Hold, paymentRef string) ([]*models.Ticket, error)
	GetTicket(ctx context.Context, id string) (*models.Ticket, error)
	GetTicketByCode(ctx context.Context, code string) (*models.Ticket, error)
	// Board records a boarding scan, optionally verifying the scanned
	// QR payload against the ticket.
	Board(ctx context.Context, ticketID, qrPayload string) (*models.Ticket, error)
	// VerifyQR validates a scanned payload offline and returns the
	// ticket ID it certifies.
	VerifyQR(qrPayload string) (string, error)
}

type ticketService struct {
	tickets   repository.TicketRepository
	trips     repository.TripRepository
	inv       *inventory.Store
	readModel redisrepo.ReadModelRepository
	prod      producer.Producer
	cfg       config.BookingConfig
	l         logger.Logger
	now       func() time.Time
}

func NewTicketService(
	tickets repository.TicketRepository,
	trips repository.TripRepository,
	inv *inventory.Store,
	readModel redisrepo.ReadModelRepository,
	prod producer.Producer,
	cfg config.BookingConfig,
	l logger.Logger,
) TicketService {
	return &ticketService{
		tickets:   tickets,
		trips:     trips,
		inv:       inv,
		readModel: readModel,
		prod:      prod,
		cfg:       cfg,
		l:         l,
		now:       time.Now,
	}
}

func (s *ticketService) Issue(ctx context.Context, hold *models.Hold, paymentRef string) ([]*models.Ticket, error) {
	trip, err := s.trips.Get(ctx, hold.TripID)
	if err != nil {
		return nil, fmt.Errorf("failed to get trip for hold %s: %w", hold.ID, err)
	}

	// The hold amount was quoted as passengerCount * perPassenger, so
	// the division is exact.
	perPassenger := hold.Amount / int64(hold.PassengerCount)
	var base int64
	for _, ss := range hold.SegmentSeats {
		if seg := trip.Segment(ss.SegmentID); seg != nil {
			base += seg.SeatPrice
		}
	}
	commission := perPassenger - base

	now := s.now()
	departure := trip.DepartureTime()
	tickets := make([]*models.Ticket, 0, hold.PassengerCount)
	for i, passenger := range hold.Passengers {
		code, err := ticketcode.Generate()
		if err != nil {
			return nil, fmt.Errorf("failed to generate ticket code: %w", err)
		}

		seats := make([]models.SegmentSeats, 0, len(hold.SegmentSeats))
		for _, ss := range hold.SegmentSeats {
			seats = append(seats, models.SegmentSeats{
				SegmentID:   ss.SegmentID,
				SeatNumbers: []int{ss.SeatNumbers[i]},
			})
		}

		ticket := &models.Ticket{
			ID:            uuid.New().String(),
			Code:          code,
			Passenger:     passenger,
			TripID:        hold.TripID,
			SegmentSeats:  seats,
			Price:         perPassenger,
			Commission:    commission,
			Channel:       hold.Channel,
			Status:        models.TicketStatusActive,
			HoldID:        hold.ID,
			PaymentRef:    paymentRef,
			DepartureTime: departure,
			IssuedAt:      now,
			UpdatedAt:     now,
		}

		payload, err := s.signQR(ticket)
		if err != nil {
			return nil, fmt.Errorf("failed to sign QR payload: %w", err)
		}
		ticket.QRPayload = payload

		tickets = append(tickets, ticket)
	}

	// Seats move from held to sold; from here only an explicit
	// cancellation returns them to the pool.
	if err := s.inv.CommitMany(hold.SegmentSeats); err != nil {
		return nil, fmt.Errorf("failed to commit inventory: %w", err)
	}

	for _, ticket := range tickets {
		if err := s.tickets.Create(ctx, ticket); err != nil {
			return nil, fmt.Errorf("failed to store ticket: %w", err)
		}

		s.mirrorTicket(ctx, ticket)

		if err := s.prod.PublishTicketIssued(ctx, kafka.TicketIssuedEvent{
			TicketID:   ticket.ID,
			Code:       ticket.Code,
			HoldID:     hold.ID,
			TripID:     ticket.TripID,
			Passenger:  ticket.Passenger,
			Price:      ticket.Price,
			Commission: ticket.Commission,
			Channel:    string(ticket.Channel),
		}); err != nil {
			s.l.Errorf(ctx, "ticketService.Issue: failed to publish event: %v", err)
		}
	}

	s.l.Infof(ctx, "Tickets issued - hold_id: %s, count: %d", hold.ID, len(tickets))
	return tickets, nil
}

func (s *ticketService) GetTicket(ctx context.Context, id string) (*models.Ticket, error) {
	ticket, err := s.tickets.Get(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return ticket, nil
}

func (s *ticketService) GetTicketByCode(ctx context.Context, code string) (*models.Ticket, error) {
	if !ticketcode.Validate(code) {
		return nil, ErrTicketNotFound
	}
	ticket, err := s.tickets.GetByCode(ctx, code)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return ticket, nil
}

func (s *ticketService) Board(ctx context.Context, ticketID, qrPayload string) (*models.Ticket, error) {
	if qrPayload != "" {
		tid, err := s.VerifyQR(qrPayload)
		if err != nil {
			return nil, err
		}
		if tid != ticketID {
			return nil, ErrInvalidQRCode
		}
	}

	ticket, err := s.tickets.Update(ctx, ticketID, func(t *models.Ticket) error {
		if !t.Status.CanTransitionTo(models.TicketStatusEmbarked) {
			return ErrTicketNotActive
		}
		t.Status = models.TicketStatusEmbarked
		t.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}

	s.mirrorTicket(ctx, ticket)

	s.l.Infof(ctx, "Ticket boarded - ticket_id: %s", ticketID)
	return ticket, nil
}

// signQR builds the offline-verifiable QR payload: an HS256 token over
// the ticket identity, checked by scanners that have no network.
func (s *ticketService) signQR(ticket *models.Ticket) (string, error) {
	claims := jwt.MapClaims{
		"tid":  ticket.ID,
		"code": ticket.Code,
		"trip": ticket.TripID,
		"iat":  s.now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.QRSecret))
}

func (s *ticketService) VerifyQR(qrPayload string) (string, error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(qrPayload, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidQRCode
		}
		return []byte(s.cfg.QRSecret), nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidQRCode
	}

	tid, ok := claims["tid"].(string)
	if !ok || tid == "" {
		return "", ErrInvalidQRCode
	}
	return tid, nil
}

func (s *ticketService) mirrorTicket(ctx context.Context, ticket *models.Ticket) {
	if s.readModel == nil {
		return
	}
	if err := s.readModel.SaveTicket(ctx, ticket); err != nil {
		s.l.Warnf(ctx, "ticketService.mirrorTicket: %v", err)
	}
}
