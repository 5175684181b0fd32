package http

import (
	"time"

	"github.com/vogiaan1904/transit-reservation/internal/models"
	"github.com/vogiaan1904/transit-reservation/internal/service"
)

// Response shapes. Holds carry internal reservation state and transfer
// tokens carry their redemption flag in unexported fields, so both get
// explicit wire forms here instead of being serialized directly.

type holdResponse struct {
	HoldID         string                `json:"hold_id"`
	TripID         string                `json:"trip_id"`
	State          string                `json:"state"`
	SegmentSeats   []models.SegmentSeats `json:"segment_seats"`
	Passengers     []string              `json:"passengers"`
	Channel        models.SalesChannel   `json:"channel"`
	Amount         int64                 `json:"amount"`
	ExpiresAt      time.Time             `json:"expires_at"`
	PassengerCount int                   `json:"passenger_count"`
}

func newHoldResponse(hold *models.Hold) holdResponse {
	return holdResponse{
		HoldID:         hold.ID,
		TripID:         hold.TripID,
		State:          hold.State().String(),
		SegmentSeats:   hold.SegmentSeats,
		Passengers:     hold.Passengers,
		Channel:        hold.Channel,
		Amount:         hold.Amount,
		ExpiresAt:      hold.ExpiresAt,
		PassengerCount: hold.PassengerCount,
	}
}

type ticketResponse struct {
	TicketID      string                `json:"ticket_id"`
	Code          string                `json:"code"`
	QRPayload     string                `json:"qr_payload"`
	Passenger     string                `json:"passenger"`
	TripID        string                `json:"trip_id"`
	SegmentSeats  []models.SegmentSeats `json:"segment_seats"`
	Price         int64                 `json:"price"`
	Commission    int64                 `json:"commission"`
	Channel       models.SalesChannel   `json:"channel"`
	Status        models.TicketStatus   `json:"status"`
	TransferCount int                   `json:"transfer_count"`
	DepartureTime time.Time             `json:"departure_time"`
	IssuedAt      time.Time             `json:"issued_at"`
}

func newTicketResponse(t *models.Ticket) ticketResponse {
	return ticketResponse{
		TicketID:      t.ID,
		Code:          t.Code,
		QRPayload:     t.QRPayload,
		Passenger:     t.Passenger,
		TripID:        t.TripID,
		SegmentSeats:  t.SegmentSeats,
		Price:         t.Price,
		Commission:    t.Commission,
		Channel:       t.Channel,
		Status:        t.Status,
		TransferCount: t.TransferCount,
		DepartureTime: t.DepartureTime,
		IssuedAt:      t.IssuedAt,
	}
}

type ticketListResponse struct {
	Tickets []ticketResponse `json:"tickets"`
}

func newTicketListResponse(tickets []*models.Ticket) ticketListResponse {
	out := ticketListResponse{Tickets: make([]ticketResponse, 0, len(tickets))}
	for _, t := range tickets {
		out.Tickets = append(out.Tickets, newTicketResponse(t))
	}
	return out
}

type transferTokenResponse struct {
	Token     string    `json:"token"`
	TicketID  string    `json:"ticket_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

func newTransferTokenResponse(token *models.TransferToken) transferTokenResponse {
	return transferTokenResponse{
		Token:     token.Token,
		TicketID:  token.TicketID,
		ExpiresAt: token.ExpiresAt,
	}
}

type roundTripResponse struct {
	BookingID string       `json:"booking_id"`
	Amount    int64        `json:"amount"`
	Outbound  holdResponse `json:"outbound"`
	Return    holdResponse `json:"return"`
}

func newRoundTripResponse(out *service.BookRoundTripOutput) roundTripResponse {
	return roundTripResponse{
		BookingID: out.Booking.ID,
		Amount:    out.Booking.Amount,
		Outbound:  newHoldResponse(out.Outbound),
		Return:    newHoldResponse(out.Return),
	}
}
