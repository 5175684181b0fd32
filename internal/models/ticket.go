package models

import "time"

type SalesChannel string

const (
	ChannelOnline  SalesChannel = "online"
	ChannelCounter SalesChannel = "counter"
)

func (c SalesChannel) Valid() bool {
	return c == ChannelOnline || c == ChannelCounter
}

type TicketStatus string

const (
	TicketStatusActive    TicketStatus = "active"
	TicketStatusEmbarked  TicketStatus = "embarked"
	TicketStatusCancelled TicketStatus = "cancelled"
	TicketStatusExpired   TicketStatus = "expired"
)

// Tickets never revert: active is the only non-terminal status.
func (s TicketStatus) CanTransitionTo(next TicketStatus) bool {
	if s != TicketStatusActive {
		return false
	}
	return next == TicketStatusEmbarked || next == TicketStatusCancelled || next == TicketStatusExpired
}

// Ticket is created only from a hold that reached paid state. Mutations
// (boarding, cancellation, transfer redemption, natural expiry) serialize
// on a per-ticket lock held by the ticket repository.
type Ticket struct {
	ID        string       `json:"id"`
	Code      string       `json:"code"`
	QRPayload string       `json:"qr_payload"`
	Passenger string       `json:"passenger"`
	TripID    string       `json:"trip_id"`
	// SegmentSeats carries one seat per segment of the journey.
	SegmentSeats []SegmentSeats `json:"segment_seats"`
	// Price is the charged total for this ticket in minor units,
	// commission included.
	Price int64 `json:"price"`
	// Commission is nonzero only for online sales.
	Commission    int64        `json:"commission"`
	Channel       SalesChannel `json:"channel"`
	Status        TicketStatus `json:"status"`
	TransferCount int          `json:"transfer_count"`
	HoldID        string       `json:"hold_id"`
	PaymentRef    string       `json:"payment_ref"`
	DepartureTime time.Time    `json:"departure_time"`
	IssuedAt      time.Time    `json:"issued_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

func (t *Ticket) IsActive() bool {
	return t.Status == TicketStatusActive
}

// Refund is the outcome of a successful cancellation.
type Refund struct {
	TicketID string `json:"ticket_id"`
	// Amount is the refunded total in minor units. Forfeited commission,
	// if any, is the difference to the ticket price.
	Amount              int64 `json:"amount"`
	CommissionForfeited int64 `json:"commission_forfeited"`
}

// IdempotencyRecord pins a payment confirmation key to its outcome so a
// redelivered webhook returns the original tickets instead of re-issuing.
type IdempotencyRecord struct {
	Key       string
	HoldID    string
	Amount    int64
	TicketIDs []string
	CreatedAt time.Time
}
