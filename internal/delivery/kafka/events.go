package kafka

import "time"

// Topic names. Events published by the reservation engine are keyed by
// trip ID so per-trip ordering survives partitioning.
const (
	TopicHoldCreated       = "HOLD_CREATED"
	TopicHoldExpired       = "HOLD_EXPIRED"
	TopicTicketIssued      = "TICKET_ISSUED"
	TopicTicketTransferred = "TICKET_TRANSFERRED"
	TopicTicketCancelled   = "TICKET_CANCELLED"

	// TopicPaymentConfirmed carries payment-gateway webhooks consumed by
	// the engine. Deliveries may repeat; the idempotency key makes the
	// replay harmless.
	TopicPaymentConfirmed = "PAYMENT_CONFIRMED"
)

// Events published BY the reservation engine.

type HoldCreatedEvent struct {
	HoldID         string    `json:"hold_id"`
	TripID         string    `json:"trip_id"`
	SeatCount      int       `json:"seat_count"`
	PassengerCount int       `json:"passenger_count"`
	Channel        string    `json:"channel"`
	Amount         int64     `json:"amount"`
	ExpiresAt      time.Time `json:"expires_at"`
	Timestamp      time.Time `json:"timestamp"`
}

type HoldExpiredEvent struct {
	HoldID    string    `json:"hold_id"`
	TripID    string    `json:"trip_id"`
	SeatCount int       `json:"seat_count"`
	ExpiredAt time.Time `json:"expired_at"`
	Timestamp time.Time `json:"timestamp"`
}

type TicketIssuedEvent struct {
	TicketID   string    `json:"ticket_id"`
	Code       string    `json:"code"`
	HoldID     string    `json:"hold_id"`
	TripID     string    `json:"trip_id"`
	Passenger  string    `json:"passenger"`
	Price      int64     `json:"price"`
	Commission int64     `json:"commission"`
	Channel    string    `json:"channel"`
	Timestamp  time.Time `json:"timestamp"`
}

type TicketTransferredEvent struct {
	TicketID      string    `json:"ticket_id"`
	TripID        string    `json:"trip_id"`
	NewPassenger  string    `json:"new_passenger"`
	TransferCount int       `json:"transfer_count"`
	Timestamp     time.Time `json:"timestamp"`
}

type TicketCancelledEvent struct {
	TicketID            string    `json:"ticket_id"`
	TripID              string    `json:"trip_id"`
	RefundAmount        int64     `json:"refund_amount"`
	CommissionForfeited int64     `json:"commission_forfeited"`
	Timestamp           time.Time `json:"timestamp"`
}

// Events consumed BY the reservation engine (from the payment gateway).

type PaymentConfirmedEvent struct {
	HoldID         string    `json:"hold_id"`
	BookingID      string    `json:"booking_id,omitempty"`
	IdempotencyKey string    `json:"idempotency_key"`
	Amount         int64     `json:"amount"`
	PaymentRef     string    `json:"payment_ref"`
	Timestamp      time.Time `json:"timestamp"`
}
