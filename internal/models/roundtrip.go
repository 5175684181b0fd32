package models

import "time"

// RoundTripBooking groups an outbound and a return hold that share one
// payment. The legs are reserved atomically: a caller never ends up
// holding only half a round trip.
type RoundTripBooking struct {
	ID             string    `json:"id"`
	OutboundHoldID string    `json:"outbound_hold_id"`
	ReturnHoldID   string    `json:"return_hold_id"`
	Amount         int64     `json:"amount"`
	CreatedAt      time.Time `json:"created_at"`
}
