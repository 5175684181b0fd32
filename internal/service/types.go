package service

import (
	"github.com/vogiaan1904/transit-reservation/internal/models"
)

type SegmentSeatsInput struct {
	SegmentID string `json:"segment_id" validate:"required"`
	// One seat per passenger; SeatNumbers[i] belongs to passenger i on
	// every segment of the request.
	SeatNumbers []int `json:"seat_numbers" validate:"required,min=1"`
}

type CreateHoldInput struct {
	TripID     string              `json:"trip_id" validate:"required"`
	Segments   []SegmentSeatsInput `json:"segments" validate:"required,min=1,dive"`
	Passengers []string            `json:"passengers" validate:"required,min=1,dive,required"`
	Channel    models.SalesChannel `json:"channel" validate:"required,oneof=online counter"`
}

type ConfirmPaymentInput struct {
	HoldID         string `json:"hold_id" validate:"required"`
	IdempotencyKey string `json:"idempotency_key" validate:"required"`
	Amount         int64  `json:"amount" validate:"gt=0"`
	PaymentRef     string `json:"payment_ref"`
}

type RedeemTransferInput struct {
	Token        string `json:"token" validate:"required"`
	NewPassenger string `json:"new_passenger" validate:"required"`
}

type BookRoundTripInput struct {
	Outbound CreateHoldInput `json:"outbound" validate:"required"`
	Return   CreateHoldInput `json:"return" validate:"required"`
}

type ConfirmBookingInput struct {
	BookingID      string `json:"booking_id" validate:"required"`
	IdempotencyKey string `json:"idempotency_key" validate:"required"`
	Amount         int64  `json:"amount" validate:"gt=0"`
	PaymentRef     string `json:"payment_ref"`
}

type BookRoundTripOutput struct {
	Booking  *models.RoundTripBooking
	Outbound *models.Hold
	Return   *models.Hold
}
