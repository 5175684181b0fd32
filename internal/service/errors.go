package service

import (
	"errors"

	"github.com/vogiaan1904/transit-reservation/internal/inventory"
)

var (
	// ErrSeatUnavailable is the inventory store's sentinel re-exported at
	// the service boundary; recoverable by retrying with other seats.
	ErrSeatUnavailable = inventory.ErrSeatUnavailable

	ErrTripNotFound      = errors.New("trip not found")
	ErrTripNotBookable   = errors.New("trip is not open for booking")
	ErrInvalidTripStatus = errors.New("invalid trip status transition")

	ErrInvalidHoldRequest  = errors.New("invalid hold request")
	ErrHoldNotFound        = errors.New("hold not found")
	ErrHoldExpired         = errors.New("hold expired or released")
	ErrHoldAlreadyConsumed = errors.New("hold already consumed")

	ErrAmountMismatch = errors.New("payment amount does not match hold")
	// ErrIdempotencyConflict means the same key was replayed with a
	// different hold or amount; an integrity failure, never retried.
	ErrIdempotencyConflict = errors.New("idempotency key conflict")

	ErrTicketNotFound  = errors.New("ticket not found")
	ErrTicketNotActive = errors.New("ticket is not active")
	ErrInvalidQRCode   = errors.New("QR payload failed verification")

	ErrTransferLimitExceeded = errors.New("ticket transfer limit exceeded")
	ErrTokenNotFound         = errors.New("transfer token not found")
	ErrTokenExpired          = errors.New("transfer token expired")
	ErrTokenAlreadyRedeemed  = errors.New("transfer token already redeemed")

	ErrNotCancellable = errors.New("ticket cannot be cancelled")

	ErrBookingNotFound = errors.New("booking not found")
)
