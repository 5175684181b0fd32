package models

import (
	"sync/atomic"
	"time"
)

type HoldState int32

const (
	HoldStateActive HoldState = iota
	HoldStateConsumed
	HoldStateExpired
	HoldStateReleased
)

func (s HoldState) String() string {
	switch s {
	case HoldStateActive:
		return "active"
	case HoldStateConsumed:
		return "consumed"
	case HoldStateExpired:
		return "expired"
	case HoldStateReleased:
		return "released"
	default:
		return "unknown"
	}
}

// SegmentSeats is a set of seat numbers claimed on one segment.
type SegmentSeats struct {
	SegmentID   string `json:"segment_id"`
	SeatNumbers []int  `json:"seat_numbers"`
}

// Hold is an exclusive, time-bounded claim on seats for a candidate
// booking. It is never renewed; after expiry a new hold must be created.
//
// State transitions (active -> consumed, active -> expired,
// active -> released) are compare-and-swap operations so that a payment
// confirmation and the expiry sweep racing on the same hold resolve to
// exactly one winner.
type Hold struct {
	ID             string
	TripID         string
	SegmentSeats   []SegmentSeats
	PassengerCount int
	Passengers     []string
	Channel        SalesChannel
	// Amount is the payable total quoted at hold time, in minor units.
	Amount    int64
	CreatedAt time.Time
	ExpiresAt time.Time

	state atomic.Int32
}

func (h *Hold) State() HoldState {
	return HoldState(h.state.Load())
}

func (h *Hold) SetState(s HoldState) {
	h.state.Store(int32(s))
}

// CompareAndSwapState atomically moves the hold from one state to
// another. Exactly one of several racing transitions succeeds.
func (h *Hold) CompareAndSwapState(from, to HoldState) bool {
	return h.state.CompareAndSwap(int32(from), int32(to))
}

func (h *Hold) IsExpired(now time.Time) bool {
	return now.After(h.ExpiresAt)
}

// SeatCount is the total number of (segment, seat) pairs the hold claims.
func (h *Hold) SeatCount() int {
	n := 0
	for _, ss := range h.SegmentSeats {
		n += len(ss.SeatNumbers)
	}
	return n
}
