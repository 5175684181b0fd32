package models

import "time"

type TripStatus string

const (
	TripStatusScheduled TripStatus = "scheduled"
	TripStatusBoarding  TripStatus = "boarding"
	TripStatusDeparted  TripStatus = "departed"
	TripStatusArrived   TripStatus = "arrived"
	TripStatusCancelled TripStatus = "cancelled"
)

// Trip statuses only move forward. Cancellation is reachable while the
// vehicle has not departed yet.
var tripTransitions = map[TripStatus][]TripStatus{
	TripStatusScheduled: {TripStatusBoarding, TripStatusDeparted, TripStatusCancelled},
	TripStatusBoarding:  {TripStatusDeparted, TripStatusCancelled},
	TripStatusDeparted:  {TripStatusArrived},
}

func (s TripStatus) CanTransitionTo(next TripStatus) bool {
	for _, allowed := range tripTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Trip is a scheduled vehicle run. Immutable once registered, except for
// its status; seat availability lives in the inventory store.
type Trip struct {
	ID        string     `json:"id"`
	Route     string     `json:"route"`
	Status    TripStatus `json:"status"`
	Segments  []*Segment `json:"segments"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Segment is one stop-to-stop leg of a trip; the unit of seat inventory.
type Segment struct {
	ID        string    `json:"id"`
	TripID    string    `json:"trip_id"`
	FromStop  string    `json:"from_stop"`
	ToStop    string    `json:"to_stop"`
	DepartsAt time.Time `json:"departs_at"`
	ArrivesAt time.Time `json:"arrives_at"`
	// TotalSeats is fixed at registration; seats are numbered 1..TotalSeats.
	TotalSeats int `json:"total_seats"`
	// SeatPrice is the per-seat fare in minor currency units.
	SeatPrice int64 `json:"seat_price"`
}

func (t *Trip) Segment(id string) *Segment {
	for _, seg := range t.Segments {
		if seg.ID == id {
			return seg
		}
	}
	return nil
}

// DepartureTime is the departure of the trip's first segment.
func (t *Trip) DepartureTime() time.Time {
	if len(t.Segments) == 0 {
		return time.Time{}
	}
	dep := t.Segments[0].DepartsAt
	for _, seg := range t.Segments[1:] {
		if seg.DepartsAt.Before(dep) {
			dep = seg.DepartsAt
		}
	}
	return dep
}

// Bookable reports whether new holds may be placed against the trip.
func (t *Trip) Bookable() bool {
	return t.Status == TripStatusScheduled || t.Status == TripStatusBoarding
}

// TripOccupancy is the read model consumed by dashboards. Collaborators
// never mutate inventory through it.
type TripOccupancy struct {
	TripID    string             `json:"trip_id"`
	Route     string             `json:"route"`
	Status    TripStatus         `json:"status"`
	Segments  []SegmentOccupancy `json:"segments"`
	UpdatedAt time.Time          `json:"updated_at"`
}

type SegmentOccupancy struct {
	SegmentID  string `json:"segment_id"`
	FromStop   string `json:"from_stop"`
	ToStop     string `json:"to_stop"`
	TotalSeats int    `json:"total_seats"`
	HeldSeats  int    `json:"held_seats"`
	SoldSeats  int    `json:"sold_seats"`
	Available  int    `json:"available"`
}
