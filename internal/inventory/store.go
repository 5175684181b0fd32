package inventory

import (
	"errors"
	"fmt"
	"math/bits"
	"sync"

	"github.com/vogiaan1904/transit-reservation/internal/models"
)

var (
	ErrSeatUnavailable = errors.New("seat unavailable")
	ErrUnknownSegment  = errors.New("unknown segment")
	ErrInvalidSeat     = errors.New("invalid seat number")
	ErrSegmentExists   = errors.New("segment already registered")
)

// Store holds the authoritative per-segment seat counters. Seats are
// tracked as two bitsets per segment: held (claimed by an active hold)
// and sold (committed to an issued ticket). Mutation is linearized with
// a mutex scoped to the segment, never to the whole store, so contention
// is isolated to seats that actually overlap.
type Store struct {
	mu       sync.RWMutex // guards the segments map only
	segments map[string]*segment
}

type segment struct {
	mu    sync.Mutex
	total int
	held  []uint64
	sold  []uint64
}

func NewStore() *Store {
	return &Store{segments: make(map[string]*segment)}
}

// Register adds a segment with seats numbered 1..totalSeats.
func (s *Store) Register(segmentID string, totalSeats int) error {
	if totalSeats <= 0 {
		return fmt.Errorf("%w: total seats must be positive", ErrInvalidSeat)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.segments[segmentID]; ok {
		return fmt.Errorf("%w: %s", ErrSegmentExists, segmentID)
	}

	words := (totalSeats + 63) / 64
	s.segments[segmentID] = &segment{
		total: totalSeats,
		held:  make([]uint64, words),
		sold:  make([]uint64, words),
	}
	return nil
}

// Deregister removes a segment and its counters. Used to unwind a
// partially registered trip; a no-op for unknown segments.
func (s *Store) Deregister(segmentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.segments, segmentID)
}

func (s *Store) get(segmentID string) (*segment, error) {
	s.mu.RLock()
	seg, ok := s.segments[segmentID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSegment, segmentID)
	}
	return seg, nil
}

// Reserve claims the given seats for a hold. All-or-nothing: if any seat
// is already held or sold, nothing is reserved and ErrSeatUnavailable is
// returned.
func (s *Store) Reserve(segmentID string, seats []int) error {
	seg, err := s.get(segmentID)
	if err != nil {
		return err
	}

	seg.mu.Lock()
	defer seg.mu.Unlock()

	// claim doubles as a duplicate detector: a seat repeated within one
	// request collides with its own bit and is rejected like any other
	// unavailable seat.
	claim := make([]uint64, len(seg.held))
	for _, n := range seats {
		w, b, err := seg.index(n)
		if err != nil {
			return err
		}
		if (seg.held[w]|seg.sold[w]|claim[w])&(1<<b) != 0 {
			return fmt.Errorf("%w: segment %s seat %d", ErrSeatUnavailable, segmentID, n)
		}
		claim[w] |= 1 << b
	}
	for w := range claim {
		seg.held[w] |= claim[w]
	}
	return nil
}

// Release returns seats to the pool, whether they were held or sold.
// Hold expiry/cancellation and ticket cancellation both land here.
func (s *Store) Release(segmentID string, seats []int) error {
	seg, err := s.get(segmentID)
	if err != nil {
		return err
	}

	seg.mu.Lock()
	defer seg.mu.Unlock()

	for _, n := range seats {
		w, b, err := seg.index(n)
		if err != nil {
			return err
		}
		seg.held[w] &^= 1 << b
		seg.sold[w] &^= 1 << b
	}
	return nil
}

// Commit converts held seats into sold seats at ticket issuance. Sold
// seats only return to the pool through an explicit Release
// (cancellation), never through the natural ticket lifecycle.
func (s *Store) Commit(segmentID string, seats []int) error {
	seg, err := s.get(segmentID)
	if err != nil {
		return err
	}

	seg.mu.Lock()
	defer seg.mu.Unlock()

	for _, n := range seats {
		w, b, err := seg.index(n)
		if err != nil {
			return err
		}
		seg.held[w] &^= 1 << b
		seg.sold[w] |= 1 << b
	}
	return nil
}

// ReserveMany reserves seats across several segments for one request.
// On the first failure every segment already reserved in this request is
// released before the error propagates, so no partial round trip or
// multi-leg claim survives.
func (s *Store) ReserveMany(reqs []models.SegmentSeats) error {
	for i, req := range reqs {
		if err := s.Reserve(req.SegmentID, req.SeatNumbers); err != nil {
			for _, done := range reqs[:i] {
				// Release on a just-reserved segment cannot fail.
				_ = s.Release(done.SegmentID, done.SeatNumbers)
			}
			return err
		}
	}
	return nil
}

// ReleaseMany releases the seats of every segment in the set.
func (s *Store) ReleaseMany(reqs []models.SegmentSeats) {
	for _, req := range reqs {
		_ = s.Release(req.SegmentID, req.SeatNumbers)
	}
}

// CommitMany marks the seats of every segment in the set as sold.
func (s *Store) CommitMany(reqs []models.SegmentSeats) error {
	for _, req := range reqs {
		if err := s.Commit(req.SegmentID, req.SeatNumbers); err != nil {
			return err
		}
	}
	return nil
}

// Available returns the number of seats neither held nor sold.
func (s *Store) Available(segmentID string) (int, error) {
	occ, err := s.Occupancy(segmentID)
	if err != nil {
		return 0, err
	}
	return occ.Available, nil
}

// Occupancy returns the segment's seat counters for the read model.
func (s *Store) Occupancy(segmentID string) (models.SegmentOccupancy, error) {
	seg, err := s.get(segmentID)
	if err != nil {
		return models.SegmentOccupancy{}, err
	}

	seg.mu.Lock()
	defer seg.mu.Unlock()

	held, sold := 0, 0
	for i := range seg.held {
		held += bits.OnesCount64(seg.held[i])
		sold += bits.OnesCount64(seg.sold[i])
	}
	return models.SegmentOccupancy{
		SegmentID:  segmentID,
		TotalSeats: seg.total,
		HeldSeats:  held,
		SoldSeats:  sold,
		Available:  seg.total - held - sold,
	}, nil
}

func (sg *segment) index(seat int) (word int, bit uint, err error) {
	if seat < 1 || seat > sg.total {
		return 0, 0, fmt.Errorf("%w: %d (segment has %d seats)", ErrInvalidSeat, seat, sg.total)
	}
	n := seat - 1
	return n / 64, uint(n % 64), nil
}
