package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vogiaan1904/transit-reservation/config"
	kafka "github.com/vogiaan1904/transit-reservation/internal/delivery/kafka"
	"github.com/vogiaan1904/transit-reservation/internal/delivery/kafka/producer"
	"github.com/vogiaan1904/transit-reservation/internal/inventory"
	"github.com/vogiaan1904/transit-reservation/internal/models"
	"github.com/vogiaan1904/transit-reservation/internal/repository"
	"github.com/vogiaan1904/transit-reservation/pkg/logger"
)

// HoldSweeper is the sole path by which abandoned holds return their
// inventory; no client action is required. It also retires active
// tickets whose trip has departed without a boarding scan.
type HoldSweeper interface {
	Start(ctx context.Context) error
	Stop() error
	// SweepOnce runs a single pass; exposed for operational tooling.
	SweepOnce(ctx context.Context)
	Status() SweeperStatus
}

type SweeperStatus struct {
	IsRunning      bool      `json:"is_running"`
	StartedAt      time.Time `json:"started_at,omitempty"`
	LastSweep      time.Time `json:"last_sweep,omitempty"`
	ExpiredHolds   int64     `json:"expired_holds"`
	ExpiredTickets int64     `json:"expired_tickets"`
	ErrorCount     int64     `json:"error_count"`
}

type holdSweeper struct {
	holds   repository.HoldRepository
	tickets repository.TicketRepository
	inv     *inventory.Store
	prod    producer.Producer
	l       logger.Logger

	interval time.Duration
	now      func() time.Time

	// State management
	mu        sync.RWMutex
	isRunning bool
	startedAt time.Time
	stopCh    chan struct{}
	ticker    *time.Ticker
	wg        sync.WaitGroup

	// Metrics
	lastSweep      time.Time
	expiredHolds   int64
	expiredTickets int64
	errorCount     int64
}

func NewHoldSweeper(
	holds repository.HoldRepository,
	tickets repository.TicketRepository,
	inv *inventory.Store,
	prod producer.Producer,
	cfg config.BookingConfig,
	l logger.Logger,
) HoldSweeper {
	return &holdSweeper{
		holds:    holds,
		tickets:  tickets,
		inv:      inv,
		prod:     prod,
		l:        l,
		interval: cfg.SweepInterval,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

func (hs *holdSweeper) Start(ctx context.Context) error {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	if hs.isRunning {
		return errors.New("hold sweeper is already running")
	}

	hs.l.Infof(ctx, "Starting hold sweeper - interval: %s", hs.interval)

	hs.isRunning = true
	hs.startedAt = hs.now()
	hs.ticker = time.NewTicker(hs.interval)

	hs.wg.Add(1)
	go hs.sweepLoop(ctx)

	return nil
}

func (hs *holdSweeper) Stop() error {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	if !hs.isRunning {
		return errors.New("hold sweeper is not running")
	}

	close(hs.stopCh)
	if hs.ticker != nil {
		hs.ticker.Stop()
	}
	hs.wg.Wait()

	hs.isRunning = false
	hs.l.Info(context.Background(), "Hold sweeper stopped")
	return nil
}

func (hs *holdSweeper) sweepLoop(ctx context.Context) {
	defer hs.wg.Done()

	for {
		select {
		case <-ctx.Done():
			hs.l.Infof(ctx, "Hold sweeper stopped: %v", ctx.Err())
			return
		case <-hs.stopCh:
			return
		case <-hs.ticker.C:
			hs.SweepOnce(ctx)
		}
	}
}

func (hs *holdSweeper) SweepOnce(ctx context.Context) {
	defer func() {
		hs.mu.Lock()
		hs.lastSweep = hs.now()
		hs.mu.Unlock()
	}()

	hs.sweepHolds(ctx)
	hs.sweepTickets(ctx)
}

func (hs *holdSweeper) sweepHolds(ctx context.Context) {
	active, err := hs.holds.ListActive(ctx)
	if err != nil {
		hs.incrementErrorCount()
		hs.l.Errorf(ctx, "holdSweeper.sweepHolds: %v", err)
		return
	}

	now := hs.now()
	expired := 0
	for _, hold := range active {
		if !hold.IsExpired(now) {
			continue
		}

		// Same CAS a racing payment confirmation attempts; whichever
		// transition wins, wins, and the loser observes the new state.
		if !hold.CompareAndSwapState(models.HoldStateActive, models.HoldStateExpired) {
			continue
		}

		hs.inv.ReleaseMany(hold.SegmentSeats)
		expired++

		if err := hs.prod.PublishHoldExpired(ctx, kafka.HoldExpiredEvent{
			HoldID:    hold.ID,
			TripID:    hold.TripID,
			SeatCount: hold.SeatCount(),
			ExpiredAt: now,
		}); err != nil {
			hs.l.Errorf(ctx, "holdSweeper.sweepHolds: failed to publish event: %v", err)
		}

		hs.l.Infof(ctx, "Hold expired - hold_id: %s, seats_released: %d", hold.ID, hold.SeatCount())
	}

	if expired > 0 {
		hs.mu.Lock()
		hs.expiredHolds += int64(expired)
		hs.mu.Unlock()
	}
}

// sweepTickets retires active tickets whose departure has passed with no
// boarding scan. No inventory release: the trip has left.
func (hs *holdSweeper) sweepTickets(ctx context.Context) {
	active, err := hs.tickets.ListActive(ctx)
	if err != nil {
		hs.incrementErrorCount()
		hs.l.Errorf(ctx, "holdSweeper.sweepTickets: %v", err)
		return
	}

	now := hs.now()
	expired := 0
	for _, t := range active {
		if now.Before(t.DepartureTime) {
			continue
		}

		_, err := hs.tickets.Update(ctx, t.ID, func(ticket *models.Ticket) error {
			if !ticket.Status.CanTransitionTo(models.TicketStatusExpired) {
				return ErrTicketNotActive
			}
			ticket.Status = models.TicketStatusExpired
			ticket.UpdatedAt = now
			return nil
		})
		if err != nil {
			// Lost to a concurrent boarding scan or cancellation.
			continue
		}
		expired++

		hs.l.Infof(ctx, "Ticket expired unboarded - ticket_id: %s", t.ID)
	}

	if expired > 0 {
		hs.mu.Lock()
		hs.expiredTickets += int64(expired)
		hs.mu.Unlock()
	}
}

func (hs *holdSweeper) incrementErrorCount() {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	hs.errorCount++
}

func (hs *holdSweeper) Status() SweeperStatus {
	hs.mu.RLock()
	defer hs.mu.RUnlock()

	return SweeperStatus{
		IsRunning:      hs.isRunning,
		StartedAt:      hs.startedAt,
		LastSweep:      hs.lastSweep,
		ExpiredHolds:   hs.expiredHolds,
		ExpiredTickets: hs.expiredTickets,
		ErrorCount:     hs.errorCount,
	}
}
