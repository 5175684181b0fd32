package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Load simulator for the reservation API. Spins up concurrent customers
// that hold seats, pay, abandon, cancel and transfer against a running
// server, then reports what happened. Seat contention is intentional:
// several customers go after the same seat range to exercise the
// conflict paths.

var (
	baseURL    = flag.String("url", "http://localhost:8086", "Reservation server base URL")
	tripID     = flag.String("trip", "", "Trip ID to book against (required, must be registered)")
	segments   = flag.Int("segments", 1, "Number of segments on the trip (IDs <trip>-leg1..legN)")
	seats      = flag.Int("seats", 40, "Seat range to contend over")
	customers  = flag.Int("customers", 200, "Number of concurrent customers")
	payRate    = flag.Float64("pay-rate", 0.7, "Probability a customer pays for a won hold")
	cancelRate = flag.Float64("cancel-rate", 0.2, "Probability a paid customer cancels the ticket")
)

type counters struct {
	holdsWon      atomic.Int64
	holdsConflict atomic.Int64
	paid          atomic.Int64
	abandoned     atomic.Int64
	released      atomic.Int64
	cancelled     atomic.Int64
	errors        atomic.Int64
}

func main() {
	flag.Parse()

	if *tripID == "" {
		fmt.Println("Error: --trip flag is required")
		flag.Usage()
		os.Exit(1)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	var c counters
	var wg sync.WaitGroup

	start := time.Now()
	wg.Add(*customers)
	for i := 0; i < *customers; i++ {
		go func(i int) {
			defer wg.Done()
			runCustomer(client, &c, i)
		}(i)
	}
	wg.Wait()

	fmt.Printf("\nDone in %s\n", time.Since(start).Round(time.Millisecond))
	fmt.Printf("  holds won:       %d\n", c.holdsWon.Load())
	fmt.Printf("  seat conflicts:  %d\n", c.holdsConflict.Load())
	fmt.Printf("  paid:            %d\n", c.paid.Load())
	fmt.Printf("  released:        %d\n", c.released.Load())
	fmt.Printf("  abandoned:       %d\n", c.abandoned.Load())
	fmt.Printf("  cancelled:       %d\n", c.cancelled.Load())
	fmt.Printf("  errors:          %d\n", c.errors.Load())
}

func runCustomer(client *http.Client, c *counters, n int) {
	seat := rand.Intn(*seats) + 1

	segs := make([]map[string]interface{}, 0, *segments)
	for s := 1; s <= *segments; s++ {
		segs = append(segs, map[string]interface{}{
			"segment_id":   fmt.Sprintf("%s-leg%d", *tripID, s),
			"seat_numbers": []int{seat},
		})
	}

	var hold struct {
		HoldID string `json:"hold_id"`
		Amount int64  `json:"amount"`
	}
	status, err := postJSON(client, "/api/v1/holds", map[string]interface{}{
		"trip_id":    *tripID,
		"segments":   segs,
		"passengers": []string{fmt.Sprintf("Passenger %d", n)},
		"channel":    "online",
	}, &hold)
	if err != nil {
		c.errors.Add(1)
		return
	}
	if status == http.StatusConflict {
		c.holdsConflict.Add(1)
		return
	}
	if status != http.StatusCreated {
		c.errors.Add(1)
		return
	}
	c.holdsWon.Add(1)

	switch {
	case rand.Float64() < *payRate:
		var issued struct {
			Tickets []struct {
				TicketID string `json:"ticket_id"`
			} `json:"tickets"`
		}
		status, err = postJSON(client, "/api/v1/payments/confirm", map[string]interface{}{
			"hold_id":         hold.HoldID,
			"idempotency_key": uuid.NewString(),
			"amount":          hold.Amount,
			"payment_ref":     fmt.Sprintf("sim-%d", n),
		}, &issued)
		if err != nil || status != http.StatusOK {
			c.errors.Add(1)
			return
		}
		c.paid.Add(1)

		if rand.Float64() < *cancelRate && len(issued.Tickets) > 0 {
			path := fmt.Sprintf("/api/v1/tickets/%s/cancel", issued.Tickets[0].TicketID)
			if status, err := postJSON(client, path, nil, nil); err == nil && status == http.StatusOK {
				c.cancelled.Add(1)
			}
		}
	case rand.Float64() < 0.5:
		req, _ := http.NewRequest(http.MethodDelete, *baseURL+"/api/v1/holds/"+hold.HoldID, nil)
		if resp, err := client.Do(req); err == nil {
			resp.Body.Close()
			c.released.Add(1)
		}
	default:
		// Walk away; the sweeper gets it.
		c.abandoned.Add(1)
	}
}

func postJSON(client *http.Client, path string, body, out interface{}) (int, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return 0, err
		}
	}

	resp, err := client.Post(*baseURL+path, "application/json", &buf)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}
