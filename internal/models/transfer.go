package models

import (
	"sync/atomic"
	"time"
)

// TransferToken is a single-use credential that reassigns ticket
// ownership. Redemption is guarded twice: the token's own
// compare-and-swap stops double spends, and the per-ticket lock
// serializes the ownership change with other ticket mutations.
type TransferToken struct {
	Token     string
	TicketID  string
	CreatedAt time.Time
	ExpiresAt time.Time

	redeemed   atomic.Bool
	RedeemedAt time.Time
}

func (t *TransferToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

func (t *TransferToken) Redeemed() bool {
	return t.redeemed.Load()
}

// MarkRedeemed flips the token to redeemed exactly once; the second
// caller gets false.
func (t *TransferToken) MarkRedeemed() bool {
	return t.redeemed.CompareAndSwap(false, true)
}
