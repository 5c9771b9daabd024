package ratelimit

import (
	"context"
	"time"
)

// Counter is the state of one (client, endpoint) window after an increment.
type Counter struct {
	Count       int
	WindowStart time.Time
	ResetAt     time.Time
}

// Repository persists fixed-window counters. Increment must be a single
// atomic operation: concurrent hits from the same client may never lose
// updates, and an expired window is replaced in the same write that counts
// the new hit.
type Repository interface {
	Increment(ctx context.Context, clientKey, endpoint string, window time.Duration) (Counter, error)
	// DeleteExpired removes windows past their reset time. Idempotent and
	// safe to run concurrently with live traffic.
	DeleteExpired(ctx context.Context) error
}
