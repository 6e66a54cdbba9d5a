package ratelimiter

import (
	"context"
	"time"
)

// Window is a counter's state right after a hit.
type Window struct {
	Count   int
	ResetIn time.Duration
}

// Store keeps hit counters that expire with their window. The memory store
// serves a single registry; redis shares counters between replicas.
type Store interface {
	Hit(ctx context.Context, key string, window time.Duration) (Window, error)
	Close() error
}
