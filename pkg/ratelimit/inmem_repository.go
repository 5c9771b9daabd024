package ratelimit

import (
	"context"
	"sync"
	"time"
)

// InMemoryRepository implements Repository using in-memory storage.
// Intended for tests and local development.
type InMemoryRepository struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

type window struct {
	count       int
	windowStart time.Time
	resetAt     time.Time
}

// NewInMemoryRepository creates a new in-memory rate-limit repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Increment bumps the counter for (clientKey, endpoint)
func (r *InMemoryRepository) Increment(ctx context.Context, clientKey, endpoint string, windowDur time.Duration) (Counter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	key := windowKey(clientKey, endpoint)

	w, ok := r.windows[key]
	if !ok || !w.resetAt.After(now) {
		w = &window{
			count:       1,
			windowStart: now,
			resetAt:     now.Add(windowDur),
		}
		r.windows[key] = w
	} else {
		w.count++
	}

	return Counter{
		Count:       w.count,
		WindowStart: w.windowStart,
		ResetAt:     w.resetAt,
	}, nil
}

// DeleteExpired removes windows past their reset time
func (r *InMemoryRepository) DeleteExpired(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for key, w := range r.windows {
		if !w.resetAt.After(now) {
			delete(r.windows, key)
		}
	}
	return nil
}
