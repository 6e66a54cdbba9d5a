package ratelimiter

import (
	"context"
	"sync"
	"time"
)

const defaultSweepEvery = time.Minute

type counter struct {
	hits    int
	resetAt time.Time
}

type memoryStore struct {
	mu       sync.Mutex
	counters map[string]*counter

	done      chan struct{}
	closeOnce sync.Once
}

// NewMemoryStore starts a store whose expired counters are swept every
// sweepEvery.
func NewMemoryStore(sweepEvery time.Duration) Store {
	if sweepEvery <= 0 {
		sweepEvery = defaultSweepEvery
	}

	s := &memoryStore{
		counters: make(map[string]*counter),
		done:     make(chan struct{}),
	}
	go s.sweepLoop(sweepEvery)
	return s
}

func (s *memoryStore) Hit(_ context.Context, key string, window time.Duration) (Window, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[key]
	if !ok || !now.Before(c.resetAt) {
		c = &counter{resetAt: now.Add(window)}
		s.counters[key] = c
	}
	c.hits++

	return Window{Count: c.hits, ResetIn: c.resetAt.Sub(now)}, nil
}

func (s *memoryStore) sweepLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep(time.Now())
		case <-s.done:
			return
		}
	}
}

func (s *memoryStore) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, c := range s.counters {
		if !now.Before(c.resetAt) {
			delete(s.counters, key)
		}
	}
}

func (s *memoryStore) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}
