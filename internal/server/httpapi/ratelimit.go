package httpapi

import (
	"sync"
	"time"
)

// Limiter decides whether one more request for the key may proceed. It is an
// injected collaborator; the core never depends on a particular strategy.
type Limiter interface {
	Allow(key string) bool
}

// MemoryLimiter is a fixed-window counter tied to process lifetime.
type MemoryLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration

	windowStart time.Time
	counts      map[string]int

	now func() time.Time
}

func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:  limit,
		window: window,
		counts: make(map[string]int),
		now:    time.Now,
	}
}

func (l *MemoryLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.windowStart) >= l.window {
		l.windowStart = now
		l.counts = make(map[string]int)
	}

	l.counts[key]++
	return l.counts[key] <= l.limit
}
