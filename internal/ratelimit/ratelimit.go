package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// SourceLimiter enforces a per-source requests-per-minute budget. Acquire
// blocks until the source's next slot is available; it never rejects a
// caller outright. Limiters are created lazily per source key and grant
// slots no closer together than 60/rpm seconds (burst of one).
type SourceLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rpm      map[string]int
}

// NewSourceLimiter constructs a limiter with the given per-source budgets.
// A budget of zero or less is normalized to one request per minute.
func NewSourceLimiter(budgets map[string]int) *SourceLimiter {
	rpm := make(map[string]int, len(budgets))
	for key, limit := range budgets {
		if limit <= 0 {
			limit = 1
		}
		rpm[key] = limit
	}
	return &SourceLimiter{
		limiters: make(map[string]*rate.Limiter),
		rpm:      rpm,
	}
}

// SetBudget registers or replaces the budget for a source. An existing
// limiter for the key is discarded so the new rate takes effect.
func (l *SourceLimiter) SetBudget(sourceKey string, perMinute int) {
	if perMinute <= 0 {
		perMinute = 1
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rpm[sourceKey] = perMinute
	delete(l.limiters, sourceKey)
}

// Acquire blocks until a slot is available for the source, or until the
// context is cancelled.
func (l *SourceLimiter) Acquire(ctx context.Context, sourceKey string) error {
	return l.limiter(sourceKey).Wait(ctx)
}

func (l *SourceLimiter) limiter(sourceKey string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[sourceKey]
	if !ok {
		perMinute, ok := l.rpm[sourceKey]
		if !ok || perMinute <= 0 {
			perMinute = 1
		}
		lim = rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), 1)
		l.limiters[sourceKey] = lim
	}
	return lim
}
