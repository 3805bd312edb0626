package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type memoryEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryLimiter is a token bucket per bucket/key pair. It refills at
// Max/Window and bursts up to Max. Counts are per process.
type MemoryLimiter struct {
	mu      sync.Mutex
	rules   map[string]Rule
	entries map[string]*memoryEntry
	now     func() time.Time
	swept   time.Time
}

func NewMemoryLimiter(rules map[string]Rule) *MemoryLimiter {
	return &MemoryLimiter{
		rules:   rules,
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (l *MemoryLimiter) WithClock(now func() time.Time) *MemoryLimiter {
	l.now = now
	return l
}

func (l *MemoryLimiter) Allow(_ context.Context, bucket, key string) (Decision, error) {
	rule, ok := l.rules[bucket]
	if !ok || rule.Max <= 0 || rule.Window <= 0 {
		return Decision{Allowed: true}, nil
	}

	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(now, rule.Window)

	id := bucket + ":" + key
	entry, ok := l.entries[id]
	if !ok {
		every := rule.Window / time.Duration(rule.Max)
		entry = &memoryEntry{limiter: rate.NewLimiter(rate.Every(every), rule.Max)}
		l.entries[id] = entry
	}
	entry.lastSeen = now

	reservation := entry.limiter.ReserveN(now, 1)
	delay := reservation.DelayFrom(now)
	if delay > 0 {
		reservation.CancelAt(now)
		return Decision{
			Allowed:    false,
			Limit:      rule.Max,
			Remaining:  0,
			RetryAfter: delay,
			ResetAt:    now.Add(delay),
		}, nil
	}

	remaining := int(math.Floor(entry.limiter.TokensAt(now)))
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   true,
		Limit:     rule.Max,
		Remaining: remaining,
		ResetAt:   now.Add(rule.Window),
	}, nil
}

// sweep drops idle keys at most once per window; caller holds the lock
func (l *MemoryLimiter) sweep(now time.Time, window time.Duration) {
	if now.Sub(l.swept) < window {
		return
	}
	l.swept = now
	for id, entry := range l.entries {
		if now.Sub(entry.lastSeen) > window {
			delete(l.entries, id)
		}
	}
}
