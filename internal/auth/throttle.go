package auth

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// maxTrackedKeys bounds the limiter map; idle entries are pruned past it.
const maxTrackedKeys = 4096

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Throttle limits unlock attempts per client key (usually the remote IP).
type Throttle struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rate     rate.Limit
	burst    int
	now      func() time.Time
}

// NewThrottle allows perMinute attempts per key, refilling evenly.
func NewThrottle(perMinute int) *Throttle {
	if perMinute < 1 {
		perMinute = 1
	}
	return &Throttle{
		limiters: make(map[string]*limiterEntry),
		rate:     rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		now:      time.Now,
	}
}

// Allow consumes one attempt for key.
func (t *Throttle) Allow(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	entry, ok := t.limiters[key]
	if !ok {
		if len(t.limiters) >= maxTrackedKeys {
			t.prune(now)
		}
		entry = &limiterEntry{limiter: rate.NewLimiter(t.rate, t.burst)}
		t.limiters[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// prune drops limiters idle long enough to have refilled completely.
func (t *Throttle) prune(now time.Time) {
	for key, entry := range t.limiters {
		if now.Sub(entry.lastSeen) > time.Minute {
			delete(t.limiters, key)
		}
	}
}
