// Package cache holds the short-lived read cache in front of the
// submission table.
package cache

import (
	"context"
	"sync"
	"time"

	"peopleconnect/internal/metrics"
	"peopleconnect/internal/submission"
)

// Loader reads the full submission list.
type Loader func(ctx context.Context) ([]submission.Submission, error)

// ReadCache serves the submission list for up to TTL before reloading.
// Every write calls Invalidate so the writer's next read is fresh.
//
// The loader runs outside the lock: two readers arriving at a stale cache
// may both reload.
type ReadCache struct {
	mu         sync.Mutex
	load       Loader
	ttl        time.Duration
	rows       []submission.Submission
	loadedAt   time.Time
	valid      bool
	generation uint64
	now        func() time.Time
}

// New creates a cache around loader.
func New(loader Loader, ttl time.Duration) *ReadCache {
	return &ReadCache{load: loader, ttl: ttl, now: time.Now}
}

// Get returns the cached list, reloading when stale or invalidated.
// The returned slice is a copy and may be modified by the caller.
func (c *ReadCache) Get(ctx context.Context) ([]submission.Submission, error) {
	c.mu.Lock()
	if c.valid && c.now().Sub(c.loadedAt) < c.ttl {
		rows := clone(c.rows)
		c.mu.Unlock()
		return rows, nil
	}
	gen := c.generation
	c.mu.Unlock()

	rows, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	metrics.RecordCacheReload()

	c.mu.Lock()
	// A write that landed while we were loading may not be in rows.
	if gen == c.generation {
		c.rows = rows
		c.loadedAt = c.now()
		c.valid = true
	}
	c.mu.Unlock()

	return clone(rows), nil
}

// Invalidate forces the next Get to reload.
func (c *ReadCache) Invalidate() {
	c.mu.Lock()
	c.valid = false
	c.generation++
	c.mu.Unlock()
}

func clone(rows []submission.Submission) []submission.Submission {
	if rows == nil {
		return nil
	}
	out := make([]submission.Submission, len(rows))
	copy(out, rows)
	return out
}
