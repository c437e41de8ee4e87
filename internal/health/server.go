// Package health provides the health check endpoint.
//
// This package implements:
//   - HTTP health check endpoint
//   - Uptime and last-submission tracking
//   - Database reachability check
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Status represents the application health status.
//
// This is returned by the /health endpoint for monitoring tools.
//
// Fields:
//   - Status: Overall health status ("healthy" or "unhealthy")
//   - Uptime: How long the application has been running
//   - Database: "ok" or the ping error
//   - LastSubmission: When the last submission was accepted
type Status struct {
	Status         string `json:"status"`
	Uptime         string `json:"uptime"`
	Database       string `json:"database"`
	LastSubmission string `json:"last_submission,omitempty"`
}

// Monitor tracks application health.
//
// Thread-safety:
//   - lastSubmission is protected by RWMutex
type Monitor struct {
	startTime      time.Time
	lastSubmission time.Time
	db             Pinger
	mu             sync.RWMutex
}

// NewMonitor creates a new health monitor. db may be nil.
func NewMonitor(db Pinger) *Monitor {
	return &Monitor{
		startTime: time.Now(),
		db:        db,
	}
}

// RecordSubmission marks the time of the latest accepted submission.
func (m *Monitor) RecordSubmission() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastSubmission = time.Now()
}

// GetStatus returns the current health status.
func (m *Monitor) GetStatus(ctx context.Context) Status {
	m.mu.RLock()
	last := m.lastSubmission
	m.mu.RUnlock()

	st := Status{
		Status:   "healthy",
		Uptime:   time.Since(m.startTime).Round(time.Second).String(),
		Database: "ok",
	}
	if !last.IsZero() {
		st.LastSubmission = last.Format("2006-01-02 15:04:05")
	}

	if m.db != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := m.db.Ping(pingCtx); err != nil {
			st.Status = "unhealthy"
			st.Database = err.Error()
		}
	}
	return st
}

// Handler serves the JSON health status.
//
// Example response:
//
//	{
//	  "status": "healthy",
//	  "uptime": "1h2m3s",
//	  "database": "ok",
//	  "last_submission": "2026-01-15 10:30:00"
//	}
//
// An unhealthy status is served with 503.
func (m *Monitor) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := m.GetStatus(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if status.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		_ = json.NewEncoder(w).Encode(status)
	})
}
