// Package metrics exposes Prometheus collectors for the intake service.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "peopleconnect"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	submissionsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "submissions",
			Name:      "created_total",
			Help:      "Submissions accepted, by type.",
		},
		[]string{"type"},
	)

	submissionsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "submissions",
			Name:      "rejected_total",
			Help:      "Submissions refused by validation, by reason.",
		},
		[]string{"reason"},
	)

	statusChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "submissions",
			Name:      "status_changes_total",
			Help:      "Status transitions applied, by target status.",
		},
		[]string{"status"},
	)

	deletions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "submissions",
			Name:      "deleted_total",
			Help:      "Submissions deleted.",
		},
	)

	exports = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "exports",
			Name:      "generated_total",
			Help:      "Export documents generated, by format.",
		},
		[]string{"format"},
	)

	loginFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "failures_total",
			Help:      "Failed unlock attempts, by gate.",
		},
		[]string{"gate"},
	)

	cacheReloads = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "reloads_total",
			Help:      "Times the read cache reloaded from the database.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		submissionsCreated,
		submissionsRejected,
		statusChanges,
		deletions,
		exports,
		loginFailures,
		cacheReloads,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
// Requests are labelled by chi route pattern so path parameters do not
// explode the label space.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

// RecordSubmission counts an accepted submission.
func RecordSubmission(submissionType string) {
	submissionsCreated.WithLabelValues(submissionType).Inc()
}

// RecordRejection counts a submission refused with the given locale key.
func RecordRejection(reason string) {
	submissionsRejected.WithLabelValues(reason).Inc()
}

// RecordStatusChange counts an applied transition.
func RecordStatusChange(status string) {
	statusChanges.WithLabelValues(status).Inc()
}

// RecordDeletion counts a deleted submission.
func RecordDeletion() {
	deletions.Inc()
}

// RecordExport counts a generated export document.
func RecordExport(format string) {
	exports.WithLabelValues(format).Inc()
}

// RecordLoginFailure counts a failed unlock on the admin or department gate.
func RecordLoginFailure(gate string) {
	loginFailures.WithLabelValues(gate).Inc()
}

// RecordCacheReload counts a read-cache refresh.
func RecordCacheReload() {
	cacheReloads.Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
