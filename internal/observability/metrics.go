// Package observability provides Prometheus metrics for the application.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics.
type Metrics struct {
	// Run metrics
	RunsStarted   prometheus.Counter
	RunsCompleted prometheus.Counter
	RunsCancelled prometheus.Counter
	RunsActive    prometheus.Gauge

	// Job metrics
	JobsSucceeded  prometheus.Counter
	JobsFailed     prometheus.Counter
	JobsSkipped    prometheus.Counter
	JobsInProgress prometheus.Gauge
	JobAttempts    prometheus.Histogram
	JobDuration    prometheus.Histogram

	// Registry metrics
	CleanupRunsTotal  prometheus.Counter
	CleanupFilesTotal prometheus.Counter
	StoredRunsTotal   prometheus.Gauge

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Fetcher metrics
	FetchRequestsTotal *prometheus.CounterVec
	FetchErrors        *prometheus.CounterVec
}

// New creates and registers all application metrics.
func New() *Metrics {
	metrics := &Metrics{
		// Run metrics
		RunsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "tunepull",
			Subsystem: "runs",
			Name:      "started_total",
			Help:      "Total number of playlist runs started",
		}),
		RunsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "tunepull",
			Subsystem: "runs",
			Name:      "completed_total",
			Help:      "Total number of playlist runs that completed",
		}),
		RunsCancelled: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "tunepull",
			Subsystem: "runs",
			Name:      "cancelled_total",
			Help:      "Total number of playlist runs that were cancelled",
		}),
		RunsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "tunepull",
			Subsystem: "runs",
			Name:      "active",
			Help:      "Number of playlist runs currently running",
		}),

		// Job metrics
		JobsSucceeded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "tunepull",
			Subsystem: "jobs",
			Name:      "succeeded_total",
			Help:      "Total number of jobs that succeeded",
		}),
		JobsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "tunepull",
			Subsystem: "jobs",
			Name:      "failed_total",
			Help:      "Total number of jobs that failed terminally",
		}),
		JobsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "tunepull",
			Subsystem: "jobs",
			Name:      "skipped_total",
			Help:      "Total number of jobs skipped because their target already existed",
		}),
		JobsInProgress: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "tunepull",
			Subsystem: "jobs",
			Name:      "in_progress",
			Help:      "Number of jobs currently running",
		}),
		JobAttempts: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tunepull",
			Subsystem: "jobs",
			Name:      "attempts",
			Help:      "Histogram of fetch attempts per terminal job",
			Buckets:   []float64{1, 2, 3, 4, 5},
		}),
		JobDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tunepull",
			Subsystem: "jobs",
			Name:      "duration_seconds",
			Help:      "Histogram of job duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),

		// Registry metrics
		CleanupRunsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "tunepull",
			Subsystem: "storage",
			Name:      "cleanup_runs_total",
			Help:      "Total number of expired runs cleaned up",
		}),
		CleanupFilesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "tunepull",
			Subsystem: "storage",
			Name:      "cleanup_files_total",
			Help:      "Total number of leftover partial files cleaned up",
		}),
		StoredRunsTotal: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "tunepull",
			Subsystem: "storage",
			Name:      "runs_current",
			Help:      "Current number of stored runs",
		}),

		// HTTP metrics
		HTTPRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tunepull",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tunepull",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Histogram of HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		HTTPResponseSize: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tunepull",
			Subsystem: "http",
			Name:      "response_size_bytes",
			Help:      "Histogram of HTTP response sizes in bytes",
			Buckets:   []float64{100, 1000, 10000, 100000, 1000000},
		}, []string{"method", "path"}),

		// Fetcher metrics
		FetchRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tunepull",
			Subsystem: "fetch",
			Name:      "requests_total",
			Help:      "Total number of fetch requests",
		}, []string{"fetcher", "status"}),
		FetchErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tunepull",
			Subsystem: "fetch",
			Name:      "errors_total",
			Help:      "Total number of fetch errors",
		}, []string{"fetcher", "error_type"}),
	}

	return metrics
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration, size int) {
	statusStr := strconv.Itoa(status)
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.HTTPResponseSize.WithLabelValues(method, path).Observe(float64(size))
}

// RecordRunStarted records a started run.
func (m *Metrics) RecordRunStarted() {
	m.RunsStarted.Inc()
	m.RunsActive.Inc()
}

// RecordRunTerminal records a run reaching a terminal state.
func (m *Metrics) RecordRunTerminal(cancelled bool) {
	if cancelled {
		m.RunsCancelled.Inc()
	} else {
		m.RunsCompleted.Inc()
	}

	m.RunsActive.Dec()
}

// RecordJobTerminal records a job reaching a terminal state.
func (m *Metrics) RecordJobTerminal(state string, attempts int, duration time.Duration) {
	switch state {
	case "succeeded":
		m.JobsSucceeded.Inc()
	case "failed":
		m.JobsFailed.Inc()
	case "skipped":
		m.JobsSkipped.Inc()
	}

	if attempts > 0 {
		m.JobAttempts.Observe(float64(attempts))
	}

	m.JobDuration.Observe(duration.Seconds())
}

// RecordCleanup records cleanup metrics.
func (m *Metrics) RecordCleanup(runs, files int) {
	m.CleanupRunsTotal.Add(float64(runs))
	m.CleanupFilesTotal.Add(float64(files))
}

// RecordFetchRequest records a fetch request.
func (m *Metrics) RecordFetchRequest(fetcher, status string) {
	m.FetchRequestsTotal.WithLabelValues(fetcher, status).Inc()
}

// RecordFetchError records a fetch error.
func (m *Metrics) RecordFetchError(fetcher, errorType string) {
	m.FetchErrors.WithLabelValues(fetcher, errorType).Inc()
}

// SetJobsInProgress sets the number of running jobs.
func (m *Metrics) SetJobsInProgress(count int) {
	m.JobsInProgress.Set(float64(count))
}

// SetStoredRuns sets the number of stored runs.
func (m *Metrics) SetStoredRuns(count int) {
	m.StoredRunsTotal.Set(float64(count))
}
