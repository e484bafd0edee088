// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Job Metrics
	JobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dirsync_job_runs_total",
			Help: "Total number of job runs by final status",
		},
		[]string{"job", "status"}, // status: ok, partial, failed, skipped
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dirsync_job_duration_seconds",
			Help:    "Duration of job runs in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600, 900},
		},
		[]string{"job"},
	)

	JobLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dirsync_job_last_success_timestamp",
			Help: "Unix timestamp of the last run that finished ok",
		},
		[]string{"job"},
	)

	JobRunning = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dirsync_job_running",
			Help: "1 while a run of the job is in progress",
		},
		[]string{"job"},
	)

	RecordsFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dirsync_records_fetched_total",
			Help: "Total number of records read from paginated collections",
		},
		[]string{"job"},
	)

	WritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dirsync_writes_total",
			Help: "Total number of gated writes by outcome",
		},
		[]string{"job", "outcome"}, // outcome: skipped, updated, failed
	)

	FetchTruncated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dirsync_fetch_truncated_total",
			Help: "Total number of paginated fetches that stopped early",
		},
		[]string{"job"},
	)

	// Remote API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dirsync_api_requests_total",
			Help: "Total number of remote API attempts by outcome",
		},
		[]string{"api", "outcome"}, // outcome: success, retry, fail, error
	)

	APIRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dirsync_api_retries_total",
			Help: "Total number of retried remote API attempts",
		},
		[]string{"api"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dirsync_api_request_duration_seconds",
			Help:    "Duration of single remote API attempts in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"api"},
	)

	// Notification Metrics
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dirsync_notifications_total",
			Help: "Total number of chat notifications by result",
		},
		[]string{"result"}, // result: sent, suppressed, failed
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Operations API Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dirsync_http_requests_total",
			Help: "Total number of operations API requests",
		},
		[]string{"method", "route", "status"},
	)
)

// RecordJobRun records the outcome of one job run.
func RecordJobRun(job, status string, duration time.Duration) {
	JobRunsTotal.WithLabelValues(job, status).Inc()
	if status == "skipped" {
		return
	}
	JobDuration.WithLabelValues(job).Observe(duration.Seconds())
	if status == "ok" {
		JobLastSuccess.WithLabelValues(job).Set(float64(time.Now().Unix()))
	}
}

// TrackJobRunning marks a job as running or idle.
func TrackJobRunning(job string, running bool) {
	if running {
		JobRunning.WithLabelValues(job).Set(1)
	} else {
		JobRunning.WithLabelValues(job).Set(0)
	}
}

// RecordFetch records the result of one paginated fetch.
func RecordFetch(job string, records int, complete bool) {
	RecordsFetched.WithLabelValues(job).Add(float64(records))
	if !complete {
		FetchTruncated.WithLabelValues(job).Inc()
	}
}

// RecordWrite records one change-gated write outcome.
func RecordWrite(job, outcome string) {
	WritesTotal.WithLabelValues(job, outcome).Inc()
}

// RecordAPIAttempt records a single attempt against a remote API.
func RecordAPIAttempt(api, outcome string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(api, outcome).Inc()
	APIRequestDuration.WithLabelValues(api).Observe(duration.Seconds())
}

// RecordAPIRetry records that an attempt will be retried.
func RecordAPIRetry(api string) {
	APIRetriesTotal.WithLabelValues(api).Inc()
}

// RecordNotification records a chat notification result.
func RecordNotification(result string) {
	NotificationsTotal.WithLabelValues(result).Inc()
}

// RecordHTTPRequest records an operations API request.
func RecordHTTPRequest(method, route, status string) {
	HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
}
