// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

/*
Package metrics provides Prometheus metrics for dirsync.

All collectors are registered with the default registry through promauto and
exposed at /metrics by the operations server:

	curl http://localhost:8090/metrics

# Available Metrics

Job Metrics:
  - dirsync_job_runs_total{job,status}
  - dirsync_job_duration_seconds{job}
  - dirsync_job_last_success_timestamp{job}
  - dirsync_job_running{job}
  - dirsync_records_fetched_total{job}
  - dirsync_writes_total{job,outcome}
  - dirsync_fetch_truncated_total{job}

Remote API Metrics:
  - dirsync_api_requests_total{api,outcome}
  - dirsync_api_retries_total{api}
  - dirsync_api_request_duration_seconds{api}

Circuit Breaker Metrics:
  - circuit_breaker_state{name}: 0=closed, 1=half-open, 2=open
  - circuit_breaker_requests_total{name,result}
  - circuit_breaker_consecutive_failures{name}
  - circuit_breaker_state_transitions_total{name,from_state,to_state}

Helpers such as RecordJobRun and RecordAPIAttempt keep label values
consistent between call sites.
*/
package metrics
