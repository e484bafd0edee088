// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

/*
Package httpclient provides the retrying HTTP client shared by the workspace,
chat and sheets API clients.

Each API gets its own Client with a Classifier that understands the API's
response envelope:

	client := httpclient.New(httpclient.Config{
	    Name:          "workspace",
	    MaxRetries:    3,
	    BaseDelay:     time.Second,
	    RatePerSecond: 3,
	    Classify:      httpclient.ClassifyWorkspace,
	})

# Retry Semantics

  - Attempt n (0-indexed) waits BaseDelay*2^n before the next one: 1s, 2s, 4s
  - Only responses the classifier marks Retry, and transport errors, are retried
  - Exhausting the budget returns the last response with a nil error
  - Errors are returned only when no response was ever received

# Resilience

  - golang.org/x/time/rate token bucket before every attempt
  - sony/gobreaker circuit breaker around every attempt (60% failures over 10 requests)
  - cenkalti/backoff drives the schedule; context cancellation interrupts waits
*/
package httpclient
