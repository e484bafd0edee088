// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

package api

// Error codes returned in APIError.Code.
const (
	CodeNotFound      = "NOT_FOUND"
	CodeJobRunning    = "JOB_RUNNING"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeRateLimited   = "RATE_LIMIT_EXCEEDED"
	CodeInternalError = "INTERNAL_ERROR"
)
