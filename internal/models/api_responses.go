// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

package models

import (
	"time"
)

// APIResponse is the envelope of every operations endpoint response.
//
// Status is "success" with Data set, or "error" with Error set:
//
//	{
//	  "status": "success",
//	  "data": {"run_id": "3f1c9a2e", "job": "link-teams"},
//	  "metadata": {"timestamp": "2026-03-02T09:00:00Z"}
//	}
//
//	{
//	  "status": "error",
//	  "data": null,
//	  "metadata": {"timestamp": "2026-03-02T09:00:00Z"},
//	  "error": {"code": "JOB_RUNNING", "message": "job link-teams is already running"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata is attached to every response.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// APIError carries a machine-readable code and a human-readable message.
//
// Codes in use: NOT_FOUND, JOB_RUNNING, UNAUTHORIZED, RATE_LIMIT_EXCEEDED,
// INTERNAL_ERROR.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// RunAccepted is returned when a manual trigger starts a run.
type RunAccepted struct {
	Job   string `json:"job"`
	RunID string `json:"run_id"`
}

// HealthStatus is the body of GET /healthz.
type HealthStatus struct {
	Status  string   `json:"status"`
	Version string   `json:"version,omitempty"`
	Uptime  string   `json:"uptime"`
	Jobs    int      `json:"jobs"`
	Running []string `json:"running,omitempty"`
}
