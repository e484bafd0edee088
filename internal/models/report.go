// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

package models

import "time"

// RunStatus is the overall result of one job run.
type RunStatus string

const (
	// RunOK means every fetch completed and no write failed.
	RunOK RunStatus = "ok"
	// RunPartial means the run finished but a fetch was truncated or some
	// writes failed.
	RunPartial RunStatus = "partial"
	// RunFailed means the run stopped early (configuration error, aborted fetch).
	RunFailed RunStatus = "failed"
	// RunSkipped means the run did not start because the job was already running.
	RunSkipped RunStatus = "skipped"
)

// RunCounters are the per-run tallies reported for every job kind.
// Kinds only fill the counters that apply to them.
type RunCounters struct {
	Fetched int `json:"fetched"`
	Linked  int `json:"linked"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
	Posted  int `json:"posted"`
	Created int `json:"created"`
}

// RunReport describes the outcome of one job run. It is persisted as the
// job's last-run state and published to the notification side-channel.
type RunReport struct {
	Job        string      `json:"job"`
	Kind       string      `json:"kind"`
	RunID      string      `json:"run_id"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
	Status     RunStatus   `json:"status"`
	Counters   RunCounters `json:"counters"`
	Notes      []string    `json:"notes,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// Duration returns how long the run took.
func (r RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
