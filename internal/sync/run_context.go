// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/dirsync/internal/config"
	"github.com/tomtom215/dirsync/internal/logging"
	"github.com/tomtom215/dirsync/internal/metrics"
	"github.com/tomtom215/dirsync/internal/models"
	"github.com/tomtom215/dirsync/internal/store"
	"github.com/tomtom215/dirsync/internal/workspace"
	"github.com/tomtom215/dirsync/internal/writer"
)

// Runner executes one kind of job.
type Runner interface {
	Run(ctx context.Context, rc *RunContext) error
}

// RunContext is the mutable state of a single run.
type RunContext struct {
	Job       config.JobConfig
	RunID     string
	StartedAt time.Time
	Store     store.Store

	// Watermark is the value saved by the last successful run, zero on
	// the first run.
	Watermark time.Time

	// NewWatermark is saved when the run does not fail. Runners leave it
	// zero to keep the previous value.
	NewWatermark time.Time

	Counters models.RunCounters
	Notes    []string

	partial    bool
	incomplete bool
}

// Notef adds a note to the run report.
func (rc *RunContext) Notef(format string, args ...any) {
	rc.Notes = append(rc.Notes, fmt.Sprintf(format, args...))
}

// Partialf marks the run partial and explains why.
func (rc *RunContext) Partialf(format string, args ...any) {
	rc.partial = true
	rc.Notef(format, args...)
}

// Clean reports whether every fetch so far completed and no write failed.
// Runners only advance their watermark on clean runs.
func (rc *RunContext) Clean() bool {
	return !rc.incomplete && rc.Counters.Failed == 0
}

// collect accounts for a fetched collection. A truncated fetch makes the run
// partial and its records are still used; a fetch that read nothing fails
// the run.
func (rc *RunContext) collect(ctx context.Context, what string, coll workspace.Collection) ([]models.Record, error) {
	rc.Counters.Fetched += len(coll.Records)
	metrics.RecordFetch(rc.Job.Name, len(coll.Records), coll.Complete)
	if coll.Complete {
		return coll.Records, nil
	}

	rc.incomplete = true
	if coll.Pages == 0 {
		return nil, fmt.Errorf("fetch %s: %w", what, coll.Err)
	}
	logging.Ctx(ctx).Warn().Err(coll.Err).Str("collection", what).Int("records", len(coll.Records)).Msg("Using incomplete collection")
	rc.Partialf("%s fetch incomplete after %d page(s)", what, coll.Pages)
	return coll.Records, nil
}

// tally counts a write outcome.
func (rc *RunContext) tally(ctx context.Context, targetID string, out writer.Outcome, err error) {
	metrics.RecordWrite(rc.Job.Name, out.String())
	switch out {
	case writer.Updated:
		rc.Counters.Updated++
	case writer.Skipped:
		rc.Counters.Skipped++
	case writer.Failed:
		rc.Counters.Failed++
		logging.Ctx(ctx).Warn().Err(err).Str("target", targetID).Msg("Write failed")
	}
}

// rawFilter turns a configured filter into a query filter.
func rawFilter(filter string) json.RawMessage {
	if filter == "" {
		return nil
	}
	return json.RawMessage(filter)
}

// newRunner returns the runner for kind.
func newRunner(kind config.JobKind, deps *Deps) (Runner, error) {
	switch kind {
	case config.KindLink:
		return &linkRunner{deps: deps}, nil
	case config.KindMirror:
		return &mirrorRunner{deps: deps}, nil
	case config.KindExport:
		return &exportRunner{deps: deps}, nil
	case config.KindImport:
		return &importRunner{deps: deps}, nil
	case config.KindGroups:
		return &groupsRunner{deps: deps}, nil
	case config.KindProfiles:
		return &profilesRunner{deps: deps}, nil
	case config.KindAnnounce:
		return &announceRunner{deps: deps}, nil
	}
	return nil, fmt.Errorf("%w: unknown kind %q", ErrConfig, kind)
}
