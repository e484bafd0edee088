// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

package sync

import (
	"context"

	"github.com/tomtom215/dirsync/internal/models"
	"github.com/tomtom215/dirsync/internal/workspace"
	"github.com/tomtom215/dirsync/internal/writer"
)

// mirrorRunner copies field values between properties of the same record.
type mirrorRunner struct {
	deps *Deps
}

func (r *mirrorRunner) Run(ctx context.Context, rc *RunContext) error {
	job := rc.Job
	ws := r.deps.Workspace

	filter := rawFilter(job.Source.Filter)
	if job.Incremental && !rc.Watermark.IsZero() {
		filter = workspace.AndFilter(filter, workspace.TimestampFilter(workspace.LastEditedTime, rc.Watermark, true))
	}
	records, err := rc.collect(ctx, "source", ws.QueryAll(ctx, job.Source.DatabaseID, filter, nil))
	if err != nil {
		return err
	}

	w := writer.New(writer.PatcherFunc(ws.PatchPage))
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}

		proposed := make(models.Properties, len(job.Fields))
		current := make(models.Properties, len(job.Fields))
		for _, f := range job.Fields {
			v := rec.Get(f.From)
			if v == nil {
				continue
			}
			existing := rec.Get(f.To)
			proposed[f.To] = writer.Coerce(v, existing)
			current[f.To] = existing
		}
		if len(proposed) == 0 {
			rc.Counters.Skipped++
			continue
		}

		out, err := w.WriteIfChanged(ctx, rec.ID, proposed, current)
		rc.tally(ctx, rec.ID, out, err)
	}

	if rc.Clean() {
		rc.NewWatermark = workspace.FloorTimestamp(rc.StartedAt)
	}
	return nil
}
