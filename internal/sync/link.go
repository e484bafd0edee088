// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

package sync

import (
	"context"

	"github.com/tomtom215/dirsync/internal/logging"
	"github.com/tomtom215/dirsync/internal/metrics"
	"github.com/tomtom215/dirsync/internal/models"
	"github.com/tomtom215/dirsync/internal/reconcile"
	"github.com/tomtom215/dirsync/internal/writer"
)

// linkRunner links every source record to the target records sharing its
// join key. Existing links are kept; links are only added.
type linkRunner struct {
	deps *Deps
}

func (r *linkRunner) Run(ctx context.Context, rc *RunContext) error {
	job := rc.Job
	ws := r.deps.Workspace

	sources, err := rc.collect(ctx, "source", ws.QueryAll(ctx, job.Source.DatabaseID, rawFilter(job.Source.Filter), nil))
	if err != nil {
		return err
	}
	targets, err := rc.collect(ctx, "target", ws.QueryAll(ctx, job.Target.DatabaseID, rawFilter(job.Target.Filter), nil))
	if err != nil {
		return err
	}

	ix := reconcile.BuildIndex(targets, reconcile.PropertyKey(job.Target.KeyProperty))
	decisions := reconcile.Reconcile(sources, ix,
		reconcile.PropertyKey(job.Source.KeyProperty),
		reconcile.RelationLinks(job.LinkProperty))

	current := make(map[string]models.TypedValue, len(sources))
	for _, src := range sources {
		current[src.ID] = src.Get(job.LinkProperty)
	}

	log := logging.Ctx(ctx)
	w := writer.New(writer.PatcherFunc(ws.PatchPage))
	for _, d := range decisions {
		if err := ctx.Err(); err != nil {
			return err
		}

		if d.Action != reconcile.Link {
			if d.Reason == reconcile.ReasonUnreadable {
				rc.Counters.Failed++
				log.Warn().Str("source", d.SourceID).Str("property", job.LinkProperty).Msg("Existing links unreadable, record left unchanged")
			} else {
				rc.Counters.Skipped++
				log.Trace().Str("source", d.SourceID).Str("reason", string(d.Reason)).Msg("No link needed")
			}
			continue
		}

		out, err := w.WriteIfChanged(ctx, d.SourceID,
			models.Properties{job.LinkProperty: models.RelationOf(d.Links()...)},
			models.Properties{job.LinkProperty: current[d.SourceID]})
		metrics.RecordWrite(job.Name, out.String())
		switch out {
		case writer.Updated:
			rc.Counters.Linked++
			log.Debug().Str("source", d.SourceID).Strs("added", d.Missing).Msg("Linked")
		case writer.Skipped:
			rc.Counters.Skipped++
		case writer.Failed:
			rc.Counters.Failed++
			log.Warn().Err(err).Str("source", d.SourceID).Msg("Link write failed")
		}
	}
	return nil
}
