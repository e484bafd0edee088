// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

package sync

import (
	"context"
	"fmt"
	"strings"

	"github.com/tomtom215/dirsync/internal/logging"
	"github.com/tomtom215/dirsync/internal/models"
	"github.com/tomtom215/dirsync/internal/reconcile"
	"github.com/tomtom215/dirsync/internal/writer"
)

// importRunner writes spreadsheet columns onto the database records whose
// key property matches the row's key column.
type importRunner struct {
	deps *Deps
}

func (r *importRunner) Run(ctx context.Context, rc *RunContext) error {
	job := rc.Job

	rows, err := r.deps.Sheets.GetValues(ctx, job.Sheet.SpreadsheetID, job.Sheet.Range)
	if err != nil {
		return fmt.Errorf("read sheet: %w", err)
	}
	if len(rows) == 0 {
		rc.Notef("sheet is empty")
		return nil
	}

	columns := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		columns[strings.TrimSpace(h)] = i
	}
	keyCol, ok := columns[job.Sheet.KeyColumn]
	if !ok {
		return fmt.Errorf("%w: key column %q not in sheet header", ErrConfig, job.Sheet.KeyColumn)
	}
	for _, f := range job.Fields {
		if _, ok := columns[f.From]; !ok {
			return fmt.Errorf("%w: column %q not in sheet header", ErrConfig, f.From)
		}
	}

	targets, err := rc.collect(ctx, "target", r.deps.Workspace.QueryAll(ctx, job.Target.DatabaseID, rawFilter(job.Target.Filter), nil))
	if err != nil {
		return err
	}
	ix := reconcile.BuildIndex(targets, reconcile.PropertyKey(job.Target.KeyProperty))
	byID := make(map[string]models.Record, len(targets))
	for _, t := range targets {
		byID[t.ID] = t
	}

	log := logging.Ctx(ctx)
	w := writer.New(writer.PatcherFunc(r.deps.Workspace.PatchPage))
	for n, row := range rows[1:] {
		if err := ctx.Err(); err != nil {
			return err
		}

		key := models.NormalizeKey(cell(row, keyCol))
		matches := ix.Lookup(key)
		if key.IsEmpty() || len(matches) == 0 {
			rc.Counters.Skipped++
			log.Trace().Int("row", n+2).Str("key", string(key)).Msg("Row has no matching record")
			continue
		}

		for _, id := range matches {
			rec := byID[id]
			proposed := make(models.Properties, len(job.Fields))
			current := make(models.Properties, len(job.Fields))
			for _, f := range job.Fields {
				existing := rec.Get(f.To)
				proposed[f.To] = writer.Coerce(models.RichText{Text: cell(row, columns[f.From])}, existing)
				current[f.To] = existing
			}
			out, err := w.WriteIfChanged(ctx, id, proposed, current)
			rc.tally(ctx, id, out, err)
		}
	}
	return nil
}

// cell returns row[i], or "" for cells past the end of a short row.
func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}
