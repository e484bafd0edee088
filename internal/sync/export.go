// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

package sync

import (
	"context"
	"fmt"

	"github.com/tomtom215/dirsync/internal/config"
	"github.com/tomtom215/dirsync/internal/logging"
	"github.com/tomtom215/dirsync/internal/metrics"
	"github.com/tomtom215/dirsync/internal/models"
	"github.com/tomtom215/dirsync/internal/projection"
	"github.com/tomtom215/dirsync/internal/sheets"
	"github.com/tomtom215/dirsync/internal/store"
	"github.com/tomtom215/dirsync/internal/workspace"
)

// exportRunner projects a database into a spreadsheet range, oldest
// record first.
type exportRunner struct {
	deps *Deps
}

func (r *exportRunner) Run(ctx context.Context, rc *RunContext) error {
	job := rc.Job
	coll := r.deps.Workspace.QueryAll(ctx, job.Source.DatabaseID, rawFilter(job.Source.Filter), workspace.SortAscending(workspace.CreatedTime))
	records, err := rc.collect(ctx, "source", coll)
	if err != nil {
		return err
	}

	schema := projection.SchemaFrom(job.Columns)
	projector := projection.NewProjector(r.deps.Workspace)

	if job.ExportMode() == config.ExportAppend {
		return r.appendRows(ctx, rc, records, schema, projector)
	}

	// Replacing the sheet with a truncated collection would drop rows.
	if !coll.Complete {
		rc.Notef("sheet left unchanged")
		return nil
	}

	rows := make(sheets.Rows, 0, len(records)+1)
	rows = append(rows, schema.Headers())
	for _, rec := range records {
		rows = append(rows, projector.Project(ctx, rec, schema))
	}

	current, err := r.deps.Sheets.GetValues(ctx, job.Sheet.SpreadsheetID, job.Sheet.Range)
	if err != nil {
		return fmt.Errorf("read sheet: %w", err)
	}
	if sheets.Equal(current, rows) {
		rc.Counters.Skipped += len(records)
		metrics.RecordWrite(job.Name, "skipped")
		logging.Ctx(ctx).Debug().Int("rows", len(records)).Msg("Sheet already up to date")
		return nil
	}

	if err := r.deps.Sheets.Clear(ctx, job.Sheet.SpreadsheetID, job.Sheet.Range); err != nil {
		metrics.RecordWrite(job.Name, "failed")
		return fmt.Errorf("clear sheet: %w", err)
	}
	if err := r.deps.Sheets.SetValues(ctx, job.Sheet.SpreadsheetID, job.Sheet.Range, rows); err != nil {
		metrics.RecordWrite(job.Name, "failed")
		return fmt.Errorf("write sheet: %w", err)
	}
	metrics.RecordWrite(job.Name, "updated")
	rc.Counters.Updated += len(records)
	return nil
}

// appendRows appends records not exported before. The exported IDs are
// remembered in the store.
func (r *exportRunner) appendRows(ctx context.Context, rc *RunContext, records []models.Record, schema projection.Schema, projector *projection.Projector) error {
	job := rc.Job
	exported, err := store.LoadIDSet(ctx, rc.Store, job.Name, store.SetExported)
	if err != nil {
		return fmt.Errorf("load exported ids: %w", err)
	}

	var (
		rows  sheets.Rows
		added []string
	)
	for _, rec := range records {
		if exported.Has(rec.ID) {
			rc.Counters.Skipped++
			continue
		}
		rows = append(rows, projector.Project(ctx, rec, schema))
		added = append(added, rec.ID)
	}
	if len(rows) == 0 {
		return nil
	}

	current, err := r.deps.Sheets.GetValues(ctx, job.Sheet.SpreadsheetID, job.Sheet.Range)
	if err != nil {
		return fmt.Errorf("read sheet: %w", err)
	}
	if sheets.Equal(current, nil) {
		rows = append(sheets.Rows{schema.Headers()}, rows...)
	}

	if err := r.deps.Sheets.Append(ctx, job.Sheet.SpreadsheetID, job.Sheet.Range, rows); err != nil {
		metrics.RecordWrite(job.Name, "failed")
		return fmt.Errorf("append rows: %w", err)
	}
	metrics.RecordWrite(job.Name, "updated")
	rc.Counters.Created += len(added)

	for _, id := range added {
		exported.Add(id)
	}
	if err := store.SaveIDSet(ctx, rc.Store, job.Name, store.SetExported, exported); err != nil {
		return fmt.Errorf("save exported ids: %w", err)
	}
	return nil
}
