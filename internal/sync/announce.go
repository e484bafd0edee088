// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

package sync

import (
	"context"
	"fmt"
	"strings"

	"github.com/tomtom215/dirsync/internal/chat"
	"github.com/tomtom215/dirsync/internal/logging"
	"github.com/tomtom215/dirsync/internal/metrics"
	"github.com/tomtom215/dirsync/internal/models"
	"github.com/tomtom215/dirsync/internal/projection"
	"github.com/tomtom215/dirsync/internal/store"
	"github.com/tomtom215/dirsync/internal/workspace"
)

// announceRunner posts records created since the last run to a channel.
// The first run only sets the watermark so that existing records are not
// announced.
type announceRunner struct {
	deps *Deps
}

func (r *announceRunner) Run(ctx context.Context, rc *RunContext) error {
	job := rc.Job
	if rc.Watermark.IsZero() {
		rc.NewWatermark = workspace.FloorTimestamp(rc.StartedAt)
		rc.Notef("first run: existing records are not announced")
		return nil
	}

	notified, err := store.LoadIDSet(ctx, rc.Store, job.Name, store.SetNotified)
	if err != nil {
		return fmt.Errorf("load notified ids: %w", err)
	}

	filter := workspace.AndFilter(rawFilter(job.Source.Filter),
		workspace.TimestampFilter(workspace.CreatedTime, rc.Watermark, true))
	records, err := rc.collect(ctx, "source",
		r.deps.Workspace.QueryAll(ctx, job.Source.DatabaseID, filter, workspace.SortAscending(workspace.CreatedTime)))
	if err != nil {
		return err
	}

	schema := projection.SchemaFrom(job.Columns)
	projector := projection.NewProjector(r.deps.Workspace)
	log := logging.Ctx(ctx)

	var postErr error
	for _, rec := range records {
		if notified.Has(rec.ID) {
			rc.Counters.Skipped++
			continue
		}
		if postErr = ctx.Err(); postErr != nil {
			break
		}

		msg := announcement(job.Channel, schema, projector.Project(ctx, rec, schema))
		if _, err := r.deps.Chat.PostMessage(ctx, msg); err != nil {
			rc.Counters.Failed++
			metrics.RecordWrite(job.Name, "failed")
			log.Warn().Err(err).Str("record", rec.ID).Msg("Announcement failed")
			continue
		}
		metrics.RecordWrite(job.Name, "updated")
		notified.Add(rec.ID)
		rc.Counters.Posted++
	}

	if rc.Clean() && postErr == nil {
		rc.NewWatermark = workspace.FloorTimestamp(rc.StartedAt)
		notified = pruneNotified(notified, records, rc)
	}
	if err := store.SaveIDSet(context.WithoutCancel(ctx), rc.Store, job.Name, store.SetNotified, notified); err != nil {
		return fmt.Errorf("save notified ids: %w", err)
	}
	return postErr
}

// pruneNotified keeps only the IDs the next query can return again: those
// created at or after the new watermark.
func pruneNotified(notified store.IDSet, records []models.Record, rc *RunContext) store.IDSet {
	kept := make(store.IDSet)
	for _, rec := range records {
		if notified.Has(rec.ID) && !rec.CreatedTime.Before(rc.NewWatermark) {
			kept.Add(rec.ID)
		}
	}
	return kept
}

// announcement renders one record as "Header: value" lines, leaving out
// empty values.
func announcement(channel string, schema projection.Schema, cells []string) chat.Message {
	var lines []string
	for i, col := range schema {
		if i >= len(cells) || cells[i] == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("*%s:* %s", chat.Escape(col.Name), chat.Escape(cells[i])))
	}
	text := strings.Join(lines, "\n")
	if text == "" {
		text = "New record"
	}
	return chat.Message{
		Channel: channel,
		Text:    text,
		Blocks:  []chat.Block{chat.SectionBlock(text)},
	}
}
