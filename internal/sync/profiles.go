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
	"github.com/tomtom215/dirsync/internal/models"
	"github.com/tomtom215/dirsync/internal/projection"
	"github.com/tomtom215/dirsync/internal/writer"
)

// profilesRunner sets chat profile fields from database properties of the
// person with the same email address.
type profilesRunner struct {
	deps *Deps
}

func (r *profilesRunner) Run(ctx context.Context, rc *RunContext) error {
	job := rc.Job
	records, err := rc.collect(ctx, "source", r.deps.Workspace.QueryAll(ctx, job.Source.DatabaseID, rawFilter(job.Source.Filter), nil))
	if err != nil {
		return err
	}

	projector := projection.NewProjector(r.deps.Workspace)
	users := newUserCache(r.deps.Chat, rc)
	w := writer.New(profilePatcher{chat: r.deps.Chat})
	log := logging.Ctx(ctx)

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}

		email := strings.TrimSpace(projection.DisplayValue(rec.Get(job.Source.KeyProperty)))
		if email == "" {
			rc.Counters.Skipped++
			continue
		}
		userID, ok := users.lookup(ctx, email)
		if !ok {
			continue
		}

		profile, err := r.deps.Chat.GetProfile(ctx, userID)
		if err != nil {
			rc.Counters.Failed++
			log.Warn().Err(err).Str("user", userID).Msg("Failed to read chat profile")
			continue
		}

		proposed := make(models.Properties, len(job.Fields))
		current := make(models.Properties, len(job.Fields))
		for _, f := range job.Fields {
			if rec.Get(f.From) == nil {
				continue
			}
			value := projector.Cell(ctx, rec, projection.Column{Name: f.To, Property: f.From})
			proposed[f.To] = models.RichText{Text: value}
			current[f.To] = models.RichText{Text: profile[f.To]}
		}
		if len(proposed) == 0 {
			rc.Counters.Skipped++
			continue
		}

		out, err := w.WriteIfChanged(ctx, userID, proposed, current)
		rc.tally(ctx, userID, out, err)
	}
	return nil
}

// profilePatcher writes changed fields to a chat profile.
type profilePatcher struct {
	chat ChatAPI
}

func (p profilePatcher) Patch(ctx context.Context, userID string, fields models.Properties) error {
	profile := make(chat.Profile, len(fields))
	for name, v := range fields {
		profile[name] = projection.DisplayValue(v)
	}
	if err := p.chat.SetProfile(ctx, userID, profile); err != nil {
		return fmt.Errorf("set profile: %w", err)
	}
	return nil
}
