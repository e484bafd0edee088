// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tomtom215/dirsync/internal/chat"
	"github.com/tomtom215/dirsync/internal/logging"
	"github.com/tomtom215/dirsync/internal/metrics"
	"github.com/tomtom215/dirsync/internal/models"
	"github.com/tomtom215/dirsync/internal/projection"
	"github.com/tomtom215/dirsync/internal/reconcile"
)

// groupsRunner adds people to the chat user groups named by a select,
// multi-select or status property. Members are only ever added.
type groupsRunner struct {
	deps *Deps
}

func (r *groupsRunner) Run(ctx context.Context, rc *RunContext) error {
	job := rc.Job
	records, err := rc.collect(ctx, "source", r.deps.Workspace.QueryAll(ctx, job.Source.DatabaseID, rawFilter(job.Source.Filter), nil))
	if err != nil {
		return err
	}

	// Group name to member emails, in first-seen order.
	var names []string
	wanted := make(map[string][]string)
	for _, rec := range records {
		email := strings.TrimSpace(projection.DisplayValue(rec.Get(job.Source.KeyProperty)))
		groups := groupNames(rec.Get(job.Group.Property))
		if email == "" || len(groups) == 0 {
			rc.Counters.Skipped++
			continue
		}
		for _, g := range groups {
			if _, seen := wanted[g]; !seen {
				names = append(names, g)
			}
			wanted[g] = append(wanted[g], email)
		}
	}
	if len(names) == 0 {
		return nil
	}

	existing, err := r.deps.Chat.ListUserGroups(ctx, false)
	if err != nil {
		return fmt.Errorf("list user groups: %w", err)
	}
	byName := make(map[string]chat.UserGroup, len(existing))
	for _, g := range existing {
		byName[strings.ToLower(g.Name)] = g
	}

	users := newUserCache(r.deps.Chat, rc)
	log := logging.Ctx(ctx)
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}

		var ids []string
		for _, email := range wanted[name] {
			if id, ok := users.lookup(ctx, email); ok {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			continue
		}

		var members []string
		group, found := byName[strings.ToLower(name)]
		if !found {
			group, err = r.deps.Chat.CreateUserGroup(ctx, name, groupHandle(job.Group.HandlePrefix, name))
			if err != nil {
				rc.Counters.Failed++
				metrics.RecordWrite(job.Name, "failed")
				log.Warn().Err(err).Str("group", name).Msg("Failed to create user group")
				continue
			}
			rc.Counters.Created++
			log.Info().Str("group", name).Str("group_id", group.ID).Msg("User group created")
		} else {
			members, err = r.deps.Chat.ListUserGroupMembers(ctx, group.ID)
			if err != nil {
				rc.Counters.Failed++
				log.Warn().Err(err).Str("group", name).Msg("Failed to list group members")
				continue
			}
		}

		missing := reconcile.Missing(ids, members)
		if len(missing) == 0 {
			rc.Counters.Skipped++
			metrics.RecordWrite(job.Name, "skipped")
			continue
		}
		if err := r.deps.Chat.UpdateUserGroupMembers(ctx, group.ID, append(members, missing...)); err != nil {
			rc.Counters.Failed++
			metrics.RecordWrite(job.Name, "failed")
			log.Warn().Err(err).Str("group", name).Msg("Failed to update group members")
			continue
		}
		metrics.RecordWrite(job.Name, "updated")
		rc.Counters.Updated++
		rc.Counters.Linked += len(missing)
		log.Debug().Str("group", name).Int("added", len(missing)).Msg("Group members added")
	}
	return nil
}

// groupNames reads group names from a choice property.
func groupNames(v models.TypedValue) []string {
	var out []string
	switch tv := v.(type) {
	case models.Select:
		out = append(out, tv.Name)
	case models.Status:
		out = append(out, tv.Name)
	case models.MultiSelect:
		out = append(out, tv.Names...)
	}
	names := out[:0]
	for _, n := range out {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}

// groupHandle derives a mention handle: prefix plus the lower-cased name
// with runs of other characters replaced by a dash.
func groupHandle(prefix, name string) string {
	var b strings.Builder
	b.WriteString(prefix)
	dash := false
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > len(prefix) {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// userCache memoizes email lookups for one run. Each unknown email is
// counted as skipped once.
type userCache struct {
	chat ChatAPI
	rc   *RunContext
	ids  map[string]string
}

func newUserCache(c ChatAPI, rc *RunContext) *userCache {
	return &userCache{chat: c, rc: rc, ids: make(map[string]string)}
}

func (u *userCache) lookup(ctx context.Context, email string) (string, bool) {
	key := string(models.NormalizeKey(email))
	if id, ok := u.ids[key]; ok {
		return id, id != ""
	}

	user, err := u.chat.LookupUserByEmail(ctx, email)
	switch {
	case errors.Is(err, chat.ErrUserNotFound):
		u.rc.Counters.Skipped++
		logging.Ctx(ctx).Debug().Str("email", logging.SanitizeEmail(email)).Msg("No chat user for email")
	case err != nil:
		u.rc.Counters.Failed++
		logging.Ctx(ctx).Warn().Err(err).Str("email", logging.SanitizeEmail(email)).Msg("Chat user lookup failed")
	case user.Deleted:
		u.rc.Counters.Skipped++
	default:
		u.ids[key] = user.ID
		return user.ID, true
	}
	u.ids[key] = ""
	return "", false
}
