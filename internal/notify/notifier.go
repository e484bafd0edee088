// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

// Package notify posts run reports and configuration errors to a chat channel.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/dirsync/internal/chat"
	"github.com/tomtom215/dirsync/internal/config"
	"github.com/tomtom215/dirsync/internal/logging"
	"github.com/tomtom215/dirsync/internal/metrics"
	"github.com/tomtom215/dirsync/internal/models"
)

// Poster posts one chat message. *chat.Client implements it.
type Poster interface {
	PostMessage(ctx context.Context, msg chat.Message) (string, error)
}

// Notifier posts run reports and configuration errors to the notification
// channel.
type Notifier struct {
	poster    Poster
	channel   string
	onSuccess bool
}

// New creates a Notifier. It is disabled when cfg has no notify channel.
func New(poster Poster, cfg config.ChatConfig) *Notifier {
	return &Notifier{poster: poster, channel: cfg.NotifyChannel, onSuccess: cfg.NotifyOnSuccess}
}

// Enabled reports whether a notification channel is configured.
func (n *Notifier) Enabled() bool {
	return n != nil && n.poster != nil && n.channel != ""
}

// ShouldPost reports whether report is worth a message. Successful runs are
// only posted when configured.
func (n *Notifier) ShouldPost(report models.RunReport) bool {
	if !n.Enabled() {
		return false
	}
	return report.Status != models.RunOK || n.onSuccess
}

// NotifyReport posts report if ShouldPost allows it.
func (n *Notifier) NotifyReport(ctx context.Context, report models.RunReport) error {
	if !n.ShouldPost(report) {
		metrics.RecordNotification("suppressed")
		return nil
	}
	return n.post(ctx, FormatReport(report))
}

// NotifyConfigError posts a configuration problem found for job.
func (n *Notifier) NotifyConfigError(ctx context.Context, job string, err error) error {
	if !n.Enabled() {
		return nil
	}
	return n.post(ctx, FormatConfigError(job, err))
}

func (n *Notifier) post(ctx context.Context, msg chat.Message) error {
	msg.Channel = n.channel
	if _, err := n.poster.PostMessage(ctx, msg); err != nil {
		metrics.RecordNotification("error")
		return fmt.Errorf("post notification: %w", err)
	}
	metrics.RecordNotification("sent")
	logging.Ctx(ctx).Debug().Str("channel", n.channel).Msg("Notification posted")
	return nil
}

var statusEmoji = map[models.RunStatus]string{
	models.RunOK:      ":white_check_mark:",
	models.RunPartial: ":warning:",
	models.RunFailed:  ":x:",
	models.RunSkipped: ":fast_forward:",
}

// FormatReport renders a run report as a chat message: a header, the
// non-zero counters, the error and notes, and a context footer.
func FormatReport(r models.RunReport) chat.Message {
	title := fmt.Sprintf("%s %s: %s", statusEmoji[r.Status], r.Job, r.Status)
	msg := chat.Message{
		Text:   fmt.Sprintf("Job %s finished with status %s", r.Job, r.Status),
		Blocks: []chat.Block{chat.HeaderBlock(strings.TrimSpace(title))},
	}

	if fields := counterFields(r.Counters); len(fields) > 0 {
		msg.Blocks = append(msg.Blocks, chat.FieldsBlock(fields...))
	}

	var body []string
	if r.Error != "" {
		body = append(body, "*Error:* "+chat.Escape(r.Error))
	}
	for _, note := range r.Notes {
		body = append(body, "• "+chat.Escape(note))
	}
	if len(body) > 0 {
		msg.Blocks = append(msg.Blocks, chat.SectionBlock(strings.Join(body, "\n")))
	}

	footer := fmt.Sprintf("%s job | run %s | %s", r.Kind, r.RunID, r.Duration().Round(time.Millisecond))
	if !r.FinishedAt.IsZero() {
		footer += " | " + r.FinishedAt.UTC().Format(time.RFC3339)
	}
	msg.Blocks = append(msg.Blocks, chat.ContextBlock(footer))
	return msg
}

// FormatConfigError renders a configuration error for job.
func FormatConfigError(job string, err error) chat.Message {
	text := fmt.Sprintf("Configuration error in job %s", job)
	return chat.Message{
		Text: text,
		Blocks: []chat.Block{
			chat.HeaderBlock(":gear: " + text),
			chat.SectionBlock("```" + chat.Escape(err.Error()) + "```"),
			chat.ContextBlock("The job will not run until its configuration is fixed."),
		},
	}
}

func counterFields(c models.RunCounters) []string {
	pairs := []struct {
		name string
		n    int
	}{
		{"Fetched", c.Fetched},
		{"Linked", c.Linked},
		{"Created", c.Created},
		{"Updated", c.Updated},
		{"Posted", c.Posted},
		{"Skipped", c.Skipped},
		{"Failed", c.Failed},
	}
	var out []string
	for _, p := range pairs {
		if p.n != 0 {
			out = append(out, fmt.Sprintf("*%s:* %d", p.name, p.n))
		}
	}
	return out
}
