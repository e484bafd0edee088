// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

// Package writer gates target updates on a field-level comparison, so records
// that already hold the proposed values are never written.
package writer

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/dirsync/internal/logging"
	"github.com/tomtom215/dirsync/internal/models"
)

// ErrUnreadable is returned when a field that would be patched could not be
// read from the target, so a write could overwrite data that was never seen.
var ErrUnreadable = errors.New("current value unreadable")

// Outcome is the result of one gated write.
type Outcome int

const (
	Skipped Outcome = iota
	Updated
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Skipped:
		return "skipped"
	case Updated:
		return "updated"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Patcher applies a partial update to one target.
type Patcher interface {
	Patch(ctx context.Context, targetID string, fields models.Properties) error
}

// PatcherFunc adapts a function to Patcher.
type PatcherFunc func(ctx context.Context, targetID string, fields models.Properties) error

// Patch calls f.
func (f PatcherFunc) Patch(ctx context.Context, targetID string, fields models.Properties) error {
	return f(ctx, targetID, fields)
}

// Writer sends a patch only when something differs.
type Writer struct {
	patcher Patcher
}

// New creates a Writer over patcher.
func New(patcher Patcher) *Writer {
	return &Writer{patcher: patcher}
}

// WriteIfChanged compares proposed against current and patches targetID with
// only the fields that differ. Failed writes are not retried here; the
// patcher's client has already exhausted its own retries.
func (w *Writer) WriteIfChanged(ctx context.Context, targetID string, proposed, current models.Properties) (Outcome, error) {
	patch := Diff(proposed, current)
	if len(patch) == 0 {
		logging.Ctx(ctx).Trace().Str("target", targetID).Msg("Unchanged, write skipped")
		return Skipped, nil
	}
	for name := range patch {
		if u, ok := current[name].(models.Unknown); ok {
			return Failed, fmt.Errorf("write %s: field %q (%s): %w", targetID, name, u.Type, ErrUnreadable)
		}
	}

	if err := w.patcher.Patch(ctx, targetID, patch); err != nil {
		return Failed, fmt.Errorf("write %s: %w", targetID, err)
	}
	logging.Ctx(ctx).Debug().Str("target", targetID).Int("fields", len(patch)).Msg("Target updated")
	return Updated, nil
}
