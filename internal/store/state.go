// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/dirsync/internal/models"
)

// Id-set names.
const (
	SetNotified = "notified"
	SetExported = "exported"
)

func jobKey(job, suffix string) string {
	return "job:" + job + ":" + suffix
}

// LoadWatermark returns the saved high-water mark of a job, or the zero time
// if none was saved.
func LoadWatermark(ctx context.Context, s Store, job string) (time.Time, error) {
	raw, err := s.Get(ctx, jobKey(job, "watermark"))
	if errors.Is(err, ErrNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("watermark of %s: %w", job, err)
	}
	return t, nil
}

// SaveWatermark stores t as the job's high-water mark. A zero t is ignored.
func SaveWatermark(ctx context.Context, s Store, job string, t time.Time) error {
	if t.IsZero() {
		return nil
	}
	return s.Set(ctx, jobKey(job, "watermark"), t.UTC().Format(time.RFC3339Nano))
}

// IDSet is a set of record ids remembered across runs.
type IDSet map[string]bool

// Add inserts id.
func (s IDSet) Add(id string) {
	s[id] = true
}

// Has reports whether id is in the set.
func (s IDSet) Has(id string) bool {
	return s[id]
}

// Sorted returns the ids in ascending order.
func (s IDSet) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// LoadIDSet reads a named id set of a job. A missing set is empty.
func LoadIDSet(ctx context.Context, s Store, job, name string) (IDSet, error) {
	set := make(IDSet)
	raw, err := s.Get(ctx, jobKey(job, name))
	if errors.Is(err, ErrNotFound) {
		return set, nil
	}
	if err != nil {
		return nil, err
	}

	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("%s set of %s: %w", name, job, err)
	}
	for _, id := range ids {
		set.Add(id)
	}
	return set, nil
}

// SaveIDSet stores a named id set as a sorted JSON array.
func SaveIDSet(ctx context.Context, s Store, job, name string, set IDSet) error {
	data, err := json.Marshal(set.Sorted())
	if err != nil {
		return fmt.Errorf("marshal %s set: %w", name, err)
	}
	return s.Set(ctx, jobKey(job, name), string(data))
}

// LoadRunState returns the last saved report of a job. ok is false when the
// job has never run.
func LoadRunState(ctx context.Context, s Store, job string) (report models.RunReport, ok bool, err error) {
	raw, err := s.Get(ctx, jobKey(job, "last_run"))
	if errors.Is(err, ErrNotFound) {
		return models.RunReport{}, false, nil
	}
	if err != nil {
		return models.RunReport{}, false, err
	}
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		return models.RunReport{}, false, fmt.Errorf("run state of %s: %w", job, err)
	}
	return report, true, nil
}

// SaveRunState stores report as the job's last run.
func SaveRunState(ctx context.Context, s Store, report models.RunReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal run state: %w", err)
	}
	return s.Set(ctx, jobKey(report.Job, "last_run"), string(data))
}
