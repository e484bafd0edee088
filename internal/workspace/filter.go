// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

package workspace

import (
	"time"

	"github.com/goccy/go-json"
)

// Timestamp filter fields.
const (
	CreatedTime    = "created_time"
	LastEditedTime = "last_edited_time"
)

// TimestampPrecision is the resolution of created_time and last_edited_time.
// The API rounds both down to the minute.
const TimestampPrecision = time.Minute

// FloorTimestamp rounds t down to TimestampPrecision, in UTC. Watermarks
// compared against record timestamps must be floored first.
func FloorTimestamp(t time.Time) time.Time {
	return t.UTC().Truncate(TimestampPrecision)
}

// TimestampFilter matches records whose timestamp field is after (or, with
// inclusive, on or after) t, floored to TimestampPrecision.
func TimestampFilter(field string, t time.Time, inclusive bool) json.RawMessage {
	op := "after"
	if inclusive {
		op = "on_or_after"
	}
	f := map[string]any{
		"timestamp": field,
		field:       map[string]string{op: FloorTimestamp(t).Format(time.RFC3339)},
	}
	b, _ := json.Marshal(f)
	return b
}

// AndFilter combines filters, ignoring empty ones. It returns nil when
// nothing is left and the single filter when only one is given.
func AndFilter(filters ...json.RawMessage) json.RawMessage {
	parts := make([]json.RawMessage, 0, len(filters))
	for _, f := range filters {
		if len(f) > 0 {
			parts = append(parts, f)
		}
	}
	switch len(parts) {
	case 0:
		return nil
	case 1:
		return parts[0]
	}
	b, _ := json.Marshal(map[string]any{"and": parts})
	return b
}

// SortAscending orders a query by a timestamp, oldest first.
func SortAscending(timestamp string) json.RawMessage {
	b, _ := json.Marshal([]map[string]string{{"timestamp": timestamp, "direction": "ascending"}})
	return b
}
