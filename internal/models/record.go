// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

package models

import (
	"errors"
	"math"
	"strings"
	"time"
)

// ErrCursorMissing is returned by Page.Validate when more pages are reported
// but no cursor was given to reach them.
var ErrCursorMissing = errors.New("page reports has_more without next_cursor")

// Properties maps a property name to its value.
type Properties map[string]TypedValue

// Record is one entity fetched from a collection.
type Record struct {
	ID             string
	CreatedTime    time.Time
	LastEditedTime time.Time
	Properties     Properties
}

// Get returns the named property, or nil when the record does not have it.
func (r Record) Get(name string) TypedValue {
	if r.Properties == nil {
		return nil
	}
	return r.Properties[name]
}

// Page is a single response of a paginated query.
type Page struct {
	Records    []Record
	HasMore    bool
	NextCursor string
}

// Validate checks the cursor invariant.
func (p Page) Validate() error {
	if p.HasMore && p.NextCursor == "" {
		return ErrCursorMissing
	}
	return nil
}

// JoinKey is a normalized scalar used to correlate records across systems.
type JoinKey string

// NormalizeKey lower-cases and trims s.
func NormalizeKey(s string) JoinKey {
	return JoinKey(strings.ToLower(strings.TrimSpace(s)))
}

// IsEmpty reports whether the key can never match.
func (k JoinKey) IsEmpty() bool {
	return k == ""
}

// RoundTenth rounds x to one decimal place, half away from zero.
func RoundTenth(x float64) float64 {
	return math.Round(x*10) / 10
}
