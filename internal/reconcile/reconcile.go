// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

// Package reconcile matches source records to target records by join key and
// decides which relation links are missing.
package reconcile

import (
	"github.com/tomtom215/dirsync/internal/models"
	"github.com/tomtom215/dirsync/internal/projection"
)

// KeyFunc extracts the join key of a record.
type KeyFunc func(models.Record) models.JoinKey

// PropertyKey keys records by the normalized display value of a property.
func PropertyKey(property string) KeyFunc {
	return func(r models.Record) models.JoinKey {
		return models.NormalizeKey(projection.DisplayValue(r.Get(property)))
	}
}

// Index maps join keys to target record ids in fetch order.
type Index map[models.JoinKey][]string

// BuildIndex indexes targets by key. Every target sharing a key is kept; a
// target listed twice is indexed once. Empty keys are not indexed.
func BuildIndex(targets []models.Record, key KeyFunc) Index {
	ix := make(Index, len(targets))
	seen := make(map[string]bool, len(targets))
	for _, t := range targets {
		k := key(t)
		if k.IsEmpty() || seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		ix[k] = append(ix[k], t.ID)
	}
	return ix
}

// Lookup returns the target ids for k.
func (ix Index) Lookup(k models.JoinKey) []string {
	if k.IsEmpty() {
		return nil
	}
	return ix[k]
}

// Action is what Reconcile decided for one source record.
type Action int

const (
	NoOp Action = iota
	Link
)

func (a Action) String() string {
	if a == Link {
		return "link"
	}
	return "noop"
}

// Reason explains a NoOp.
type Reason string

const (
	ReasonEmptyKey   Reason = "empty_key"
	ReasonNoMatch    Reason = "no_match"
	ReasonLinked     Reason = "linked"
	ReasonUnreadable Reason = "unreadable_links"
)

// Decision is the outcome for one source record.
type Decision struct {
	SourceID string
	Key      models.JoinKey
	Action   Action
	Reason   Reason

	// Matched are all targets sharing the key, Existing the targets the
	// source already links to and Missing the matched targets not yet linked.
	Matched  []string
	Existing []string
	Missing  []string
}

// Links is the link set to write: existing links followed by the missing
// ones. Links are only ever added.
func (d Decision) Links() []string {
	out := make([]string, 0, len(d.Existing)+len(d.Missing))
	out = append(out, d.Existing...)
	return append(out, d.Missing...)
}

// LinksFunc reads the current links of a source record. ok is false when
// the links cannot be read reliably, for example a relation the API cut short.
type LinksFunc func(models.Record) (ids []string, ok bool)

// RelationLinks reads links from a relation property. A missing or empty
// property means no links; any other variant is unreadable.
func RelationLinks(property string) LinksFunc {
	return func(r models.Record) ([]string, bool) {
		v, present := r.Properties[property]
		if !present || v == nil {
			return nil, true
		}
		rel, ok := v.(models.Relation)
		if !ok {
			return nil, false
		}
		return rel.IDs(), true
	}
}

// Reconcile decides, for each source in order, whether links to matching
// targets are missing.
func Reconcile(sources []models.Record, ix Index, key KeyFunc, links LinksFunc) []Decision {
	out := make([]Decision, 0, len(sources))
	for _, src := range sources {
		out = append(out, decide(src, ix, key, links))
	}
	return out
}

func decide(src models.Record, ix Index, key KeyFunc, links LinksFunc) Decision {
	d := Decision{SourceID: src.ID, Key: key(src)}
	if d.Key.IsEmpty() {
		d.Reason = ReasonEmptyKey
		return d
	}

	d.Matched = ix.Lookup(d.Key)
	if len(d.Matched) == 0 {
		d.Reason = ReasonNoMatch
		return d
	}

	existing, ok := links(src)
	if !ok {
		d.Reason = ReasonUnreadable
		return d
	}
	d.Existing = existing
	d.Missing = Missing(d.Matched, existing)
	if len(d.Missing) == 0 {
		d.Reason = ReasonLinked
		return d
	}
	d.Action = Link
	return d
}

// Missing returns the ids in want that are not in have, in want's order and
// without duplicates.
func Missing(want, have []string) []string {
	present := make(map[string]bool, len(have)+len(want))
	for _, id := range have {
		present[id] = true
	}
	var out []string
	for _, id := range want {
		if present[id] {
			continue
		}
		present[id] = true
		out = append(out, id)
	}
	return out
}
