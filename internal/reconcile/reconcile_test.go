// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

package reconcile

import (
	"reflect"
	"testing"

	"github.com/tomtom215/dirsync/internal/models"
)

func rec(id, key string, links ...string) models.Record {
	props := models.Properties{"Email": models.Email{Address: key}}
	if links != nil {
		props["Team"] = models.RelationOf(links...)
	}
	return models.Record{ID: id, Properties: props}
}

func TestBuildIndex(t *testing.T) {
	t.Parallel()

	targets := []models.Record{
		rec("t1", "Ada@Example.com"),
		rec("t2", " ada@example.com "),
		rec("t1", "ada@example.com"),
		rec("t3", ""),
		rec("t4", "bob@example.com"),
	}
	ix := BuildIndex(targets, PropertyKey("Email"))

	if got := ix.Lookup("ada@example.com"); !reflect.DeepEqual(got, []string{"t1", "t2"}) {
		t.Errorf("Lookup(ada) = %v, want [t1 t2]", got)
	}
	if got := ix.Lookup(""); got != nil {
		t.Errorf("Lookup(empty) = %v, want nil", got)
	}
	if len(ix) != 2 {
		t.Errorf("index size = %d, want 2", len(ix))
	}
}

func TestReconcile(t *testing.T) {
	t.Parallel()

	ix := BuildIndex([]models.Record{
		rec("t1", "ada@example.com"),
		rec("t2", "ada@example.com"),
		rec("t3", "bob@example.com"),
	}, PropertyKey("Email"))

	sources := []models.Record{
		rec("s1", ""),
		rec("s2", "carol@example.com"),
		rec("s3", "bob@example.com", "t3"),
		rec("s4", "ADA@example.com", "t1", "x9"),
		rec("s5", "bob@example.com"),
		{ID: "s6", Properties: models.Properties{"Email": models.Email{Address: "bob@example.com"}, "Team": models.Unknown{Type: "relation_truncated"}}},
	}

	got := Reconcile(sources, ix, PropertyKey("Email"), RelationLinks("Team"))
	if len(got) != len(sources) {
		t.Fatalf("decisions = %d, want %d", len(got), len(sources))
	}

	tests := []struct {
		action  Action
		reason  Reason
		missing []string
		links   []string
	}{
		{NoOp, ReasonEmptyKey, nil, []string{}},
		{NoOp, ReasonNoMatch, nil, []string{}},
		{NoOp, ReasonLinked, nil, []string{"t3"}},
		{Link, "", []string{"t2"}, []string{"t1", "x9", "t2"}},
		{Link, "", []string{"t3"}, []string{"t3"}},
		{NoOp, ReasonUnreadable, nil, []string{}},
	}
	for i, tt := range tests {
		d := got[i]
		if d.SourceID != sources[i].ID {
			t.Errorf("decision %d source = %s, want %s", i, d.SourceID, sources[i].ID)
		}
		if d.Action != tt.action || d.Reason != tt.reason {
			t.Errorf("%s: action/reason = %v/%q, want %v/%q", d.SourceID, d.Action, d.Reason, tt.action, tt.reason)
		}
		if !reflect.DeepEqual(d.Missing, tt.missing) {
			t.Errorf("%s: Missing = %v, want %v", d.SourceID, d.Missing, tt.missing)
		}
		if !reflect.DeepEqual(d.Links(), tt.links) {
			t.Errorf("%s: Links() = %v, want %v", d.SourceID, d.Links(), tt.links)
		}
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	t.Parallel()

	targets := []models.Record{rec("t1", "ada@example.com"), rec("t2", "ada@example.com"), rec("t3", "bob@example.com")}
	sources := []models.Record{rec("s1", "ada@example.com"), rec("s2", "bob@example.com", "t9")}
	key := PropertyKey("Email")
	ix := BuildIndex(targets, key)

	// Apply the first pass's links, then reconcile again.
	first := Reconcile(sources, ix, key, RelationLinks("Team"))
	for i, d := range first {
		if d.Action == Link {
			sources[i].Properties["Team"] = models.RelationOf(d.Links()...)
		}
	}
	second := Reconcile(sources, ix, key, RelationLinks("Team"))

	for _, d := range second {
		if d.Action != NoOp || d.Reason != ReasonLinked {
			t.Errorf("%s: second pass = %v/%q, want noop/linked", d.SourceID, d.Action, d.Reason)
		}
	}
	// Existing links are kept.
	if got := sources[1].Properties["Team"].(models.Relation).IDs(); !reflect.DeepEqual(got, []string{"t9", "t3"}) {
		t.Errorf("s2 links = %v, want [t9 t3]", got)
	}
}

func TestMissing(t *testing.T) {
	t.Parallel()

	if got := Missing([]string{"a", "b", "a", "c"}, []string{"b"}); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Errorf("Missing() = %v", got)
	}
	if got := Missing([]string{"a"}, []string{"a"}); got != nil {
		t.Errorf("Missing() = %v, want nil", got)
	}
}
