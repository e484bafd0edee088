// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

package projection

import (
	"context"
	"sync"

	"github.com/tomtom215/dirsync/internal/config"
	"github.com/tomtom215/dirsync/internal/logging"
	"github.com/tomtom215/dirsync/internal/models"
)

// Column maps one record property to one output column.
type Column struct {
	Name     string
	Property string
	Round    bool
}

// Schema is an ordered list of columns.
type Schema []Column

// SchemaFrom builds a Schema from job configuration. A column without an
// explicit property reads the property of the same name.
func SchemaFrom(cols []config.ColumnConfig) Schema {
	s := make(Schema, 0, len(cols))
	for _, c := range cols {
		prop := c.Property
		if prop == "" {
			prop = c.Name
		}
		s = append(s, Column{Name: c.Name, Property: prop, Round: c.Round})
	}
	return s
}

// Headers returns the column names in order.
func (s Schema) Headers() []string {
	h := make([]string, 0, len(s))
	for _, c := range s {
		h = append(h, c.Name)
	}
	return h
}

// TitleResolver looks up the title of a related record.
type TitleResolver interface {
	Title(ctx context.Context, recordID string) (string, error)
}

// Projector turns records into rows of display strings. Related record
// titles are fetched once and remembered for the life of the Projector, so
// create one per run.
type Projector struct {
	resolver TitleResolver

	mu     sync.Mutex
	titles map[string]string
}

// NewProjector creates a Projector. A nil resolver leaves relations as ids.
func NewProjector(resolver TitleResolver) *Projector {
	return &Projector{resolver: resolver, titles: make(map[string]string)}
}

// Project returns one cell per schema column, in schema order.
func (p *Projector) Project(ctx context.Context, rec models.Record, schema Schema) []string {
	row := make([]string, 0, len(schema))
	for _, col := range schema {
		row = append(row, p.Cell(ctx, rec, col))
	}
	return row
}

// Cell renders a single column of a record.
func (p *Projector) Cell(ctx context.Context, rec models.Record, col Column) string {
	v, ok := rec.Properties[col.Property]
	if !ok {
		logging.Ctx(ctx).Debug().Str("record", rec.ID).Str("property", col.Property).Msg("Column missing from record")
		return ""
	}
	switch tv := v.(type) {
	case models.Unknown:
		logging.Ctx(ctx).Warn().Str("record", rec.ID).Str("property", col.Property).Str("type", tv.Type).Msg("Unsupported property type projected as empty")
		return ""
	case models.Relation:
		v = p.Resolve(ctx, tv)
	}
	if col.Round {
		v = Rounded(v)
	}
	return DisplayValue(v)
}

// Resolve fills in the titles of a relation's refs. Lookups that fail keep
// the id and are not retried within this Projector.
func (p *Projector) Resolve(ctx context.Context, rel models.Relation) models.Relation {
	if p.resolver == nil || len(rel.Refs) == 0 {
		return rel
	}
	out := models.Relation{Refs: make([]models.RelationRef, len(rel.Refs))}
	for i, ref := range rel.Refs {
		out.Refs[i] = ref
		if ref.Title == "" {
			out.Refs[i].Title = p.title(ctx, ref.ID)
		}
	}
	return out
}

func (p *Projector) title(ctx context.Context, id string) string {
	p.mu.Lock()
	t, ok := p.titles[id]
	p.mu.Unlock()
	if ok {
		return t
	}

	t, err := p.resolver.Title(ctx, id)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("related", id).Msg("Could not resolve related record title")
		t = ""
	}

	p.mu.Lock()
	p.titles[id] = t
	p.mu.Unlock()
	return t
}
