// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

package writer

import (
	"strconv"
	"strings"

	"github.com/tomtom215/dirsync/internal/models"
	"github.com/tomtom215/dirsync/internal/projection"
)

// Diff returns the proposed fields that differ from current, with numbers
// rounded to one decimal place.
func Diff(proposed, current models.Properties) models.Properties {
	patch := make(models.Properties)
	for name, p := range proposed {
		if Equal(p, current[name]) {
			continue
		}
		patch[name] = projection.Rounded(p)
	}
	return patch
}

// Equal reports whether two values are the same for write-gating purposes.
// Numbers compare after rounding to one decimal place, dates by their start
// and end strings, relations as id sets and everything else by display string.
func Equal(a, b models.TypedValue) bool {
	na, aok := models.NumericValue(a)
	nb, bok := models.NumericValue(b)
	if aok || bok {
		return aok && bok && models.RoundTenth(na) == models.RoundTenth(nb)
	}

	if da, ok := a.(models.Date); ok {
		if db, ok := b.(models.Date); ok {
			return da.Start == db.Start && da.End == db.End
		}
	}

	if ra, ok := a.(models.Relation); ok {
		if rb, ok := b.(models.Relation); ok {
			return sameSet(ra.IDs(), rb.IDs())
		}
	}

	return projection.DisplayValue(a) == projection.DisplayValue(b)
}

func sameSet(a, b []string) bool {
	set := make(map[string]bool, len(a))
	for _, id := range a {
		set[id] = true
	}
	other := make(map[string]bool, len(b))
	for _, id := range b {
		if !set[id] {
			return false
		}
		other[id] = true
	}
	return len(set) == len(other)
}

// Coerce converts v into the variant of like, the value currently held by the
// target field, so values can be copied between differently typed fields.
// When like is nil, unknown or read-only, v is returned unchanged.
func Coerce(v, like models.TypedValue) models.TypedValue {
	text := projection.DisplayValue(v)
	switch like.(type) {
	case models.Title:
		if _, ok := v.(models.Title); ok {
			return v
		}
		return models.Title{Text: text}
	case models.RichText:
		if _, ok := v.(models.RichText); ok {
			return v
		}
		return models.RichText{Text: text}
	case models.Number:
		if n, ok := models.NumericValue(v); ok {
			return models.NumberOf(n)
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(text), 64); err == nil {
			return models.NumberOf(f)
		}
		return models.Number{}
	case models.Select:
		return models.Select{Name: text}
	case models.Status:
		return models.Status{Name: text}
	case models.Email:
		return models.Email{Address: strings.TrimSpace(text)}
	case models.Checkbox:
		if c, ok := v.(models.Checkbox); ok {
			return c
		}
		b, _ := strconv.ParseBool(strings.TrimSpace(text))
		return models.Checkbox{Checked: b}
	case models.MultiSelect:
		if m, ok := v.(models.MultiSelect); ok {
			return m
		}
		return models.MultiSelect{Names: splitList(text)}
	case models.Date:
		if d, ok := v.(models.Date); ok {
			return d
		}
		start, end, _ := strings.Cut(strings.TrimSpace(text), "/")
		return models.Date{Start: start, End: end}
	case models.Relation:
		if r, ok := v.(models.Relation); ok {
			return r
		}
		return models.RelationOf(splitList(text)...)
	default:
		return v
	}
}

// splitList splits a ", "-joined display string, dropping empty items.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
