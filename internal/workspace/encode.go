// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

package workspace

import (
	"errors"
	"fmt"
	"sort"

	"github.com/tomtom215/dirsync/internal/models"
)

// ErrReadOnly is returned when a patch contains a computed property.
var ErrReadOnly = errors.New("property is read-only")

type textContent struct {
	Content string `json:"content"`
}

type textItem struct {
	Type string      `json:"type"`
	Text textContent `json:"text"`
}

type dateOut struct {
	Start string `json:"start"`
	End   string `json:"end,omitempty"`
}

// encodeProperties builds the "properties" object of a page update.
func encodeProperties(props models.Properties) (map[string]any, error) {
	out := make(map[string]any, len(props))

	// Sorted so the error for several read-only fields is deterministic.
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value, err := encodeValue(props[name])
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", name, err)
		}
		out[name] = value
	}
	return out, nil
}

// encodeValue renders one TypedValue as a property value payload.
// Empty values are encoded as explicit nulls so the remote field is cleared.
func encodeValue(v models.TypedValue) (map[string]any, error) {
	switch tv := v.(type) {
	case models.Title:
		return map[string]any{"title": richText(tv.Text)}, nil
	case models.RichText:
		return map[string]any{"rich_text": richText(tv.Text)}, nil
	case models.Number:
		if tv.Value == nil {
			return map[string]any{"number": nil}, nil
		}
		return map[string]any{"number": *tv.Value}, nil
	case models.Select:
		if tv.Name == "" {
			return map[string]any{"select": nil}, nil
		}
		return map[string]any{"select": map[string]string{"name": tv.Name}}, nil
	case models.Status:
		if tv.Name == "" {
			return nil, fmt.Errorf("%w: status cannot be cleared", ErrReadOnly)
		}
		return map[string]any{"status": map[string]string{"name": tv.Name}}, nil
	case models.MultiSelect:
		opts := make([]map[string]string, 0, len(tv.Names))
		for _, n := range tv.Names {
			opts = append(opts, map[string]string{"name": n})
		}
		return map[string]any{"multi_select": opts}, nil
	case models.Email:
		if tv.Address == "" {
			return map[string]any{"email": nil}, nil
		}
		return map[string]any{"email": tv.Address}, nil
	case models.Date:
		if tv.Start == "" {
			return map[string]any{"date": nil}, nil
		}
		return map[string]any{"date": dateOut{Start: tv.Start, End: tv.End}}, nil
	case models.Relation:
		items := make([]relationItem, 0, len(tv.Refs))
		for _, ref := range tv.Refs {
			items = append(items, relationItem{ID: ref.ID})
		}
		return map[string]any{"relation": items}, nil
	case models.Checkbox:
		return map[string]any{"checkbox": tv.Checked}, nil
	case models.CreatedTime, models.Formula:
		return nil, fmt.Errorf("%w: %s", ErrReadOnly, tv.Kind())
	case nil:
		return nil, fmt.Errorf("%w: nil value", ErrReadOnly)
	default:
		return nil, fmt.Errorf("%w: %s", ErrReadOnly, v.Kind())
	}
}

func richText(s string) []textItem {
	if s == "" {
		return []textItem{}
	}
	// The API caps a single text item at 2000 characters.
	const maxItem = 2000
	runes := []rune(s)
	items := make([]textItem, 0, len(runes)/maxItem+1)
	for len(runes) > 0 {
		n := min(len(runes), maxItem)
		items = append(items, textItem{Type: "text", Text: textContent{Content: string(runes[:n])}})
		runes = runes[n:]
	}
	return items
}
