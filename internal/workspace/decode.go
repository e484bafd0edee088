// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

package workspace

import (
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/dirsync/internal/models"
)

// pageObject is a page as returned by the query and retrieve endpoints.
type pageObject struct {
	Object         string                     `json:"object"`
	ID             string                     `json:"id"`
	CreatedTime    time.Time                  `json:"created_time"`
	LastEditedTime time.Time                  `json:"last_edited_time"`
	Archived       bool                       `json:"archived"`
	Properties     map[string]json.RawMessage `json:"properties"`
}

type richTextItem struct {
	PlainText string `json:"plain_text"`
}

type namedOption struct {
	Name string `json:"name"`
}

type dateValue struct {
	Start string  `json:"start"`
	End   *string `json:"end"`
}

type relationItem struct {
	ID string `json:"id"`
}

type formulaValue struct {
	Type    string     `json:"type"`
	String  *string    `json:"string"`
	Number  *float64   `json:"number"`
	Boolean *bool      `json:"boolean"`
	Date    *dateValue `json:"date"`
}

// propertyObject holds every payload shape; only the field named by Type is set.
type propertyObject struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Title       []richTextItem `json:"title"`
	RichText    []richTextItem `json:"rich_text"`
	Number      *float64       `json:"number"`
	Select      *namedOption   `json:"select"`
	Status      *namedOption   `json:"status"`
	MultiSelect []namedOption  `json:"multi_select"`
	Email       *string        `json:"email"`
	Date        *dateValue     `json:"date"`
	CreatedTime string         `json:"created_time"`
	Relation    []relationItem `json:"relation"`
	HasMore     bool           `json:"has_more"`
	Formula     *formulaValue  `json:"formula"`
	Checkbox    bool           `json:"checkbox"`
}

// truncatedRelation names a relation property whose page payload was cut
// short by the API and must be completed through the property endpoint.
type truncatedRelation struct {
	Name       string
	PropertyID string
}

// decodeRecord converts a page object into a Record. Properties that cannot
// be decoded become models.Unknown so one odd column never drops a record.
func decodeRecord(page *pageObject) (models.Record, []truncatedRelation) {
	rec := models.Record{
		ID:             page.ID,
		CreatedTime:    page.CreatedTime,
		LastEditedTime: page.LastEditedTime,
		Properties:     make(models.Properties, len(page.Properties)),
	}

	var truncated []truncatedRelation
	for name, raw := range page.Properties {
		var prop propertyObject
		if err := json.Unmarshal(raw, &prop); err != nil {
			rec.Properties[name] = models.Unknown{Type: "malformed"}
			continue
		}
		rec.Properties[name] = decodeProperty(&prop)
		if prop.Type == string(models.KindRelation) && prop.HasMore {
			truncated = append(truncated, truncatedRelation{Name: name, PropertyID: prop.ID})
		}
	}
	return rec, truncated
}

// decodeProperty maps one property payload onto its TypedValue variant.
func decodeProperty(prop *propertyObject) models.TypedValue {
	switch models.Kind(prop.Type) {
	case models.KindTitle:
		return models.Title{Text: plainText(prop.Title)}
	case models.KindRichText:
		return models.RichText{Text: plainText(prop.RichText)}
	case models.KindNumber:
		return models.Number{Value: prop.Number}
	case models.KindSelect:
		if prop.Select == nil {
			return models.Select{}
		}
		return models.Select{Name: prop.Select.Name}
	case models.KindStatus:
		if prop.Status == nil {
			return models.Status{}
		}
		return models.Status{Name: prop.Status.Name}
	case models.KindMultiSelect:
		names := make([]string, 0, len(prop.MultiSelect))
		for _, opt := range prop.MultiSelect {
			names = append(names, opt.Name)
		}
		return models.MultiSelect{Names: names}
	case models.KindEmail:
		if prop.Email == nil {
			return models.Email{}
		}
		return models.Email{Address: *prop.Email}
	case models.KindDate:
		return decodeDate(prop.Date)
	case models.KindCreatedTime:
		return models.CreatedTime{Time: prop.CreatedTime}
	case models.KindRelation:
		refs := make([]models.RelationRef, 0, len(prop.Relation))
		for _, item := range prop.Relation {
			refs = append(refs, models.RelationRef{ID: item.ID})
		}
		return models.Relation{Refs: refs}
	case models.KindFormula:
		return decodeFormula(prop.Formula)
	case models.KindCheckbox:
		return models.Checkbox{Checked: prop.Checkbox}
	default:
		return models.Unknown{Type: prop.Type}
	}
}

func decodeDate(d *dateValue) models.Date {
	if d == nil {
		return models.Date{}
	}
	out := models.Date{Start: d.Start}
	if d.End != nil {
		out.End = *d.End
	}
	return out
}

func decodeFormula(f *formulaValue) models.TypedValue {
	if f == nil {
		return models.Unknown{Type: string(models.KindFormula)}
	}
	switch f.Type {
	case "string":
		out := models.Formula{Type: models.FormulaString}
		if f.String != nil {
			out.String = *f.String
		}
		return out
	case "number":
		return models.Formula{Type: models.FormulaNumber, Number: f.Number}
	case "boolean":
		out := models.Formula{Type: models.FormulaBoolean}
		if f.Boolean != nil {
			out.Boolean = *f.Boolean
		}
		return out
	case "date":
		// Date formulas are carried as their ISO string form.
		d := decodeDate(f.Date)
		s := d.Start
		if d.End != "" {
			s += "/" + d.End
		}
		return models.Formula{Type: models.FormulaString, String: s}
	default:
		return models.Unknown{Type: "formula." + f.Type}
	}
}

func plainText(items []richTextItem) string {
	if len(items) == 0 {
		return ""
	}
	var b strings.Builder
	for _, item := range items {
		b.WriteString(item.PlainText)
	}
	return b.String()
}
