// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

package projection

import (
	"strconv"
	"strings"

	"github.com/tomtom215/dirsync/internal/models"
)

// DisplayValue renders a value as the string a person would see in the
// workspace. It is total: nil and Unknown render as "".
//
// Relations render their resolved titles, falling back to the record id for
// refs that were never resolved.
func DisplayValue(v models.TypedValue) string {
	switch tv := v.(type) {
	case models.Title:
		return tv.Text
	case models.RichText:
		return tv.Text
	case models.Number:
		if tv.Value == nil {
			return ""
		}
		return FormatNumber(*tv.Value)
	case models.Select:
		return tv.Name
	case models.Status:
		return tv.Name
	case models.MultiSelect:
		return strings.Join(tv.Names, ", ")
	case models.Email:
		return tv.Address
	case models.Date:
		if tv.End == "" {
			return tv.Start
		}
		return tv.Start + "/" + tv.End
	case models.CreatedTime:
		return tv.Time
	case models.Relation:
		parts := make([]string, 0, len(tv.Refs))
		for _, ref := range tv.Refs {
			if ref.Title != "" {
				parts = append(parts, ref.Title)
				continue
			}
			parts = append(parts, ref.ID)
		}
		return strings.Join(parts, ", ")
	case models.Formula:
		switch tv.Type {
		case models.FormulaNumber:
			if tv.Number == nil {
				return ""
			}
			return FormatNumber(*tv.Number)
		case models.FormulaBoolean:
			return strconv.FormatBool(tv.Boolean)
		default:
			return tv.String
		}
	case models.Checkbox:
		return strconv.FormatBool(tv.Checked)
	default:
		return ""
	}
}

// FormatNumber renders x in its shortest round-tripping decimal form.
func FormatNumber(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}

// Rounded returns v with numeric content rounded to one decimal place. Other
// values are returned unchanged.
func Rounded(v models.TypedValue) models.TypedValue {
	switch tv := v.(type) {
	case models.Number:
		if tv.Value != nil {
			return models.NumberOf(models.RoundTenth(*tv.Value))
		}
	case models.Formula:
		if tv.Type == models.FormulaNumber && tv.Number != nil {
			r := models.RoundTenth(*tv.Number)
			tv.Number = &r
			return tv
		}
	}
	return v
}
