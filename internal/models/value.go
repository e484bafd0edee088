// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

package models

// Kind identifies the variant of a TypedValue. The string values match the
// property type tags used by the workspace API.
type Kind string

const (
	KindTitle       Kind = "title"
	KindRichText    Kind = "rich_text"
	KindNumber      Kind = "number"
	KindSelect      Kind = "select"
	KindMultiSelect Kind = "multi_select"
	KindEmail       Kind = "email"
	KindDate        Kind = "date"
	KindCreatedTime Kind = "created_time"
	KindStatus      Kind = "status"
	KindRelation    Kind = "relation"
	KindFormula     Kind = "formula"
	KindCheckbox    Kind = "checkbox"
	KindUnknown     Kind = "unknown"
)

// TypedValue is a closed sum type over the property kinds the engine
// understands. Only the types in this file implement it.
//
// A nil TypedValue stands for an absent or null property.
type TypedValue interface {
	Kind() Kind
	isTypedValue()
}

// Title is the primary name property of a record.
type Title struct {
	Text string
}

// RichText is a free-form text property flattened to plain text.
type RichText struct {
	Text string
}

// Number is a numeric property. A nil Value is an empty cell.
type Number struct {
	Value *float64
}

// Select is a single-choice property. An empty Name means no choice.
type Select struct {
	Name string
}

// MultiSelect is a multiple-choice property.
type MultiSelect struct {
	Names []string
}

// Email is an email address property.
type Email struct {
	Address string
}

// Date is a date or date range. Start and End are ISO-8601 strings as
// returned by the API; End is empty for single dates.
type Date struct {
	Start string
	End   string
}

// CreatedTime is the read-only record creation timestamp (ISO-8601).
type CreatedTime struct {
	Time string
}

// Status is a workflow status property.
type Status struct {
	Name string
}

// RelationRef is one linked record. Title is filled in by a resolver and is
// empty until then.
type RelationRef struct {
	ID    string
	Title string
}

// Relation is a list of links to records in another database.
type Relation struct {
	Refs []RelationRef
}

// FormulaType is the result type of a formula property.
type FormulaType string

const (
	FormulaString  FormulaType = "string"
	FormulaNumber  FormulaType = "number"
	FormulaBoolean FormulaType = "boolean"
)

// Formula is a computed, read-only property. Only the field selected by Type
// carries the result.
type Formula struct {
	Type    FormulaType
	String  string
	Number  *float64
	Boolean bool
}

// Checkbox is a boolean property.
type Checkbox struct {
	Checked bool
}

// Unknown holds a property whose type tag is not supported. It always
// projects to an empty string.
type Unknown struct {
	Type string
}

func (Title) Kind() Kind       { return KindTitle }
func (RichText) Kind() Kind    { return KindRichText }
func (Number) Kind() Kind      { return KindNumber }
func (Select) Kind() Kind      { return KindSelect }
func (MultiSelect) Kind() Kind { return KindMultiSelect }
func (Email) Kind() Kind       { return KindEmail }
func (Date) Kind() Kind        { return KindDate }
func (CreatedTime) Kind() Kind { return KindCreatedTime }
func (Status) Kind() Kind      { return KindStatus }
func (Relation) Kind() Kind    { return KindRelation }
func (Formula) Kind() Kind     { return KindFormula }
func (Checkbox) Kind() Kind    { return KindCheckbox }
func (Unknown) Kind() Kind     { return KindUnknown }

func (Title) isTypedValue()       {}
func (RichText) isTypedValue()    {}
func (Number) isTypedValue()      {}
func (Select) isTypedValue()      {}
func (MultiSelect) isTypedValue() {}
func (Email) isTypedValue()       {}
func (Date) isTypedValue()        {}
func (CreatedTime) isTypedValue() {}
func (Status) isTypedValue()      {}
func (Relation) isTypedValue()    {}
func (Formula) isTypedValue()     {}
func (Checkbox) isTypedValue()    {}
func (Unknown) isTypedValue()     {}

// NumberOf returns a Number holding v.
func NumberOf(v float64) Number {
	return Number{Value: &v}
}

// RelationOf builds an unresolved relation from record IDs.
func RelationOf(ids ...string) Relation {
	refs := make([]RelationRef, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, RelationRef{ID: id})
	}
	return Relation{Refs: refs}
}

// IDs returns the linked record IDs in order.
func (r Relation) IDs() []string {
	ids := make([]string, 0, len(r.Refs))
	for _, ref := range r.Refs {
		ids = append(ids, ref.ID)
	}
	return ids
}

// NumericValue extracts a number from a Number or a numeric Formula.
func NumericValue(v TypedValue) (float64, bool) {
	switch tv := v.(type) {
	case Number:
		if tv.Value == nil {
			return 0, false
		}
		return *tv.Value, true
	case Formula:
		if tv.Type == FormulaNumber && tv.Number != nil {
			return *tv.Number, true
		}
	}
	return 0, false
}
