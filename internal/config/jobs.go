// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

package config

// JobKind selects which pipeline a job runs.
type JobKind string

const (
	// KindLink links source records to target records sharing a join key
	// through a relation property.
	KindLink JobKind = "link"
	// KindMirror copies property values between columns of the same record.
	KindMirror JobKind = "mirror"
	// KindExport projects a database into a spreadsheet range.
	KindExport JobKind = "export"
	// KindImport writes spreadsheet columns onto matching database records.
	KindImport JobKind = "import"
	// KindGroups maintains chat user-group membership from a database.
	KindGroups JobKind = "groups"
	// KindProfiles sets chat profile fields from database properties.
	KindProfiles JobKind = "profiles"
	// KindAnnounce posts new database records to a chat channel.
	KindAnnounce JobKind = "announce"
)

// JobKinds lists every supported kind.
var JobKinds = []JobKind{KindLink, KindMirror, KindExport, KindImport, KindGroups, KindProfiles, KindAnnounce}

// Export modes.
const (
	ExportReplace = "replace"
	ExportAppend  = "append"
)

// JobConfig is the declarative definition of one sync job. Which sections
// are required depends on Kind; see validateJob.
type JobConfig struct {
	Name string  `koanf:"name" validate:"required,max=64,excludesall=/"`
	Kind JobKind `koanf:"kind" validate:"required,oneof=link mirror export import groups profiles announce"`

	// Schedule is a standard cron expression or descriptor. Jobs without a
	// schedule only run when triggered manually.
	Schedule string `koanf:"schedule" validate:"omitempty,cron"`
	Disabled bool   `koanf:"disabled"`

	// Incremental restricts the source query to records edited (mirror) or
	// created (announce) since the last successful run.
	Incremental bool `koanf:"incremental"`

	Source SourceConfig `koanf:"source"`
	Target TargetConfig `koanf:"target"`

	// LinkProperty is the relation on the source that receives links (link).
	LinkProperty string `koanf:"link_property"`

	// Fields maps a source property to a destination field
	// (mirror, import, profiles).
	Fields []FieldMapping `koanf:"fields" validate:"dive"`

	// Columns is the projection schema (export, announce).
	Columns []ColumnConfig `koanf:"columns" validate:"dive"`

	Sheet SheetConfig `koanf:"sheet"`
	Group GroupConfig `koanf:"group"`

	// Channel receives announcements (announce).
	Channel string `koanf:"channel"`
}

// SourceConfig names the collection a job reads.
type SourceConfig struct {
	DatabaseID string `koanf:"database_id" validate:"omitempty,workspace_id"`

	// KeyProperty holds the join key (usually an email address).
	KeyProperty string `koanf:"key_property"`

	// Filter is a raw JSON filter object passed to the query endpoint.
	Filter string `koanf:"filter" validate:"omitempty,json"`
}

// TargetConfig names the collection a link job matches against.
type TargetConfig struct {
	DatabaseID  string `koanf:"database_id" validate:"omitempty,workspace_id"`
	KeyProperty string `koanf:"key_property"`
	Filter      string `koanf:"filter" validate:"omitempty,json"`
}

// FieldMapping copies From (a source property or sheet column header) into
// To (a destination property or chat profile field).
type FieldMapping struct {
	From string `koanf:"from" validate:"required"`
	To   string `koanf:"to" validate:"required"`
}

// ColumnConfig is one column of a projection schema.
type ColumnConfig struct {
	// Name is the column header.
	Name string `koanf:"name" validate:"required"`

	// Property is the source property; defaults to Name.
	Property string `koanf:"property"`

	// Round rounds numeric values to one decimal place.
	Round bool `koanf:"round"`
}

// SheetConfig locates a spreadsheet range.
type SheetConfig struct {
	SpreadsheetID string `koanf:"spreadsheet_id"`

	// Range is an A1 range such as "Roster!A1:F".
	Range string `koanf:"range"`

	// Mode is replace (default) or append (export).
	Mode string `koanf:"mode" validate:"omitempty,oneof=replace append"`

	// KeyColumn is the header of the join key column (import).
	KeyColumn string `koanf:"key_column"`
}

// GroupConfig configures user-group membership sync (groups).
type GroupConfig struct {
	// Property is a select, multi-select or status property naming the group(s).
	Property string `koanf:"property"`

	// HandlePrefix is prepended to generated group handles.
	HandlePrefix string `koanf:"handle_prefix"`
}
