// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tomtom215/dirsync/internal/logging"
	"github.com/tomtom215/dirsync/internal/validation"
)

// ErrInvalid is wrapped by every configuration validation error.
var ErrInvalid = errors.New("invalid configuration")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Validate checks the global sections and the shape of every job definition.
//
// Kind-specific job rules are checked separately by JobConfig.Validate so a
// single broken job fails its own runs instead of the whole process.
func (c *Config) Validate() error {
	if err := c.validateWorkspace(); err != nil {
		return err
	}
	if err := c.validateChat(); err != nil {
		return err
	}
	if err := c.validateSheets(); err != nil {
		return err
	}
	if err := c.validateHTTP(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return c.validateJobs()
}

func (c *Config) validateWorkspace() error {
	if err := validateHTTPURL(c.Workspace.BaseURL, "workspace.base_url"); err != nil {
		return err
	}
	if len(c.EnabledJobs()) > 0 && c.Workspace.Token == "" {
		return invalidf("workspace.token (WORKSPACE_TOKEN) is required when jobs are configured")
	}
	if c.Workspace.Version == "" {
		return invalidf("workspace.version is required")
	}
	if c.Workspace.PageSize < 1 || c.Workspace.PageSize > 100 {
		return invalidf("workspace.page_size must be between 1 and 100, got %d", c.Workspace.PageSize)
	}
	if c.Workspace.RatePerSecond <= 0 {
		return invalidf("workspace.rate_per_second must be positive")
	}
	return nil
}

func (c *Config) validateChat() error {
	if err := validateHTTPURL(c.Chat.BaseURL, "chat.base_url"); err != nil {
		return err
	}
	if c.Chat.NotifyChannel != "" && c.Chat.BotToken == "" {
		return invalidf("chat.bot_token (CHAT_BOT_TOKEN) is required when chat.notify_channel is set")
	}
	if c.Chat.RatePerSecond <= 0 {
		return invalidf("chat.rate_per_second must be positive")
	}
	return nil
}

func (c *Config) validateSheets() error {
	if err := validateHTTPURL(c.Sheets.BaseURL, "sheets.base_url"); err != nil {
		return err
	}
	if c.Sheets.RatePerSecond <= 0 {
		return invalidf("sheets.rate_per_second must be positive")
	}
	return nil
}

func (c *Config) validateHTTP() error {
	if c.HTTP.Timeout <= 0 {
		return invalidf("http.timeout must be positive")
	}
	if c.HTTP.MaxRetries < 0 || c.HTTP.MaxRetries > 10 {
		return invalidf("http.max_retries must be between 0 and 10, got %d", c.HTTP.MaxRetries)
	}
	if c.HTTP.RetryBaseDelay <= 0 {
		return invalidf("http.retry_base_delay must be positive")
	}
	return nil
}

func (c *Config) validateStore() error {
	if !c.Store.InMemory && c.Store.Path == "" {
		return invalidf("store.path is required unless store.in_memory is set")
	}
	return nil
}

func (c *Config) validateSync() error {
	if c.Sync.RunTimeout <= 0 {
		return invalidf("sync.run_timeout must be positive")
	}
	return nil
}

func (c *Config) validateServer() error {
	if !c.Server.Enabled {
		return nil
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return invalidf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return invalidf("server.timeout must be positive")
	}
	if c.Server.TriggerRateLimit < 1 {
		return invalidf("server.trigger_rate_limit must be at least 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return invalidf("logging.level must be one of trace, debug, info, warn, error; got %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
		return nil
	default:
		return invalidf("logging.format must be json or console, got %q", c.Logging.Format)
	}
}

// validateJobs applies the struct tags of every job and checks names are unique.
func (c *Config) validateJobs() error {
	seen := make(map[string]int, len(c.Jobs))
	for i := range c.Jobs {
		job := &c.Jobs[i]
		if err := validation.ValidateStruct(job); err != nil {
			return invalidf("jobs[%d]: %v", i, err)
		}
		if strings.TrimSpace(job.Name) != job.Name || strings.ContainsAny(job.Name, " \t") {
			return invalidf("jobs[%d]: name %q must not contain whitespace", i, job.Name)
		}
		if prev, dup := seen[job.Name]; dup {
			return invalidf("jobs[%d]: name %q already used by jobs[%d]", i, job.Name, prev)
		}
		seen[job.Name] = i
	}
	return nil
}

// Validate checks the kind-specific requirements of a job definition.
// The returned error wraps ErrInvalid.
func (j *JobConfig) Validate() error {
	var missing []string
	require := func(value, path string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, path)
		}
	}

	switch j.Kind {
	case KindLink:
		require(j.Source.DatabaseID, "source.database_id")
		require(j.Source.KeyProperty, "source.key_property")
		require(j.Target.DatabaseID, "target.database_id")
		require(j.Target.KeyProperty, "target.key_property")
		require(j.LinkProperty, "link_property")
	case KindMirror:
		require(j.Source.DatabaseID, "source.database_id")
		if len(j.Fields) == 0 {
			missing = append(missing, "fields")
		}
	case KindExport:
		require(j.Source.DatabaseID, "source.database_id")
		require(j.Sheet.SpreadsheetID, "sheet.spreadsheet_id")
		require(j.Sheet.Range, "sheet.range")
		if len(j.Columns) == 0 {
			missing = append(missing, "columns")
		}
	case KindImport:
		require(j.Sheet.SpreadsheetID, "sheet.spreadsheet_id")
		require(j.Sheet.Range, "sheet.range")
		require(j.Sheet.KeyColumn, "sheet.key_column")
		require(j.Target.DatabaseID, "target.database_id")
		require(j.Target.KeyProperty, "target.key_property")
		if len(j.Fields) == 0 {
			missing = append(missing, "fields")
		}
	case KindGroups:
		require(j.Source.DatabaseID, "source.database_id")
		require(j.Source.KeyProperty, "source.key_property")
		require(j.Group.Property, "group.property")
	case KindProfiles:
		require(j.Source.DatabaseID, "source.database_id")
		require(j.Source.KeyProperty, "source.key_property")
		if len(j.Fields) == 0 {
			missing = append(missing, "fields")
		}
	case KindAnnounce:
		require(j.Source.DatabaseID, "source.database_id")
		require(j.Channel, "channel")
		if len(j.Columns) == 0 {
			missing = append(missing, "columns")
		}
	default:
		return invalidf("job %q: unknown kind %q", j.Name, j.Kind)
	}

	if len(missing) > 0 {
		return invalidf("job %q (%s): missing %s", j.Name, j.Kind, strings.Join(missing, ", "))
	}
	return nil
}

// ExportMode returns the sheet mode, defaulting to replace.
func (j *JobConfig) ExportMode() string {
	if j.Sheet.Mode == "" {
		return ExportReplace
	}
	return j.Sheet.Mode
}
