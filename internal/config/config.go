// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

package config

import "time"

// Config holds all application configuration. It is built once in main and
// passed explicitly to every component constructor.
type Config struct {
	Workspace WorkspaceConfig `koanf:"workspace"`
	Chat      ChatConfig      `koanf:"chat"`
	Sheets    SheetsConfig    `koanf:"sheets"`
	HTTP      HTTPConfig      `koanf:"http"`
	Store     StoreConfig     `koanf:"store"`
	Sync      SyncConfig      `koanf:"sync"`
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Jobs      []JobConfig     `koanf:"jobs"`
}

// WorkspaceConfig holds the workspace-database API connection.
type WorkspaceConfig struct {
	// BaseURL is the API root, including the version path segment.
	// Default: https://api.notion.com/v1
	BaseURL string `koanf:"base_url"`

	// Token is the integration bearer token.
	Token string `koanf:"token"`

	// Version is sent in the Notion-Version header.
	// Default: 2022-06-28
	Version string `koanf:"version"`

	// PageSize is the page_size of every query (the API caps it at 100).
	// Default: 100
	PageSize int `koanf:"page_size"`

	// RatePerSecond limits outgoing requests. The API allows an average of 3.
	// Default: 3
	RatePerSecond float64 `koanf:"rate_per_second"`
}

// ChatConfig holds the team-chat API connection.
//
// Two tokens are used: AdminToken for user-group and profile management and
// BotToken for user lookup and posting messages.
type ChatConfig struct {
	// Default: https://slack.com/api
	BaseURL    string `koanf:"base_url"`
	AdminToken string `koanf:"admin_token"`
	BotToken   string `koanf:"bot_token"`

	// NotifyChannel receives run reports and configuration errors.
	// Empty disables the notification side-channel.
	NotifyChannel string `koanf:"notify_channel"`

	// NotifyOnSuccess also posts reports for runs that finished ok.
	// Failed, partial and skipped runs are always posted.
	NotifyOnSuccess bool `koanf:"notify_on_success"`

	// Default: 1
	RatePerSecond float64 `koanf:"rate_per_second"`
}

// SheetsConfig holds the spreadsheet API connection.
type SheetsConfig struct {
	// Default: https://sheets.googleapis.com/v4
	BaseURL string `koanf:"base_url"`

	// CredentialsFile is a service-account JSON key. When empty, Google
	// application default credentials are used.
	CredentialsFile string `koanf:"credentials_file"`

	// Default: 1
	RatePerSecond float64 `koanf:"rate_per_second"`
}

// HTTPConfig controls the retrying client shared by all three APIs.
type HTTPConfig struct {
	// Timeout bounds a single attempt.
	// Default: 30s
	Timeout time.Duration `koanf:"timeout"`

	// MaxRetries is the number of additional attempts after the first.
	// Default: 3
	MaxRetries int `koanf:"max_retries"`

	// RetryBaseDelay is the wait before the first retry; it doubles each time.
	// Default: 1s
	RetryBaseDelay time.Duration `koanf:"retry_base_delay"`
}

// StoreConfig configures the durable watermark store.
type StoreConfig struct {
	// Path is the badger data directory.
	// Default: /data/dirsync
	Path string `koanf:"path"`

	// InMemory keeps all state in memory (lost on restart). For testing.
	InMemory bool `koanf:"in_memory"`
}

// SyncConfig controls job execution.
type SyncConfig struct {
	// RunTimeout bounds a single job run.
	// Default: 15m
	RunTimeout time.Duration `koanf:"run_timeout"`

	// RunOnStart runs every enabled job once when the scheduler starts.
	RunOnStart bool `koanf:"run_on_start"`
}

// ServerConfig holds the operations HTTP server settings.
type ServerConfig struct {
	// Enabled starts the /healthz, /metrics and job endpoints.
	// Default: true
	Enabled bool          `koanf:"enabled"`
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`

	// AdminToken guards POST /api/v1/jobs/{name}/run when set.
	AdminToken string `koanf:"admin_token"`

	// TriggerRateLimit is the number of manual triggers allowed per minute per client.
	// Default: 10
	TriggerRateLimit int `koanf:"trigger_rate_limit"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	// Default: json
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// EnabledJobs returns the jobs that are not disabled, in config order.
func (c *Config) EnabledJobs() []JobConfig {
	jobs := make([]JobConfig, 0, len(c.Jobs))
	for i := range c.Jobs {
		if !c.Jobs[i].Disabled {
			jobs = append(jobs, c.Jobs[i])
		}
	}
	return jobs
}

// NeedsKind reports whether any enabled job is one of the given kinds.
func (c *Config) NeedsKind(kinds ...JobKind) bool {
	for _, job := range c.EnabledJobs() {
		for _, k := range kinds {
			if job.Kind == k {
				return true
			}
		}
	}
	return false
}

// Load reads configuration from defaults, the config file and the environment.
// See LoadWithKoanf for the layering rules.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
