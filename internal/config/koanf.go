// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"dirsync.yaml",
	"dirsync.yml",
	"/etc/dirsync/config.yaml",
	"/etc/dirsync/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
// These are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Workspace: WorkspaceConfig{
			BaseURL:       "https://api.notion.com/v1",
			Version:       "2022-06-28",
			PageSize:      100,
			RatePerSecond: 3,
		},
		Chat: ChatConfig{
			BaseURL:       "https://slack.com/api",
			RatePerSecond: 1,
		},
		Sheets: SheetsConfig{
			BaseURL:       "https://sheets.googleapis.com/v4",
			RatePerSecond: 1,
		},
		HTTP: HTTPConfig{
			Timeout:        30 * time.Second,
			MaxRetries:     3,
			RetryBaseDelay: time.Second,
		},
		Store: StoreConfig{
			Path: "/data/dirsync",
		},
		Sync: SyncConfig{
			RunTimeout: 15 * time.Minute,
		},
		Server: ServerConfig{
			Enabled:          true,
			Host:             "0.0.0.0",
			Port:             8090,
			Timeout:          30 * time.Second,
			TriggerRateLimit: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in values from defaultConfig
//  2. Config File: optional YAML file (CONFIG_PATH or DefaultConfigPaths)
//  3. Environment Variables: override any scalar setting
//
// Jobs can only be declared in the config file.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// WORKSPACE_TOKEN -> workspace.token
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file, or "" when none exists.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// envMappings maps lower-cased environment variable names to koanf paths.
// Variables not listed here are ignored.
var envMappings = map[string]string{
	// Workspace API
	"workspace_base_url":        "workspace.base_url",
	"workspace_token":           "workspace.token",
	"notion_token":              "workspace.token",
	"workspace_version":         "workspace.version",
	"workspace_page_size":       "workspace.page_size",
	"workspace_rate_per_second": "workspace.rate_per_second",

	// Chat API
	"chat_base_url":          "chat.base_url",
	"chat_admin_token":       "chat.admin_token",
	"chat_bot_token":         "chat.bot_token",
	"slack_admin_token":      "chat.admin_token",
	"slack_bot_token":        "chat.bot_token",
	"chat_notify_channel":    "chat.notify_channel",
	"chat_notify_on_success": "chat.notify_on_success",
	"chat_rate_per_second":   "chat.rate_per_second",

	// Sheets API
	"sheets_base_url":                "sheets.base_url",
	"sheets_credentials_file":        "sheets.credentials_file",
	"google_application_credentials": "sheets.credentials_file",
	"sheets_rate_per_second":         "sheets.rate_per_second",

	// Retrying HTTP client
	"http_timeout":          "http.timeout",
	"http_max_retries":      "http.max_retries",
	"http_retry_base_delay": "http.retry_base_delay",

	// Store
	"store_path":      "store.path",
	"store_in_memory": "store.in_memory",

	// Sync
	"sync_run_timeout":  "sync.run_timeout",
	"sync_run_on_start": "sync.run_on_start",

	// Server
	"server_enabled":            "server.enabled",
	"http_host":                 "server.host",
	"http_port":                 "server.port",
	"server_timeout":            "server.timeout",
	"admin_token":               "server.admin_token",
	"server_trigger_rate_limit": "server.trigger_rate_limit",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable name to a koanf path.
// Returning "" drops the variable.
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
