// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

/*
Package config loads and validates the dirsync configuration.

# Configuration Sources

Configuration is layered with Koanf v2, later layers overriding earlier ones:

 1. Built-in defaults (defaultConfig)
 2. A YAML file: $CONFIG_PATH, ./dirsync.yaml or /etc/dirsync/config.yaml
 3. Environment variables listed in envMappings

Jobs are declared only in the YAML file:

	jobs:
	  - name: people-to-teams
	    kind: link
	    schedule: "@every 15m"
	    source: {database_id: "...", key_property: "Team Email"}
	    target: {database_id: "...", key_property: "Email"}
	    link_property: "Team"

# Environment Variables

Credentials:
  - WORKSPACE_TOKEN (or NOTION_TOKEN): workspace integration token
  - CHAT_ADMIN_TOKEN, CHAT_BOT_TOKEN (or SLACK_*): chat tokens
  - SHEETS_CREDENTIALS_FILE (or GOOGLE_APPLICATION_CREDENTIALS): service account key

Runtime:
  - HTTP_TIMEOUT, HTTP_MAX_RETRIES, HTTP_RETRY_BASE_DELAY
  - STORE_PATH, STORE_IN_MEMORY
  - SYNC_RUN_TIMEOUT, SYNC_RUN_ON_START
  - HTTP_HOST, HTTP_PORT, ADMIN_TOKEN
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

# Validation

Config.Validate checks global sections and the struct tags of each job; it
runs during Load and any failure aborts startup. JobConfig.Validate checks the
kind-specific requirements and is run again before every job run. All
validation errors wrap ErrInvalid.
*/
package config
