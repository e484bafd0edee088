// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

// Package logging provides centralized zerolog-based structured logging for Dirsync.
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//
//	logging.Info().Str("job", name).Msg("Run finished")
//	logging.Error().Err(err).Msg("Write failed")
//
//	// Inside a job run the context carries the run ID and job name
//	logging.Ctx(ctx).Info().Int("records", n).Msg("Fetched collection")
//
// # Components
//
//   - Global logger configured from the logging section of the config file
//   - Run correlation IDs (8 characters, from google/uuid) attached by Ctx
//   - SlogHandler so suture and watermill log through the same stream
//   - Redaction helpers for API tokens and email addresses
//
// Always terminate log chains with .Msg() or .Send(); an unterminated event
// is never written.
package logging
