// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

// Package projection renders typed property values as display strings and
// projects records onto ordered column schemas for sheets and chat messages.
package projection
