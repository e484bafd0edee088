// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

// Package sheets reads and writes spreadsheet value ranges (A1 notation)
// through the v4 values endpoints. Values are always written RAW so cells hold
// exactly the projected strings.
package sheets
