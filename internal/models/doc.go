// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

/*
Package models defines the data structures shared by every sync job.

Key Components:

  - TypedValue: closed sum type over workspace property kinds (title, number,
    relation, formula, ...) with an explicit Unknown variant
  - Record: one fetched entity with its typed properties
  - Page: a single paginated query response with its cursor invariant
  - JoinKey: normalized (lower-cased, trimmed) correlation key
  - RunReport: outcome of one job run, stored and published to notifications

Records are fetched fresh every run and never cached across runs. The only
durable state (watermarks, notified-id sets, last-run reports) lives in
internal/store.
*/
package models
