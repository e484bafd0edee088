// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

/*
Package workspace is the client for the workspace-database API.

Endpoints used:
  - POST /databases/{id}/query (paginated through Fetcher)
  - GET /pages/{id}
  - GET /pages/{id}/properties/{property_id} (relations longer than the page payload)
  - PATCH /pages/{id}

Page properties are decoded into models.TypedValue variants and encoded back
for updates. Created time and formula values are read-only; patching them
returns ErrReadOnly.

Fetcher.FetchAll never fails outright: a truncated walk returns the records
read so far with Collection.Complete false and Collection.Err wrapping
ErrIncomplete.
*/
package workspace
