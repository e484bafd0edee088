// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

/*
Package chat is the team-chat Web API client.

Methods are called as {base}/{method}. Reads use GET with query parameters,
writes POST a JSON body. Every response carries {"ok":bool,"error":string};
ok=false is returned as *APIError whatever the HTTP status.

Two tokens are used:
  - the admin token for usergroups.* and users.profile.*
  - the bot token for users.lookupByEmail and chat.postMessage

Transient error codes (ratelimited, internal_error, ...) are retried by the
underlying httpclient before the envelope reaches this package.
*/
package chat
