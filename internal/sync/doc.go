// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

/*
Package sync runs declarative sync jobs between workspace databases,
spreadsheets and chat.

Every job is an instance of one Engine pipeline parameterized by its
config.JobConfig:

 1. Validate the job definition. A bad definition fails the run with
    ErrConfig before any API call.
 2. Fetch the collections the job reads. A truncated fetch still yields the
    records read so far and makes the run partial.
 3. Reconcile source records against targets by normalized join key.
 4. Write only what differs from the current value (see package writer).
 5. Report: the RunReport is stored as the job's last-run state and
    published for notification.

Job kinds:

  - link: adds relation links from source records to matching targets
  - mirror: copies property values between fields of the same record
  - export: projects a database into a spreadsheet range (replace or append)
  - import: writes spreadsheet columns onto matching records
  - groups: adds people to chat user groups named by a choice property
  - profiles: sets chat profile fields from record properties
  - announce: posts newly created records to a chat channel

Runs of the same job never overlap. A run requested while the previous one
is still going is reported as skipped and returns ErrJobRunning.

Incremental jobs keep a watermark in the store. It only advances after a
run in which every fetch completed and no write failed.
*/
package sync
