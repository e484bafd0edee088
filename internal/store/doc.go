// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

/*
Package store keeps the small amount of state jobs carry between runs.

Keys are namespaced per job:

	job:<name>:watermark   RFC3339Nano high-water mark
	job:<name>:notified    JSON sorted array of announced record ids
	job:<name>:exported    JSON sorted array of appended record ids
	job:<name>:last_run    JSON models.RunReport of the last run

BadgerStore is the durable implementation; MemoryStore backs tests.
*/
package store
