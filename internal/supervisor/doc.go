// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

/*
Package supervisor runs the long-lived dirsync services under suture v4.

	RootSupervisor ("dirsync")
	├── DataSupervisor ("data-layer")
	│   └── store-gc (badger value-log GC, persistent store only)
	├── SyncSupervisor ("sync-layer")
	│   ├── scheduler (cron triggers)
	│   └── report-notifier (run reports to chat)
	└── APISupervisor ("api-layer")
	    └── http-server (if server.enabled)

A crashed service is restarted with backoff without touching the other
layers. Supervisor events are logged through sutureslog into the zerolog
pipeline.

Shutdown order is driven by context cancellation: the scheduler stops its
cron loop and cancels scheduled runs, then the caller drains manually
triggered runs with sync.Engine.Shutdown.
*/
package supervisor
