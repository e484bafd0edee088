// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

package sync

import (
	"context"
	"sync"
)

// runGuard prevents two runs of the same job from overlapping and lets
// shutdown wait for in-flight runs.
type runGuard struct {
	mu      sync.Mutex
	running map[string]struct{}
	// idle is closed whenever no job is running. A new channel is made when
	// the first job starts after an idle period.
	idle chan struct{}
}

// TryLock marks job as running. It returns false if the job is already running.
func (g *runGuard) TryLock(job string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running == nil {
		g.running = make(map[string]struct{})
	}
	if _, busy := g.running[job]; busy {
		return false
	}
	if len(g.running) == 0 {
		g.idle = make(chan struct{})
	}
	g.running[job] = struct{}{}
	return true
}

// Unlock releases job. Must only be called after a successful TryLock.
func (g *runGuard) Unlock(job string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.running[job]; !busy {
		return
	}
	delete(g.running, job)
	if len(g.running) == 0 {
		close(g.idle)
	}
}

// Running reports whether job currently holds the lock.
func (g *runGuard) Running(job string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.running[job]
	return busy
}

// WaitAll blocks until no job is running or ctx is done. It returns ctx.Err()
// in the latter case. Jobs started after the guard went idle are not waited for.
func (g *runGuard) WaitAll(ctx context.Context) error {
	g.mu.Lock()
	if len(g.running) == 0 {
		g.mu.Unlock()
		return nil
	}
	idle := g.idle
	g.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
