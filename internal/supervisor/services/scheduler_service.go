// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

package services

import (
	"context"
	"fmt"
)

// Scheduler is the Start/Stop lifecycle of *scheduler.Scheduler.
type Scheduler interface {
	Start(ctx context.Context) error
	Stop() error
}

// SchedulerService adapts a Start/Stop scheduler to suture's Serve.
type SchedulerService struct {
	scheduler Scheduler
	name      string
}

// NewSchedulerService wraps s.
func NewSchedulerService(s Scheduler) *SchedulerService {
	return &SchedulerService{scheduler: s, name: "scheduler"}
}

// Serve starts the scheduler, blocks until ctx is canceled, then stops it.
// A failed Start is returned so suture restarts the service with backoff.
func (s *SchedulerService) Serve(ctx context.Context) error {
	if err := s.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("scheduler start failed: %w", err)
	}

	<-ctx.Done()

	if err := s.scheduler.Stop(); err != nil {
		return fmt.Errorf("scheduler stop failed: %w", err)
	}
	return ctx.Err()
}

// String identifies the service in supervisor logs.
func (s *SchedulerService) String() string {
	return s.name
}
