// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

// Package scheduler triggers job runs from their cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tomtom215/dirsync/internal/config"
	"github.com/tomtom215/dirsync/internal/logging"
	"github.com/tomtom215/dirsync/internal/models"
	dsync "github.com/tomtom215/dirsync/internal/sync"
)

// ErrAlreadyStarted is returned by Start on a running scheduler.
var ErrAlreadyStarted = errors.New("scheduler already started")

// Runner runs a job by name. *sync.Engine implements it.
type Runner interface {
	Run(ctx context.Context, name string) (models.RunReport, error)
}

// Entry is a scheduled job and its next activation.
type Entry struct {
	Job      string    `json:"job"`
	Schedule string    `json:"schedule"`
	Next     time.Time `json:"next"`
}

// Scheduler owns one cron instance for all scheduled jobs.
type Scheduler struct {
	runner     Runner
	jobs       []config.JobConfig
	runOnStart bool

	mu      sync.Mutex
	cron    *cron.Cron
	entries map[string]cron.EntryID
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a scheduler for the enabled jobs. Jobs without a schedule are
// only run by runOnStart or manual triggers.
func New(runner Runner, jobs []config.JobConfig, runOnStart bool) (*Scheduler, error) {
	for _, j := range jobs {
		if j.Schedule == "" {
			continue
		}
		if _, err := cron.ParseStandard(j.Schedule); err != nil {
			return nil, fmt.Errorf("job %q: invalid schedule %q: %w", j.Name, j.Schedule, err)
		}
	}
	return &Scheduler{runner: runner, jobs: jobs, runOnStart: runOnStart}, nil
}

// Start registers every schedule and starts the cron loop. Runs use a
// context derived from ctx that Stop cancels.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	c := cron.New(cron.WithLogger(cronLogger{}))
	entries := make(map[string]cron.EntryID)
	for _, j := range s.jobs {
		if j.Disabled || j.Schedule == "" {
			continue
		}
		name := j.Name
		id, err := c.AddFunc(j.Schedule, func() {
			if runCtx.Err() != nil {
				return
			}
			s.fire(runCtx, name, "schedule")
		})
		if err != nil {
			cancel()
			return fmt.Errorf("schedule job %q: %w", name, err)
		}
		entries[name] = id
	}

	c.Start()
	s.cron = c
	s.entries = entries
	s.cancel = cancel
	logging.Info().Int("scheduled", len(entries)).Msg("Scheduler started")

	// Startup runs are committed here. A Stop that follows cancels them
	// through runCtx rather than dropping them.
	if s.runOnStart {
		for _, j := range s.jobs {
			if j.Disabled {
				continue
			}
			name := j.Name
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.fire(runCtx, name, "startup")
			}()
		}
	}
	return nil
}

// Stop halts the cron loop, cancels running jobs and waits for them.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	c, cancel := s.cron, s.cancel
	s.cron, s.cancel, s.entries = nil, nil, nil
	s.mu.Unlock()
	if c == nil {
		return nil
	}

	stopped := c.Stop()
	cancel()
	<-stopped.Done()
	s.wg.Wait()
	logging.Info().Msg("Scheduler stopped")
	return nil
}

// Entries lists scheduled jobs with their next activation.
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return nil
	}

	schedules := make(map[string]string, len(s.jobs))
	for _, j := range s.jobs {
		schedules[j.Name] = j.Schedule
	}
	out := make([]Entry, 0, len(s.entries))
	for name, id := range s.entries {
		out = append(out, Entry{Job: name, Schedule: schedules[name], Next: s.cron.Entry(id).Next})
	}
	return out
}

func (s *Scheduler) fire(ctx context.Context, name, trigger string) {
	report, err := s.runner.Run(ctx, name)
	log := logging.Ctx(logging.ContextWithCorrelationID(ctx, report.RunID))
	switch {
	case errors.Is(err, dsync.ErrJobRunning):
		log.Info().Str("job", name).Str("trigger", trigger).Msg("Previous run still active")
	case err != nil:
		log.Warn().Err(err).Str("job", name).Str("trigger", trigger).Msg("Scheduled run failed")
	default:
		log.Debug().Str("job", name).Str("trigger", trigger).Str("status", string(report.Status)).Msg("Scheduled run finished")
	}
}

// cronLogger routes cron's own messages to zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logging.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logging.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
