// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

package sync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/dirsync/internal/chat"
	"github.com/tomtom215/dirsync/internal/config"
	"github.com/tomtom215/dirsync/internal/logging"
	"github.com/tomtom215/dirsync/internal/metrics"
	"github.com/tomtom215/dirsync/internal/models"
	"github.com/tomtom215/dirsync/internal/sheets"
	"github.com/tomtom215/dirsync/internal/store"
	"github.com/tomtom215/dirsync/internal/workspace"
)

var (
	// ErrUnknownJob is returned for a job name that is not configured.
	ErrUnknownJob = errors.New("unknown job")

	// ErrJobRunning is returned when a run is requested while the previous
	// run of the same job has not finished.
	ErrJobRunning = errors.New("job already running")

	// ErrConfig wraps every job configuration problem found at run time.
	// Runs failing with it make no API calls.
	ErrConfig = errors.New("job configuration error")
)

// WorkspaceAPI is the part of *workspace.Client the jobs use.
type WorkspaceAPI interface {
	QueryAll(ctx context.Context, databaseID string, filter, sorts json.RawMessage) workspace.Collection
	PatchPage(ctx context.Context, pageID string, props models.Properties) error
	Title(ctx context.Context, pageID string) (string, error)
}

// ChatAPI is the part of *chat.Client the jobs use.
type ChatAPI interface {
	LookupUserByEmail(ctx context.Context, email string) (chat.User, error)
	ListUserGroups(ctx context.Context, includeUsers bool) ([]chat.UserGroup, error)
	CreateUserGroup(ctx context.Context, name, handle string) (chat.UserGroup, error)
	ListUserGroupMembers(ctx context.Context, groupID string) ([]string, error)
	UpdateUserGroupMembers(ctx context.Context, groupID string, userIDs []string) error
	GetProfile(ctx context.Context, userID string) (chat.Profile, error)
	SetProfile(ctx context.Context, userID string, fields chat.Profile) error
	PostMessage(ctx context.Context, msg chat.Message) (string, error)
}

// SheetsAPI is the part of *sheets.Client the jobs use.
type SheetsAPI interface {
	GetValues(ctx context.Context, spreadsheetID, rng string) (sheets.Rows, error)
	SetValues(ctx context.Context, spreadsheetID, rng string, rows sheets.Rows) error
	Clear(ctx context.Context, spreadsheetID, rng string) error
	Append(ctx context.Context, spreadsheetID, rng string, rows sheets.Rows) error
}

// Reporter receives every run report, including skipped runs.
// *events.Bus implements it.
type Reporter interface {
	PublishReport(ctx context.Context, report models.RunReport) error
}

// Deps are the collaborators shared by all jobs. Clients that are not
// configured must be left nil; jobs needing them then fail with ErrConfig.
type Deps struct {
	Workspace WorkspaceAPI
	Chat      ChatAPI
	Sheets    SheetsAPI
	Store     store.Store
	Reporter  Reporter

	// RunTimeout bounds a single run. Zero means no limit.
	RunTimeout time.Duration

	// Now is the clock; defaults to time.Now.
	Now func() time.Time
}

// JobStatus describes a configured job for listings.
type JobStatus struct {
	Name     string            `json:"name"`
	Kind     string            `json:"kind"`
	Schedule string            `json:"schedule,omitempty"`
	Running  bool              `json:"running"`
	LastRun  *models.RunReport `json:"last_run,omitempty"`
}

type job struct {
	cfg    config.JobConfig
	runner Runner
}

// Engine runs configured jobs. Each run goes through the same steps:
// validate, fetch, reconcile, write, report.
type Engine struct {
	deps  Deps
	jobs  map[string]*job
	order []string
	guard runGuard

	mu   sync.RWMutex
	last map[string]models.RunReport

	// base is the parent context of background runs started with Start.
	base   context.Context
	cancel context.CancelFunc
}

// NewEngine builds one runner per job. Disabled jobs are left out.
func NewEngine(jobs []config.JobConfig, deps Deps) (*Engine, error) {
	if deps.Store == nil {
		deps.Store = store.NewMemoryStore()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	base, cancel := context.WithCancel(context.Background())
	e := &Engine{
		deps:   deps,
		jobs:   make(map[string]*job, len(jobs)),
		last:   make(map[string]models.RunReport),
		base:   base,
		cancel: cancel,
	}
	for _, cfg := range jobs {
		if cfg.Disabled {
			continue
		}
		if _, dup := e.jobs[cfg.Name]; dup {
			cancel()
			return nil, fmt.Errorf("%w: duplicate job name %q", ErrConfig, cfg.Name)
		}
		runner, err := newRunner(cfg.Kind, &e.deps)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("job %q: %w", cfg.Name, err)
		}
		e.jobs[cfg.Name] = &job{cfg: cfg, runner: runner}
		e.order = append(e.order, cfg.Name)
	}
	return e, nil
}

// JobNames returns the configured job names in configuration order.
func (e *Engine) JobNames() []string {
	return append([]string(nil), e.order...)
}

// JobConfig returns the definition of the named job.
func (e *Engine) JobConfig(name string) (config.JobConfig, bool) {
	j, ok := e.jobs[name]
	if !ok {
		return config.JobConfig{}, false
	}
	return j.cfg, true
}

func (e *Engine) lookup(name string) (*job, error) {
	j, ok := e.jobs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return j, nil
}

// Run executes the named job synchronously and returns its report. The
// error is non-nil when the run failed or was skipped.
func (e *Engine) Run(ctx context.Context, name string) (models.RunReport, error) {
	j, err := e.lookup(name)
	if err != nil {
		return models.RunReport{}, err
	}
	if !e.guard.TryLock(name) {
		return e.skip(ctx, j), ErrJobRunning
	}
	defer e.guard.Unlock(name)
	return e.run(ctx, j, logging.GenerateCorrelationID())
}

// Start launches the named job in the background and returns its run ID.
// The run is not tied to ctx; it ends with Shutdown at the latest.
func (e *Engine) Start(ctx context.Context, name string) (string, error) {
	j, err := e.lookup(name)
	if err != nil {
		return "", err
	}
	if !e.guard.TryLock(name) {
		e.skip(ctx, j)
		return "", ErrJobRunning
	}

	runID := logging.GenerateCorrelationID()
	go func() {
		defer e.guard.Unlock(name)
		_, _ = e.run(e.base, j, runID)
	}()
	return runID, nil
}

// Shutdown waits for running jobs. When ctx expires first, background runs
// are cancelled and ctx.Err() is returned.
func (e *Engine) Shutdown(ctx context.Context) error {
	err := e.guard.WaitAll(ctx)
	e.cancel()
	return err
}

// skip reports a run that did not start because the job was busy.
func (e *Engine) skip(ctx context.Context, j *job) models.RunReport {
	now := e.deps.Now()
	report := models.RunReport{
		Job:        j.cfg.Name,
		Kind:       string(j.cfg.Kind),
		RunID:      logging.GenerateCorrelationID(),
		StartedAt:  now,
		FinishedAt: now,
		Status:     models.RunSkipped,
		Notes:      []string{"previous run still in progress"},
	}
	ctx = logging.ContextWithJob(logging.ContextWithCorrelationID(ctx, report.RunID), j.cfg.Name)
	logging.Ctx(ctx).Warn().Msg("Job already running, run skipped")
	metrics.RecordJobRun(report.Job, string(report.Status), 0)
	e.publish(ctx, report)
	return report
}

func (e *Engine) run(ctx context.Context, j *job, runID string) (models.RunReport, error) {
	cfg := j.cfg
	ctx = logging.ContextWithJob(logging.ContextWithCorrelationID(ctx, runID), cfg.Name)
	if e.deps.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.deps.RunTimeout)
		defer cancel()
	}
	log := logging.Ctx(ctx)

	metrics.TrackJobRunning(cfg.Name, true)
	defer metrics.TrackJobRunning(cfg.Name, false)

	rc := &RunContext{
		Job:       cfg,
		RunID:     runID,
		StartedAt: e.deps.Now(),
		Store:     e.deps.Store,
	}
	log.Info().Str("kind", string(cfg.Kind)).Msg("Job run started")

	err := e.execute(ctx, j, rc)

	report := models.RunReport{
		Job:        cfg.Name,
		Kind:       string(cfg.Kind),
		RunID:      runID,
		StartedAt:  rc.StartedAt,
		FinishedAt: e.deps.Now(),
		Counters:   rc.Counters,
		Notes:      rc.Notes,
	}
	switch {
	case err != nil:
		report.Status = models.RunFailed
		report.Error = err.Error()
	case rc.partial || rc.Counters.Failed > 0:
		report.Status = models.RunPartial
	default:
		report.Status = models.RunOK
	}

	// Bookkeeping outlives the run deadline.
	persistCtx := context.WithoutCancel(ctx)
	if report.Status != models.RunFailed && !rc.NewWatermark.IsZero() {
		if werr := store.SaveWatermark(persistCtx, e.deps.Store, cfg.Name, rc.NewWatermark); werr != nil {
			log.Error().Err(werr).Msg("Failed to save watermark")
		}
	}
	if serr := store.SaveRunState(persistCtx, e.deps.Store, report); serr != nil {
		log.Error().Err(serr).Msg("Failed to save run state")
	}
	e.mu.Lock()
	e.last[cfg.Name] = report
	e.mu.Unlock()

	metrics.RecordJobRun(cfg.Name, string(report.Status), report.Duration())
	event := log.Info()
	if report.Status != models.RunOK {
		event = log.Warn()
	}
	event.Str("status", string(report.Status)).
		Interface("counters", report.Counters).
		Dur("duration", report.Duration()).
		Err(err).
		Msg("Job run finished")

	e.publish(persistCtx, report)
	return report, err
}

func (e *Engine) execute(ctx context.Context, j *job, rc *RunContext) error {
	if err := j.cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	if err := e.checkClients(j.cfg.Kind); err != nil {
		return err
	}

	wm, err := store.LoadWatermark(ctx, e.deps.Store, j.cfg.Name)
	if err != nil {
		return fmt.Errorf("load watermark: %w", err)
	}
	rc.Watermark = wm

	return j.runner.Run(ctx, rc)
}

// checkClients fails a run whose kind needs a client that is not configured.
func (e *Engine) checkClients(kind config.JobKind) error {
	if e.deps.Workspace == nil {
		return fmt.Errorf("%w: workspace client not configured", ErrConfig)
	}
	switch kind {
	case config.KindExport, config.KindImport:
		if e.deps.Sheets == nil {
			return fmt.Errorf("%w: %s jobs need the sheets client", ErrConfig, kind)
		}
	case config.KindGroups, config.KindProfiles, config.KindAnnounce:
		if e.deps.Chat == nil {
			return fmt.Errorf("%w: %s jobs need the chat client", ErrConfig, kind)
		}
	}
	return nil
}

func (e *Engine) publish(ctx context.Context, report models.RunReport) {
	if e.deps.Reporter == nil {
		return
	}
	if err := e.deps.Reporter.PublishReport(ctx, report); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Failed to publish run report")
	}
}

// LastRun returns the most recent report of the named job. Reports from
// before a restart are read from the store.
func (e *Engine) LastRun(ctx context.Context, name string) (models.RunReport, bool) {
	e.mu.RLock()
	report, ok := e.last[name]
	e.mu.RUnlock()
	if ok {
		return report, true
	}

	report, ok, err := store.LoadRunState(ctx, e.deps.Store, name)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("job", name).Msg("Failed to load run state")
		return models.RunReport{}, false
	}
	return report, ok
}

// Status describes one job.
func (e *Engine) Status(ctx context.Context, name string) (JobStatus, error) {
	j, err := e.lookup(name)
	if err != nil {
		return JobStatus{}, err
	}
	st := JobStatus{
		Name:     j.cfg.Name,
		Kind:     string(j.cfg.Kind),
		Schedule: j.cfg.Schedule,
		Running:  e.guard.Running(name),
	}
	if report, ok := e.LastRun(ctx, name); ok {
		st.LastRun = &report
	}
	return st, nil
}

// Jobs describes every job, sorted by name.
func (e *Engine) Jobs(ctx context.Context) []JobStatus {
	names := e.JobNames()
	sort.Strings(names)
	out := make([]JobStatus, 0, len(names))
	for _, name := range names {
		st, err := e.Status(ctx, name)
		if err != nil {
			continue
		}
		out = append(out, st)
	}
	return out
}
