// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

// Command dirsync keeps a workspace database, a team-chat directory and a
// spreadsheet in agreement by running the jobs declared in its config file.
//
// # Startup
//
//  1. Configuration: defaults, config file (CONFIG_PATH or -config) and environment (koanf)
//  2. Logging: zerolog with the configured level and format
//  3. Store: badger directory holding watermarks, notified sets and last runs
//  4. Clients: workspace, chat and sheets, each only when configured
//  5. Engine: one runner per enabled job, run reports published on the event bus
//  6. Supervisor tree: store GC, scheduler, report notifier and the HTTP server
//
// # One-shot mode
//
//	dirsync -list             # print the configured jobs and exit
//	dirsync -run link-teams   # run one job, print its report, exit 1 unless ok
//
// # Signal Handling
//
// SIGINT and SIGTERM stop the scheduler, shut the HTTP server down and wait
// up to 30s for manually triggered runs before exiting.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/dirsync/internal/api"
	"github.com/tomtom215/dirsync/internal/config"
	"github.com/tomtom215/dirsync/internal/events"
	"github.com/tomtom215/dirsync/internal/logging"
	"github.com/tomtom215/dirsync/internal/models"
	"github.com/tomtom215/dirsync/internal/notify"
	"github.com/tomtom215/dirsync/internal/scheduler"
	"github.com/tomtom215/dirsync/internal/store"
	"github.com/tomtom215/dirsync/internal/supervisor"
	"github.com/tomtom215/dirsync/internal/supervisor/services"
	dsync "github.com/tomtom215/dirsync/internal/sync"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const shutdownGrace = 30 * time.Second

func main() {
	var (
		configPath = flag.String("config", "", "path to the YAML config file (overrides CONFIG_PATH)")
		runJob     = flag.String("run", "", "run one job synchronously and exit")
		listJobs   = flag.Bool("list", false, "list configured jobs and exit")
	)
	flag.Parse()

	if *configPath != "" {
		if err := os.Setenv(config.ConfigPathEnvVar, *configPath); err != nil {
			logging.Fatal().Err(err).Msg("Failed to set config path")
		}
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})
	logging.Info().
		Str("version", version).
		Int("jobs", len(cfg.EnabledJobs())).
		Bool("in_memory_store", cfg.Store.InMemory).
		Msg("Starting dirsync")

	if *listJobs {
		printJobs(cfg)
		return
	}

	os.Exit(run(cfg, *runJob))
}

func run(cfg *config.Config, oneShot string) int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.Open(cfg.Store)
	if err != nil {
		logging.Error().Err(err).Str("path", cfg.Store.Path).Msg("Failed to open store")
		return 1
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()

	clients, err := newClients(ctx, cfg)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to create API clients")
		return 1
	}

	notifier := notify.New(clients.poster(), cfg.Chat)
	reportConfigErrors(ctx, cfg, notifier)

	deps := clients.deps()
	deps.Store = st
	deps.RunTimeout = cfg.Sync.RunTimeout

	if oneShot != "" {
		deps.Reporter = directReporter{notifier: notifier}
		engine, err := dsync.NewEngine(cfg.Jobs, deps)
		if err != nil {
			logging.Error().Err(err).Msg("Failed to create sync engine")
			return 1
		}
		return runOnce(ctx, engine, oneShot)
	}

	bus := events.NewBus()
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()
	notifications, err := notify.NewService(ctx, bus, notifier)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to subscribe notifier")
		return 1
	}

	deps.Reporter = bus
	engine, err := dsync.NewEngine(cfg.Jobs, deps)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to create sync engine")
		return 1
	}

	sched, err := scheduler.New(engine, cfg.EnabledJobs(), cfg.Sync.RunOnStart)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to create scheduler")
		return 1
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	})
	if err != nil {
		logging.Error().Err(err).Msg("Failed to create supervisor tree")
		return 1
	}

	if !cfg.Store.InMemory {
		tree.AddDataService(st)
	}
	tree.AddSyncService(services.NewSchedulerService(sched))
	tree.AddSyncService(notifications)
	if cfg.Server.Enabled {
		router := api.NewRouter(cfg.Server, engine, sched, version)
		server := api.NewServer(cfg.Server, router.SetupChi())
		tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
		logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
		cancel()
	}
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	graceCtx, graceCancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer graceCancel()
	if err := engine.Shutdown(graceCtx); err != nil {
		logging.Warn().Err(err).Msg("Running jobs cancelled at shutdown")
	}

	logging.Info().Msg("Dirsync stopped")
	return 0
}

// runOnce runs one job in the foreground and prints its report as JSON on
// stdout.
func runOnce(ctx context.Context, engine *dsync.Engine, name string) int {
	report, err := engine.Run(ctx, name)
	if errors.Is(err, dsync.ErrUnknownJob) {
		logging.Error().Str("job", name).Msg("No such job")
		return 2
	}

	out, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(out))
	if err != nil || report.Status != models.RunOK {
		return 1
	}
	return 0
}

// directReporter posts reports synchronously. One-shot runs use it so the
// notification is sent before the process exits.
type directReporter struct {
	notifier *notify.Notifier
}

func (d directReporter) PublishReport(ctx context.Context, report models.RunReport) error {
	return d.notifier.NotifyReport(ctx, report)
}

// reportConfigErrors posts jobs whose definition is incomplete. Those jobs
// stay registered and fail each run with a configuration error.
func reportConfigErrors(ctx context.Context, cfg *config.Config, notifier *notify.Notifier) {
	for _, job := range cfg.EnabledJobs() {
		if err := job.Validate(); err != nil {
			logging.Warn().Err(err).Str("job", job.Name).Msg("Job configuration is invalid")
			if perr := notifier.NotifyConfigError(ctx, job.Name, err); perr != nil {
				logging.Warn().Err(perr).Str("job", job.Name).Msg("Failed to post configuration error")
			}
		}
	}
}

func printJobs(cfg *config.Config) {
	for _, job := range cfg.Jobs {
		state := "enabled"
		if job.Disabled {
			state = "disabled"
		}
		schedule := job.Schedule
		if schedule == "" {
			schedule = "manual"
		}
		fmt.Printf("%-24s %-10s %-18s %s\n", job.Name, job.Kind, schedule, state)
	}
}
