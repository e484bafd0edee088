// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

// Package api serves the operations endpoints: health, metrics, job status
// and manual job triggers.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/dirsync/internal/config"
	"github.com/tomtom215/dirsync/internal/scheduler"
	dsync "github.com/tomtom215/dirsync/internal/sync"
)

// Jobs is the engine surface the handlers use. *sync.Engine implements it.
type Jobs interface {
	Jobs(ctx context.Context) []dsync.JobStatus
	Status(ctx context.Context, name string) (dsync.JobStatus, error)
	Start(ctx context.Context, name string) (string, error)
}

// Schedule lists upcoming scheduled runs. *scheduler.Scheduler implements it.
type Schedule interface {
	Entries() []scheduler.Entry
}

// Router holds the handler dependencies.
type Router struct {
	cfg      config.ServerConfig
	jobs     Jobs
	schedule Schedule
	version  string
	started  time.Time
}

// NewRouter creates a router. schedule may be nil when the scheduler is not
// running.
func NewRouter(cfg config.ServerConfig, jobs Jobs, schedule Schedule, version string) *Router {
	return &Router{
		cfg:      cfg,
		jobs:     jobs,
		schedule: schedule,
		version:  version,
		started:  time.Now(),
	}
}

// SetupChi configures all routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(RequestMetrics())

	r.Get("/healthz", router.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(APISecurityHeaders())

		r.Get("/jobs", router.ListJobs)
		r.Get("/jobs/{name}", router.GetJob)
		r.Get("/schedule", router.ListSchedule)

		r.Group(func(r chi.Router) {
			r.Use(RateLimitTriggers(router.cfg.TriggerRateLimit))
			r.Use(RequireToken(router.cfg.AdminToken))
			r.Post("/jobs/{name}/run", router.RunJob)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, CodeNotFound, "no such endpoint", nil)
	})
	return r
}

// NewServer builds the HTTP server for the configured address.
func NewServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Timeout,
		WriteTimeout:      cfg.Timeout,
		IdleTimeout:       2 * cfg.Timeout,
	}
}
