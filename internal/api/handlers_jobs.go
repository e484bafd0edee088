// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

package api

import (
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/dirsync/internal/logging"
	"github.com/tomtom215/dirsync/internal/models"
	"github.com/tomtom215/dirsync/internal/scheduler"
	dsync "github.com/tomtom215/dirsync/internal/sync"
)

// ListJobs returns every configured job with its last run.
func (router *Router) ListJobs(w http.ResponseWriter, r *http.Request) {
	respondData(w, r, http.StatusOK, router.jobs.Jobs(r.Context()))
}

// GetJob returns one job with its last run.
func (router *Router) GetJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	status, err := router.jobs.Status(r.Context(), name)
	if errors.Is(err, dsync.ErrUnknownJob) {
		respondError(w, r, http.StatusNotFound, CodeNotFound, fmt.Sprintf("job %q is not configured", name), nil)
		return
	}
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, CodeInternalError, "failed to load job status", err)
		return
	}
	respondData(w, r, http.StatusOK, status)
}

// RunJob starts a run in the background and returns its run ID.
func (router *Router) RunJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	runID, err := router.jobs.Start(r.Context(), name)
	switch {
	case errors.Is(err, dsync.ErrUnknownJob):
		respondError(w, r, http.StatusNotFound, CodeNotFound, fmt.Sprintf("job %q is not configured", name), nil)
		return
	case errors.Is(err, dsync.ErrJobRunning):
		respondError(w, r, http.StatusConflict, CodeJobRunning, fmt.Sprintf("job %q is already running", name), nil)
		return
	case err != nil:
		respondError(w, r, http.StatusInternalServerError, CodeInternalError, "failed to start job", err)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("job", sanitizeLogValue(name)).
		Str("run_id", runID).
		Str("remote_addr", r.RemoteAddr).
		Msg("Manual run triggered")
	respondData(w, r, http.StatusAccepted, models.RunAccepted{Job: name, RunID: runID})
}

// ListSchedule returns the upcoming scheduled runs, soonest first.
func (router *Router) ListSchedule(w http.ResponseWriter, r *http.Request) {
	entries := []scheduler.Entry{}
	if router.schedule != nil {
		entries = append(entries, router.schedule.Entries()...)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Next.Equal(entries[j].Next) {
			return entries[i].Job < entries[j].Job
		}
		return entries[i].Next.Before(entries[j].Next)
	})
	respondData(w, r, http.StatusOK, entries)
}
