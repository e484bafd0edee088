// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/dirsync/internal/models"
)

// Health reports liveness, uptime and which jobs are running. It does not
// call the remote APIs.
func (router *Router) Health(w http.ResponseWriter, r *http.Request) {
	jobs := router.jobs.Jobs(r.Context())
	status := models.HealthStatus{
		Status:  "healthy",
		Version: router.version,
		Uptime:  time.Since(router.started).Round(time.Second).String(),
		Jobs:    len(jobs),
	}
	for _, j := range jobs {
		if j.Running {
			status.Running = append(status.Running, j.Name)
		}
	}
	respondData(w, r, http.StatusOK, status)
}
