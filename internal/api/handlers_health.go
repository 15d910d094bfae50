// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/lanefinder/internal/snapshot"
)

// CacheReadiness is one cache's entry in the readiness report.
type CacheReadiness struct {
	snapshot.Status
	AgeSeconds float64 `json:"age_seconds,omitempty"`
}

// ReadinessReport is the body of /api/v1/health/ready.
type ReadinessReport struct {
	Ready         bool             `json:"ready"`
	UptimeSeconds float64          `json:"uptime_seconds"`
	Caches        []CacheReadiness `json:"caches"`
}

// HealthLive reports that the process is up. It never touches the store.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	noStore(w)
	WriteSuccess(w, r, map[string]string{"status": "alive"})
}

// HealthReady reports every snapshot cache. The instance is ready once each
// cache holds a snapshot; an expired snapshot still counts because it can be
// served stale.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	noStore(w)
	now := h.deps.Clock.Now()

	report := ReadinessReport{
		Ready:         true,
		UptimeSeconds: now.Sub(h.startTime).Seconds(),
	}
	for _, st := range h.deps.Registry.Statuses() {
		entry := CacheReadiness{Status: st}
		if st.HasSnapshot {
			entry.AgeSeconds = now.Sub(st.CapturedAt).Round(time.Millisecond).Seconds()
		} else {
			report.Ready = false
		}
		report.Caches = append(report.Caches, entry)
	}

	if !report.Ready {
		NewResponseWriter(w, r).ErrorWithDetails(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "caches not primed", report)
		return
	}
	WriteSuccess(w, r, report)
}
