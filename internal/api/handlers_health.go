// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

package api

import (
	"context"
	"net/http"
	"sync"
	"time"
)

const readinessTimeout = 3 * time.Second

// HealthStatus is the body of the health endpoints.
type HealthStatus struct {
	Status  string                 `json:"status"`
	Version string                 `json:"version,omitempty"`
	Uptime  float64                `json:"uptime_seconds"`
	Checks  map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult is the outcome of one readiness check.
type CheckResult struct {
	Healthy  bool   `json:"healthy"`
	Required bool   `json:"required"`
	Error    string `json:"error,omitempty"`
	Latency  int64  `json:"latency_ms"`
}

// HealthLive reports that the process is serving requests.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, HealthStatus{
		Status:  "alive",
		Version: h.version,
		Uptime:  time.Since(h.startTime).Seconds(),
	})
}

// HealthReady runs all readiness checks in parallel. Any failing required
// check makes the service unready.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	checks := append([]ReadinessCheck{{
		Name:     "registry",
		Required: true,
		Check:    h.registry.Ping,
	}}, h.readiness...)

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]CheckResult, len(checks))
	)
	for _, c := range checks {
		wg.Add(1)
		go func(c ReadinessCheck) {
			defer wg.Done()
			start := time.Now()
			err := c.Check(ctx)
			res := CheckResult{Healthy: err == nil, Required: c.Required, Latency: time.Since(start).Milliseconds()}
			if err != nil {
				res.Error = err.Error()
			}
			mu.Lock()
			results[c.Name] = res
			mu.Unlock()
		}(c)
	}
	wg.Wait()

	status := HealthStatus{
		Status:  "ready",
		Version: h.version,
		Uptime:  time.Since(h.startTime).Seconds(),
		Checks:  results,
	}
	code := http.StatusOK
	for _, res := range results {
		if res.Required && !res.Healthy {
			status.Status = "unready"
			code = http.StatusServiceUnavailable
		}
	}
	respondJSON(w, r, code, status)
}
