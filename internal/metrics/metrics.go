// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

// Package metrics declares the Prometheus collectors exported on /metrics.
//
// Collectors are registered with the default registry through promauto, so
// importing the package is enough to expose them. Callers use the Record*
// helpers rather than touching the vectors directly, which keeps label sets
// consistent across packages.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Registrar (DataCite) Metrics
	RegistrarCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registrar_calls_total",
			Help: "Total number of registrar calls by operation and outcome",
		},
		[]string{"operation", "outcome"}, // outcome: success, rejection, duplicate, timeout, transport, internal, conversion
	)

	RegistrarCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "registrar_call_duration_seconds",
			Help:    "Duration of single registrar HTTP calls in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation"},
	)

	RegistrarAttempts = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "registrar_attempts",
			Help:    "Number of attempts a retried registrar operation needed",
			Buckets: []float64{1, 2, 3, 4, 5, 8},
		},
		[]string{"operation"},
	)

	// Workflow Metrics
	WorkflowTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_transitions_total",
			Help: "Total number of lifecycle operations by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	// Notification Metrics
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Total number of notification dispatches by template and outcome",
		},
		[]string{"template", "outcome"}, // outcome: sent, failed, skipped
	)

	// Registry Metrics
	RegistryOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "registry_operation_duration_seconds",
			Help:    "Duration of registry store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"driver", "operation"},
	)

	RegistryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_errors_total",
			Help: "Total number of registry store errors",
		},
		[]string{"driver", "operation"},
	)

	RegistrySuffixConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "registry_suffix_conflicts_total",
			Help: "Total number of suffix allocations lost to a concurrent mint",
		},
	)

	// Bulk publish metrics
	BulkPublishResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bulk_publish_results_total",
			Help: "Total number of bulk publish entries by outcome",
		},
		[]string{"source", "outcome"}, // outcome: published, skipped, failed
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Authorization Metrics
	AuthzDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_decisions_total",
			Help: "Total number of authorization decisions",
		},
		[]string{"action", "decision"}, // decision: allow, deny
	)

	IdentityCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "identity_cache_lookups_total",
			Help: "Identity cache lookups by result",
		},
		[]string{"result"}, // hit, miss
	)

	AuditEventsPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_events_pruned_total",
			Help: "Audit events deleted by the retention job",
		},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordRegistrarCall records one registrar HTTP call.
func RecordRegistrarCall(operation, outcome string, duration time.Duration) {
	RegistrarCalls.WithLabelValues(operation, outcome).Inc()
	RegistrarCallDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordRegistrarAttempts records how many attempts a retried operation used.
func RecordRegistrarAttempts(operation string, attempts int) {
	RegistrarAttempts.WithLabelValues(operation).Observe(float64(attempts))
}

// RecordWorkflowTransition records the outcome of a lifecycle operation.
func RecordWorkflowTransition(operation, outcome string) {
	WorkflowTransitions.WithLabelValues(operation, outcome).Inc()
}

// RecordNotification records a notification dispatch.
func RecordNotification(template, outcome string) {
	NotificationsSent.WithLabelValues(template, outcome).Inc()
}

// RecordRegistryOperation records a registry store call.
func RecordRegistryOperation(driver, operation string, duration time.Duration, err error) {
	RegistryOperationDuration.WithLabelValues(driver, operation).Observe(duration.Seconds())
	if err != nil {
		RegistryErrors.WithLabelValues(driver, operation).Inc()
	}
}

// RecordBulkPublish records one bulk publish entry result.
func RecordBulkPublish(source, outcome string) {
	BulkPublishResults.WithLabelValues(source, outcome).Inc()
}

// RecordAuthzDecision records a casbin decision.
func RecordAuthzDecision(action string, allowed bool) {
	decision := "deny"
	if allowed {
		decision = "allow"
	}
	AuthzDecisions.WithLabelValues(action, decision).Inc()
}

// RecordIdentityCache records an identity cache lookup.
func RecordIdentityCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	IdentityCacheHits.WithLabelValues(result).Inc()
}

// RecordAuditPruned records audit events removed by retention.
func RecordAuditPruned(count int64) {
	if count > 0 {
		AuditEventsPruned.Add(float64(count))
	}
}

// StatusLabel formats an HTTP status code as a label value.
func StatusLabel(code int) string {
	return strconv.Itoa(code)
}
