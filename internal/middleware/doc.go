// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

/*
Package middleware provides HTTP middleware shared by every API route.

Key Components:

  - RequestID: UUID request IDs propagated to the logging context
  - PrometheusMetrics: request count, latency and in-flight instrumentation

Both are plain func(http.Handler) http.Handler and are mounted on the chi
router in internal/api:

	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)

The endpoint label uses the chi route pattern ("/api/v1/datasets/{id}/publish")
rather than the raw path, so dataset IDs never become label values.
*/
package middleware
