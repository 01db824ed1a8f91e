// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/doipub/internal/apperr"
	"github.com/tomtom215/doipub/internal/auth"
	"github.com/tomtom215/doipub/internal/authz"
	"github.com/tomtom215/doipub/internal/middleware"
)

// Router wires handlers and middleware into a chi mux.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
	authenticator *auth.Authenticator
	authz         *authz.Middleware
}

// NewRouter creates a Router. A nil mw uses DefaultChiMiddlewareConfig.
func NewRouter(handler *Handler, mw *ChiMiddleware, authenticator *auth.Authenticator, enforcer *authz.Enforcer) *Router {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	return &Router{
		handler:       handler,
		chiMiddleware: mw,
		authenticator: authenticator,
		authz:         authz.NewMiddleware(enforcer, respondAppError),
	}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()
	h := router.handler

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())
	r.Use(middleware.PrometheusMetrics)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondAppError(w, r, apperr.NotFound("route %s not found", r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed", nil)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(auth.Middleware(router.authenticator, respondAppError))

		// Lifecycle transitions. The orchestrator authorizes each call itself
		// because it also records rejected attempts in the audit trail.
		r.Route("/doi/{subject}", func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimitWorkflow())
			r.Post("/reserve", h.ReserveDOI)
			r.Post("/request-approval", h.RequestApproval)
			r.Post("/publish", h.PublishDOI)
		})

		r.Route("/dois", func(r chi.Router) {
			r.With(router.authz.Require(authz.ObjectDOI, authz.ActionRead)).Get("/", h.ListDOIs)
			r.With(router.authz.Require(authz.ObjectDOI, authz.ActionRead)).Get("/{prefix}/{suffix}", h.GetDOI)
			r.With(router.authz.Require(authz.ObjectDOI, authz.ActionWrite)).Post("/", h.CreateDOI)
			r.With(router.authz.Require(authz.ObjectDOI, authz.ActionWrite)).Delete("/{prefix}/{suffix}", h.DeleteDOI)
		})

		r.Route("/prefixes", func(r chi.Router) {
			r.With(router.authz.Require(authz.ObjectPrefix, authz.ActionRead)).Get("/", h.ListPrefixes)
			r.With(router.authz.Require(authz.ObjectPrefix, authz.ActionRead)).Get("/{prefix}", h.GetPrefix)
			r.With(router.authz.Require(authz.ObjectPrefix, authz.ActionWrite)).Post("/", h.CreatePrefix)
			r.With(router.authz.Require(authz.ObjectPrefix, authz.ActionWrite)).Delete("/{prefix}", h.DeletePrefix)
		})

		r.With(router.authz.Require(authz.ObjectAudit, authz.ActionRead)).Get("/audit", h.AuditEvents)

		r.With(
			router.chiMiddleware.RateLimitBulk(),
			router.authz.Require(authz.ObjectExternalDOI, authz.ActionConvert),
		).Get("/external-doi/convert", h.ConvertExternalDOI)

		r.With(
			router.chiMiddleware.RateLimitBulk(),
			router.authz.Require(authz.ObjectForest3D, authz.ActionPublish),
		).Post("/forest3d/publish-bulk", h.PublishForest3D)
	})

	return r
}
