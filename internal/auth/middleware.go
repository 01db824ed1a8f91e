// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

package auth

import (
	"context"
	"net/http"

	"github.com/tomtom215/doipub/internal/logging"
	"github.com/tomtom215/doipub/internal/models"
)

type contextKey string

// CallerContextKey is the context key for the authenticated caller.
const CallerContextKey contextKey = "caller"

// ContextWithCaller stores caller in ctx.
func ContextWithCaller(ctx context.Context, caller *models.Caller) context.Context {
	return context.WithValue(ctx, CallerContextKey, caller)
}

// CallerFromContext returns the authenticated caller, or nil.
func CallerFromContext(ctx context.Context) *models.Caller {
	c, _ := ctx.Value(CallerContextKey).(*models.Caller)
	return c
}

// ErrorWriter renders an error response.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Middleware authenticates every request from its Authorization header.
func Middleware(a *Authenticator, onError ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, err := a.Authenticate(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				onError(w, r, err)
				return
			}

			ctx := ContextWithCaller(r.Context(), caller)
			ctx = logging.ContextWithLogger(ctx, logging.LoggerFromContext(ctx).With().Str("user", caller.User.Name).Logger())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
