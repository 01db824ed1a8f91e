// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

package authz

import (
	"net/http"

	"github.com/tomtom215/doipub/internal/auth"
)

// ErrorWriter renders an error response.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Middleware enforces a fixed object/action on routes.
type Middleware struct {
	enforcer *Enforcer
	onError  ErrorWriter
}

// NewMiddleware creates authorization middleware.
func NewMiddleware(enforcer *Enforcer, onError ErrorWriter) *Middleware {
	return &Middleware{enforcer: enforcer, onError: onError}
}

// Require returns middleware allowing only callers permitted to perform
// action on object. It must run after auth.Middleware.
func (m *Middleware) Require(object, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := m.enforcer.Authorize(auth.CallerFromContext(r.Context()), object, action); err != nil {
				m.onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
