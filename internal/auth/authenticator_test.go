// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/doipub/internal/apperr"
	"github.com/tomtom215/doipub/internal/models"
)

type fakeLookup struct {
	calls atomic.Int32
	users map[string]models.User
	err   error
}

func (f *fakeLookup) ShowUser(_ context.Context, credential string) (*models.User, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[credential]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	return &u, nil
}

func TestAuthenticate(t *testing.T) {
	lookup := &fakeLookup{users: map[string]models.User{
		"tok-user":  {Name: "jane", Email: "jane@example.org"},
		"tok-admin": {Name: "root", Sysadmin: true},
	}}
	a := NewAuthenticator(lookup, time.Minute)

	caller, err := a.Authenticate(context.Background(), "tok-user")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if caller.User.Name != "jane" || caller.Credential != "tok-user" || caller.Role() != models.RoleUser {
		t.Errorf("caller = %+v", caller)
	}

	admin, err := a.Authenticate(context.Background(), "Bearer tok-admin")
	if err != nil {
		t.Fatalf("Authenticate(bearer) error = %v", err)
	}
	if admin.Role() != models.RoleAdmin || admin.Credential != "tok-admin" {
		t.Errorf("admin = %+v", admin)
	}
}

func TestAuthenticate_Cache(t *testing.T) {
	lookup := &fakeLookup{users: map[string]models.User{"tok": {Name: "jane"}}}
	a := NewAuthenticator(lookup, time.Minute)

	for i := 0; i < 3; i++ {
		if _, err := a.Authenticate(context.Background(), "tok"); err != nil {
			t.Fatalf("Authenticate() error = %v", err)
		}
	}
	if lookup.calls.Load() != 1 {
		t.Errorf("lookups = %d, want 1 (cached)", lookup.calls.Load())
	}

	a.Invalidate("tok")
	_, _ = a.Authenticate(context.Background(), "tok")
	if lookup.calls.Load() != 2 {
		t.Errorf("lookups after Invalidate = %d, want 2", lookup.calls.Load())
	}
}

func TestAuthenticate_NoCacheWhenTTLZero(t *testing.T) {
	lookup := &fakeLookup{users: map[string]models.User{"tok": {Name: "jane"}}}
	a := NewAuthenticator(lookup, 0)

	_, _ = a.Authenticate(context.Background(), "tok")
	_, _ = a.Authenticate(context.Background(), "tok")
	if lookup.calls.Load() != 2 {
		t.Errorf("lookups = %d, want 2", lookup.calls.Load())
	}
}

func TestAuthenticate_Errors(t *testing.T) {
	tests := []struct {
		name       string
		credential string
		lookupErr  error
		want       apperr.Kind
	}{
		{"missing header", "", nil, apperr.KindUnauthorized},
		{"blank bearer", "Bearer   ", nil, apperr.KindUnauthorized},
		{"unknown token", "nope", nil, apperr.KindNotFound},
		{"ckan forbids", "tok", apperr.Forbidden("denied"), apperr.KindUnauthorized},
		{"ckan down", "tok", apperr.New(apperr.KindUpstreamUnavailable, "connection error"), apperr.KindUpstreamUnavailable},
		{"unexpected", "tok", context.DeadlineExceeded, apperr.KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAuthenticator(&fakeLookup{err: tt.lookupErr}, time.Minute)
			_, err := a.Authenticate(context.Background(), tt.credential)
			if got := apperr.KindOf(err); got != tt.want {
				t.Errorf("KindOf(err) = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFingerprint(t *testing.T) {
	if Fingerprint("a") == Fingerprint("b") {
		t.Error("distinct tokens share a fingerprint")
	}
	if len(Fingerprint("a")) != 64 {
		t.Errorf("len = %d, want 64", len(Fingerprint("a")))
	}
}

func TestMiddleware(t *testing.T) {
	a := NewAuthenticator(&fakeLookup{users: map[string]models.User{"tok": {Name: "jane"}}}, time.Minute)

	var seen *models.Caller
	h := Middleware(a, func(w http.ResponseWriter, _ *http.Request, err error) {
		w.WriteHeader(apperr.StatusOf(err))
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = CallerFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "tok")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent || seen == nil || seen.User.Name != "jane" {
		t.Errorf("code = %d, caller = %+v", rec.Code, seen)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("code without header = %d, want 401", rec.Code)
	}
}
