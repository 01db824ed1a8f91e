// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind Kind
		want int
	}{
		{KindNotFound, http.StatusNotFound},
		{KindForbidden, http.StatusForbidden},
		{KindConflict, http.StatusConflict},
		{KindUnprocessableState, http.StatusUnprocessableEntity},
		{KindUpstreamUnavailable, http.StatusBadGateway},
		{KindTimeout, http.StatusRequestTimeout},
		{KindTransport, http.StatusInternalServerError},
		{KindConversion, http.StatusInternalServerError},
		{Kind("bogus"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := StatusFor(tt.kind); got != tt.want {
			t.Errorf("StatusFor(%s) = %d, want %d", tt.kind, got, tt.want)
		}
	}
}

func TestKindOf_ThroughWrapping(t *testing.T) {
	t.Parallel()

	base := NotFound("package %s not found", "abc")
	wrapped := fmt.Errorf("fetch record: %w", base)

	if got := KindOf(wrapped); got != KindNotFound {
		t.Errorf("KindOf(wrapped) = %s, want %s", got, KindNotFound)
	}
	if got := StatusOf(wrapped); got != http.StatusNotFound {
		t.Errorf("StatusOf(wrapped) = %d, want 404", got)
	}
	if got := KindOf(errors.New("plain")); got != KindInternal {
		t.Errorf("KindOf(plain) = %s, want %s", got, KindInternal)
	}
	if got := KindOf(nil); got != "" {
		t.Errorf("KindOf(nil) = %q, want empty", got)
	}
}

func TestWrap(t *testing.T) {
	t.Parallel()

	if Wrap(nil, KindInternal, "x") != nil {
		t.Fatal("Wrap(nil) should return nil")
	}

	cause := errors.New("connection refused")
	err := Wrap(cause, KindUpstreamUnavailable, "connection error")
	if !errors.Is(err, cause) {
		t.Error("wrapped error should unwrap to its cause")
	}
	if err.Error() != "connection error: connection refused" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestWithStatusAndDetail(t *testing.T) {
	t.Parallel()

	err := New(KindRegistrar, "registrar rejected request").
		WithStatus(http.StatusUnprocessableEntity).
		WithDetail("errors", []string{"This DOI has already been taken"})

	if err.Status != http.StatusUnprocessableEntity {
		t.Errorf("Status = %d, want 422", err.Status)
	}
	if _, ok := err.Details["errors"]; !ok {
		t.Error("expected errors detail")
	}
}
