// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

package notify

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/doipub/internal/config"
	"github.com/tomtom215/doipub/internal/resilience"
)

func TestRecipientsMarshal(t *testing.T) {
	tests := []struct {
		in   Recipients
		want string
	}{
		{Recipients{"a@example.org"}, `"a@example.org"`},
		{Recipients{"a@example.org", "b@example.org"}, `["a@example.org","b@example.org"]`},
		{nil, `[]`},
	}
	for _, tt := range tests {
		b, err := json.Marshal(tt.in)
		if err != nil {
			t.Fatalf("Marshal(%v) error = %v", tt.in, err)
		}
		if string(b) != tt.want {
			t.Errorf("Marshal(%v) = %s, want %s", tt.in, b, tt.want)
		}
	}
}

func TestFixDoubleSlash(t *testing.T) {
	tests := map[string]string{
		"https://mail.example.org//templates/x/json": "https://mail.example.org/templates/x/json",
		"https://mail.example.org///a":               "https://mail.example.org/a",
		"http://host/a/b":                            "http://host/a/b",
		"no-scheme//path":                            "no-scheme//path",
	}
	for in, want := range tests {
		if got := FixDoubleSlash(in); got != want {
			t.Errorf("FixDoubleSlash(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHTTPDispatcher_Notify(t *testing.T) {
	var got map[string]interface{}
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewHTTPDispatcher(config.EmailConfig{Endpoint: srv.URL + "/", From: "envidat@wsl.ch", Timeout: time.Second})
	d.Notify(context.Background(), TemplateRequest, []string{"envidat@wsl.ch"}, map[string]interface{}{
		ParamPackageTitle: "my-dataset",
		ParamIsUpdate:     true,
	})

	if path != "/templates/datacite-request/json" {
		t.Errorf("path = %q", path)
	}
	if got["from"] != "envidat@wsl.ch" || got["to"] != "envidat@wsl.ch" {
		t.Errorf("payload = %v", got)
	}
	params, _ := got["params"].(map[string]interface{})
	if params["package_title"] != "my-dataset" || params["is_update"] != true {
		t.Errorf("params = %v", params)
	}
}

func TestHTTPDispatcher_FailureIsSwallowed(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := NewHTTPDispatcher(config.EmailConfig{Endpoint: srv.URL, From: "a@example.org", Timeout: time.Second})
	d.Notify(context.Background(), TemplateTaskFailed, []string{"a@example.org", "b@example.org"}, nil)

	if calls.Load() != 1 {
		t.Errorf("calls = %d, want exactly one attempt", calls.Load())
	}
}

func TestHTTPDispatcher_BreakerOpensOnRepeatedFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	settings := resilience.DefaultSettings("mail-test")
	settings.MinRequests = 2
	settings.FailureRatio = 0.5
	settings.Timeout = time.Minute
	d := newHTTPDispatcher(config.EmailConfig{Endpoint: srv.URL, From: "a@example.org", Timeout: time.Second}, settings)

	for i := 0; i < 4; i++ {
		d.Notify(context.Background(), TemplateTaskFailed, []string{"a@example.org"}, nil)
	}

	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2 before the circuit opened", calls.Load())
	}
	if d.BreakerState() != "open" {
		t.Errorf("BreakerState() = %q, want open", d.BreakerState())
	}
}

func TestHTTPDispatcher_DisabledWithoutEndpoint(t *testing.T) {
	d := NewHTTPDispatcher(config.EmailConfig{})
	if d.Enabled() {
		t.Fatal("dispatcher without endpoint should be disabled")
	}
	// must not panic or block
	d.Notify(context.Background(), TemplatePublished, []string{"a@example.org"}, nil)
}

func TestRecorder(t *testing.T) {
	var r Recorder
	r.Notify(context.Background(), TemplateTaskFailed, []string{"a"}, nil)
	r.Notify(context.Background(), TemplateRequest, []string{"b"}, nil)
	r.Notify(context.Background(), TemplateTaskFailed, []string{"c"}, nil)

	if r.Count(TemplateTaskFailed) != 2 || len(r.Sent()) != 3 {
		t.Errorf("recorded = %+v", r.Sent())
	}
}
