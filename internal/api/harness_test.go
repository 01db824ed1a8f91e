// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/doipub/internal/apperr"
	"github.com/tomtom215/doipub/internal/audit"
	"github.com/tomtom215/doipub/internal/auth"
	"github.com/tomtom215/doipub/internal/authz"
	"github.com/tomtom215/doipub/internal/externaldoi"
	"github.com/tomtom215/doipub/internal/forest3d"
	"github.com/tomtom215/doipub/internal/models"
	"github.com/tomtom215/doipub/internal/registry"
	"github.com/tomtom215/doipub/internal/workflow"
)

const (
	userToken  = "user-token"
	adminToken = "admin-token"
)

type stubLookup struct{}

func (stubLookup) ShowUser(_ context.Context, credential string) (*models.User, error) {
	switch credential {
	case userToken:
		return &models.User{ID: "u1", Name: "submitter", Email: "submitter@example.org"}, nil
	case adminToken:
		return &models.User{ID: "u2", Name: "envidat-admin", Email: "admin@example.org", Sysadmin: true}, nil
	default:
		return nil, apperr.Forbidden("invalid token")
	}
}

type workflowCall struct {
	Op      string
	Subject string
	User    string
}

type fakeWorkflow struct {
	mu      sync.Mutex
	calls   []workflowCall
	outcome *workflow.Outcome
	err     error
}

func (f *fakeWorkflow) run(op, subject string, caller *models.Caller) (*workflow.Outcome, error) {
	f.mu.Lock()
	f.calls = append(f.calls, workflowCall{Op: op, Subject: subject, User: caller.User.Name})
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := *f.outcome
	out.SubjectID = subject
	return &out, nil
}

func (f *fakeWorkflow) MintReserve(_ context.Context, subject string, caller *models.Caller) (*workflow.Outcome, error) {
	return f.run(workflow.OpMintReserve, subject, caller)
}

func (f *fakeWorkflow) RequestApproval(_ context.Context, subject string, caller *models.Caller) (*workflow.Outcome, error) {
	return f.run(workflow.OpRequestApproval, subject, caller)
}

func (f *fakeWorkflow) Publish(_ context.Context, subject string, caller *models.Caller) (*workflow.Outcome, error) {
	return f.run(workflow.OpPublish, subject, caller)
}

type fakeConverter struct {
	gotDOI  string
	gotOpts externaldoi.Options
	err     error
}

func (f *fakeConverter) Convert(_ context.Context, doi string, opts externaldoi.Options) (*externaldoi.Conversion, error) {
	f.gotDOI, f.gotOpts = doi, opts
	if f.err != nil {
		return nil, f.err
	}
	return &externaldoi.Conversion{
		Platform: externaldoi.PlatformZenodo,
		DOI:      doi,
		RecordID: "123",
		Package:  map[string]interface{}{"name": "converted"},
	}, nil
}

type fakeBulk struct {
	actor string
}

func (f *fakeBulk) PublishBulk(_ context.Context, actor string) (*forest3d.Summary, error) {
	f.actor = actor
	return &forest3d.Summary{Total: 2, Published: 1, Skipped: 1, Results: []forest3d.EntryResult{}}, nil
}

type captureRecorder struct {
	mu     sync.Mutex
	events []audit.Event
}

func (c *captureRecorder) Record(_ context.Context, e audit.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *captureRecorder) types() []audit.EventType {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]audit.EventType, len(c.events))
	for i, e := range c.events {
		out[i] = e.Type
	}
	return out
}

type harness struct {
	server    http.Handler
	workflow  *fakeWorkflow
	registry  *registry.MemoryStore
	recorder  *captureRecorder
	converter *fakeConverter
	bulk      *fakeBulk
	audit     *audit.MemoryStore
}

type harnessOption func(*HandlerDeps)

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	h := &harness{
		workflow:  &fakeWorkflow{outcome: &workflow.Outcome{DOI: "10.1000/test.1", State: models.StateReserved, Status: http.StatusCreated}},
		registry:  registry.NewMemoryStore(),
		recorder:  &captureRecorder{},
		converter: &fakeConverter{},
		bulk:      &fakeBulk{},
		audit:     audit.NewMemoryStore(0),
	}
	deps := HandlerDeps{
		Workflow:    h.workflow,
		Registry:    h.registry,
		Audit:       h.recorder,
		AuditReader: h.audit,
		Converter:   h.converter,
		Forest3D:    h.bulk,
		Version:     "test",
	}
	for _, opt := range opts {
		opt(&deps)
	}

	handler, err := NewHandler(deps)
	require.NoError(t, err)
	enforcer, err := authz.NewEnforcer(nil)
	require.NoError(t, err)

	mwCfg := DefaultChiMiddlewareConfig()
	mwCfg.RateLimitDisabled = true
	router := NewRouter(handler, NewChiMiddleware(mwCfg), auth.NewAuthenticator(stubLookup{}, 0), enforcer)
	h.server = router.SetupChi()
	return h
}

type envelope struct {
	Status   string           `json:"status"`
	Data     json.RawMessage  `json:"data"`
	Metadata models.Metadata  `json:"metadata"`
	Error    *models.APIError `json:"error"`
}

func (h *harness) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.server.ServeHTTP(rec, req)

	var env envelope
	if rec.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func decodeData(t *testing.T, env envelope, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, v))
}
