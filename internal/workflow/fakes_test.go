// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

package workflow

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tomtom215/doipub/internal/apperr"
	"github.com/tomtom215/doipub/internal/audit"
	"github.com/tomtom215/doipub/internal/authz"
	"github.com/tomtom215/doipub/internal/datacite"
	"github.com/tomtom215/doipub/internal/models"
	"github.com/tomtom215/doipub/internal/notify"
	"github.com/tomtom215/doipub/internal/registry"
)

type patchCall struct {
	SubjectID string
	Fields    map[string]interface{}
}

// fakeMetadata is an in-memory CKAN.
type fakeMetadata struct {
	mu        sync.Mutex
	datasets  map[string]*models.Dataset
	fetches   int
	patches   []patchCall
	failPatch func(fields map[string]interface{}) error
}

func newFakeMetadata(datasets ...*models.Dataset) *fakeMetadata {
	m := &fakeMetadata{datasets: map[string]*models.Dataset{}}
	for _, ds := range datasets {
		m.datasets[ds.ID] = ds
	}
	return m
}

func (m *fakeMetadata) FetchRecord(_ context.Context, subjectID, _ string) (*models.Dataset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches++
	ds, ok := m.datasets[subjectID]
	if !ok {
		return nil, apperr.NotFound("package not found")
	}
	cp := *ds
	return &cp, nil
}

func (m *fakeMetadata) PatchRecord(_ context.Context, subjectID string, fields map[string]interface{}, _ string) (*models.Dataset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPatch != nil {
		if err := m.failPatch(fields); err != nil {
			return nil, err
		}
	}
	ds, ok := m.datasets[subjectID]
	if !ok {
		return nil, apperr.NotFound("package not found")
	}
	m.patches = append(m.patches, patchCall{SubjectID: subjectID, Fields: fields})
	for k, v := range fields {
		switch k {
		case "doi":
			ds.DOI = v.(string)
		case "publication_state":
			ds.PublicationState = models.PublicationState(v.(string))
		case "private":
			ds.Private = v.(bool)
		}
	}
	cp := *ds
	return &cp, nil
}

func (m *fakeMetadata) state(id string) models.PublicationState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.datasets[id].PublicationState
}

func (m *fakeMetadata) patchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.patches)
}

type registrarCall struct {
	Op         string
	DOI        string
	LandingURL string
}

// fakeRegistrar returns scripted results in order, repeating the last one.
type fakeRegistrar struct {
	mu      sync.Mutex
	results []datacite.Result
	calls   []registrarCall
}

func (r *fakeRegistrar) next(call registrarCall) datacite.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
	i := len(r.calls) - 1
	if i >= len(r.results) {
		i = len(r.results) - 1
	}
	return r.results[i]
}

func (r *fakeRegistrar) ReserveDraft(_ context.Context, doi string) datacite.Result {
	return r.next(registrarCall{Op: "reserve", DOI: doi})
}

func (r *fakeRegistrar) PublishOrUpdate(_ context.Context, doi string, _ *models.Dataset, landingURL string) datacite.Result {
	return r.next(registrarCall{Op: "publish", DOI: doi, LandingURL: landingURL})
}

func (r *fakeRegistrar) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

type auditCapture struct {
	mu     sync.Mutex
	events []audit.Event
}

func (a *auditCapture) Record(_ context.Context, e audit.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, e)
}

func (a *auditCapture) last() audit.Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.events[len(a.events)-1]
}

func success(status int, doi string) datacite.Result {
	return datacite.Success{Status: status, DOI: doi, Body: map[string]interface{}{"data": map[string]interface{}{"id": doi}}}
}

func transportFailure() datacite.Result {
	return datacite.Failure{Status: http.StatusInternalServerError, Kind: datacite.KindTransport,
		Errors: []datacite.ErrorObject{{"error": "connection refused"}}}
}

func timeoutFailure() datacite.Result {
	return datacite.Failure{Status: http.StatusRequestTimeout, Kind: datacite.KindTimeout,
		Errors: []datacite.ErrorObject{{"error": "context deadline exceeded"}}}
}

func internalFailure() datacite.Result {
	return datacite.Failure{Status: http.StatusInternalServerError, Kind: datacite.KindInternal,
		Errors: []datacite.ErrorObject{{"parsing_error": "response has no data.id"}}}
}

func duplicateFailure() datacite.Result {
	return datacite.Failure{Status: http.StatusUnprocessableEntity, Kind: datacite.KindRejection,
		Errors: []datacite.ErrorObject{{"source": "doi", "title": "This DOI has already been taken"}}}
}

const (
	testPrefix  = "10.1000"
	adminEmail  = "envidat@example.org"
	landingBase = "https://envidat.example/#/metadata/"
)

var (
	submitter = &models.Caller{
		User:       models.User{Name: "alice", FullName: "Alice Muster", Email: "alice@example.org"},
		Credential: "user-token",
	}
	admin = &models.Caller{
		User:       models.User{Name: "admin", Email: "admin@example.org", Sysadmin: true},
		Credential: "admin-token",
	}
)

func testDataset(id string, state models.PublicationState, doi string) *models.Dataset {
	return &models.Dataset{
		ID:               id,
		Name:             "dataset-" + id,
		Title:            "Dataset " + id,
		DOI:              doi,
		PublicationState: state,
		Private:          true,
		Maintainer:       `{"name":"Muster","given_name":"Max","email":"max@example.org"}`,
		Author:           `[{"name":"Muster","given_name":"Max","affiliation":"WSL"}]`,
		Organization:     models.Organization{Title: "WSL"},
		MetadataCreated:  "2024-05-01T10:00:00",
	}
}

type harness struct {
	orch      *Orchestrator
	metadata  *fakeMetadata
	registrar *fakeRegistrar
	registry  *registry.MemoryStore
	mail      *notify.Recorder
	audit     *auditCapture
}

func newHarness(t *testing.T, results []datacite.Result, datasets ...*models.Dataset) *harness {
	t.Helper()
	enforcer, err := authz.NewEnforcer(nil)
	require.NoError(t, err)

	h := &harness{
		metadata:  newFakeMetadata(datasets...),
		registrar: &fakeRegistrar{results: results},
		registry:  registry.NewMemoryStore(),
		mail:      &notify.Recorder{},
		audit:     &auditCapture{},
	}
	h.orch, err = New(Deps{
		Metadata:   h.metadata,
		Registrar:  h.registrar,
		Registry:   h.registry,
		Notifier:   h.mail,
		Authorizer: enforcer,
		Audit:      h.audit,
	}, Settings{
		Prefix:           testPrefix,
		SuffixTag:        "test.",
		SiteID:           "doi-publishing-api",
		LandingURLPrefix: landingBase,
		ConflictRetries:  3,
		Retries:          2,
		RetryDelay:       0,
		AdminEmail:       adminEmail,
		SiteURL:          "https://ckan.example.org",
	})
	require.NoError(t, err)
	return h
}

func registryFilter() registry.ListFilter {
	return registry.ListFilter{}
}
