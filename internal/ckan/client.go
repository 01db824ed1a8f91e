// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

/*
client.go - CKAN Action API Client

Every call is a POST to {url}/api/3/action/{action} with a JSON body and the
caller's API token in the Authorization header. CKAN answers with an envelope:

	{"success": true, "result": {...}}
	{"success": false, "error": {"__type": "Not Found Error", "message": "..."}}

Calls are never cached: publication_state must be read fresh on every
workflow step.
*/

package ckan

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/doipub/internal/apperr"
	"github.com/tomtom215/doipub/internal/config"
	"github.com/tomtom215/doipub/internal/logging"
	"github.com/tomtom215/doipub/internal/models"
	"github.com/tomtom215/doipub/internal/resilience"
)

// BreakerName labels the CKAN circuit breaker in metrics.
const BreakerName = "ckan-api"

const maxResponseBytes = 16 << 20

// CKAN error __type values.
const (
	errTypeNotFound      = "Not Found Error"
	errTypeAuthorization = "Authorization Error"
	errTypeValidation    = "Validation Error"
)

var errServer = errors.New("ckan server error")

// Client talks to the CKAN action API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *resilience.Breaker[*envelope]
}

// envelope is the CKAN action response.
type envelope struct {
	status  int
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
	Error   *actionError    `json:"error"`
}

type actionError struct {
	Type    string `json:"__type"`
	Message string `json:"message"`

	// Validation errors carry field -> messages alongside __type.
	Fields map[string]interface{} `json:"-"`
}

func (e *actionError) UnmarshalJSON(b []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	e.Fields = make(map[string]interface{})
	for k, v := range raw {
		switch k {
		case "__type":
			e.Type, _ = v.(string)
		case "message":
			e.Message, _ = v.(string)
		default:
			e.Fields[k] = v
		}
	}
	return nil
}

// New creates a CKAN client from configuration.
func New(cfg config.CKANConfig) *Client {
	return NewWithHTTPClient(cfg, &http.Client{Timeout: cfg.Timeout})
}

// NewWithHTTPClient creates a client using hc for transport.
func NewWithHTTPClient(cfg config.CKANConfig, hc *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		httpClient: hc,
		breaker:    resilience.New[*envelope](resilience.DefaultSettings(BreakerName)),
	}
}

// FetchRecord returns the dataset identified by id or name (package_show).
func (c *Client) FetchRecord(ctx context.Context, subjectID, credential string) (*models.Dataset, error) {
	var raw map[string]interface{}
	if err := c.call(ctx, "package_show", map[string]interface{}{"id": subjectID}, credential, &raw); err != nil {
		return nil, err
	}
	return parseDataset(raw)
}

// PatchRecord applies a partial update (package_patch). Fields not named in
// fields are left untouched.
func (c *Client) PatchRecord(ctx context.Context, subjectID string, fields map[string]interface{}, credential string) (*models.Dataset, error) {
	body := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body["id"] = subjectID

	var raw map[string]interface{}
	if err := c.call(ctx, "package_patch", body, credential, &raw); err != nil {
		return nil, err
	}
	return parseDataset(raw)
}

// CreatePackage creates a dataset (package_create).
func (c *Client) CreatePackage(ctx context.Context, pkg map[string]interface{}, credential string) (*models.Dataset, error) {
	var raw map[string]interface{}
	if err := c.call(ctx, "package_create", pkg, credential, &raw); err != nil {
		return nil, err
	}
	return parseDataset(raw)
}

// ShowUser returns the account that owns credential (user_show).
func (c *Client) ShowUser(ctx context.Context, credential string) (*models.User, error) {
	var u models.User
	if err := c.call(ctx, "user_show", map[string]interface{}{"include_datasets": false}, credential, &u); err != nil {
		return nil, err
	}
	if u.Name == "" && u.ID == "" {
		return nil, apperr.New(apperr.KindUpstreamUnavailable, "user_show returned an empty user")
	}
	return &u, nil
}

// Ping checks that CKAN answers status_show.
func (c *Client) Ping(ctx context.Context) error {
	return c.call(ctx, "status_show", map[string]interface{}{}, "", nil)
}

// BreakerState returns the circuit breaker state.
func (c *Client) BreakerState() string {
	return c.breaker.State()
}

func parseDataset(raw map[string]interface{}) (*models.Dataset, error) {
	ds, err := models.ParseDataset(raw)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindUpstreamUnavailable, "metadata store returned a malformed dataset")
	}
	if !ds.PublicationState.Known() {
		err := fmt.Errorf("%w %q", models.ErrUnknownPublicationState, ds.PublicationState)
		return nil, apperr.Wrap(err, apperr.KindUpstreamUnavailable, "metadata store returned an unknown publication_state")
	}
	return ds, nil
}

// call runs one action and decodes the result into out (if non-nil).
func (c *Client) call(ctx context.Context, action string, body interface{}, credential string, out interface{}) error {
	log := logging.Ctx(ctx)

	env, err := c.breaker.Execute(func() (*envelope, error) {
		return c.do(ctx, action, body, credential)
	})
	if err != nil && env == nil {
		log.Warn().Err(err).Str("action", action).Msg("CKAN request failed")
		return transportError(action, err)
	}

	if !env.Success || env.status >= http.StatusBadRequest {
		mapped := actionFailure(action, env)
		log.Debug().Str("action", action).Int("status", env.status).Str("kind", string(apperr.KindOf(mapped))).Msg("CKAN action rejected")
		return mapped
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return apperr.Wrap(err, apperr.KindUpstreamUnavailable, fmt.Sprintf("failed to decode %s result", action))
	}
	return nil
}

// do performs the HTTP round trip. A 5xx is reported to the breaker as an
// error but the envelope is still returned.
func (c *Client) do(ctx context.Context, action string, body interface{}, credential string) (*envelope, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s request: %w", action, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/3/action/"+action, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", action, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if credential != "" {
		req.Header.Set("Authorization", credential)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", action, err)
	}

	env := &envelope{status: resp.StatusCode}
	if err := json.Unmarshal(data, env); err != nil {
		// Proxies answer 502/504 with HTML; keep the status and report no result.
		env.Success = false
		env.Error = &actionError{Message: strings.TrimSpace(truncate(string(data), 200))}
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return env, fmt.Errorf("%w: %s returned status %d", errServer, action, resp.StatusCode)
	}
	return env, nil
}

func transportError(action string, err error) error {
	if resilience.IsOpen(err) {
		return apperr.Wrap(err, apperr.KindUpstreamUnavailable, "metadata store circuit open").WithDetail("action", action)
	}
	return apperr.Wrap(err, apperr.KindUpstreamUnavailable, "connection error").WithDetail("action", action)
}

// actionFailure maps a CKAN error envelope to an application error.
func actionFailure(action string, env *envelope) error {
	var typ, msg string
	var fields map[string]interface{}
	if env.Error != nil {
		typ, msg, fields = env.Error.Type, env.Error.Message, env.Error.Fields
	}

	var e *apperr.Error
	switch {
	case typ == errTypeNotFound || env.status == http.StatusNotFound:
		e = apperr.New(apperr.KindNotFound, "package not found")
		if action == "user_show" {
			e = apperr.New(apperr.KindNotFound, "user not found")
		}
	case typ == errTypeAuthorization || env.status == http.StatusForbidden:
		e = apperr.New(apperr.KindForbidden, "user not authorized")
	case typ == errTypeValidation || env.status == http.StatusConflict:
		e = apperr.New(apperr.KindValidation, "metadata store rejected the request")
		for k, v := range fields {
			e = e.WithDetail(k, v)
		}
	default:
		e = apperr.Newf(apperr.KindUpstreamUnavailable, "metadata store returned status %d", env.status)
	}

	e = e.WithDetail("action", action)
	if msg != "" {
		e = e.WithDetail("upstream_message", msg)
	}
	return e
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
