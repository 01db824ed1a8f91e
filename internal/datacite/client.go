// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

/*
client.go - DataCite REST API Client

Reserve:  POST {api}        {"data":{"type":"dois","attributes":{"doi":...}}}  -> 201
Publish:  PUT  {api}/{doi}  attributes doi, event=publish, url, xml (base64)   -> 2xx
Exists:   GET  {api}/{doi}                                                    -> 200

Requests use HTTP basic auth and the JSON:API media type. Calls are detached
from the caller's cancellation: once sent, a call is awaited until the
configured timeout so the outcome is known.

API Reference: https://support.datacite.org/docs/api-create-dois
*/

package datacite

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/doipub/internal/config"
	"github.com/tomtom215/doipub/internal/logging"
	"github.com/tomtom215/doipub/internal/metrics"
	"github.com/tomtom215/doipub/internal/models"
	"github.com/tomtom215/doipub/internal/resilience"
)

// BreakerName labels the DataCite circuit breaker in metrics.
const BreakerName = "datacite-api"

const maxResponseBytes = 8 << 20

// Registrar operations, used as metrics labels.
const (
	OpReserve = "reserve"
	OpPublish = "publish"
	OpExists  = "exists"
)

var errServer = errors.New("datacite server error")

// Client calls the DataCite REST API.
type Client struct {
	apiURL     string
	clientID   string
	password   string
	timeout    time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *resilience.Breaker[*response]
}

type response struct {
	status int
	body   []byte
}

// New creates a DataCite client from configuration.
func New(cfg config.DataCiteConfig) *Client {
	return NewWithHTTPClient(cfg, &http.Client{})
}

// NewWithHTTPClient creates a client using hc for transport. The per-call
// timeout comes from cfg, not from hc.
func NewWithHTTPClient(cfg config.DataCiteConfig, hc *http.Client) *Client {
	limit := rate.Inf
	burst := 1
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
		burst = int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiURL:     strings.TrimSuffix(cfg.APIURL, "/"),
		clientID:   cfg.ClientID,
		password:   cfg.Password,
		timeout:    timeout,
		httpClient: hc,
		limiter:    rate.NewLimiter(limit, burst),
		breaker:    resilience.New[*response](resilience.DefaultSettings(BreakerName)),
	}
}

// ReserveDraft reserves doi in draft state.
func (c *Client) ReserveDraft(ctx context.Context, doi string) Result {
	start := time.Now()
	payload, err := json.Marshal(draftRequest(doi))
	if err != nil {
		return c.finish(ctx, OpReserve, doi, start, failure(http.StatusInternalServerError, KindInternal, err.Error()))
	}

	resp, f := c.send(ctx, http.MethodPost, c.apiURL, payload)
	if f != nil {
		return c.finish(ctx, OpReserve, doi, start, *f)
	}
	return c.finish(ctx, OpReserve, doi, start, formatResponse(resp, http.StatusCreated))
}

// PublishOrUpdate converts ds to DataCite XML and publishes doi with the
// given landing page. Publishing an already findable DOI updates its metadata.
// A conversion failure is returned before any request is sent.
func (c *Client) PublishOrUpdate(ctx context.Context, doi string, ds *models.Dataset, landingURL string) Result {
	start := time.Now()
	encoded, err := ToBase64XML(ds, doi)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("doi", doi).Msg("Failed to convert dataset to DataCite XML")
		return c.finish(ctx, OpPublish, doi, start, Failure{
			Status: http.StatusInternalServerError,
			Kind:   KindConversion,
			Errors: []ErrorObject{{"error": "Failed to convert dataset to DataCite format XML", "detail": err.Error()}},
		})
	}

	payload, err := json.Marshal(publishRequest(doi, landingURL, encoded))
	if err != nil {
		return c.finish(ctx, OpPublish, doi, start, failure(http.StatusInternalServerError, KindInternal, err.Error()))
	}

	resp, f := c.send(ctx, http.MethodPut, c.apiURL+"/"+doi, payload)
	if f != nil {
		return c.finish(ctx, OpPublish, doi, start, *f)
	}
	return c.finish(ctx, OpPublish, doi, start, formatResponse(resp, 0))
}

// Exists reports whether DataCite knows doi. Only a 200 counts as existing;
// transport failures and 5xx are returned as errors.
func (c *Client) Exists(ctx context.Context, doi string) (bool, error) {
	start := time.Now()
	resp, f := c.send(ctx, http.MethodGet, c.apiURL+"/"+doi, nil)
	if f != nil {
		metrics.RecordRegistrarCall(OpExists, string(f.Kind), time.Since(start))
		return false, f.Err()
	}
	metrics.RecordRegistrarCall(OpExists, "success", time.Since(start))
	if resp.status >= http.StatusInternalServerError {
		return false, failure(resp.status, KindRejection, "DataCite returned a server error").Err()
	}
	return resp.status == http.StatusOK, nil
}

// BreakerState returns the circuit breaker state.
func (c *Client) BreakerState() string {
	return c.breaker.State()
}

func (c *Client) finish(ctx context.Context, op, doi string, start time.Time, r Result) Result {
	outcome := outcomeLabel(r)
	metrics.RecordRegistrarCall(op, outcome, time.Since(start))

	ev := logging.Ctx(ctx).Debug()
	if !r.OK() {
		ev = logging.Ctx(ctx).Warn()
	}
	ev.Str("operation", op).Str("doi", doi).Int("status", r.StatusCode()).Str("outcome", outcome).
		Dur("duration", time.Since(start)).Msg("DataCite call finished")
	return r
}

// send performs one request through the limiter and breaker. A non-nil
// Failure means no usable response was received.
func (c *Client) send(ctx context.Context, method, url string, payload []byte) (*response, *Failure) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		f := failure(http.StatusRequestTimeout, KindTimeout, "Rate limiter wait exceeded the request timeout")
		return nil, &f
	}

	resp, err := c.breaker.Execute(func() (*response, error) {
		return c.do(ctx, method, url, payload)
	})
	if resp != nil {
		return resp, nil
	}

	var f Failure
	switch {
	case resilience.IsOpen(err):
		f = failure(http.StatusInternalServerError, KindTransport, "DataCite circuit breaker is open")
	case isTimeout(err):
		f = failure(http.StatusRequestTimeout, KindTimeout, "Connection timed out")
	default:
		f = failure(http.StatusInternalServerError, KindTransport, "Internal server error from DataCite")
	}
	logging.Ctx(ctx).Warn().Err(err).Str("method", method).Msg("DataCite request failed")
	return nil, &f
}

func (c *Client) do(ctx context.Context, method, url string, payload []byte) (*response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.password)
	req.Header.Set("Accept", mediaType)
	if payload != nil {
		req.Header.Set("Content-Type", mediaType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	r := &response{status: resp.StatusCode, body: data}
	if resp.StatusCode >= http.StatusInternalServerError {
		return r, fmt.Errorf("%w: status %d", errServer, resp.StatusCode)
	}
	return r, nil
}

// formatResponse turns an HTTP response into a Result. With expected == 0
// any 2xx is accepted.
func formatResponse(resp *response, expected int) Result {
	var parsed doiResponse
	jsonErr := json.Unmarshal(resp.body, &parsed)

	ok := resp.status == expected
	if expected == 0 {
		ok = resp.status >= 200 && resp.status < 300
	}

	if !ok {
		errs := parsed.Errors
		if jsonErr != nil || len(errs) == 0 {
			errs = []ErrorObject{{"status": fmt.Sprint(resp.status), "title": truncate(strings.TrimSpace(string(resp.body)), 500)}}
		}
		return Failure{Status: resp.status, Kind: KindRejection, Errors: errs}
	}

	if jsonErr != nil || parsed.Data == nil || parsed.Data.ID == "" {
		var body interface{}
		_ = json.Unmarshal(resp.body, &body)
		return Failure{
			Status: http.StatusInternalServerError,
			Kind:   KindInternal,
			Errors: []ErrorObject{{
				"parsing_error":     "Cannot parse DOI from DataCite response",
				"datacite_response": body,
			}},
		}
	}

	var raw map[string]interface{}
	_ = json.Unmarshal(resp.body, &raw)
	return Success{Status: resp.status, DOI: parsed.Data.ID, Body: raw}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
