// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

package externaldoi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/doipub/internal/apperr"
	"github.com/tomtom215/doipub/internal/config"
	"github.com/tomtom215/doipub/internal/logging"
	"github.com/tomtom215/doipub/internal/resilience"
)

// ZenodoBreakerName labels the Zenodo circuit breaker in metrics.
const ZenodoBreakerName = "zenodo-api"

var errZenodoServer = errors.New("zenodo server error")

// ZenodoRecord is the subset of a Zenodo record used for conversion.
type ZenodoRecord struct {
	ID       json.Number    `json:"id"`
	DOI      string         `json:"doi"`
	Created  string         `json:"created"`
	Metadata ZenodoMetadata `json:"metadata"`
	Links    struct {
		HTML string `json:"html"`
	} `json:"links"`
}

// ZenodoMetadata is the descriptive part of a record.
type ZenodoMetadata struct {
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	PublicationDate string          `json:"publication_date"`
	Version         string          `json:"version"`
	Keywords        []string        `json:"keywords"`
	Creators        []ZenodoCreator `json:"creators"`
	License         struct {
		ID string `json:"id"`
	} `json:"license"`
	ResourceType struct {
		Type  string `json:"type"`
		Title string `json:"title"`
	} `json:"resource_type"`
}

// ZenodoCreator is an author as Zenodo reports it, "Family, Given".
type ZenodoCreator struct {
	Name        string `json:"name"`
	Affiliation string `json:"affiliation"`
	ORCID       string `json:"orcid"`
}

// ZenodoClient reads public records from the Zenodo REST API.
type ZenodoClient struct {
	baseURL    string
	httpClient *http.Client
	breaker    *resilience.Breaker[*ZenodoRecord]
}

// NewZenodoClient creates a client from configuration.
func NewZenodoClient(cfg config.ExternalConfig) *ZenodoClient {
	return NewZenodoClientWithHTTPClient(cfg, &http.Client{Timeout: cfg.Timeout})
}

// NewZenodoClientWithHTTPClient creates a client using hc for transport.
func NewZenodoClientWithHTTPClient(cfg config.ExternalConfig, hc *http.Client) *ZenodoClient {
	return &ZenodoClient{
		baseURL:    strings.TrimSuffix(cfg.ZenodoAPIURL, "/"),
		httpClient: hc,
		breaker:    resilience.New[*ZenodoRecord](resilience.DefaultSettings(ZenodoBreakerName)),
	}
}

// Record fetches GET {api}/records/{id}.
func (c *ZenodoClient) Record(ctx context.Context, recordID string) (*ZenodoRecord, error) {
	var status int
	rec, err := c.breaker.Execute(func() (*ZenodoRecord, error) {
		var rec *ZenodoRecord
		var err error
		rec, status, err = c.get(ctx, recordID)
		return rec, err
	})
	if err == nil && rec != nil {
		return rec, nil
	}
	switch {
	case status == http.StatusNotFound || status == http.StatusGone:
		return nil, apperr.NotFound("Zenodo record %s not found", recordID)
	case err == nil:
		return nil, apperr.Newf(apperr.KindUpstreamUnavailable, "Zenodo returned status %d", status).
			WithDetail("record_id", recordID)
	case resilience.IsOpen(err):
		return nil, apperr.Wrap(err, apperr.KindUpstreamUnavailable, "Zenodo circuit open")
	default:
		logging.Ctx(ctx).Warn().Err(err).Str("record_id", recordID).Msg("Zenodo request failed")
		return nil, apperr.Wrap(err, apperr.KindUpstreamUnavailable, "failed to fetch Zenodo record").
			WithDetail("record_id", recordID)
	}
}

// get returns the HTTP status alongside the error so 404s can be told apart.
// Only 5xx and transport errors count against the breaker.
func (c *ZenodoClient) get(ctx context.Context, recordID string) (*ZenodoRecord, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/records/"+url.PathEscape(recordID), http.NoBody)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create Zenodo request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, resp.StatusCode, fmt.Errorf("%w: status %d", errZenodoServer, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		// client errors are answers, not outages
		return nil, resp.StatusCode, nil
	}

	var rec ZenodoRecord
	if err := json.NewDecoder(io.LimitReader(resp.Body, 8<<20)).Decode(&rec); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to decode Zenodo record: %w", err)
	}
	return &rec, resp.StatusCode, nil
}
