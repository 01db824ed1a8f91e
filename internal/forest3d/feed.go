// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

// Package forest3d publishes the Forest3D dataset catalogue to DataCite.
//
// The catalogue is a public JSON list of dataset dictionaries. Each entry
// carrying a DOI that DataCite does not know yet is converted to DataCite XML
// and published; entries are processed concurrently and each gets its own
// result, so one bad entry never fails the batch.
package forest3d

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/doipub/internal/apperr"
)

const maxFeedBytes = 32 << 20

// Feed downloads the Forest3D catalogue.
type Feed struct {
	url        string
	httpClient *http.Client
}

// NewFeed creates a Feed for url.
func NewFeed(url string, hc *http.Client) *Feed {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Feed{url: url, httpClient: hc}
}

// Download fetches and decodes the catalogue.
//
// A non-200 answer is returned with the upstream status. A body that is not
// a JSON list of objects is reported as 422.
func (f *Feed) Download(ctx context.Context) ([]map[string]interface{}, error) {
	if f.url == "" {
		return nil, apperr.Validation("FOREST3D_URL is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindUpstreamUnavailable, "Could not download JSON")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.New(apperr.KindUpstreamUnavailable, "Could not download JSON").
			WithStatus(resp.StatusCode).
			WithDetail("url", f.url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindUpstreamUnavailable, "Could not download JSON")
	}

	var raw interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, apperr.Wrap(err, apperr.KindUnprocessableState, "Remote JSON is invalid")
	}
	list, ok := raw.([]interface{})
	if !ok {
		return nil, apperr.UnprocessableState("Remote JSON must be a list of dictionaries")
	}
	entries := make([]map[string]interface{}, 0, len(list))
	for _, item := range list {
		entry, ok := item.(map[string]interface{})
		if !ok {
			return nil, apperr.UnprocessableState("Remote JSON must be a list of dictionaries")
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
