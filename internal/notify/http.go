// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/doipub/internal/config"
	"github.com/tomtom215/doipub/internal/logging"
	"github.com/tomtom215/doipub/internal/metrics"
	"github.com/tomtom215/doipub/internal/resilience"
)

// BreakerName labels the mail circuit breaker in metrics.
const BreakerName = "mail-api"

// HTTPDispatcher posts notifications to {endpoint}/templates/{template}/json.
type HTTPDispatcher struct {
	endpoint string
	from     string
	timeout  time.Duration
	client   *http.Client
	breaker  *resilience.Breaker[int]
}

type mailRequest struct {
	From   string                 `json:"from"`
	To     Recipients             `json:"to"`
	Params map[string]interface{} `json:"params"`
}

// NewHTTPDispatcher creates a dispatcher from configuration. An empty
// endpoint yields a dispatcher that only logs.
func NewHTTPDispatcher(cfg config.EmailConfig) *HTTPDispatcher {
	return newHTTPDispatcher(cfg, resilience.DefaultSettings(BreakerName))
}

func newHTTPDispatcher(cfg config.EmailConfig, breaker resilience.Settings) *HTTPDispatcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPDispatcher{
		endpoint: cfg.Endpoint,
		from:     cfg.From,
		timeout:  timeout,
		client:   &http.Client{},
		breaker:  resilience.New[int](breaker),
	}
}

// BreakerState returns the circuit breaker state.
func (d *HTTPDispatcher) BreakerState() string {
	return d.breaker.State()
}

// Enabled reports whether an endpoint is configured.
func (d *HTTPDispatcher) Enabled() bool {
	return d.endpoint != ""
}

// Notify implements Dispatcher. The post is detached from the caller's
// cancellation and bounded by the configured timeout.
func (d *HTTPDispatcher) Notify(ctx context.Context, template Template, recipients []string, params map[string]interface{}) {
	log := logging.Ctx(ctx)

	if !d.Enabled() {
		metrics.RecordNotification(string(template), "skipped")
		log.Debug().Str("template", string(template)).Msg("Email endpoint not configured, notification skipped")
		return
	}
	if len(recipients) == 0 {
		metrics.RecordNotification(string(template), "skipped")
		log.Warn().Str("template", string(template)).Msg("Notification has no recipients")
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	status, err := d.breaker.Execute(func() (int, error) {
		return d.post(ctx, template, recipients, params)
	})
	if resilience.IsOpen(err) {
		metrics.RecordNotification(string(template), "rejected")
		log.Error().Err(err).Str("template", string(template)).Msg("Mail circuit open, notification dropped")
		return
	}
	if err != nil {
		metrics.RecordNotification(string(template), "failed")
		log.Error().Err(err).Str("template", string(template)).Int("recipients", len(recipients)).Msg("Failed to send notification")
		return
	}

	metrics.RecordNotification(string(template), "sent")
	log.Debug().Str("template", string(template)).Int("status", status).Msg("Notification sent")
}

func (d *HTTPDispatcher) post(ctx context.Context, template Template, recipients []string, params map[string]interface{}) (int, error) {
	payload, err := json.Marshal(mailRequest{From: d.from, To: Recipients(recipients), Params: params})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal payload: %w", err)
	}

	url := FixDoubleSlash(d.endpoint + "/templates/" + string(template) + "/json")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to send: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return resp.StatusCode, fmt.Errorf("mailer returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return resp.StatusCode, nil
}

// FixDoubleSlash collapses repeated slashes after the scheme separator.
func FixDoubleSlash(url string) string {
	scheme, rest, ok := strings.Cut(url, "://")
	if !ok {
		return url
	}
	for strings.Contains(rest, "//") {
		rest = strings.ReplaceAll(rest, "//", "/")
	}
	return scheme + "://" + rest
}
