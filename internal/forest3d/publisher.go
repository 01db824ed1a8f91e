// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

package forest3d

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/doipub/internal/audit"
	"github.com/tomtom215/doipub/internal/datacite"
	"github.com/tomtom215/doipub/internal/logging"
	"github.com/tomtom215/doipub/internal/metrics"
	"github.com/tomtom215/doipub/internal/models"
	"github.com/tomtom215/doipub/internal/retry"
)

// Source labels bulk publish metrics.
const Source = "forest3d"

// Entry statuses.
const (
	StatusPublished = "published"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

// Registrar is the DataCite subset the publisher needs.
type Registrar interface {
	Exists(ctx context.Context, doi string) (bool, error)
	PublishOrUpdate(ctx context.Context, doi string, ds *models.Dataset, landingURL string) datacite.Result
}

// EntryResult is the outcome for one catalogue entry.
type EntryResult struct {
	Index      int                    `json:"index"`
	DOI        string                 `json:"doi,omitempty"`
	Name       string                 `json:"name,omitempty"`
	Status     string                 `json:"status"`
	StatusCode int                    `json:"status_code,omitempty"`
	Message    string                 `json:"message,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Attempts   int                    `json:"attempts,omitempty"`
	Registrar  datacite.Result        `json:"registrar,omitempty"`
	Dataset    map[string]interface{} `json:"dataset,omitempty"`
}

// Summary is the result of a bulk run.
type Summary struct {
	Total     int           `json:"total"`
	Published int           `json:"published"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration_ns"`
	Results   []EntryResult `json:"results"`
}

// Publisher runs bulk publications.
type Publisher struct {
	feed          *Feed
	registrar     Registrar
	landingPrefix string
	concurrency   int
	policy        retry.Policy
	audit         audit.Recorder
}

// NewPublisher creates a Publisher. landingPrefix is the catalogue site URL
// the dataset name is appended to. Each publish call runs under policy with
// the same retry rules as the single-dataset workflow. recorder may be nil.
func NewPublisher(feed *Feed, registrar Registrar, landingPrefix string, concurrency int, policy retry.Policy, recorder audit.Recorder) *Publisher {
	if concurrency < 1 {
		concurrency = 1
	}
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &Publisher{
		feed:          feed,
		registrar:     registrar,
		landingPrefix: strings.TrimSuffix(landingPrefix, "/"),
		concurrency:   concurrency,
		policy:        policy,
		audit:         recorder,
	}
}

// PublishBulk downloads the catalogue and publishes every new DOI. The error
// is non-nil only when the catalogue itself cannot be used.
func (p *Publisher) PublishBulk(ctx context.Context, actor string) (*Summary, error) {
	start := time.Now()
	entries, err := p.feed.Download(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]EntryResult, len(entries))
	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, entry := range entries {
		g.Go(func() error {
			results[i] = p.publishEntry(ctx, i, entry)
			return nil
		})
	}
	_ = g.Wait()

	s := &Summary{Total: len(entries), Results: results, Duration: time.Since(start)}
	for _, r := range results {
		switch r.Status {
		case StatusPublished:
			s.Published++
		case StatusSkipped:
			s.Skipped++
		default:
			s.Failed++
		}
		metrics.RecordBulkPublish(Source, r.Status)
	}

	outcome := audit.OutcomeSuccess
	if s.Failed > 0 {
		outcome = audit.OutcomeFailure
	}
	meta, _ := json.Marshal(map[string]int{"published": s.Published, "skipped": s.Skipped, "failed": s.Failed})
	p.audit.Record(ctx, audit.Event{
		Type:        audit.EventBulkPublish,
		Outcome:     outcome,
		Actor:       actor,
		ActorRole:   models.RoleAdmin,
		Description: fmt.Sprintf("forest3d bulk publish of %d entries", s.Total),
		Metadata:    meta,
	})

	logging.Ctx(ctx).Info().Int("total", s.Total).Int("published", s.Published).
		Int("skipped", s.Skipped).Int("failed", s.Failed).Dur("duration", s.Duration).
		Msg("Forest3D bulk publish finished")
	return s, nil
}

func (p *Publisher) publishEntry(ctx context.Context, index int, entry map[string]interface{}) EntryResult {
	res := EntryResult{Index: index}
	doi, _ := entry["doi"].(string)
	doi = strings.TrimSpace(doi)
	if doi == "" {
		res.Status = StatusFailed
		res.StatusCode = http.StatusBadRequest
		res.Error = "Missing 'doi' field"
		res.Dataset = entry
		return res
	}
	res.DOI = doi

	exists, err := p.registrar.Exists(ctx, doi)
	if err != nil {
		res.Status = StatusFailed
		res.StatusCode = http.StatusBadGateway
		res.Error = err.Error()
		return res
	}
	if exists {
		res.Status = StatusSkipped
		res.StatusCode = http.StatusOK
		res.Message = "DOI already registered with DataCite"
		return res
	}

	ds, err := PrepareDataset(entry)
	if err != nil {
		res.Status = StatusFailed
		res.StatusCode = http.StatusRequestTimeout
		res.Error = err.Error()
		return res
	}
	res.Name = ds.Name

	landingURL := fmt.Sprintf("%s/%s?mode=forest3d", p.landingPrefix, ds.Name)
	result, attempts, _ := retry.Run(ctx, p.policy, func(ctx context.Context, attempt int) (datacite.Result, retry.Decision) {
		r := p.registrar.PublishOrUpdate(ctx, doi, ds, landingURL)
		f, failed := r.(datacite.Failure)
		switch {
		case !failed:
			return r, retry.Done
		case !f.Retryable():
			return r, retry.Stop
		}
		logging.Ctx(ctx).Debug().Str("doi", doi).Int("attempt", attempt).Int("status", f.Status).
			Msg("Forest3D publish attempt failed")
		return r, retry.Again
	})
	metrics.RecordRegistrarAttempts(datacite.OpPublish, attempts)
	res.Attempts = attempts
	res.Registrar = result
	res.StatusCode = result.StatusCode()
	if f, failed := result.(datacite.Failure); failed {
		res.Status = StatusFailed
		res.Error = f.Message()
		logging.Ctx(ctx).Warn().Str("doi", doi).Int("status", f.Status).Int("attempts", attempts).Str("error", f.Message()).
			Msg("Forest3D entry failed to publish")
		return res
	}
	res.Status = StatusPublished
	return res
}

// jsonStringFields are stored by CKAN as serialized JSON. Catalogue entries
// may carry them as structured values.
var jsonStringFields = []string{"author", "maintainer", "publication", "funding", "date", "spatial"}

// PrepareDataset turns a catalogue entry into a dataset. The entry must have
// a name; its id defaults to the name.
func PrepareDataset(entry map[string]interface{}) (*models.Dataset, error) {
	name, _ := entry["name"].(string)
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("dataset does not have a 'name' field")
	}

	raw := make(map[string]interface{}, len(entry)+1)
	for k, v := range entry {
		raw[k] = v
	}
	if id, _ := raw["id"].(string); id == "" {
		raw["id"] = name
	}
	for _, field := range jsonStringFields {
		v, ok := raw[field]
		if !ok || v == nil {
			continue
		}
		if _, isString := v.(string); isString {
			continue
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", field, err)
		}
		raw[field] = string(b)
	}
	return models.ParseDataset(raw)
}
