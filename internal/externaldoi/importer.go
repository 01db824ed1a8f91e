// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

package externaldoi

import (
	"context"
	"time"

	"github.com/tomtom215/doipub/internal/logging"
	"github.com/tomtom215/doipub/internal/metrics"
	"github.com/tomtom215/doipub/internal/models"
)

// PackageCreator creates CKAN packages. Implemented by *ckan.Client.
type PackageCreator interface {
	CreatePackage(ctx context.Context, pkg map[string]interface{}, credential string) (*models.Dataset, error)
}

// ImportResult is the outcome for one DOI.
type ImportResult struct {
	DOI     string `json:"doi"`
	Name    string `json:"name,omitempty"`
	Created bool   `json:"created"`
	Error   string `json:"error,omitempty"`
}

// ImportStats summarizes an import run.
type ImportStats struct {
	Total     int            `json:"total"`
	Created   int            `json:"created"`
	Failed    int            `json:"failed"`
	StartTime time.Time      `json:"start_time"`
	EndTime   time.Time      `json:"end_time"`
	Results   []ImportResult `json:"results"`
}

// Duration returns how long the import ran.
func (s *ImportStats) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

// Importer converts external DOIs and creates a CKAN package for each.
type Importer struct {
	converter *Converter
	creator   PackageCreator
}

// NewImporter creates an Importer.
func NewImporter(converter *Converter, creator PackageCreator) *Importer {
	return &Importer{converter: converter, creator: creator}
}

// Import processes dois in order. A failure is recorded and the run moves on
// to the next DOI; only cancellation stops it early.
func (i *Importer) Import(ctx context.Context, dois []string, opts Options, credential string) *ImportStats {
	stats := &ImportStats{Total: len(dois), StartTime: time.Now(), Results: make([]ImportResult, 0, len(dois))}
	log := logging.WithComponent("zenodo-import")
	log.Info().Int("dois", len(dois)).Str("owner_org", opts.OwnerOrg).Msg("Starting external DOI import")

	for n, doi := range dois {
		if err := ctx.Err(); err != nil {
			log.Warn().Err(err).Int("processed", n).Msg("Import cancelled")
			break
		}

		res := i.importOne(ctx, doi, opts, credential)
		stats.Results = append(stats.Results, res)
		if res.Created {
			stats.Created++
			metrics.RecordBulkPublish("zenodo-import", "published")
			log.Info().Int("n", n+1).Str("doi", doi).Str("name", res.Name).Msg("Created CKAN package")
		} else {
			stats.Failed++
			metrics.RecordBulkPublish("zenodo-import", "failed")
			log.Error().Int("n", n+1).Str("doi", doi).Str("name", res.Name).Str("error", res.Error).Msg("Failed to import DOI")
		}
	}

	stats.EndTime = time.Now()
	log.Info().Int("created", stats.Created).Int("failed", stats.Failed).
		Dur("duration", stats.Duration()).Msg("External DOI import finished")
	return stats
}

func (i *Importer) importOne(ctx context.Context, doi string, opts Options, credential string) ImportResult {
	res := ImportResult{DOI: doi}
	conv, err := i.converter.Convert(ctx, doi, opts)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Name, _ = conv.Package["name"].(string)

	if _, err := i.creator.CreatePackage(ctx, conv.Package, credential); err != nil {
		res.Error = err.Error()
		return res
	}
	res.Created = true
	return res
}
