// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

// Package registry stores minted DOI records and the registrant prefixes
// they are minted under.
//
// Three implementations share the Store interface: MemoryStore for tests and
// development, DuckDBStore for single-node deployments and PostgresStore for
// production. Open selects one from configuration.
//
// The store enforces (prefix, suffix) uniqueness. Create reports a duplicate
// as an apperr CONFLICT, which Mint uses to retry allocation when two mints
// race for the same suffix.
package registry

import (
	"context"

	"github.com/tomtom215/doipub/internal/models"
)

// ListFilter narrows List results. Zero values match everything.
type ListFilter struct {
	Prefix    string
	SubjectID string
	Limit     int
	Offset    int
}

// DefaultListLimit applies when ListFilter.Limit is zero.
const DefaultListLimit = 100

// Store is the DOI registry.
type Store interface {
	// FindByPrefixSuffix returns NOT_FOUND when no record exists.
	FindByPrefixSuffix(ctx context.Context, prefix, suffix string) (*models.DoiRecord, error)

	// FindBySubject returns the most recent record minted for a dataset, or NOT_FOUND.
	FindBySubject(ctx context.Context, subjectID string) (*models.DoiRecord, error)

	// NextSuffixNumber returns one more than the largest numeric tail among
	// suffixes under prefix that start with tag, or 1 if there are none.
	NextSuffixNumber(ctx context.Context, prefix, tag string) (int, error)

	// Create inserts a record and returns it with ID and timestamps set.
	Create(ctx context.Context, rec *models.DoiRecord) (*models.DoiRecord, error)

	// UpdateMetadata replaces the metadata snapshot and bumps ModifiedAt.
	UpdateMetadata(ctx context.Context, prefix, suffix, metadata string) error

	// Delete removes a record and returns the number of rows removed (0 or 1).
	Delete(ctx context.Context, prefix, suffix string) (int64, error)

	List(ctx context.Context, filter ListFilter) ([]models.DoiRecord, error)

	ListPrefixes(ctx context.Context) ([]models.DoiPrefix, error)
	GetPrefix(ctx context.Context, prefix string) (*models.DoiPrefix, error)
	CreatePrefix(ctx context.Context, p *models.DoiPrefix) (*models.DoiPrefix, error)
	DeletePrefix(ctx context.Context, prefix string) (int64, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
	Close() error
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}
