// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

package registry

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/duckdb/duckdb-go/v2" // registers the duckdb driver

	"github.com/tomtom215/doipub/internal/logging"
)

// DuckDBStore is a Store backed by an embedded DuckDB database.
type DuckDBStore struct {
	sqlStore
}

var duckdbSchema = []string{
	`CREATE SEQUENCE IF NOT EXISTS doi_realisation_seq START 1`,
	`CREATE TABLE IF NOT EXISTS doi_realisation (
		doi_pk BIGINT PRIMARY KEY DEFAULT nextval('doi_realisation_seq'),
		prefix_id VARCHAR NOT NULL,
		suffix_id VARCHAR NOT NULL,
		ckan_id VARCHAR NOT NULL,
		ckan_name VARCHAR NOT NULL,
		site_id VARCHAR NOT NULL,
		tag_id VARCHAR NOT NULL,
		ckan_user VARCHAR NOT NULL,
		metadata VARCHAR,
		metadata_format VARCHAR NOT NULL,
		ckan_entity VARCHAR NOT NULL,
		date_created TIMESTAMPTZ NOT NULL,
		date_modified TIMESTAMPTZ NOT NULL,
		UNIQUE (prefix_id, suffix_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_doi_realisation_ckan_id ON doi_realisation(ckan_id)`,
	`CREATE SEQUENCE IF NOT EXISTS doi_prefix_seq START 1`,
	`CREATE TABLE IF NOT EXISTS doi_prefix (
		prefix_pk BIGINT PRIMARY KEY DEFAULT nextval('doi_prefix_seq'),
		prefix_id VARCHAR NOT NULL UNIQUE,
		description VARCHAR
	)`,
}

// NewDuckDBStore wraps an open DuckDB handle. Call CreateSchema before use.
func NewDuckDBStore(db *sql.DB) *DuckDBStore {
	return &DuckDBStore{sqlStore: newSQLStore(db, "duckdb", sq.Question, isDuckDBUniqueError)}
}

// OpenDuckDB opens (or creates) the database at path and ensures the schema.
// An empty path opens an in-memory database.
func OpenDuckDB(ctx context.Context, path string) (*DuckDBStore, error) {
	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("duckdb", dsn+"?autoinstall_known_extensions=false&autoload_known_extensions=false")
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}
	// DuckDB allows a single writer per process; one connection keeps
	// in-memory databases shared between calls.
	db.SetMaxOpenConns(1)

	s := NewDuckDBStore(db)
	if err := s.CreateSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// CreateSchema creates the registry tables if they do not exist.
func (s *DuckDBStore) CreateSchema(ctx context.Context) error {
	if err := createSchema(ctx, s.db, duckdbSchema); err != nil {
		return err
	}
	logging.Info().Msg("DOI registry tables created/verified (duckdb)")
	return nil
}

// isDuckDBUniqueError matches DuckDB constraint violations, which are only
// exposed through the error message.
func isDuckDBUniqueError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "constraint error")
}
