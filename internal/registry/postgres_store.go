// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/tomtom215/doipub/internal/logging"
)

// uniqueViolation is the Postgres SQLSTATE for a unique constraint violation.
const uniqueViolation = "23505"

// PostgresStore is a Store backed by PostgreSQL through lib/pq.
type PostgresStore struct {
	sqlStore
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS doi_realisation (
		doi_pk BIGSERIAL PRIMARY KEY,
		prefix_id VARCHAR(64) NOT NULL,
		suffix_id VARCHAR(64) NOT NULL,
		ckan_id VARCHAR(64) NOT NULL,
		ckan_name VARCHAR(256) NOT NULL,
		site_id VARCHAR(64) NOT NULL,
		tag_id VARCHAR(64) NOT NULL,
		ckan_user VARCHAR(256) NOT NULL,
		metadata TEXT,
		metadata_format VARCHAR(64) NOT NULL,
		ckan_entity VARCHAR(16) NOT NULL,
		date_created TIMESTAMPTZ NOT NULL,
		date_modified TIMESTAMPTZ NOT NULL,
		CONSTRAINT doi_realisation_prefix_suffix_key UNIQUE (prefix_id, suffix_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_doi_realisation_ckan_id ON doi_realisation(ckan_id)`,
	`CREATE TABLE IF NOT EXISTS doi_prefix (
		prefix_pk BIGSERIAL PRIMARY KEY,
		prefix_id VARCHAR(64) NOT NULL UNIQUE,
		description VARCHAR(256)
	)`,
}

// NewPostgresStore wraps an open Postgres handle. Call CreateSchema before use.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{sqlStore: newSQLStore(db, "postgres", sq.Dollar, isPostgresUniqueError)}
}

// OpenPostgres connects to dsn, verifies the connection and ensures the schema.
func OpenPostgres(ctx context.Context, dsn string, maxOpenConns int) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
		db.SetMaxIdleConns(maxOpenConns)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	s := NewPostgresStore(db)
	if err := s.CreateSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// CreateSchema creates the registry tables if they do not exist.
func (s *PostgresStore) CreateSchema(ctx context.Context) error {
	if err := createSchema(ctx, s.db, postgresSchema); err != nil {
		return err
	}
	logging.Info().Msg("DOI registry tables created/verified (postgres)")
	return nil
}

func isPostgresUniqueError(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
