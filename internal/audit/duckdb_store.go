// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/duckdb/duckdb-go/v2" // registers the duckdb driver

	"github.com/tomtom215/doipub/internal/logging"
)

const eventsTable = "audit_events"

var eventColumns = []string{
	"id", "timestamp", "event_type", "outcome", "actor", "actor_role",
	"subject_id", "doi", "from_state", "to_state", "status", "attempts",
	"description", "metadata", "correlation_id", "request_id",
}

// DuckDBStore persists audit events in DuckDB.
type DuckDBStore struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

// NewDuckDBStore wraps an open DuckDB handle. Call CreateTable before use.
func NewDuckDBStore(db *sql.DB) *DuckDBStore {
	return &DuckDBStore{db: db, sb: sq.StatementBuilder.PlaceholderFormat(sq.Question)}
}

// OpenDuckDB opens the audit database at path. An empty path is in-memory.
func OpenDuckDB(ctx context.Context, path string) (*DuckDBStore, error) {
	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("duckdb", dsn+"?autoinstall_known_extensions=false&autoload_known_extensions=false")
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := NewDuckDBStore(db)
	if err := s.CreateTable(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// CreateTable creates the audit_events table and its indexes.
func (s *DuckDBStore) CreateTable(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS audit_events (
			id VARCHAR PRIMARY KEY,
			timestamp TIMESTAMPTZ NOT NULL,
			event_type VARCHAR NOT NULL,
			outcome VARCHAR NOT NULL,
			actor VARCHAR NOT NULL,
			actor_role VARCHAR,
			subject_id VARCHAR,
			doi VARCHAR,
			from_state VARCHAR,
			to_state VARCHAR,
			status INTEGER,
			attempts INTEGER,
			description VARCHAR,
			metadata VARCHAR,
			correlation_id VARCHAR,
			request_id VARCHAR
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_events(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_subject ON audit_events(subject_id)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_doi ON audit_events(doi)`,
	}
	for _, stmt := range ddl {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create audit table: %w", err)
		}
	}
	logging.Info().Msg("Audit events table created/verified")
	return nil
}

// Save implements Store.
func (s *DuckDBStore) Save(ctx context.Context, e *Event) error {
	var metadata interface{}
	if len(e.Metadata) > 0 {
		metadata = string(e.Metadata)
	}
	query, args, err := s.sb.Insert(eventsTable).Columns(eventColumns...).
		Values(e.ID, e.Timestamp, string(e.Type), string(e.Outcome), e.Actor, e.ActorRole,
			e.SubjectID, e.DOI, e.FromState, e.ToState, e.Status, e.Attempts,
			e.Description, metadata, e.CorrelationID, e.RequestID).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build audit insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save audit event: %w", err)
	}
	return nil
}

func applyFilter(b sq.SelectBuilder, f QueryFilter) sq.SelectBuilder {
	if f.SubjectID != "" {
		b = b.Where(sq.Eq{"subject_id": f.SubjectID})
	}
	if f.DOI != "" {
		b = b.Where(sq.Eq{"doi": f.DOI})
	}
	if f.Actor != "" {
		b = b.Where(sq.Eq{"actor": f.Actor})
	}
	if len(f.Types) > 0 {
		types := make([]string, len(f.Types))
		for i, t := range f.Types {
			types[i] = string(t)
		}
		b = b.Where(sq.Eq{"event_type": types})
	}
	if len(f.Outcomes) > 0 {
		outcomes := make([]string, len(f.Outcomes))
		for i, o := range f.Outcomes {
			outcomes[i] = string(o)
		}
		b = b.Where(sq.Eq{"outcome": outcomes})
	}
	if f.StartTime != nil {
		b = b.Where(sq.GtOrEq{"timestamp": *f.StartTime})
	}
	if f.EndTime != nil {
		b = b.Where(sq.LtOrEq{"timestamp": *f.EndTime})
	}
	return b
}

// Query implements Store. Results are newest first.
func (s *DuckDBStore) Query(ctx context.Context, f QueryFilter) ([]Event, error) {
	b := applyFilter(s.sb.Select(eventColumns...).From(eventsTable), f).
		OrderBy("timestamp DESC").
		Limit(uint64(f.limit()))
	if f.Offset > 0 {
		b = b.Offset(uint64(f.Offset))
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build audit query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer rows.Close()

	events := make([]Event, 0)
	for rows.Next() {
		var e Event
		var eventType, outcome string
		var role, subject, doi, from, to, desc, metadata, corrID, reqID sql.NullString
		var status, attempts sql.NullInt64
		if err := rows.Scan(&e.ID, &e.Timestamp, &eventType, &outcome, &e.Actor, &role,
			&subject, &doi, &from, &to, &status, &attempts,
			&desc, &metadata, &corrID, &reqID); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		e.Type = EventType(eventType)
		e.Outcome = Outcome(outcome)
		e.ActorRole = role.String
		e.SubjectID = subject.String
		e.DOI = doi.String
		e.FromState = from.String
		e.ToState = to.String
		e.Status = int(status.Int64)
		e.Attempts = int(attempts.Int64)
		e.Description = desc.String
		if metadata.Valid && metadata.String != "" {
			e.Metadata = []byte(metadata.String)
		}
		e.CorrelationID = corrID.String
		e.RequestID = reqID.String
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit events: %w", err)
	}
	return events, nil
}

// Count implements Store.
func (s *DuckDBStore) Count(ctx context.Context, f QueryFilter) (int64, error) {
	query, args, err := applyFilter(s.sb.Select("COUNT(*)").From(eventsTable), f).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build audit count: %w", err)
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count audit events: %w", err)
	}
	return n, nil
}

// Delete implements Store.
func (s *DuckDBStore) Delete(ctx context.Context, olderThan time.Time) (int64, error) {
	query, args, err := s.sb.Delete(eventsTable).Where(sq.Lt{"timestamp": olderThan}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build audit delete: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete audit events: %w", err)
	}
	return res.RowsAffected()
}

// Close implements Store.
func (s *DuckDBStore) Close() error {
	return s.db.Close()
}
