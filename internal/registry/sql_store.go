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
	"time"
	"unicode/utf8"

	sq "github.com/Masterminds/squirrel"

	"github.com/tomtom215/doipub/internal/apperr"
	"github.com/tomtom215/doipub/internal/models"
)

const (
	recordTable = "doi_realisation"
	prefixTable = "doi_prefix"
)

var recordColumns = []string{
	"doi_pk", "prefix_id", "suffix_id", "ckan_id", "ckan_name", "site_id", "tag_id",
	"ckan_user", "metadata", "metadata_format", "ckan_entity", "date_created", "date_modified",
}

// sqlStore implements Store over database/sql. The DuckDB and Postgres stores
// differ only in schema, placeholder format and unique-violation detection.
type sqlStore struct {
	db       *sql.DB
	driver   string
	sb       sq.StatementBuilderType
	isUnique func(error) bool
	now      func() time.Time
}

func newSQLStore(db *sql.DB, driver string, format sq.PlaceholderFormat, isUnique func(error) bool) sqlStore {
	return sqlStore{
		db:       db,
		driver:   driver,
		sb:       sq.StatementBuilder.PlaceholderFormat(format),
		isUnique: isUnique,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*models.DoiRecord, error) {
	var r models.DoiRecord
	var entity string
	var metadata sql.NullString
	if err := row.Scan(&r.ID, &r.Prefix, &r.Suffix, &r.SubjectID, &r.SubjectName, &r.OriginSite, &r.Tag,
		&r.Creator, &metadata, &r.MetadataFormat, &entity, &r.CreatedAt, &r.ModifiedAt); err != nil {
		return nil, err
	}
	r.Metadata = metadata.String
	r.EntityKind = models.EntityKind(entity)
	return &r, nil
}

func (s *sqlStore) findOne(ctx context.Context, op string, where sq.Sqlizer, notFound *apperr.Error) (*models.DoiRecord, error) {
	start := time.Now()
	query, args, err := s.sb.Select(recordColumns...).From(recordTable).Where(where).
		OrderBy("doi_pk DESC").Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build %s query: %w", op, err)
	}

	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		observe(s.driver, op, start, nil)
		return nil, notFound
	}
	observe(s.driver, op, start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", recordTable, err)
	}
	return rec, nil
}

func (s *sqlStore) FindByPrefixSuffix(ctx context.Context, prefix, suffix string) (*models.DoiRecord, error) {
	return s.findOne(ctx, "find", sq.Eq{"prefix_id": prefix, "suffix_id": suffix},
		apperr.NotFound("DOI %s/%s not found", prefix, suffix))
}

func (s *sqlStore) FindBySubject(ctx context.Context, subjectID string) (*models.DoiRecord, error) {
	return s.findOne(ctx, "find_subject", sq.Eq{"ckan_id": subjectID},
		apperr.NotFound("no DOI minted for dataset %s", subjectID))
}

func (s *sqlStore) NextSuffixNumber(ctx context.Context, prefix, tag string) (int, error) {
	start := time.Now()
	query, args, err := s.sb.Select("suffix_id").From(recordTable).
		Where(sq.Eq{"prefix_id": prefix}).
		Where(sq.Expr("LEFT(suffix_id, ?) = ?", utf8.RuneCountInString(tag), tag)).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build suffix query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		observe(s.driver, "next_suffix", start, err)
		return 0, fmt.Errorf("failed to query suffixes: %w", err)
	}
	defer rows.Close()

	var suffixes []string
	for rows.Next() {
		var suffix string
		if err := rows.Scan(&suffix); err != nil {
			return 0, fmt.Errorf("failed to scan suffix: %w", err)
		}
		suffixes = append(suffixes, suffix)
	}
	err = rows.Err()
	observe(s.driver, "next_suffix", start, err)
	if err != nil {
		return 0, fmt.Errorf("error iterating suffixes: %w", err)
	}
	return NextFromSuffixes(suffixes, tag), nil
}

func (s *sqlStore) Create(ctx context.Context, rec *models.DoiRecord) (*models.DoiRecord, error) {
	start := time.Now()
	out := *rec
	out.ApplyDefaults()
	out.CreatedAt = s.now()
	out.ModifiedAt = out.CreatedAt

	query, args, err := s.sb.Insert(recordTable).
		Columns(recordColumns[1:]...).
		Values(out.Prefix, out.Suffix, out.SubjectID, out.SubjectName, out.OriginSite, out.Tag,
			out.Creator, out.Metadata, out.MetadataFormat, string(out.EntityKind), out.CreatedAt, out.ModifiedAt).
		Suffix("RETURNING doi_pk").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build insert: %w", err)
	}

	err = s.db.QueryRowContext(ctx, query, args...).Scan(&out.ID)
	if err != nil && s.isUnique(err) {
		conflict := apperr.Wrap(err, apperr.KindConflict, fmt.Sprintf("DOI %s already exists", out.DOI()))
		observe(s.driver, "create", start, conflict)
		return nil, conflict
	}
	observe(s.driver, "create", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to insert DOI record: %w", err)
	}
	return &out, nil
}

func (s *sqlStore) UpdateMetadata(ctx context.Context, prefix, suffix, metadata string) error {
	start := time.Now()
	query, args, err := s.sb.Update(recordTable).
		Set("metadata", metadata).
		Set("date_modified", s.now()).
		Where(sq.Eq{"prefix_id": prefix, "suffix_id": suffix}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	observe(s.driver, "update_metadata", start, err)
	if err != nil {
		return fmt.Errorf("failed to update DOI metadata: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.NotFound("DOI %s/%s not found", prefix, suffix)
	}
	return nil
}

func (s *sqlStore) exec(ctx context.Context, op string, b sq.Sqlizer) (int64, error) {
	start := time.Now()
	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build %s: %w", op, err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	observe(s.driver, op, start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to %s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}

func (s *sqlStore) Delete(ctx context.Context, prefix, suffix string) (int64, error) {
	return s.exec(ctx, "delete", s.sb.Delete(recordTable).Where(sq.Eq{"prefix_id": prefix, "suffix_id": suffix}))
}

func (s *sqlStore) List(ctx context.Context, f ListFilter) ([]models.DoiRecord, error) {
	start := time.Now()
	b := s.sb.Select(recordColumns...).From(recordTable).OrderBy("doi_pk").
		Limit(uint64(normalizeLimit(f.Limit)))
	if f.Offset > 0 {
		b = b.Offset(uint64(f.Offset))
	}
	if f.Prefix != "" {
		b = b.Where(sq.Eq{"prefix_id": f.Prefix})
	}
	if f.SubjectID != "" {
		b = b.Where(sq.Eq{"ckan_id": f.SubjectID})
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		observe(s.driver, "list", start, err)
		return nil, fmt.Errorf("failed to list DOI records: %w", err)
	}
	defer rows.Close()

	out := []models.DoiRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan DOI record: %w", err)
		}
		out = append(out, *rec)
	}
	err = rows.Err()
	observe(s.driver, "list", start, err)
	if err != nil {
		return nil, fmt.Errorf("error iterating DOI records: %w", err)
	}
	return out, nil
}

func (s *sqlStore) ListPrefixes(ctx context.Context) ([]models.DoiPrefix, error) {
	query, args, err := s.sb.Select("prefix_pk", "prefix_id", "description").From(prefixTable).
		OrderBy("prefix_id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build prefix query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list prefixes: %w", err)
	}
	defer rows.Close()

	out := []models.DoiPrefix{}
	for rows.Next() {
		p, err := scanPrefix(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prefixes: %w", err)
	}
	return out, nil
}

func scanPrefix(row rowScanner) (*models.DoiPrefix, error) {
	var p models.DoiPrefix
	var desc sql.NullString
	if err := row.Scan(&p.ID, &p.Prefix, &desc); err != nil {
		return nil, err
	}
	p.Description = desc.String
	return &p, nil
}

func (s *sqlStore) GetPrefix(ctx context.Context, prefix string) (*models.DoiPrefix, error) {
	query, args, err := s.sb.Select("prefix_pk", "prefix_id", "description").From(prefixTable).
		Where(sq.Eq{"prefix_id": prefix}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build prefix query: %w", err)
	}
	p, err := scanPrefix(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("prefix %s not found", prefix)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get prefix: %w", err)
	}
	return p, nil
}

func (s *sqlStore) CreatePrefix(ctx context.Context, p *models.DoiPrefix) (*models.DoiPrefix, error) {
	query, args, err := s.sb.Insert(prefixTable).Columns("prefix_id", "description").
		Values(p.Prefix, p.Description).Suffix("RETURNING prefix_pk").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build prefix insert: %w", err)
	}
	out := *p
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&out.ID); err != nil {
		if s.isUnique(err) {
			return nil, apperr.Wrap(err, apperr.KindConflict, fmt.Sprintf("prefix %s already exists", p.Prefix))
		}
		return nil, fmt.Errorf("failed to insert prefix: %w", err)
	}
	return &out, nil
}

func (s *sqlStore) DeletePrefix(ctx context.Context, prefix string) (int64, error) {
	return s.exec(ctx, "delete_prefix", s.sb.Delete(prefixTable).Where(sq.Eq{"prefix_id": prefix}))
}

func (s *sqlStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}

// createSchema runs DDL statements in order.
func createSchema(ctx context.Context, db *sql.DB, ddl []string) error {
	for _, stmt := range ddl {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}
