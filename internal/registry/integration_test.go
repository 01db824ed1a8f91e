// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

//go:build integration

package registry

import (
	"context"
	"database/sql"
	"testing"

	"github.com/tomtom215/doipub/internal/testinfra"
)

func TestDuckDBStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		s, err := OpenDuckDB(context.Background(), "")
		if err != nil {
			t.Fatalf("OpenDuckDB() error = %v", err)
		}
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestPostgresStore(t *testing.T) {
	pg := testinfra.NewPostgresContainer(t)

	runStoreSuite(t, func(t *testing.T) Store {
		ctx := context.Background()
		s, err := OpenPostgres(ctx, pg.DSN, 4)
		if err != nil {
			t.Fatalf("OpenPostgres() error = %v", err)
		}
		t.Cleanup(func() { _ = s.Close() })
		truncate(t, s.db)
		return s
	})
}

// truncate gives each subtest an empty registry on the shared container.
func truncate(t *testing.T, db *sql.DB) {
	t.Helper()
	if _, err := db.Exec(`TRUNCATE doi_realisation, doi_prefix RESTART IDENTITY`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
}
