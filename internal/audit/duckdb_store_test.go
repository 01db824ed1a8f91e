// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

//go:build integration

package audit

import (
	"context"
	"testing"
)

func TestDuckDBStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		s, err := OpenDuckDB(context.Background(), "")
		if err != nil {
			t.Fatalf("OpenDuckDB: %v", err)
		}
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}
