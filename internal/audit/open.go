// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

package audit

import (
	"context"
	"fmt"

	"github.com/tomtom215/doipub/internal/config"
	"github.com/tomtom215/doipub/internal/logging"
)

// Open builds the audit store selected by cfg. It returns nil when auditing
// is disabled.
func Open(ctx context.Context, cfg config.AuditConfig) (Store, error) {
	if !cfg.Enabled {
		logging.Info().Msg("Audit trail disabled")
		return nil, nil
	}
	switch cfg.Driver {
	case "memory":
		return NewMemoryStore(0), nil
	case "duckdb":
		return OpenDuckDB(ctx, cfg.Path)
	default:
		return nil, fmt.Errorf("unknown audit driver %q", cfg.Driver)
	}
}
