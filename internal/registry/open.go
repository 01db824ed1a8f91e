// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

package registry

import (
	"context"
	"fmt"

	"github.com/tomtom215/doipub/internal/config"
	"github.com/tomtom215/doipub/internal/logging"
)

// Open builds the Store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.RegistryConfig) (Store, error) {
	logging.Info().Str("driver", cfg.Driver).Msg("Opening DOI registry")

	switch cfg.Driver {
	case "memory":
		logging.Warn().Msg("Using in-memory DOI registry; minted records will not survive a restart")
		return NewMemoryStore(), nil
	case "duckdb":
		return OpenDuckDB(ctx, cfg.Path)
	case "postgres":
		return OpenPostgres(ctx, cfg.DSN, cfg.MaxOpenConns)
	default:
		return nil, fmt.Errorf("unknown registry driver %q", cfg.Driver)
	}
}
