// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

package services

import (
	"context"
	"time"

	"github.com/tomtom215/doipub/internal/logging"
	"github.com/tomtom215/doipub/internal/metrics"
)

// Pruner deletes audit events older than a retention window. Implemented by
// *audit.Logger.
type Pruner interface {
	Prune(ctx context.Context, retention time.Duration) (int64, error)
}

// AuditRetentionService prunes the audit trail on a fixed interval.
//
// A failed prune is logged and retried on the next tick; it never stops the
// service, so the supervisor only restarts it after a panic.
type AuditRetentionService struct {
	pruner    Pruner
	retention time.Duration
	interval  time.Duration
	name      string
}

// NewAuditRetentionService creates the service. A non-positive interval
// means one hour.
func NewAuditRetentionService(pruner Pruner, retention, interval time.Duration) *AuditRetentionService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &AuditRetentionService{
		pruner:    pruner,
		retention: retention,
		interval:  interval,
		name:      "audit-retention",
	}
}

// Serve implements suture.Service. It prunes once at start, then every
// interval until ctx is canceled.
func (s *AuditRetentionService) Serve(ctx context.Context) error {
	s.prune(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.prune(ctx)
		}
	}
}

func (s *AuditRetentionService) prune(ctx context.Context) {
	count, err := s.pruner.Prune(ctx, s.retention)
	if err != nil {
		if ctx.Err() == nil {
			logging.Warn().Err(err).Dur("retention", s.retention).Msg("Audit retention prune failed")
		}
		return
	}
	metrics.RecordAuditPruned(count)
}

// String implements fmt.Stringer for supervisor logs.
func (s *AuditRetentionService) String() string {
	return s.name
}
