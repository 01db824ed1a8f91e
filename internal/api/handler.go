// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

package api

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/doipub/internal/audit"
	"github.com/tomtom215/doipub/internal/externaldoi"
	"github.com/tomtom215/doipub/internal/forest3d"
	"github.com/tomtom215/doipub/internal/models"
	"github.com/tomtom215/doipub/internal/registry"
	"github.com/tomtom215/doipub/internal/workflow"
)

// Workflow runs the DOI lifecycle. Implemented by *workflow.Orchestrator.
type Workflow interface {
	MintReserve(ctx context.Context, subjectID string, caller *models.Caller) (*workflow.Outcome, error)
	RequestApproval(ctx context.Context, subjectID string, caller *models.Caller) (*workflow.Outcome, error)
	Publish(ctx context.Context, subjectID string, caller *models.Caller) (*workflow.Outcome, error)
}

// AuditReader queries the audit trail. Implemented by *audit.Logger.
type AuditReader interface {
	Query(ctx context.Context, filter audit.QueryFilter) ([]audit.Event, error)
	Count(ctx context.Context, filter audit.QueryFilter) (int64, error)
}

// ExternalConverter converts external DOIs. Implemented by *externaldoi.Converter.
type ExternalConverter interface {
	Convert(ctx context.Context, doi string, opts externaldoi.Options) (*externaldoi.Conversion, error)
}

// BulkPublisher publishes the Forest3D catalogue. Implemented by *forest3d.Publisher.
type BulkPublisher interface {
	PublishBulk(ctx context.Context, actor string) (*forest3d.Summary, error)
}

// ReadinessCheck is one named dependency probe for /health/ready.
type ReadinessCheck struct {
	Name string
	// Required checks fail readiness; the others are only reported.
	Required bool
	Check    func(ctx context.Context) error
}

// HandlerDeps are the collaborators of a Handler. Audit, AuditReader,
// Converter and Forest3D may be nil; their routes then answer 503.
type HandlerDeps struct {
	Workflow    Workflow
	Registry    registry.Store
	Audit       audit.Recorder
	AuditReader AuditReader
	Converter   ExternalConverter
	Forest3D    BulkPublisher
	Readiness   []ReadinessCheck
	Version     string
}

// Handler implements the HTTP endpoints.
type Handler struct {
	workflow    Workflow
	registry    registry.Store
	audit       audit.Recorder
	auditReader AuditReader
	converter   ExternalConverter
	forest3d    BulkPublisher
	readiness   []ReadinessCheck
	version     string
	startTime   time.Time
}

// NewHandler validates deps and returns a Handler.
func NewHandler(deps HandlerDeps) (*Handler, error) {
	if deps.Workflow == nil {
		return nil, errors.New("api: workflow is required")
	}
	if deps.Registry == nil {
		return nil, errors.New("api: registry is required")
	}
	if deps.Audit == nil {
		deps.Audit = audit.Nop{}
	}
	return &Handler{
		workflow:    deps.Workflow,
		registry:    deps.Registry,
		audit:       deps.Audit,
		auditReader: deps.AuditReader,
		converter:   deps.Converter,
		forest3d:    deps.Forest3D,
		readiness:   deps.Readiness,
		version:     deps.Version,
		startTime:   time.Now(),
	}, nil
}
