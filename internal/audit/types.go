// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

// Package audit records every DOI workflow transition attempt.
//
// Events are written asynchronously and best-effort: a failing store never
// fails the transition that produced the event.
package audit

import (
	"context"
	"time"

	"github.com/goccy/go-json"
)

// EventType names the operation an event records.
type EventType string

const (
	EventMintReserve     EventType = "doi.mint_reserve"
	EventRequestApproval EventType = "doi.request_approval"
	EventPublish         EventType = "doi.publish"
	EventRecordCreated   EventType = "doi.record_created"
	EventRecordDeleted   EventType = "doi.record_deleted"
	EventPrefixCreated   EventType = "prefix.created"
	EventPrefixDeleted   EventType = "prefix.deleted"
	EventBulkPublish     EventType = "forest3d.publish"
)

// Outcome is the result of the recorded operation.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	// OutcomeRejected is a precondition failure: nothing was changed upstream.
	OutcomeRejected Outcome = "rejected"
)

// Event is one audited transition attempt.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Outcome   Outcome   `json:"outcome"`

	// Actor is the CKAN user name, "system" for background work.
	Actor     string `json:"actor"`
	ActorRole string `json:"actor_role,omitempty"`

	SubjectID string `json:"subject_id,omitempty"`
	DOI       string `json:"doi,omitempty"`
	FromState string `json:"from_state,omitempty"`
	ToState   string `json:"to_state,omitempty"`

	// Status is the HTTP-equivalent status of the outcome.
	Status int `json:"status,omitempty"`

	// Attempts is the number of registrar calls made.
	Attempts int `json:"attempts,omitempty"`

	Description string          `json:"description,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`

	CorrelationID string `json:"correlation_id,omitempty"`
	RequestID     string `json:"request_id,omitempty"`
}

// SystemActor labels events not caused by a request.
const SystemActor = "system"

// Store persists audit events.
type Store interface {
	Save(ctx context.Context, event *Event) error
	Query(ctx context.Context, filter QueryFilter) ([]Event, error)
	Count(ctx context.Context, filter QueryFilter) (int64, error)

	// Delete removes events older than the cutoff.
	Delete(ctx context.Context, olderThan time.Time) (int64, error)
	Close() error
}

// QueryFilter selects events. Zero values match everything.
type QueryFilter struct {
	SubjectID string      `json:"subject_id,omitempty"`
	DOI       string      `json:"doi,omitempty"`
	Actor     string      `json:"actor,omitempty"`
	Types     []EventType `json:"types,omitempty"`
	Outcomes  []Outcome   `json:"outcomes,omitempty"`
	StartTime *time.Time  `json:"start_time,omitempty"`
	EndTime   *time.Time  `json:"end_time,omitempty"`
	Limit     int         `json:"limit,omitempty"`
	Offset    int         `json:"offset,omitempty"`
}

// DefaultQueryLimit applies when a filter has no limit.
const DefaultQueryLimit = 100

func (f QueryFilter) limit() int {
	if f.Limit <= 0 {
		return DefaultQueryLimit
	}
	if f.Limit > 1000 {
		return 1000
	}
	return f.Limit
}
