// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/tomtom215/doipub/internal/apperr"
	"github.com/tomtom215/doipub/internal/audit"
)

// AuditEvents handles GET /api/v1/audit.
//
// Query parameters: subject, doi, actor, type and outcome (comma-separated),
// start and end (RFC3339), limit and offset.
func (h *Handler) AuditEvents(w http.ResponseWriter, r *http.Request) {
	if h.auditReader == nil {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeUnavailable, "Audit trail is disabled", nil)
		return
	}

	filter, err := parseAuditFilter(r)
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	events, err := h.auditReader.Query(r.Context(), filter)
	if err != nil {
		respondAppError(w, r, apperr.Wrap(err, apperr.KindInternal, "failed to query audit events"))
		return
	}
	total, err := h.auditReader.Count(r.Context(), filter)
	if err != nil {
		respondAppError(w, r, apperr.Wrap(err, apperr.KindInternal, "failed to count audit events"))
		return
	}
	if events == nil {
		events = []audit.Event{}
	}

	respondJSON(w, r, http.StatusOK, map[string]interface{}{
		"items":  events,
		"total":  total,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

func parseAuditFilter(r *http.Request) (audit.QueryFilter, error) {
	q := r.URL.Query()
	limit, offset, err := pagination(r)
	if err != nil {
		return audit.QueryFilter{}, err
	}
	filter := audit.QueryFilter{
		SubjectID: q.Get("subject"),
		DOI:       q.Get("doi"),
		Actor:     q.Get("actor"),
		Limit:     limit,
		Offset:    offset,
	}
	for _, t := range splitList(q.Get("type")) {
		filter.Types = append(filter.Types, audit.EventType(t))
	}
	for _, o := range splitList(q.Get("outcome")) {
		filter.Outcomes = append(filter.Outcomes, audit.Outcome(o))
	}
	if filter.StartTime, err = parseTime(q.Get("start"), "start"); err != nil {
		return filter, err
	}
	if filter.EndTime, err = parseTime(q.Get("end"), "end"); err != nil {
		return filter, err
	}
	return filter, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseTime(s, name string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, apperr.Validation("%s must be an RFC3339 timestamp", name)
	}
	return &t, nil
}
