// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/doipub/internal/apperr"
	"github.com/tomtom215/doipub/internal/auth"
	"github.com/tomtom215/doipub/internal/models"
	"github.com/tomtom215/doipub/internal/workflow"
)

type transitionFunc func(ctx context.Context, subjectID string, caller *models.Caller) (*workflow.Outcome, error)

// ReserveDOI handles POST /api/v1/doi/{subject}/reserve.
func (h *Handler) ReserveDOI(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, h.workflow.MintReserve)
}

// RequestApproval handles POST /api/v1/doi/{subject}/request-approval.
func (h *Handler) RequestApproval(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, h.workflow.RequestApproval)
}

// PublishDOI handles POST /api/v1/doi/{subject}/publish.
func (h *Handler) PublishDOI(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, h.workflow.Publish)
}

func (h *Handler) runTransition(w http.ResponseWriter, r *http.Request, fn transitionFunc) {
	caller := auth.CallerFromContext(r.Context())
	if caller == nil {
		respondAppError(w, r, apperr.New(apperr.KindUnauthorized, "Authentication required"))
		return
	}
	subject := strings.TrimSpace(chi.URLParam(r, "subject"))
	if subject == "" {
		respondAppError(w, r, apperr.Validation("dataset id is required"))
		return
	}

	outcome, err := fn(r.Context(), subject, caller)
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	status := outcome.Status
	if status == 0 {
		status = http.StatusOK
	}
	respondJSON(w, r, status, outcome)
}
