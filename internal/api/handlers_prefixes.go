// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/doipub/internal/apperr"
	"github.com/tomtom215/doipub/internal/audit"
	"github.com/tomtom215/doipub/internal/models"
	"github.com/tomtom215/doipub/internal/validation"
)

type createPrefixRequest struct {
	Prefix      string `json:"prefix_id" validate:"required,doiprefix,max=64"`
	Description string `json:"description" validate:"max=256"`
}

// ListPrefixes handles GET /api/v1/prefixes.
func (h *Handler) ListPrefixes(w http.ResponseWriter, r *http.Request) {
	prefixes, err := h.registry.ListPrefixes(r.Context())
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	if prefixes == nil {
		prefixes = []models.DoiPrefix{}
	}
	respondJSON(w, r, http.StatusOK, prefixes)
}

// GetPrefix handles GET /api/v1/prefixes/{prefix}.
func (h *Handler) GetPrefix(w http.ResponseWriter, r *http.Request) {
	p, err := h.registry.GetPrefix(r.Context(), chi.URLParam(r, "prefix"))
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, p)
}

// CreatePrefix handles POST /api/v1/prefixes.
func (h *Handler) CreatePrefix(w http.ResponseWriter, r *http.Request) {
	var req createPrefixRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondAppError(w, r, err)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondAppError(w, r, verr)
		return
	}

	created, err := h.registry.CreatePrefix(r.Context(), &models.DoiPrefix{
		Prefix:      req.Prefix,
		Description: req.Description,
	})
	h.recordAdmin(r, audit.EventPrefixCreated, "", req.Prefix, err)
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, created)
}

// DeletePrefix handles DELETE /api/v1/prefixes/{prefix}.
func (h *Handler) DeletePrefix(w http.ResponseWriter, r *http.Request) {
	prefix := chi.URLParam(r, "prefix")
	n, err := h.registry.DeletePrefix(r.Context(), prefix)
	if err == nil && n == 0 {
		err = apperr.NotFound("doi prefix %s not found", prefix)
	}
	h.recordAdmin(r, audit.EventPrefixDeleted, "", prefix, err)
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]string{"message": "Deleted doi prefix " + prefix})
}
