// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/doipub/internal/apperr"
	"github.com/tomtom215/doipub/internal/audit"
	"github.com/tomtom215/doipub/internal/auth"
	"github.com/tomtom215/doipub/internal/models"
	"github.com/tomtom215/doipub/internal/registry"
	"github.com/tomtom215/doipub/internal/validation"
)

// createDOIRequest is the body of POST /api/v1/dois. It registers an
// existing DOI in the registry without touching DataCite.
type createDOIRequest struct {
	Prefix         string            `json:"prefix_id" validate:"required,doiprefix,max=64"`
	Suffix         string            `json:"suffix_id" validate:"required,doisuffix,max=64"`
	SubjectID      string            `json:"ckan_id" validate:"required"`
	SubjectName    string            `json:"ckan_name" validate:"required,max=256"`
	OriginSite     string            `json:"site_id" validate:"max=64"`
	Tag            string            `json:"tag_id" validate:"max=64"`
	Creator        string            `json:"ckan_user" validate:"max=256"`
	Metadata       string            `json:"metadata"`
	MetadataFormat string            `json:"metadata_format" validate:"max=64"`
	EntityKind     models.EntityKind `json:"ckan_entity" validate:"omitempty,oneof=package resource"`
}

func (req createDOIRequest) record() *models.DoiRecord {
	rec := &models.DoiRecord{
		Prefix:         req.Prefix,
		Suffix:         req.Suffix,
		SubjectID:      req.SubjectID,
		SubjectName:    req.SubjectName,
		OriginSite:     req.OriginSite,
		Tag:            req.Tag,
		Creator:        req.Creator,
		Metadata:       req.Metadata,
		MetadataFormat: req.MetadataFormat,
		EntityKind:     req.EntityKind,
	}
	rec.ApplyDefaults()
	return rec
}

// ListDOIs handles GET /api/v1/dois.
func (h *Handler) ListDOIs(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	q := r.URL.Query()
	filter := registry.ListFilter{
		Prefix:    q.Get("prefix"),
		SubjectID: q.Get("ckan_id"),
		Limit:     limit + 1,
		Offset:    offset,
	}

	records, err := h.registry.List(r.Context(), filter)
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, page(records, limit, offset))
}

// GetDOI handles GET /api/v1/dois/{prefix}/{suffix}.
func (h *Handler) GetDOI(w http.ResponseWriter, r *http.Request) {
	rec, err := h.registry.FindByPrefixSuffix(r.Context(), chi.URLParam(r, "prefix"), chi.URLParam(r, "suffix"))
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, rec)
}

// CreateDOI handles POST /api/v1/dois.
func (h *Handler) CreateDOI(w http.ResponseWriter, r *http.Request) {
	var req createDOIRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondAppError(w, r, err)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondAppError(w, r, verr)
		return
	}

	rec := req.record()
	created, err := h.registry.Create(r.Context(), rec)
	h.recordAdmin(r, audit.EventRecordCreated, rec.SubjectID, rec.DOI(), err)
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, created)
}

// DeleteDOI handles DELETE /api/v1/dois/{prefix}/{suffix}.
func (h *Handler) DeleteDOI(w http.ResponseWriter, r *http.Request) {
	prefix, suffix := chi.URLParam(r, "prefix"), chi.URLParam(r, "suffix")
	doi := prefix + "/" + suffix

	n, err := h.registry.Delete(r.Context(), prefix, suffix)
	if err == nil && n == 0 {
		err = apperr.NotFound("doi %s not found", doi)
	}
	h.recordAdmin(r, audit.EventRecordDeleted, "", doi, err)
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]string{"message": "Deleted doi " + doi})
}

// recordAdmin writes an audit event for a registry change.
func (h *Handler) recordAdmin(r *http.Request, typ audit.EventType, subjectID, doi string, err error) {
	event := audit.Event{
		Type:      typ,
		Outcome:   audit.OutcomeSuccess,
		SubjectID: subjectID,
		DOI:       doi,
		Status:    http.StatusOK,
	}
	if err != nil {
		event.Outcome = audit.OutcomeFailure
		event.Status = apperr.StatusOf(err)
		event.Description = err.Error()
	}
	if caller := auth.CallerFromContext(r.Context()); caller != nil {
		event.Actor = caller.User.Name
		event.ActorRole = caller.Role()
	}
	h.audit.Record(r.Context(), event)
}

const maxPageLimit = 1000

// pagination parses limit and offset query parameters.
func pagination(r *http.Request) (limit, offset int, err error) {
	limit = registry.DefaultListLimit
	q := r.URL.Query()
	if s := q.Get("limit"); s != "" {
		limit, err = strconv.Atoi(s)
		if err != nil || limit < 1 || limit > maxPageLimit {
			return 0, 0, apperr.Validation("limit must be between 1 and %d", maxPageLimit)
		}
	}
	if s := q.Get("offset"); s != "" {
		offset, err = strconv.Atoi(s)
		if err != nil || offset < 0 {
			return 0, 0, apperr.Validation("offset must be a non-negative integer")
		}
	}
	return limit, offset, nil
}

// page trims a limit+1 result to limit and reports whether more exist.
func page[T any](items []T, limit, offset int) models.ListResponse[T] {
	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}
	if items == nil {
		items = []T{}
	}
	return models.ListResponse[T]{
		Items: items,
		Pagination: models.PaginationInfo{
			Limit:   limit,
			Offset:  offset,
			HasMore: hasMore,
		},
	}
}
