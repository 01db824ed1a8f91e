// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

package api

import (
	"net/http"

	"github.com/tomtom215/doipub/internal/apperr"
	"github.com/tomtom215/doipub/internal/auth"
	"github.com/tomtom215/doipub/internal/externaldoi"
)

// ConvertExternalDOI handles GET /api/v1/external-doi/convert?doi=&owner_org=.
// The caller becomes the maintainer of the converted package.
func (h *Handler) ConvertExternalDOI(w http.ResponseWriter, r *http.Request) {
	if h.converter == nil {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeUnavailable, "External DOI conversion is disabled", nil)
		return
	}
	caller := auth.CallerFromContext(r.Context())
	if caller == nil {
		respondAppError(w, r, apperr.New(apperr.KindUnauthorized, "Authentication required"))
		return
	}

	q := r.URL.Query()
	conv, err := h.converter.Convert(r.Context(), q.Get("doi"), externaldoi.Options{
		OwnerOrg:        q.Get("owner_org"),
		User:            caller.User,
		AddPlaceholders: q.Get("add_placeholders") == "true",
	})
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, conv)
}
