// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

package api

import (
	"net/http"

	"github.com/tomtom215/doipub/internal/audit"
	"github.com/tomtom215/doipub/internal/auth"
)

// PublishForest3D handles POST /api/v1/forest3d/publish-bulk.
func (h *Handler) PublishForest3D(w http.ResponseWriter, r *http.Request) {
	if h.forest3d == nil {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeUnavailable, "Forest3D publishing is not configured", nil)
		return
	}
	actor := audit.SystemActor
	if caller := auth.CallerFromContext(r.Context()); caller != nil {
		actor = caller.User.Name
	}

	summary, err := h.forest3d.PublishBulk(r.Context(), actor)
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, summary)
}
