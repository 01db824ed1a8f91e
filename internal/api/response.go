// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/doipub/internal/apperr"
	"github.com/tomtom215/doipub/internal/logging"
	"github.com/tomtom215/doipub/internal/models"
	"github.com/tomtom215/doipub/internal/validation"
)

// Envelope status values.
const (
	statusSuccess = "success"
	statusError   = "error"
)

// Error codes not covered by apperr kinds.
const (
	ErrCodeTooManyRequests  = "TOO_MANY_REQUESTS"
	ErrCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	ErrCodeUnavailable      = "SERVICE_UNAVAILABLE"
)

const internalErrorMessage = "An internal error occurred"

func newMetadata(r *http.Request) models.Metadata {
	return models.Metadata{
		Timestamp: time.Now().UTC(),
		RequestID: logging.RequestIDFromContext(r.Context()),
	}
}

// respondJSON writes data in a success envelope.
func respondJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	writeJSON(w, status, models.APIResponse{
		Status:   statusSuccess,
		Data:     data,
		Metadata: newMetadata(r),
	})
}

// respondError writes an error envelope.
func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]interface{}) {
	writeJSON(w, status, models.APIResponse{
		Status:   statusError,
		Metadata: newMetadata(r),
		Error: &models.APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// respondAppError maps err to its kind and status. Unclassified errors are
// logged and hidden behind a generic 500.
func respondAppError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validation.RequestValidationError
	if errors.As(err, &verr) {
		err = verr.AppError()
	}

	ae, ok := apperr.As(err)
	if !ok {
		logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Unhandled error")
		respondError(w, r, http.StatusInternalServerError, string(apperr.KindInternal), internalErrorMessage, nil)
		return
	}

	status := apperr.StatusOf(ae)
	if status < http.StatusBadRequest {
		status = http.StatusBadGateway
	}
	message := ae.Message
	if status >= http.StatusInternalServerError {
		logging.Ctx(r.Context()).Error().Err(err).Str("kind", string(ae.Kind)).Int("status", status).
			Str("path", r.URL.Path).Msg("Request failed")
		if ae.Kind == apperr.KindInternal {
			message = internalErrorMessage
		}
	}
	respondError(w, r, status, string(ae.Kind), message, ae.Details)
}

// writeJSON writes JSON response with proper headers.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

const maxBodyBytes = 1 << 20

// decodeJSON decodes a request body into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperr.Wrap(err, apperr.KindValidation, "Invalid JSON body")
	}
	return nil
}
