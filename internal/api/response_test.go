// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/doipub/internal/apperr"
	"github.com/tomtom215/doipub/internal/validation"
)

func renderError(t *testing.T, err error) (int, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	respondAppError(rec, httptest.NewRequest(http.MethodGet, "/x", nil), err)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec.Code, env
}

func TestRespondAppError(t *testing.T) {
	t.Run("wrapped app error keeps kind and details", func(t *testing.T) {
		base := apperr.Forbidden("invalid DOI prefix").WithDetail("expected", "10.1000")
		code, env := renderError(t, fmt.Errorf("publish: %w", base))
		assert.Equal(t, http.StatusForbidden, code)
		assert.Equal(t, "FORBIDDEN", env.Error.Code)
		assert.Equal(t, "10.1000", env.Error.Details["expected"])
	})

	t.Run("internal message is hidden", func(t *testing.T) {
		code, env := renderError(t, apperr.New(apperr.KindInternal, "sql: connection refused"))
		assert.Equal(t, http.StatusInternalServerError, code)
		assert.Equal(t, internalErrorMessage, env.Error.Message)
	})

	t.Run("non-error status is coerced", func(t *testing.T) {
		code, _ := renderError(t, apperr.New(apperr.KindRegistrar, "odd").WithStatus(http.StatusOK))
		assert.Equal(t, http.StatusBadGateway, code)
	})

	t.Run("validation error", func(t *testing.T) {
		type req struct {
			Prefix string `json:"prefix_id" validate:"required"`
		}
		verr := validation.ValidateStruct(&req{})
		require.NotNil(t, verr)
		code, env := renderError(t, verr)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, string(apperr.KindValidation), env.Error.Code)
	})
}

func TestRateLimitEnvelope(t *testing.T) {
	mw := NewChiMiddleware(nil)
	handler := mw.RateLimitCustom(RateLimitConfig{Requests: 1, Window: time.Minute})(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }),
	)

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusNoContent, first.Code)

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/x", nil))
	require.Equal(t, http.StatusTooManyRequests, second.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &env))
	assert.Equal(t, ErrCodeTooManyRequests, env.Error.Code)
}

func TestRateLimitDisabled(t *testing.T) {
	cfg := DefaultChiMiddlewareConfig()
	cfg.RateLimitDisabled = true
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	handler := NewChiMiddleware(cfg).RateLimitCustom(RateLimitConfig{Requests: 1, Window: time.Minute})(next)

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}
