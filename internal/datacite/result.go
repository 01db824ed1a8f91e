// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

package datacite

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/tomtom215/doipub/internal/apperr"
)

// Result is the outcome of one registrar call: either Success or Failure.
type Result interface {
	// StatusCode is the HTTP-equivalent status of the outcome.
	StatusCode() int

	// OK reports whether the call succeeded.
	OK() bool

	isResult()
}

// Success is a registrar call that returned the expected status with a
// parseable DOI.
type Success struct {
	Status int                    `json:"status_code"`
	DOI    string                 `json:"doi"`
	Body   map[string]interface{} `json:"result"`
}

func (Success) isResult()         {}
func (s Success) StatusCode() int { return s.Status }
func (Success) OK() bool          { return true }

// FailureKind classifies a Failure.
type FailureKind string

const (
	// KindRejection is an upstream error response, errors surfaced verbatim.
	KindRejection FailureKind = "rejection"
	// KindTimeout is a call that did not complete in time.
	KindTimeout FailureKind = "timeout"
	// KindTransport is a connection failure or an open circuit.
	KindTransport FailureKind = "transport"
	// KindInternal is an expected status whose body carried no DOI.
	KindInternal FailureKind = "internal"
	// KindConversion is a dataset that could not be rendered as DataCite XML.
	KindConversion FailureKind = "conversion"
)

// ErrorObject is one entry of the DataCite errors list, kept as returned.
type ErrorObject map[string]interface{}

// Failure is a registrar call that did not succeed.
type Failure struct {
	Status int           `json:"status_code"`
	Kind   FailureKind   `json:"kind"`
	Errors []ErrorObject `json:"errors"`
}

func (Failure) isResult()         {}
func (f Failure) StatusCode() int { return f.Status }
func (Failure) OK() bool          { return false }

// IsDuplicate reports whether DataCite rejected the DOI as already taken.
// A 422 is definitive and must not be retried.
func (f Failure) IsDuplicate() bool {
	return f.Kind == KindRejection && f.Status == http.StatusUnprocessableEntity
}

// Retryable reports whether another attempt could succeed. Internal and
// conversion failures are local; a reserve retried after an unparseable 201
// would hit the draft the first call already created.
func (f Failure) Retryable() bool {
	switch f.Kind {
	case KindInternal, KindConversion:
		return false
	}
	return !f.IsDuplicate()
}

// Message joins the error titles (or details) for humans.
func (f Failure) Message() string {
	parts := make([]string, 0, len(f.Errors))
	for _, e := range f.Errors {
		for _, key := range []string{"title", "detail", "error", "parsing_error"} {
			if s, ok := e[key].(string); ok && s != "" {
				parts = append(parts, s)
				break
			}
		}
	}
	if len(parts) == 0 {
		return fmt.Sprintf("registrar call failed with status %d", f.Status)
	}
	return strings.Join(parts, "; ")
}

// Err converts the failure to an application error that keeps the upstream
// status and errors.
func (f Failure) Err() *apperr.Error {
	var e *apperr.Error
	switch f.Kind {
	case KindTimeout:
		e = apperr.New(apperr.KindTimeout, f.Message())
	case KindTransport:
		e = apperr.New(apperr.KindTransport, f.Message())
	case KindInternal:
		e = apperr.New(apperr.KindInternal, f.Message())
	case KindConversion:
		e = apperr.New(apperr.KindConversion, f.Message())
	default:
		e = apperr.New(apperr.KindRegistrar, f.Message())
	}
	return e.WithStatus(f.Status).WithDetail("errors", f.Errors)
}

// outcomeLabel is the metrics label for r.
func outcomeLabel(r Result) string {
	f, ok := r.(Failure)
	if !ok {
		return "success"
	}
	if f.IsDuplicate() {
		return "duplicate"
	}
	return string(f.Kind)
}

func failure(status int, kind FailureKind, msg string) Failure {
	return Failure{Status: status, Kind: kind, Errors: []ErrorObject{{"error": msg}}}
}
