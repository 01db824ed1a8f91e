// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

// Package apperr defines the typed error kinds shared by the clients, the
// registry and the workflow orchestrator.
//
// Every error that can reach an API caller is an *Error carrying a Kind and an
// HTTP-equivalent status. Callers discriminate with errors.As or KindOf rather
// than matching on message text:
//
//	if apperr.KindOf(err) == apperr.KindNotFound {
//	    ...
//	}
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers and tests.
type Kind string

const (
	KindNotFound            Kind = "NOT_FOUND"
	KindForbidden           Kind = "FORBIDDEN"
	KindUnauthorized        Kind = "UNAUTHORIZED"
	KindConflict            Kind = "CONFLICT"
	KindUnprocessableState  Kind = "UNPROCESSABLE_STATE"
	KindUpstreamUnavailable Kind = "UPSTREAM_UNAVAILABLE"
	KindTimeout             Kind = "TIMEOUT"
	KindTransport           Kind = "TRANSPORT_ERROR"
	KindConversion          Kind = "CONVERSION_ERROR"
	KindRegistrar           Kind = "REGISTRAR_ERROR"
	KindValidation          Kind = "VALIDATION_ERROR"
	KindInternal            Kind = "INTERNAL_ERROR"
)

// defaultStatus maps each kind to its HTTP-equivalent status.
var defaultStatus = map[Kind]int{
	KindNotFound:            http.StatusNotFound,
	KindForbidden:           http.StatusForbidden,
	KindUnauthorized:        http.StatusUnauthorized,
	KindConflict:            http.StatusConflict,
	KindUnprocessableState:  http.StatusUnprocessableEntity,
	KindUpstreamUnavailable: http.StatusBadGateway,
	KindTimeout:             http.StatusRequestTimeout,
	KindTransport:           http.StatusInternalServerError,
	KindConversion:          http.StatusInternalServerError,
	KindRegistrar:           http.StatusBadGateway,
	KindValidation:          http.StatusBadRequest,
	KindInternal:            http.StatusInternalServerError,
}

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Details map[string]interface{}
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error of the given kind with the default status for that kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Status: StatusFor(kind), Message: message}
}

// Newf is New with fmt.Sprintf formatting.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap classifies err under kind. A nil err yields nil.
func Wrap(err error, kind Kind, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Status: StatusFor(kind), Message: message, Err: err}
}

// WithStatus overrides the HTTP-equivalent status.
func (e *Error) WithStatus(status int) *Error {
	e.Status = status
	return e
}

// WithDetail attaches a detail value surfaced to API callers.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// StatusFor returns the default HTTP-equivalent status for a kind.
func StatusFor(kind Kind) int {
	if status, ok := defaultStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindInternal for unclassified errors.
// A nil error has no kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindInternal
}

// StatusOf returns the HTTP-equivalent status of err.
func StatusOf(err error) int {
	if appErr, ok := As(err); ok && appErr.Status != 0 {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// Convenience constructors for the common kinds.

func NotFound(format string, args ...interface{}) *Error {
	return Newf(KindNotFound, format, args...)
}

func Forbidden(format string, args ...interface{}) *Error {
	return Newf(KindForbidden, format, args...)
}

func Conflict(format string, args ...interface{}) *Error {
	return Newf(KindConflict, format, args...)
}

func UnprocessableState(format string, args ...interface{}) *Error {
	return Newf(KindUnprocessableState, format, args...)
}

func Validation(format string, args ...interface{}) *Error {
	return Newf(KindValidation, format, args...)
}
