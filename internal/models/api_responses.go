// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

package models

import (
	"time"
)

// APIResponse is the envelope every HTTP endpoint responds with.
//
// Status is "success" or "error". On error, Error is populated and Data is
// usually nil, except for registrar failures where Data carries the
// workflow outcome so callers still see the upstream status.
//
//	{
//	  "status": "error",
//	  "error": {
//	    "code": "UNPROCESSABLE_STATE",
//	    "message": "cannot request approval in state \"unset\"",
//	    "details": {"subject": "my-dataset"}
//	  },
//	  "metadata": {"timestamp": "2026-03-01T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// APIError represents an error response with structured error details.
//
// Code is an apperr kind (NOT_FOUND, FORBIDDEN, CONFLICT, ...). Details holds
// context such as the registrar's own error list.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// PaginationInfo describes a limit/offset page of results.
type PaginationInfo struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// ListResponse wraps a page of items.
type ListResponse[T any] struct {
	Items      []T            `json:"items"`
	Pagination PaginationInfo `json:"pagination"`
}
