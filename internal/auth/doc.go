// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

// Package auth resolves the caller of a request from its CKAN API token.
//
// The Authorization header carries the caller's CKAN token verbatim (an
// optional "Bearer " prefix is stripped). The token is resolved through
// CKAN user_show and the resulting user is cached for a short TTL, keyed by
// a SHA-256 fingerprint so raw tokens are never held as map keys or logged.
//
// Authorization (who may publish) is decided by internal/authz.
package auth
