// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

/*
Package api exposes the DOI workflow over HTTP using the chi router.

Every response is wrapped in models.APIResponse:

	{"status":"success","data":{...},"metadata":{"timestamp":"...","request_id":"..."}}
	{"status":"error","data":null,"error":{"code":"FORBIDDEN","message":"..."},"metadata":{...}}

Errors are rendered by respondAppError. It maps an *apperr.Error to its kind
code and HTTP-equivalent status. Unclassified errors become a 500 with a
generic message and their detail only reaches the log.

Route groups:

  - /api/v1/health: liveness and readiness, no authentication
  - /api/v1/doi/{subject}: MintReserve, RequestApproval and Publish
  - /api/v1/dois, /api/v1/prefixes: registry administration (sysadmin)
  - /api/v1/audit: transition audit trail (sysadmin)
  - /api/v1/external-doi: Zenodo conversion
  - /api/v1/forest3d: bulk publication (sysadmin)
  - /metrics: Prometheus exposition

Authentication reads the CKAN API token from the Authorization header and
resolves it to a caller. Authorization is a casbin role check per route.
*/
package api
