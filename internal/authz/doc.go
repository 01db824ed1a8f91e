// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

// Package authz decides which workflow transitions a caller may perform,
// using Casbin.
//
// Callers are mapped to one of two roles: "user" for any authenticated CKAN
// account and "admin" for CKAN sysadmins. admin inherits user.
//
//	Request -> auth.Middleware -> authz.Middleware -> Handler
//	               |                    |
//	        CKAN user_show         Enforce (Casbin)
//
// # Model
//
//	[request_definition]
//	r = sub, obj, act
//
//	[policy_definition]
//	p = sub, obj, act
//
//	[role_definition]
//	g = _, _
//
//	[policy_effect]
//	e = some(where (p.eft == allow))
//
//	[matchers]
//	m = g(r.sub, p.sub) && (p.obj == "*" || r.obj == p.obj) && (p.act == "*" || r.act == p.act)
//
// # Objects and actions
//
//	dataset       mint, request_approval (user), publish (admin)
//	doi, prefix   read, write (admin)
//	audit         read (admin)
//	external_doi  convert (user)
//	forest3d      publish (admin)
//
// The embedded policy can be replaced with a file via EnforcerConfig.PolicyPath.
package authz
