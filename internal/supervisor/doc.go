// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

/*
Package supervisor runs the long-lived parts of DOIPub under a suture v4
supervisor tree.

The tree has two layers, each restarted independently:

	RootSupervisor ("doipub")
	├── DataSupervisor ("data-layer")
	│   └── AuditRetentionService (if AUDIT_ENABLED)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Supervisor events (start, failure, backoff) are logged through sutureslog,
which main wires to the zerolog-backed slog adapter from internal/logging.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	tree.AddDataService(services.NewAuditRetentionService(auditLogger, retention, interval))
	return tree.Serve(ctx)
*/
package supervisor
