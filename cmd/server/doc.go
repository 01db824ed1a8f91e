// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

/*
Package main is the entry point for the DOIPub server.

DOIPub drives the DOI lifecycle of EnviDat datasets: it reserves draft DOIs
with DataCite, routes approval requests to the admin and publishes findable
DOIs, keeping the CKAN dataset state and the local DOI registry in step.

# Application Architecture

	RootSupervisor ("doipub")
	├── DataSupervisor ("data-layer")
	│   └── Audit retention (if AUDIT_ENABLED)
	└── APISupervisor ("api-layer")
	    └── HTTP Server

Component initialization order:

 1. Configuration: Koanf v2 (defaults, config.yaml, environment)
 2. Logging: zerolog
 3. DOI registry: DuckDB, PostgreSQL or in-memory
 4. Upstream clients: CKAN, DataCite, email dispatcher, Zenodo
 5. Authentication and Casbin authorization
 6. Audit trail
 7. Workflow orchestrator and Forest3D publisher
 8. Chi router and supervisor tree

# Configuration

Core environment variables:

	HTTP_PORT=8080
	LOG_LEVEL=info
	DOI_PREFIX=10.16904
	DATACITE_API_URL=https://api.datacite.org/dois
	DATACITE_CLIENT_ID=...
	DATACITE_PASSWORD=...
	DATACITE_DATA_URL_PREFIX=https://www.envidat.ch/#/metadata/
	CKAN_API_URL=https://www.envidat.ch/api/action
	REGISTRY_DRIVER=duckdb
	REGISTRY_PATH=/data/doipub.duckdb
	EMAIL_ENDPOINT=https://mail.envidat.ch/send
	EMAIL_FROM=envidat@wsl.ch

# Signal Handling

SIGINT and SIGTERM cancel the supervisor tree. The HTTP server drains
in-flight requests for SHUTDOWN_TIMEOUT, the audit logger flushes queued
events and the registry is closed.
*/
package main
