// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/doipub/internal/api"
	"github.com/tomtom215/doipub/internal/audit"
	"github.com/tomtom215/doipub/internal/auth"
	"github.com/tomtom215/doipub/internal/authz"
	"github.com/tomtom215/doipub/internal/ckan"
	"github.com/tomtom215/doipub/internal/config"
	"github.com/tomtom215/doipub/internal/datacite"
	"github.com/tomtom215/doipub/internal/externaldoi"
	"github.com/tomtom215/doipub/internal/forest3d"
	"github.com/tomtom215/doipub/internal/logging"
	"github.com/tomtom215/doipub/internal/notify"
	"github.com/tomtom215/doipub/internal/registry"
	"github.com/tomtom215/doipub/internal/retry"
	"github.com/tomtom215/doipub/internal/supervisor"
	"github.com/tomtom215/doipub/internal/supervisor/services"
	"github.com/tomtom215/doipub/internal/workflow"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

//nolint:gocyclo // Sequential setup steps
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	logging.Info().
		Str("version", version).
		Str("doi_prefix", cfg.DOI.Prefix).
		Str("registry_driver", cfg.Registry.Driver).
		Bool("audit_enabled", cfg.Audit.Enabled).
		Msg("Starting DOIPub with supervisor tree")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// === DOI REGISTRY ===

	store, err := registry.Open(ctx, cfg.Registry)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open DOI registry")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing DOI registry")
		}
	}()
	logging.Info().Str("driver", cfg.Registry.Driver).Msg("DOI registry initialized")

	// === UPSTREAM CLIENTS ===

	ckanClient := ckan.New(cfg.CKAN)
	dataciteClient := datacite.New(cfg.DataCite)

	readiness := []api.ReadinessCheck{
		{Name: "ckan", Required: false, Check: ckanClient.Ping},
		{Name: "datacite", Required: false, Check: breakerCheck(dataciteClient)},
	}

	var notifier notify.Dispatcher = notify.Nop{}
	if cfg.Email.Endpoint != "" {
		mailer := notify.NewHTTPDispatcher(cfg.Email)
		notifier = mailer
		readiness = append(readiness, api.ReadinessCheck{Name: "mail", Required: false, Check: breakerCheck(mailer)})
	} else {
		logging.Info().Msg("Email notifications disabled (EMAIL_ENDPOINT not set)")
	}

	// === AUTHENTICATION AND AUTHORIZATION ===

	authenticator := auth.NewAuthenticator(ckanClient, cfg.CKAN.IdentityCacheTTL)
	enforcer, err := authz.NewEnforcer(nil)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize authorization")
	}

	// === AUDIT TRAIL ===

	var (
		recorder    audit.Recorder = audit.Nop{}
		auditReader api.AuditReader
		auditLogger *audit.Logger
	)
	if cfg.Audit.Enabled {
		auditStore, err := audit.Open(ctx, cfg.Audit)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to open audit store")
		}
		auditLogger = audit.NewLogger(auditStore, 0)
		defer func() {
			if err := auditLogger.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing audit logger")
			}
		}()
		recorder = auditLogger
		auditReader = auditLogger
		logging.Info().Str("driver", cfg.Audit.Driver).Dur("retention", cfg.Audit.Retention).Msg("Audit trail enabled")
	}

	// === WORKFLOW ===

	orchestrator, err := workflow.New(workflow.Deps{
		Metadata:   ckanClient,
		Registrar:  dataciteClient,
		Registry:   store,
		Notifier:   notifier,
		Authorizer: enforcer,
		Audit:      recorder,
	}, workflow.SettingsFromConfig(cfg))
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize workflow")
	}

	converter := externaldoi.NewConverter(externaldoi.NewZenodoClient(cfg.External))

	var bulk api.BulkPublisher
	if cfg.Forest3D.URL != "" {
		feed := forest3d.NewFeed(cfg.Forest3D.URL, &http.Client{Timeout: cfg.DataCite.Timeout})
		bulk = forest3d.NewPublisher(feed, dataciteClient, cfg.DOI.LandingURLPrefix, cfg.Forest3D.Concurrency,
			retry.WithRetries(cfg.DataCite.Retries, cfg.DataCite.RetryDelay), recorder)
	} else {
		logging.Info().Msg("Forest3D bulk publishing disabled (FOREST3D_URL not set)")
	}

	// === HTTP ===

	handler, err := api.NewHandler(api.HandlerDeps{
		Workflow:    orchestrator,
		Registry:    store,
		Audit:       recorder,
		AuditReader: auditReader,
		Converter:   converter,
		Forest3D:    bulk,
		Readiness:   readiness,
		Version:     version,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create API handler")
	}

	router := api.NewRouter(handler, api.NewChiMiddleware(api.ChiMiddlewareConfigFromServer(cfg.Server)), authenticator, enforcer)

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      writeTimeout(cfg),
		IdleTimeout:       120 * time.Second,
	}

	// === SUPERVISOR TREE ===

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout + 5*time.Second,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	if auditLogger != nil {
		tree.AddDataService(services.NewAuditRetentionService(auditLogger, cfg.Audit.Retention, cfg.Audit.CleanupInterval))
		logging.Info().Dur("interval", cfg.Audit.CleanupInterval).Msg("Audit retention service added")
	}

	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// errCh receives exactly one value when the tree stops.
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
		err = <-errCh
	case err = <-errCh:
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("DOIPub stopped")
}

// ckanCallsPerTransition is the most CKAN calls one workflow request makes:
// the identity lookup, the dataset fetch and two patches.
const ckanCallsPerTransition = 4

// writeTimeout bounds the slowest workflow request so its response is not
// cut off after the dataset state has already been patched. It covers every
// CKAN call, every DataCite attempt with the delays between them and one
// notification.
func writeTimeout(cfg *config.Config) time.Duration {
	retries := time.Duration(max(cfg.DataCite.Retries, 0))
	registrar := cfg.DataCite.Timeout*(retries+1) + cfg.DataCite.RetryDelay*retries

	mail := time.Duration(0)
	if cfg.Email.Endpoint != "" {
		mail = cfg.Email.Timeout
		if mail <= 0 {
			mail = 10 * time.Second
		}
	}
	return cfg.Server.Timeout + ckanCallsPerTransition*cfg.CKAN.Timeout + registrar + mail
}

// breakerCheck reports an open circuit breaker as unhealthy.
func breakerCheck(c interface{ BreakerState() string }) func(context.Context) error {
	return func(context.Context) error {
		if state := c.BreakerState(); state == "open" {
			return fmt.Errorf("circuit breaker is %s", state)
		}
		return nil
	}
}
