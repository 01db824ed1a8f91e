// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

// Command zenodo-import converts a list of Zenodo DOIs to EnviDat datasets
// and creates a CKAN package for each.
//
//	zenodo-import --authorization "$CKAN_TOKEN" --csv_path scripts/zenodo_dois.csv
//
// The DOIs are read from the first column of the CSV file. A DOI that cannot
// be converted or created is logged and skipped.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/doipub/internal/ckan"
	"github.com/tomtom215/doipub/internal/config"
	"github.com/tomtom215/doipub/internal/externaldoi"
	"github.com/tomtom215/doipub/internal/logging"
)

// Trusted Users organization in EnviDat CKAN.
const defaultOwnerOrg = "bd536a0f-d6ac-400e-923c-9dd351cb05fa"

type options struct {
	authorization string
	ownerOrg      string
	csvPath       string
	ckanURL       string
	zenodoURL     string
	timeout       time.Duration
	logLevel      string
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "zenodo-import",
		Short: "Import Zenodo DOIs into EnviDat CKAN",
		Long: `Convert Zenodo records to EnviDat datasets and create a CKAN package for each.

Each DOI must be in the first column of the CSV file, one per row.
Required EnviDat fields Zenodo has no value for are filled with placeholders.

Examples:
  # Import with the default owner organization
  zenodo-import --authorization "$CKAN_TOKEN"

  # Import a custom list into another organization
  zenodo-import --authorization "$CKAN_TOKEN" --owner_org my-org --csv_path dois.csv`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.Init(logging.Config{Level: opts.logLevel, Format: "console", Timestamp: true, Output: os.Stderr})
			return run(cmd.Context(), out, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.authorization, "authorization", "", "EnviDat CKAN API token of the user the packages are created for")
	flags.StringVar(&opts.ownerOrg, "owner_org", defaultOwnerOrg, "EnviDat CKAN owner_org (default is the Trusted Users organization)")
	flags.StringVar(&opts.csvPath, "csv_path", "scripts/zenodo_dois.csv", "CSV file with one Zenodo DOI per row in the first column")
	flags.StringVar(&opts.ckanURL, "ckan_url", envOr("CKAN_API_URL", ""), "CKAN action API URL (env CKAN_API_URL)")
	flags.StringVar(&opts.zenodoURL, "zenodo_url", envOr("ZENODO_API_URL", "https://zenodo.org/api"), "Zenodo API URL (env ZENODO_API_URL)")
	flags.DurationVar(&opts.timeout, "timeout", 30*time.Second, "Timeout for each upstream request")
	flags.StringVar(&opts.logLevel, "log_level", "info", "Log level")
	_ = cmd.MarkFlagRequired("authorization")

	return cmd
}

func run(ctx context.Context, out io.Writer, opts *options) error {
	start := time.Now()
	fmt.Fprintln(out, "Starting zenodo-import...")

	if opts.ckanURL == "" {
		return fmt.Errorf("CKAN URL is required (--ckan_url or CKAN_API_URL)")
	}

	dois, err := externaldoi.ReadDOIsFile(opts.csvPath)
	if err != nil {
		return fmt.Errorf("failed to read DOIs from %s: %w", opts.csvPath, err)
	}
	logging.Info().Str("csv_path", opts.csvPath).Int("dois", len(dois)).Msg("Processing CSV file")

	ckanClient := ckan.New(config.CKANConfig{URL: opts.ckanURL, Timeout: opts.timeout})
	user, err := ckanClient.ShowUser(ctx, opts.authorization)
	if err != nil {
		return fmt.Errorf("failed to resolve user: %w", err)
	}

	zenodo := externaldoi.NewZenodoClient(config.ExternalConfig{ZenodoAPIURL: opts.zenodoURL, Timeout: opts.timeout})
	importer := externaldoi.NewImporter(externaldoi.NewConverter(zenodo), ckanClient)

	stats := importer.Import(ctx, dois, externaldoi.Options{
		OwnerOrg:        opts.ownerOrg,
		User:            *user,
		AddPlaceholders: true,
	}, opts.authorization)

	fmt.Fprintf(out, "Created %d of %d packages (%d failed)\n", stats.Created, stats.Total, stats.Failed)
	fmt.Fprintf(out, "...Ending zenodo-import, that took %.2f seconds\n", time.Since(start).Seconds())
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
