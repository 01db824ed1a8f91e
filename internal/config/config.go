// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

// Package config loads DOIPub configuration with Koanf v2.
//
// Sources are layered, highest priority last:
//  1. Built-in defaults (defaultConfig)
//  2. Optional YAML file (CONFIG_PATH, ./config.yaml, /etc/doipub/config.yaml)
//  3. Environment variables, using the names of the existing deployment
//     (DOI_PREFIX, DATACITE_API_URL, CKAN_API_URL, EMAIL_ENDPOINT, ...)
//
// The loaded *Config is built once in main and passed explicitly to every
// client and to the workflow orchestrator. Business logic never reads
// configuration from a global.
package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
	Registry RegistryConfig `koanf:"registry"`
	DOI      DOIConfig      `koanf:"doi"`
	DataCite DataCiteConfig `koanf:"datacite"`
	CKAN     CKANConfig     `koanf:"ckan"`
	Email    EmailConfig    `koanf:"email"`
	Audit    AuditConfig    `koanf:"audit"`
	External ExternalConfig `koanf:"external"`
	Forest3D Forest3DConfig `koanf:"forest3d"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// Addr returns host:port for http.Server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// RegistryConfig selects and configures the DOI registry store.
//
// Driver is one of "memory", "duckdb" or "postgres". Path is used by duckdb
// (empty means in-memory), DSN by postgres.
type RegistryConfig struct {
	Driver       string `koanf:"driver"`
	Path         string `koanf:"path"`
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
}

// DOIConfig holds the registrant prefix and suffix allocation settings.
type DOIConfig struct {
	// Prefix is the registrant prefix, e.g. "10.16904".
	Prefix string `koanf:"prefix"`

	// SuffixTag is the namespace segment before the numeric tail, e.g. "envidat.".
	SuffixTag string `koanf:"suffix_tag"`

	// SiteID tags records with the deployment that minted them.
	SiteID string `koanf:"site_id"`

	// LandingURLPrefix is joined with the dataset name to build the DOI landing page.
	LandingURLPrefix string `koanf:"landing_url_prefix"`

	// ConflictRetries bounds re-allocation when a concurrent mint takes the same suffix.
	ConflictRetries int `koanf:"conflict_retries"`
}

// DataCiteConfig configures the registrar client and its retry policy.
type DataCiteConfig struct {
	APIURL     string        `koanf:"api_url"`
	ClientID   string        `koanf:"client_id"`
	Password   string        `koanf:"password"`
	Timeout    time.Duration `koanf:"timeout"`
	Retries    int           `koanf:"retries"`
	RetryDelay time.Duration `koanf:"retry_delay"`

	// RateLimit is the maximum outbound requests per second (0 = unlimited).
	RateLimit float64 `koanf:"rate_limit"`
}

// CKANConfig configures the metadata-store client.
type CKANConfig struct {
	URL              string        `koanf:"url"`
	Timeout          time.Duration `koanf:"timeout"`
	IdentityCacheTTL time.Duration `koanf:"identity_cache_ttl"`
}

// EmailConfig configures the notification dispatcher.
type EmailConfig struct {
	Endpoint string        `koanf:"endpoint"`
	From     string        `koanf:"from"`
	Timeout  time.Duration `koanf:"timeout"`
}

// AuditConfig configures the transition audit trail.
type AuditConfig struct {
	Enabled bool   `koanf:"enabled"`
	Driver  string `koanf:"driver"`
	Path    string `koanf:"path"`

	// Retention is how long events are kept; CleanupInterval how often
	// expired events are pruned.
	Retention       time.Duration `koanf:"retention"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
}

// ExternalConfig configures external DOI platforms.
type ExternalConfig struct {
	ZenodoAPIURL string        `koanf:"zenodo_api_url"`
	Timeout      time.Duration `koanf:"timeout"`
}

// Forest3DConfig configures the bulk publisher feed.
type Forest3DConfig struct {
	URL         string `koanf:"url"`
	Concurrency int    `koanf:"concurrency"`
}

// Load loads configuration from defaults, config file and environment.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
