// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists config file locations in priority order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/doipub/config.yaml",
	"/etc/doipub/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Registry: RegistryConfig{
			Driver:       "duckdb",
			Path:         "/data/doipub.duckdb",
			MaxOpenConns: 10,
		},
		DOI: DOIConfig{
			SuffixTag:       "envidat.",
			SiteID:          "doi-publishing-api",
			ConflictRetries: 3,
		},
		DataCite: DataCiteConfig{
			Timeout:    30 * time.Second,
			Retries:    1,
			RetryDelay: 3 * time.Second,
			RateLimit:  10,
		},
		CKAN: CKANConfig{
			Timeout:          15 * time.Second,
			IdentityCacheTTL: time.Minute,
		},
		Email: EmailConfig{
			Timeout: 10 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:         true,
			Driver:          "memory",
			Retention:       90 * 24 * time.Hour,
			CleanupInterval: time.Hour,
		},
		External: ExternalConfig{
			ZenodoAPIURL: "https://zenodo.org/api",
			Timeout:      30 * time.Second,
		},
		Forest3D: Forest3DConfig{
			Concurrency: 4,
		},
	}
}

// LoadWithKoanf loads configuration with layered sources: defaults, then the
// optional YAML file, then environment variables.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields splits comma-separated env values for slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok || s == "" {
			continue
		}
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) == 0 {
			continue
		}
		if err := k.Set(path, out); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lowercased environment variable names to koanf paths.
// Unmapped variables are ignored so unrelated environment never leaks in.
var envMappings = map[string]string{
	"http_host":            "server.host",
	"http_port":            "server.port",
	"server_timeout":       "server.timeout",
	"shutdown_timeout":     "server.shutdown_timeout",
	"backend_cors_origins": "server.cors_origins",
	"rate_limit_requests":  "server.rate_limit_reqs",
	"rate_limit_window":    "server.rate_limit_window",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"registry_driver":   "registry.driver",
	"registry_path":     "registry.path",
	"db_uri":            "registry.dsn",
	"db_max_open_conns": "registry.max_open_conns",

	"doi_prefix":               "doi.prefix",
	"doi_suffix_tag":           "doi.suffix_tag",
	"doi_site_id":              "doi.site_id",
	"datacite_data_url_prefix": "doi.landing_url_prefix",
	"doi_conflict_retries":     "doi.conflict_retries",

	"datacite_api_url":     "datacite.api_url",
	"datacite_client_id":   "datacite.client_id",
	"datacite_password":    "datacite.password",
	"datacite_timeout":     "datacite.timeout",
	"datacite_retries":     "datacite.retries",
	"datacite_retry_delay": "datacite.retry_delay",
	"datacite_rate_limit":  "datacite.rate_limit",

	"ckan_api_url":            "ckan.url",
	"ckan_timeout":            "ckan.timeout",
	"ckan_identity_cache_ttl": "ckan.identity_cache_ttl",

	"email_endpoint": "email.endpoint",
	"email_from":     "email.from",
	"email_timeout":  "email.timeout",

	"audit_enabled": "audit.enabled",
	"audit_driver":  "audit.driver",
	"audit_path":    "audit.path",

	"audit_retention":        "audit.retention",
	"audit_cleanup_interval": "audit.cleanup_interval",

	"zenodo_api_url":   "external.zenodo_api_url",
	"external_timeout": "external.timeout",

	"forest3d_url":         "forest3d.url",
	"forest3d_concurrency": "forest3d.concurrency",
}

func envTransformFunc(key string) string {
	if path, ok := envMappings[strings.ToLower(key)]; ok {
		return path
	}
	return ""
}
