// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateRegistry(); err != nil {
		return err
	}
	if err := c.validateDOI(); err != nil {
		return err
	}
	if err := c.validateDataCite(); err != nil {
		return err
	}
	if err := c.validateCKAN(); err != nil {
		return err
	}
	if err := c.validateEmail(); err != nil {
		return err
	}
	if err := c.validateAudit(); err != nil {
		return err
	}
	return c.validateForest3D()
}

const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
)

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.RateLimitReqs < minRateLimitRequests || c.Server.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Server.RateLimitWindow < minRateLimitWindow || c.Server.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true,
	"error": true, "fatal": true, "panic": true, "disabled": true,
}

func (c *Config) validateLogging() error {
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error, fatal, panic, disabled")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
		return nil
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console")
	}
}

func (c *Config) validateRegistry() error {
	switch c.Registry.Driver {
	case "memory", "duckdb":
		return nil
	case "postgres":
		if c.Registry.DSN == "" {
			return fmt.Errorf("DB_URI is required when REGISTRY_DRIVER=postgres")
		}
		return nil
	default:
		return fmt.Errorf("REGISTRY_DRIVER must be one of: memory, duckdb, postgres")
	}
}

// validateDOI checks the registrant prefix. DOI prefixes always start with "10.".
func (c *Config) validateDOI() error {
	if c.DOI.Prefix == "" {
		return fmt.Errorf("DOI_PREFIX is required")
	}
	if !strings.HasPrefix(c.DOI.Prefix, "10.") || strings.Contains(c.DOI.Prefix, "/") {
		return fmt.Errorf("DOI_PREFIX must look like 10.NNNN, got %q", c.DOI.Prefix)
	}
	if c.DOI.SuffixTag == "" {
		return fmt.Errorf("DOI_SUFFIX_TAG must not be empty")
	}
	if !strings.HasSuffix(c.DOI.SuffixTag, ".") {
		return fmt.Errorf("DOI_SUFFIX_TAG must end with '.', got %q", c.DOI.SuffixTag)
	}
	if c.DOI.ConflictRetries < 0 {
		return fmt.Errorf("DOI_CONFLICT_RETRIES must not be negative")
	}
	return nil
}

func (c *Config) validateDataCite() error {
	if err := requireHTTPURL("DATACITE_API_URL", c.DataCite.APIURL); err != nil {
		return err
	}
	if c.DataCite.ClientID == "" || c.DataCite.Password == "" {
		return fmt.Errorf("DATACITE_CLIENT_ID and DATACITE_PASSWORD are required")
	}
	if c.DataCite.Retries < 0 {
		return fmt.Errorf("DATACITE_RETRIES must not be negative")
	}
	if c.DataCite.RetryDelay < 0 {
		return fmt.Errorf("DATACITE_RETRY_DELAY must not be negative")
	}
	if c.DataCite.Timeout <= 0 {
		return fmt.Errorf("DATACITE_TIMEOUT must be positive")
	}
	if c.DataCite.RateLimit < 0 {
		return fmt.Errorf("DATACITE_RATE_LIMIT must not be negative")
	}
	return nil
}

func (c *Config) validateCKAN() error {
	if err := requireHTTPURL("CKAN_API_URL", c.CKAN.URL); err != nil {
		return err
	}
	if c.CKAN.Timeout <= 0 {
		return fmt.Errorf("CKAN_TIMEOUT must be positive")
	}
	return nil
}

// validateEmail allows an empty endpoint, which disables notifications.
func (c *Config) validateEmail() error {
	if c.Email.Endpoint == "" {
		return nil
	}
	if err := requireHTTPURL("EMAIL_ENDPOINT", c.Email.Endpoint); err != nil {
		return err
	}
	if c.Email.From == "" {
		return fmt.Errorf("EMAIL_FROM is required when EMAIL_ENDPOINT is set")
	}
	return nil
}

func (c *Config) validateAudit() error {
	if !c.Audit.Enabled {
		return nil
	}
	switch c.Audit.Driver {
	case "memory":
	case "duckdb":
		// DuckDB takes an exclusive lock on its file.
		if c.Audit.Path != "" && c.Registry.Driver == "duckdb" && c.Audit.Path == c.Registry.Path {
			return fmt.Errorf("AUDIT_PATH must differ from REGISTRY_PATH")
		}
	default:
		return fmt.Errorf("AUDIT_DRIVER must be memory or duckdb")
	}
	if c.Audit.Retention <= 0 || c.Audit.CleanupInterval <= 0 {
		return fmt.Errorf("AUDIT_RETENTION and AUDIT_CLEANUP_INTERVAL must be positive")
	}
	return nil
}

func (c *Config) validateForest3D() error {
	if c.Forest3D.URL != "" {
		if err := requireHTTPURL("FOREST3D_URL", c.Forest3D.URL); err != nil {
			return err
		}
	}
	if c.Forest3D.Concurrency < 1 {
		return fmt.Errorf("FOREST3D_CONCURRENCY must be at least 1")
	}
	return nil
}

func requireHTTPURL(name, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", name)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https", name)
	}
	if u.Host == "" {
		return fmt.Errorf("%s must include a host", name)
	}
	return nil
}
