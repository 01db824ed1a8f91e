// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

// Package externaldoi converts DOIs minted by other platforms into CKAN
// packages so the datasets can be listed alongside locally published ones.
//
// Zenodo is the only supported platform. A DOI is attributed to Zenodo when
// it mentions "zenodo" or uses the 10.5281 prefix.
package externaldoi

import (
	"strings"
)

// Platform identifies an external DOI provider.
type Platform string

const (
	PlatformUnknown Platform = ""
	PlatformZenodo  Platform = "zenodo"
)

// platformNames are matched against the DOI before prefixes.
var platformNames = map[string]Platform{
	"zenodo": PlatformZenodo,
}

var platformPrefixes = map[string]Platform{
	"10.5281": PlatformZenodo,
}

// DetectPlatform returns the platform most likely to have minted doi.
func DetectPlatform(doi string) Platform {
	lower := strings.ToLower(doi)
	for name, p := range platformNames {
		if strings.Contains(lower, name) {
			return p
		}
	}
	for prefix, p := range platformPrefixes {
		if strings.Contains(lower, prefix) {
			return p
		}
	}
	return PlatformUnknown
}

// RecordID extracts the Zenodo record id, the text after the last ".".
//
//	10.5281/zenodo.5230562 -> 5230562
func RecordID(doi string) (string, bool) {
	i := strings.LastIndex(doi, ".")
	if i == -1 {
		return "", false
	}
	id := strings.TrimSpace(doi[i+1:])
	if id == "" {
		return "", false
	}
	return id, true
}

var doiURLPrefixes = []string{
	"https://doi.org/",
	"http://doi.org/",
	"https://dx.doi.org/",
	"http://dx.doi.org/",
	"doi:",
}

// NormalizeDOI strips resolver URLs and the doi: scheme.
func NormalizeDOI(s string) string {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	for _, p := range doiURLPrefixes {
		if strings.HasPrefix(lower, p) {
			return strings.TrimSpace(s[len(p):])
		}
	}
	return s
}
