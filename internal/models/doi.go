// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

package models

import (
	"strings"
	"time"
)

// EntityKind is the CKAN entity a DOI was minted for.
type EntityKind string

const (
	EntityPackage  EntityKind = "package"
	EntityResource EntityKind = "resource"
)

// Record defaults applied when the caller leaves a field empty.
const (
	DefaultOriginSite     = "doi-publishing-api"
	DefaultTag            = "envidat."
	DefaultCreator        = "admin"
	DefaultMetadataFormat = "ckan"
)

// PublicationState is the workflow state stored in the dataset's
// publication_state field. The metadata store owns it; it is never cached.
type PublicationState string

const (
	StateUnset      PublicationState = ""
	StateReserved   PublicationState = "reserved"
	StatePubPending PublicationState = "pub_pending"
	StateApproved   PublicationState = "approved"
	StatePublished  PublicationState = "published"
)

// String returns "unset" for the empty state.
func (s PublicationState) String() string {
	if s == StateUnset {
		return "unset"
	}
	return string(s)
}

// Known reports whether s is one of the lifecycle states.
func (s PublicationState) Known() bool {
	switch s {
	case StateUnset, StateReserved, StatePubPending, StateApproved, StatePublished:
		return true
	}
	return false
}

// In reports whether s is one of states.
func (s PublicationState) In(states ...PublicationState) bool {
	for _, st := range states {
		if s == st {
			return true
		}
	}
	return false
}

// DoiRecord is one minted identifier in the registry.
//
// (Prefix, Suffix) is unique and suffixes are never reused. Only Metadata and
// the timestamps change after creation; there is no state column, the
// publication state lives on the dataset.
type DoiRecord struct {
	ID             int64      `json:"id"`
	Prefix         string     `json:"prefix_id" validate:"required,doiprefix,max=64"`
	Suffix         string     `json:"suffix_id" validate:"required,doisuffix,max=64"`
	SubjectID      string     `json:"ckan_id" validate:"required"`
	SubjectName    string     `json:"ckan_name" validate:"required,max=256"`
	OriginSite     string     `json:"site_id" validate:"max=64"`
	Tag            string     `json:"tag_id" validate:"max=64"`
	Creator        string     `json:"ckan_user" validate:"max=256"`
	Metadata       string     `json:"metadata"`
	MetadataFormat string     `json:"metadata_format" validate:"max=64"`
	EntityKind     EntityKind `json:"ckan_entity" validate:"omitempty,oneof=package resource"`
	CreatedAt      time.Time  `json:"date_created"`
	ModifiedAt     time.Time  `json:"date_modified"`
}

// DOI returns prefix/suffix.
func (r *DoiRecord) DOI() string {
	return r.Prefix + "/" + r.Suffix
}

// ApplyDefaults fills empty optional fields with the registry defaults.
func (r *DoiRecord) ApplyDefaults() {
	if r.OriginSite == "" {
		r.OriginSite = DefaultOriginSite
	}
	if r.Tag == "" {
		r.Tag = DefaultTag
	}
	if r.Creator == "" {
		r.Creator = DefaultCreator
	}
	if r.MetadataFormat == "" {
		r.MetadataFormat = DefaultMetadataFormat
	}
	if r.EntityKind == "" {
		r.EntityKind = EntityPackage
	}
}

// SplitDOI splits "10.1234/abc.1" at the first slash.
func SplitDOI(doi string) (prefix, suffix string, ok bool) {
	prefix, suffix, ok = strings.Cut(strings.TrimSpace(doi), "/")
	if !ok || prefix == "" || suffix == "" {
		return "", "", false
	}
	return prefix, suffix, true
}

// DoiPrefix is a registrant prefix known to the registry.
type DoiPrefix struct {
	ID          int64  `json:"id"`
	Prefix      string `json:"prefix_id" validate:"required,doiprefix,max=64"`
	Description string `json:"description" validate:"max=256"`
}
