// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// ErrMalformedDataset is returned when a CKAN package lacks a required field
// or carries one with the wrong shape.
var ErrMalformedDataset = errors.New("malformed dataset")

// ErrUnknownPublicationState is returned when a CKAN package carries a
// publication_state outside the DOI lifecycle.
var ErrUnknownPublicationState = errors.New("unknown publication_state")

// Dataset is the typed view of a CKAN package. Raw keeps the package exactly
// as CKAN returned it and is what gets stored as the DOI metadata snapshot.
//
// Maintainer, Author and Publication are JSON documents serialized into
// string fields, as CKAN stores them; use the accessor methods to decode them.
type Dataset struct {
	ID                  string           `json:"id"`
	Name                string           `json:"name"`
	Title               string           `json:"title"`
	DOI                 string           `json:"doi"`
	PublicationState    PublicationState `json:"publication_state"`
	Private             bool             `json:"private"`
	Maintainer          string           `json:"maintainer"`
	Author              string           `json:"author"`
	Notes               string           `json:"notes"`
	Tags                []Tag            `json:"tags"`
	LicenseTitle        string           `json:"license_title"`
	LicenseURL          string           `json:"license_url"`
	Version             FlexString       `json:"version"`
	Organization        Organization     `json:"organization"`
	MetadataCreated     string           `json:"metadata_created"`
	ResourceTypeGeneral string           `json:"resource_type_general"`
	Publication         string           `json:"publication"`

	Raw map[string]interface{} `json:"-"`
}

// Tag is a CKAN keyword.
type Tag struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name,omitempty"`
}

// Organization is the owning CKAN organization.
type Organization struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Title string `json:"title"`
}

// Contact is the decoded maintainer field.
type Contact struct {
	Name      string `json:"name"`
	GivenName string `json:"given_name,omitempty"`
	Email     string `json:"email"`
}

// FullName joins given name and name when both are set.
func (c Contact) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(c.GivenName) + " " + strings.TrimSpace(c.Name))
}

// Author is one entry of the decoded author list.
type Author struct {
	Name             string `json:"name"`
	GivenName        string `json:"given_name,omitempty"`
	Affiliation      string `json:"affiliation,omitempty"`
	Identifier       string `json:"identifier,omitempty"`
	IdentifierScheme string `json:"identifier_scheme,omitempty"`
	Email            string `json:"email,omitempty"`
}

// PublicationInfo is the decoded publication field.
type PublicationInfo struct {
	Publisher       string     `json:"publisher"`
	PublicationYear FlexString `json:"publication_year"`
}

// FlexString accepts a JSON string or number. CKAN extensions are not
// consistent about quoting years and versions.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number: %w", err)
	}
	*f = FlexString(n.String())
	return nil
}

// ParseDataset builds a Dataset from a CKAN package map. The id field is
// required; everything else may be empty.
func ParseDataset(raw map[string]interface{}) (*Dataset, error) {
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDataset, err)
	}
	var ds Dataset
	if err := json.Unmarshal(b, &ds); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDataset, err)
	}
	if ds.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrMalformedDataset)
	}
	ds.Raw = raw
	return &ds, nil
}

// MaintainerContact decodes the maintainer field.
func (d *Dataset) MaintainerContact() (Contact, error) {
	var c Contact
	if strings.TrimSpace(d.Maintainer) == "" {
		return c, fmt.Errorf("%w: missing maintainer", ErrMalformedDataset)
	}
	if err := json.Unmarshal([]byte(d.Maintainer), &c); err != nil {
		return c, fmt.Errorf("%w: maintainer: %v", ErrMalformedDataset, err)
	}
	if c.Email == "" {
		return c, fmt.Errorf("%w: maintainer has no email", ErrMalformedDataset)
	}
	return c, nil
}

// Authors decodes the author field. An empty field yields no authors.
func (d *Dataset) Authors() ([]Author, error) {
	if strings.TrimSpace(d.Author) == "" {
		return nil, nil
	}
	var authors []Author
	if err := json.Unmarshal([]byte(d.Author), &authors); err != nil {
		return nil, fmt.Errorf("%w: author: %v", ErrMalformedDataset, err)
	}
	return authors, nil
}

// PublicationDetails decodes the publication field.
func (d *Dataset) PublicationDetails() (PublicationInfo, error) {
	var p PublicationInfo
	if strings.TrimSpace(d.Publication) == "" {
		return p, nil
	}
	if err := json.Unmarshal([]byte(d.Publication), &p); err != nil {
		return p, fmt.Errorf("%w: publication: %v", ErrMalformedDataset, err)
	}
	return p, nil
}

// PublicationYear returns the publication year, falling back to the year of
// metadata_created.
func (d *Dataset) PublicationYear() string {
	if p, err := d.PublicationDetails(); err == nil && p.PublicationYear != "" {
		return string(p.PublicationYear)
	}
	if len(d.MetadataCreated) >= 4 {
		if _, err := strconv.Atoi(d.MetadataCreated[:4]); err == nil {
			return d.MetadataCreated[:4]
		}
	}
	return ""
}

// SnapshotJSON serializes the raw package for storage on a DoiRecord.
func (d *Dataset) SnapshotJSON() (string, error) {
	src := d.Raw
	if src == nil {
		b, err := json.Marshal(d)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	b, err := json.Marshal(src)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
