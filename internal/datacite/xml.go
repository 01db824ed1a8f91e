// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

package datacite

import (
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"

	"github.com/tomtom215/doipub/internal/models"
)

// ErrConversion is returned when a dataset lacks a field DataCite requires.
var ErrConversion = errors.New("datacite conversion failed")

const (
	kernelNamespace = "http://datacite.org/schema/kernel-4"
	kernelSchema    = "http://datacite.org/schema/kernel-4 http://schema.datacite.org/meta/kernel-4/metadata.xsd"
	xsiNamespace    = "http://www.w3.org/2001/XMLSchema-instance"
)

// resource is the subset of the DataCite kernel-4 schema this service emits.
type resource struct {
	XMLName         xml.Name      `xml:"resource"`
	Xmlns           string        `xml:"xmlns,attr"`
	XmlnsXSI        string        `xml:"xmlns:xsi,attr"`
	SchemaLocation  string        `xml:"xsi:schemaLocation,attr"`
	Identifier      identifier    `xml:"identifier"`
	Creators        []creator     `xml:"creators>creator"`
	Titles          []title       `xml:"titles>title"`
	Publisher       string        `xml:"publisher"`
	PublicationYear string        `xml:"publicationYear"`
	ResourceType    resourceType  `xml:"resourceType"`
	Subjects        []string      `xml:"subjects>subject,omitempty"`
	Version         string        `xml:"version,omitempty"`
	Rights          []rights      `xml:"rightsList>rights,omitempty"`
	Descriptions    []description `xml:"descriptions>description,omitempty"`
}

type identifier struct {
	Type  string `xml:"identifierType,attr"`
	Value string `xml:",chardata"`
}

type creator struct {
	Name           string          `xml:"creatorName"`
	GivenName      string          `xml:"givenName,omitempty"`
	FamilyName     string          `xml:"familyName,omitempty"`
	NameIdentifier *nameIdentifier `xml:"nameIdentifier,omitempty"`
	Affiliation    []string        `xml:"affiliation,omitempty"`
}

type nameIdentifier struct {
	Scheme    string `xml:"nameIdentifierScheme,attr"`
	SchemeURI string `xml:"schemeURI,attr,omitempty"`
	Value     string `xml:",chardata"`
}

type title struct {
	Lang  string `xml:"xml:lang,attr,omitempty"`
	Value string `xml:",chardata"`
}

type resourceType struct {
	General string `xml:"resourceTypeGeneral,attr"`
	Value   string `xml:",chardata"`
}

type rights struct {
	URI   string `xml:"rightsURI,attr,omitempty"`
	Value string `xml:",chardata"`
}

type description struct {
	Type  string `xml:"descriptionType,attr"`
	Value string `xml:",chardata"`
}

// ToXML renders ds as DataCite kernel-4 XML for doi.
//
// Title, at least one author, a publisher (publication.publisher or the
// organization title) and a publication year are required.
func ToXML(ds *models.Dataset, doi string) ([]byte, error) {
	if ds == nil {
		return nil, fmt.Errorf("%w: no dataset", ErrConversion)
	}
	if strings.TrimSpace(ds.Title) == "" {
		return nil, fmt.Errorf("%w: missing title", ErrConversion)
	}

	authors, err := ds.Authors()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConversion, err)
	}
	if len(authors) == 0 {
		return nil, fmt.Errorf("%w: missing authors", ErrConversion)
	}

	pub, err := ds.PublicationDetails()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConversion, err)
	}
	publisher := pub.Publisher
	if publisher == "" {
		publisher = ds.Organization.Title
	}
	if publisher == "" {
		return nil, fmt.Errorf("%w: missing publisher", ErrConversion)
	}

	year := ds.PublicationYear()
	if year == "" {
		return nil, fmt.Errorf("%w: missing publication year", ErrConversion)
	}

	r := resource{
		Xmlns:           kernelNamespace,
		XmlnsXSI:        xsiNamespace,
		SchemaLocation:  kernelSchema,
		Identifier:      identifier{Type: "DOI", Value: doi},
		Titles:          []title{{Lang: "en", Value: ds.Title}},
		Publisher:       publisher,
		PublicationYear: year,
		ResourceType:    resourceTypeOf(ds.ResourceTypeGeneral),
		Version:         string(ds.Version),
	}

	for _, a := range authors {
		r.Creators = append(r.Creators, creatorOf(a))
	}
	for _, t := range ds.Tags {
		if t.Name != "" {
			r.Subjects = append(r.Subjects, t.Name)
		}
	}
	if ds.LicenseTitle != "" {
		r.Rights = []rights{{URI: ds.LicenseURL, Value: ds.LicenseTitle}}
	}
	if notes := strings.TrimSpace(ds.Notes); notes != "" {
		r.Descriptions = []description{{Type: "Abstract", Value: notes}}
	}

	out, err := xml.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConversion, err)
	}
	return append([]byte(xml.Header), out...), nil
}

// ToBase64XML is ToXML encoded for the xml attribute of a DOI request.
func ToBase64XML(ds *models.Dataset, doi string) (string, error) {
	b, err := ToXML(ds, doi)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func creatorOf(a models.Author) creator {
	c := creator{
		GivenName:  strings.TrimSpace(a.GivenName),
		FamilyName: strings.TrimSpace(a.Name),
	}
	c.Name = c.FamilyName
	if c.GivenName != "" {
		c.Name = c.FamilyName + ", " + c.GivenName
	}
	if aff := strings.TrimSpace(a.Affiliation); aff != "" {
		c.Affiliation = []string{aff}
	}
	if id := strings.TrimSpace(a.Identifier); id != "" {
		scheme := a.IdentifierScheme
		if scheme == "" || strings.EqualFold(scheme, "orcid") {
			c.NameIdentifier = &nameIdentifier{Scheme: "ORCID", SchemeURI: "https://orcid.org/", Value: id}
		} else {
			c.NameIdentifier = &nameIdentifier{Scheme: scheme, Value: id}
		}
	}
	return c
}

// resourceTypeOf normalizes the CKAN value ("dataset", "Software") to the
// controlled resourceTypeGeneral vocabulary casing. Empty means Dataset.
func resourceTypeOf(general string) resourceType {
	general = strings.TrimSpace(general)
	if general == "" {
		general = "Dataset"
	}
	general = strings.ToUpper(general[:1]) + general[1:]
	return resourceType{General: general, Value: general}
}
