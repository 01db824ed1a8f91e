// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

package externaldoi

import (
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/goccy/go-json"

	"github.com/tomtom215/doipub/internal/apperr"
	"github.com/tomtom215/doipub/internal/models"
)

// ZenodoSource fetches Zenodo records. Implemented by *ZenodoClient.
type ZenodoSource interface {
	Record(ctx context.Context, recordID string) (*ZenodoRecord, error)
}

// Options control how a record becomes a CKAN package.
type Options struct {
	// OwnerOrg is the CKAN organization the package is created in.
	OwnerOrg string

	// User becomes the package maintainer.
	User models.User

	// AddPlaceholders fills required EnviDat fields Zenodo has no value for.
	AddPlaceholders bool
}

// Conversion is a converted external DOI.
type Conversion struct {
	Platform Platform               `json:"platform"`
	DOI      string                 `json:"doi"`
	RecordID string                 `json:"record_id"`
	Package  map[string]interface{} `json:"result"`
}

// Converter turns external DOIs into CKAN package dictionaries.
type Converter struct {
	zenodo ZenodoSource
}

// NewConverter creates a Converter.
func NewConverter(zenodo ZenodoSource) *Converter {
	return &Converter{zenodo: zenodo}
}

// Convert fetches the record behind doi and maps it to a CKAN package.
func (c *Converter) Convert(ctx context.Context, doi string, opts Options) (*Conversion, error) {
	doi = NormalizeDOI(doi)
	if doi == "" {
		return nil, apperr.Validation("doi is required")
	}
	if strings.TrimSpace(opts.OwnerOrg) == "" {
		return nil, apperr.Validation("owner_org is required")
	}

	switch DetectPlatform(doi) {
	case PlatformZenodo:
		id, ok := RecordID(doi)
		if !ok {
			return nil, apperr.Validation("Cannot extract record ID from input Zenodo DOI").WithDetail("doi", doi)
		}
		rec, err := c.zenodo.Record(ctx, id)
		if err != nil {
			return nil, err
		}
		pkg, err := ZenodoToPackage(rec, doi, opts)
		if err != nil {
			return nil, err
		}
		return &Conversion{Platform: PlatformZenodo, DOI: doi, RecordID: id, Package: pkg}, nil
	default:
		return nil, apperr.NotFound("The following DOI is not currently supported for conversion: %s", doi).
			WithDetail("doi", doi)
	}
}

// ZenodoToPackage maps a Zenodo record to an EnviDat CKAN package. Only data
// present on the record is converted unless opts.AddPlaceholders is set.
func ZenodoToPackage(rec *ZenodoRecord, doi string, opts Options) (map[string]interface{}, error) {
	md := rec.Metadata
	if strings.TrimSpace(md.Title) == "" {
		return nil, apperr.Validation("Zenodo record %s has no title", rec.ID.String())
	}

	name := Slug(md.Title)
	if name == "" {
		name = "zenodo-" + rec.ID.String()
	}

	authors := make([]models.Author, 0, len(md.Creators))
	for _, cr := range md.Creators {
		a := splitCreator(cr.Name)
		a.Affiliation = cr.Affiliation
		if cr.ORCID != "" {
			a.Identifier = cr.ORCID
			a.IdentifierScheme = "orcid"
		}
		authors = append(authors, a)
	}
	authorJSON, err := json.Marshal(authors)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindInternal, "failed to encode authors")
	}

	maintainerJSON, err := json.Marshal(models.Contact{Name: opts.User.Label(), Email: opts.User.Email})
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindInternal, "failed to encode maintainer")
	}

	year := ""
	if len(md.PublicationDate) >= 4 {
		year = md.PublicationDate[:4]
	}
	publicationJSON, err := json.Marshal(map[string]string{"publisher": "Zenodo", "publication_year": year})
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindInternal, "failed to encode publication")
	}

	tags := make([]map[string]string, 0, len(md.Keywords))
	for _, t := range Tags(md.Keywords) {
		tags = append(tags, map[string]string{"name": t})
	}

	pkg := map[string]interface{}{
		"name":                  name,
		"title":                 strings.TrimSpace(md.Title),
		"notes":                 StripHTML(md.Description),
		"doi":                   doi,
		"owner_org":             opts.OwnerOrg,
		"author":                string(authorJSON),
		"maintainer":            string(maintainerJSON),
		"publication":           string(publicationJSON),
		"tags":                  tags,
		"version":               md.Version,
		"license_id":            md.License.ID,
		"resource_type":         md.ResourceType.Type,
		"resource_type_general": "dataset",
		"publication_state":     string(models.StatePublished),
		"private":               false,
		"url":                   "https://doi.org/" + doi,
	}

	if opts.AddPlaceholders {
		addPlaceholders(pkg, md)
	}
	return pkg, nil
}

// placeholderSpatial is a global extent.
const placeholderSpatial = `{"type":"Polygon","coordinates":[[[-180,-90],[180,-90],[180,90],[-180,90],[-180,-90]]]}`

func addPlaceholders(pkg map[string]interface{}, md ZenodoMetadata) {
	if pkg["version"] == "" {
		pkg["version"] = "1.0"
	}
	if pkg["license_id"] == "" {
		pkg["license_id"] = "other-undefined"
	}
	if pkg["notes"] == "" {
		pkg["notes"] = "No description available."
	}
	pkg["funding"] = `[{"institution":"Not available","grant_number":"","institution_url":""}]`
	pkg["spatial"] = placeholderSpatial
	pkg["spatial_info"] = "Global"
	pkg["language"] = "en"
	if md.PublicationDate != "" {
		pkg["date"] = `[{"date":"` + md.PublicationDate + `","date_type":"created","end_date":""}]`
	}
	if tags, _ := pkg["tags"].([]map[string]string); len(tags) == 0 {
		pkg["tags"] = []map[string]string{{"name": "ZENODO"}}
	}
}

// splitCreator parses "Family, Given". Names without a comma are kept whole.
func splitCreator(name string) models.Author {
	family, given, ok := strings.Cut(name, ",")
	if !ok {
		return models.Author{Name: strings.TrimSpace(name)}
	}
	return models.Author{Name: strings.TrimSpace(family), GivenName: strings.TrimSpace(given)}
}

var (
	slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)
	tagInvalid  = regexp.MustCompile(`[^A-Z0-9 _.\-]+`)
	spaces      = regexp.MustCompile(`\s+`)
)

// maxNameLength keeps generated names well under CKAN's 100 character limit.
const maxNameLength = 80

// Slug builds a CKAN package name from a title.
func Slug(title string) string {
	s := slugInvalid.ReplaceAllString(strings.ToLower(title), "-")
	s = strings.Trim(s, "-")
	if len(s) > maxNameLength {
		s = strings.TrimRight(s[:maxNameLength], "-")
	}
	return s
}

// Tags normalizes keywords into EnviDat tags: upper case, CKAN-safe
// characters, at least two characters, no duplicates.
func Tags(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	seen := make(map[string]bool, len(keywords))
	for _, k := range keywords {
		t := tagInvalid.ReplaceAllString(strings.ToUpper(k), " ")
		t = strings.TrimSpace(spaces.ReplaceAllString(t, " "))
		if len(t) < 2 || seen[t] {
			continue
		}
		if len(t) > 100 {
			t = t[:100]
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// blockElements are separated by a space when markup is stripped.
const blockElements = "p, br, li, div, tr, h1, h2, h3, h4, h5, h6"

// StripHTML returns the text of a Zenodo description with markup removed and
// whitespace collapsed.
func StripHTML(s string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
	}
	doc.Find(blockElements).AfterHtml(" ")
	return strings.TrimSpace(spaces.ReplaceAllString(doc.Text(), " "))
}
