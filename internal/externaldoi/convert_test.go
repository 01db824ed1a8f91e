// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

package externaldoi

import (
	"context"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/doipub/internal/apperr"
	"github.com/tomtom215/doipub/internal/models"
)

type stubZenodo struct {
	records map[string]string
	calls   []string
}

func (s *stubZenodo) Record(_ context.Context, id string) (*ZenodoRecord, error) {
	s.calls = append(s.calls, id)
	raw, ok := s.records[id]
	if !ok {
		return nil, apperr.NotFound("Zenodo record %s not found", id)
	}
	var rec ZenodoRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

var importUser = models.User{Name: "alice", FullName: "Alice Muster", Email: "alice@example.org"}

func TestConverter_Zenodo(t *testing.T) {
	src := &stubZenodo{records: map[string]string{"5230562": sampleRecord}}
	conv, err := NewConverter(src).Convert(context.Background(), "https://doi.org/10.5281/zenodo.5230562",
		Options{OwnerOrg: "org-1", User: importUser})
	require.NoError(t, err)

	assert.Equal(t, PlatformZenodo, conv.Platform)
	assert.Equal(t, "5230562", conv.RecordID)
	assert.Equal(t, []string{"5230562"}, src.calls)

	pkg := conv.Package
	assert.Equal(t, "snow-depth-measurements-davos-2020", pkg["name"])
	assert.Equal(t, "10.5281/zenodo.5230562", pkg["doi"])
	assert.Equal(t, "org-1", pkg["owner_org"])
	assert.Equal(t, "Daily snow depth at & around Davos.", pkg["notes"])
	assert.Equal(t, "published", pkg["publication_state"])
	assert.Equal(t, []map[string]string{{"name": "SNOW"}, {"name": "DAVOS"}}, pkg["tags"])

	var authors []models.Author
	require.NoError(t, json.Unmarshal([]byte(pkg["author"].(string)), &authors))
	require.Len(t, authors, 2)
	assert.Equal(t, "Muster", authors[0].Name)
	assert.Equal(t, "Max", authors[0].GivenName)
	assert.Equal(t, "orcid", authors[0].IdentifierScheme)
	assert.Equal(t, "SLF Team", authors[1].Name)

	// the converted package must read back as a dataset
	ds := &models.Dataset{Maintainer: pkg["maintainer"].(string), Publication: pkg["publication"].(string)}
	contact, err := ds.MaintainerContact()
	require.NoError(t, err)
	assert.Equal(t, "alice@example.org", contact.Email)
	assert.Equal(t, "2021", ds.PublicationYear())

	_, hasFunding := pkg["funding"]
	assert.False(t, hasFunding, "placeholders only on request")
}

func TestConverter_Placeholders(t *testing.T) {
	src := &stubZenodo{records: map[string]string{"7": `{"id": 7, "metadata": {"title": "Bare"}}`}}
	conv, err := NewConverter(src).Convert(context.Background(), "10.5281/zenodo.7",
		Options{OwnerOrg: "org-1", User: importUser, AddPlaceholders: true})
	require.NoError(t, err)

	pkg := conv.Package
	assert.Equal(t, "1.0", pkg["version"])
	assert.Equal(t, "other-undefined", pkg["license_id"])
	assert.Equal(t, "Global", pkg["spatial_info"])
	assert.NotEmpty(t, pkg["funding"])
	assert.Equal(t, []map[string]string{{"name": "ZENODO"}}, pkg["tags"])
}

func TestConverter_Errors(t *testing.T) {
	src := &stubZenodo{records: map[string]string{"1": `{"id": 1, "metadata": {"title": ""}}`}}
	c := NewConverter(src)

	tests := []struct {
		name string
		doi  string
		org  string
		want apperr.Kind
	}{
		{"unsupported platform", "10.16904/envidat.1", "org", apperr.KindNotFound},
		{"missing owner org", "10.5281/zenodo.1", "", apperr.KindValidation},
		{"empty doi", " ", "org", apperr.KindValidation},
		{"no record id", "10.5281/zenodo.", "org", apperr.KindValidation},
		{"record not found", "10.5281/zenodo.404", "org", apperr.KindNotFound},
		{"record without title", "10.5281/zenodo.1", "org", apperr.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Convert(context.Background(), tt.doi, Options{OwnerOrg: tt.org, User: importUser})
			require.Error(t, err)
			assert.Equal(t, tt.want, apperr.KindOf(err))
		})
	}
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "snow-depth-2020", Slug("  Snow Depth (2020)! "))
	assert.Equal(t, "", Slug("***"))
	long := Slug("a very long title that keeps going and going and going until it is far beyond the limit of names")
	assert.LessOrEqual(t, len(long), maxNameLength)
	assert.NotEqual(t, byte('-'), long[len(long)-1])
}

func TestTags(t *testing.T) {
	assert.Equal(t, []string{"SNOW COVER", "DAVOS", "CC"}, Tags([]string{"snow  cover", "Davos", "davos", "a", "cc"}))
}

func TestStripHTML(t *testing.T) {
	assert.Equal(t, "Hello world & more", StripHTML("<p>Hello <b>world</b></p>\n&amp; more"))
	assert.Equal(t, "first second third", StripHTML("<p>first</p><p>second<br>third</p>"))
	assert.Equal(t, "plain text", StripHTML("  plain   text "))
}
