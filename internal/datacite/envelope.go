// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

package datacite

// JSON:API envelopes for the DataCite REST API.

const mediaType = "application/vnd.api+json"

// EventPublish moves a draft or registered DOI to findable.
const EventPublish = "publish"

type doiRequest struct {
	Data doiData `json:"data"`
}

type doiData struct {
	ID         string        `json:"id,omitempty"`
	Type       string        `json:"type"`
	Attributes doiAttributes `json:"attributes"`
}

type doiAttributes struct {
	DOI   string `json:"doi"`
	Event string `json:"event,omitempty"`
	URL   string `json:"url,omitempty"`
	XML   string `json:"xml,omitempty"`
}

type doiResponse struct {
	Data *struct {
		ID string `json:"id"`
	} `json:"data"`
	Errors []ErrorObject `json:"errors"`
}

func draftRequest(doi string) doiRequest {
	return doiRequest{Data: doiData{Type: "dois", Attributes: doiAttributes{DOI: doi}}}
}

func publishRequest(doi, landingURL, xmlBase64 string) doiRequest {
	return doiRequest{Data: doiData{
		ID:   doi,
		Type: "dois",
		Attributes: doiAttributes{
			DOI:   doi,
			Event: EventPublish,
			URL:   landingURL,
			XML:   xmlBase64,
		},
	}}
}
