// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

package ckan

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/doipub/internal/apperr"
	"github.com/tomtom215/doipub/internal/config"
	"github.com/tomtom215/doipub/internal/models"
)

// actionServer answers CKAN actions from a handler map.
func actionServer(t *testing.T, handlers map[string]func(w http.ResponseWriter, body map[string]interface{}, r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		action := r.URL.Path[len("/api/3/action/"):]
		h, ok := handlers[action]
		if !ok {
			t.Errorf("unexpected action %q", action)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var body map[string]interface{}
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &body)
		h(w, body, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(url string) *Client {
	return New(config.CKANConfig{URL: url + "/", Timeout: 2 * time.Second})
}

func TestFetchRecord(t *testing.T) {
	srv := actionServer(t, map[string]func(http.ResponseWriter, map[string]interface{}, *http.Request){
		"package_show": func(w http.ResponseWriter, body map[string]interface{}, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "token-123" {
				t.Errorf("Authorization = %q", got)
			}
			if body["id"] != "my-dataset" {
				t.Errorf("id = %v", body["id"])
			}
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"success": true,
				"result": map[string]interface{}{
					"id":                "abc",
					"name":              "my-dataset",
					"title":             "My Dataset",
					"publication_state": "reserved",
					"doi":               "10.1000/envidat.1",
					"maintainer":        `{"name":"Doe","given_name":"Jane","email":"jane@example.org"}`,
				},
			})
		},
	})

	ds, err := newTestClient(srv.URL).FetchRecord(context.Background(), "my-dataset", "token-123")
	if err != nil {
		t.Fatalf("FetchRecord() error = %v", err)
	}
	if ds.ID != "abc" || ds.PublicationState != models.StateReserved || ds.DOI != "10.1000/envidat.1" {
		t.Errorf("dataset = %+v", ds)
	}
	if ds.Raw["title"] != "My Dataset" {
		t.Errorf("raw snapshot not retained: %v", ds.Raw)
	}
}

func TestFetchRecord_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   interface{}
		want   apperr.Kind
	}{
		{"not found", http.StatusNotFound, map[string]interface{}{"success": false, "error": map[string]interface{}{"__type": "Not Found Error", "message": "Not found"}}, apperr.KindNotFound},
		{"not found type on 200", http.StatusOK, map[string]interface{}{"success": false, "error": map[string]interface{}{"__type": "Not Found Error"}}, apperr.KindNotFound},
		{"forbidden", http.StatusForbidden, map[string]interface{}{"success": false, "error": map[string]interface{}{"__type": "Authorization Error", "message": "Access denied"}}, apperr.KindForbidden},
		{"validation", http.StatusConflict, map[string]interface{}{"success": false, "error": map[string]interface{}{"__type": "Validation Error", "name": []string{"That URL is already in use."}}}, apperr.KindValidation},
		{"server error", http.StatusInternalServerError, map[string]interface{}{"success": false}, apperr.KindUpstreamUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := actionServer(t, map[string]func(http.ResponseWriter, map[string]interface{}, *http.Request){
				"package_show": func(w http.ResponseWriter, _ map[string]interface{}, _ *http.Request) {
					writeJSON(w, tt.status, tt.body)
				},
			})
			_, err := newTestClient(srv.URL).FetchRecord(context.Background(), "x", "t")
			if got := apperr.KindOf(err); got != tt.want {
				t.Errorf("KindOf(err) = %s, want %s (err = %v)", got, tt.want, err)
			}
		})
	}
}

func TestFetchRecord_HTMLGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchRecord(context.Background(), "x", "t")
	if apperr.KindOf(err) != apperr.KindUpstreamUnavailable {
		t.Errorf("err = %v, want UPSTREAM_UNAVAILABLE", err)
	}
	if apperr.StatusOf(err) != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", apperr.StatusOf(err))
	}
}

func TestFetchRecord_ConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTestClient(url).FetchRecord(context.Background(), "x", "t")
	if apperr.KindOf(err) != apperr.KindUpstreamUnavailable {
		t.Errorf("err = %v, want UPSTREAM_UNAVAILABLE", err)
	}
}

func TestFetchRecord_MalformedDataset(t *testing.T) {
	srv := actionServer(t, map[string]func(http.ResponseWriter, map[string]interface{}, *http.Request){
		"package_show": func(w http.ResponseWriter, _ map[string]interface{}, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "result": map[string]interface{}{"name": "no-id"}})
		},
	})

	_, err := newTestClient(srv.URL).FetchRecord(context.Background(), "x", "t")
	if !errors.Is(err, models.ErrMalformedDataset) {
		t.Errorf("err = %v, want ErrMalformedDataset", err)
	}
}

func TestFetchRecord_UnknownPublicationState(t *testing.T) {
	srv := actionServer(t, map[string]func(http.ResponseWriter, map[string]interface{}, *http.Request){
		"package_show": func(w http.ResponseWriter, _ map[string]interface{}, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "result": map[string]interface{}{
				"id": "abc", "name": "my-dataset", "publication_state": "draft",
			}})
		},
	})

	_, err := newTestClient(srv.URL).FetchRecord(context.Background(), "abc", "t")
	if !errors.Is(err, models.ErrUnknownPublicationState) {
		t.Fatalf("err = %v, want ErrUnknownPublicationState", err)
	}
	if apperr.KindOf(err) != apperr.KindUpstreamUnavailable {
		t.Errorf("kind = %s", apperr.KindOf(err))
	}
}

func TestPatchRecord(t *testing.T) {
	srv := actionServer(t, map[string]func(http.ResponseWriter, map[string]interface{}, *http.Request){
		"package_patch": func(w http.ResponseWriter, body map[string]interface{}, _ *http.Request) {
			if body["id"] != "abc" {
				t.Errorf("id = %v", body["id"])
			}
			if body["publication_state"] != "published" || body["private"] != false {
				t.Errorf("patch body = %v", body)
			}
			if len(body) != 3 {
				t.Errorf("patch should only carry id and the given fields, got %v", body)
			}
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"success": true,
				"result":  map[string]interface{}{"id": "abc", "publication_state": "published"},
			})
		},
	})

	ds, err := newTestClient(srv.URL).PatchRecord(context.Background(), "abc", map[string]interface{}{
		"publication_state": "published",
		"private":           false,
	}, "t")
	if err != nil {
		t.Fatalf("PatchRecord() error = %v", err)
	}
	if ds.PublicationState != models.StatePublished {
		t.Errorf("state = %s", ds.PublicationState)
	}
}

func TestShowUser(t *testing.T) {
	srv := actionServer(t, map[string]func(http.ResponseWriter, map[string]interface{}, *http.Request){
		"user_show": func(w http.ResponseWriter, body map[string]interface{}, _ *http.Request) {
			if body["include_datasets"] != false {
				t.Errorf("include_datasets = %v", body["include_datasets"])
			}
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"success": true,
				"result":  map[string]interface{}{"id": "u1", "name": "admin", "email": "admin@example.org", "sysadmin": true},
			})
		},
	})

	u, err := newTestClient(srv.URL).ShowUser(context.Background(), "t")
	if err != nil {
		t.Fatalf("ShowUser() error = %v", err)
	}
	if !u.Sysadmin || u.Email != "admin@example.org" {
		t.Errorf("user = %+v", u)
	}
}

func TestShowUser_NotFound(t *testing.T) {
	srv := actionServer(t, map[string]func(http.ResponseWriter, map[string]interface{}, *http.Request){
		"user_show": func(w http.ResponseWriter, _ map[string]interface{}, _ *http.Request) {
			writeJSON(w, http.StatusNotFound, map[string]interface{}{"success": false, "error": map[string]interface{}{"__type": "Not Found Error"}})
		},
	})

	_, err := newTestClient(srv.URL).ShowUser(context.Background(), "t")
	e, ok := apperr.As(err)
	if !ok || e.Kind != apperr.KindNotFound || e.Message != "user not found" {
		t.Errorf("err = %v", err)
	}
}

func TestCreatePackage(t *testing.T) {
	srv := actionServer(t, map[string]func(http.ResponseWriter, map[string]interface{}, *http.Request){
		"package_create": func(w http.ResponseWriter, body map[string]interface{}, _ *http.Request) {
			if body["name"] != "zenodo-123" {
				t.Errorf("name = %v", body["name"])
			}
			writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "result": map[string]interface{}{"id": "new", "name": "zenodo-123"}})
		},
	})

	ds, err := newTestClient(srv.URL).CreatePackage(context.Background(), map[string]interface{}{"name": "zenodo-123"}, "t")
	if err != nil {
		t.Fatalf("CreatePackage() error = %v", err)
	}
	if ds.ID != "new" {
		t.Errorf("id = %s", ds.ID)
	}
}
