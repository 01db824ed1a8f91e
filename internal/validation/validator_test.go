// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

package validation

import (
	"strings"
	"testing"

	"github.com/tomtom215/doipub/internal/apperr"
)

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 != v2 {
		t.Error("GetValidator() should return the same singleton instance")
	}
	if v1 == nil {
		t.Error("GetValidator() should not return nil")
	}
}

type prefixRequest struct {
	Prefix      string `json:"prefix_id" validate:"required,doiprefix"`
	Description string `json:"description" validate:"max=20"`
}

type recordRequest struct {
	Prefix    string `json:"prefix_id" validate:"required,doiprefix"`
	Suffix    string `json:"suffix_id" validate:"required,doisuffix"`
	SubjectID string `json:"ckan_id" validate:"required"`
	Entity    string `json:"ckan_entity" validate:"omitempty,oneof=package resource"`
}

func TestValidateStruct_Valid(t *testing.T) {
	if err := ValidateStruct(&prefixRequest{Prefix: "10.16904", Description: "WSL"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	req := recordRequest{Prefix: "10.1000", Suffix: "envidat.42", SubjectID: "abc", Entity: "package"}
	if err := ValidateStruct(&req); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateStruct_UsesJSONFieldNames(t *testing.T) {
	err := ValidateStruct(&prefixRequest{})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if got := err.Errors()[0].Field(); got != "prefix_id" {
		t.Errorf("Field() = %q, want prefix_id", got)
	}
	if !strings.Contains(err.Error(), "prefix_id is required") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestValidateStruct_CustomTags(t *testing.T) {
	tests := []struct {
		name    string
		input   recordRequest
		wantTag string
	}{
		{"bad prefix", recordRequest{Prefix: "11.1000", Suffix: "x.1", SubjectID: "a"}, "doiprefix"},
		{"prefix with slash", recordRequest{Prefix: "10.1000/x", Suffix: "x.1", SubjectID: "a"}, "doiprefix"},
		{"suffix with slash", recordRequest{Prefix: "10.1000", Suffix: "a/b", SubjectID: "a"}, "doisuffix"},
		{"suffix with space", recordRequest{Prefix: "10.1000", Suffix: "a b", SubjectID: "a"}, "doisuffix"},
		{"bad entity", recordRequest{Prefix: "10.1000", Suffix: "a", SubjectID: "a", Entity: "dataset"}, "oneof"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.input)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if got := err.Errors()[0].Tag(); got != tt.wantTag {
				t.Errorf("Tag() = %q, want %q", got, tt.wantTag)
			}
		})
	}
}

func TestToAPIError_SingleAndMultiple(t *testing.T) {
	single := ValidateStruct(&prefixRequest{Prefix: "10.1"}) // valid prefix, valid description
	if single != nil {
		t.Fatalf("unexpected error: %v", single)
	}

	one := ValidateStruct(&prefixRequest{Prefix: "bogus"}).ToAPIError()
	if one.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %q", one.Code)
	}
	if one.Details["field"] != "prefix_id" {
		t.Errorf("Details = %v", one.Details)
	}

	many := ValidateStruct(&recordRequest{}).ToAPIError()
	fields, ok := many.Details["fields"].([]map[string]interface{})
	if !ok || len(fields) != 3 {
		t.Fatalf("Details[fields] = %#v, want 3 entries", many.Details["fields"])
	}
}

func TestAppError(t *testing.T) {
	err := ValidateStruct(&prefixRequest{Prefix: "bogus"}).AppError()
	if err.Kind != apperr.KindValidation {
		t.Errorf("Kind = %q", err.Kind)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d", err.Status)
	}
	if err.Details["field"] != "prefix_id" {
		t.Errorf("Details = %v", err.Details)
	}
}

func TestIsDOI(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"10.16904/envidat.123", true},
		{"10.5281/zenodo.4567", true},
		{"10.1000.1/abc", true},
		{"10.1000", false},
		{"11.1000/abc", false},
		{"10.1000/", false},
		{"10.1000/a b", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsDOI(tt.in); got != tt.want {
			t.Errorf("IsDOI(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
