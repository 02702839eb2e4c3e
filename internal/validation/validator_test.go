// Pluviograph - Weather Radar Animation for Home Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pluviograph

package validation

import (
	"strings"
	"testing"
)

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 == nil {
		t.Fatal("GetValidator() returned nil")
	}
	if v1 != v2 {
		t.Error("GetValidator() should return the same singleton instance")
	}
}

// dimensionRequest mirrors the shape the API uses for render and warm
// requests: dimensions are optional, but when present must be positive.
type dimensionRequest struct {
	Width  int `validate:"omitempty,min=1"`
	Height int `validate:"omitempty,min=1"`
}

func TestValidateStruct_DimensionRequest(t *testing.T) {
	tests := []struct {
		name      string
		input     dimensionRequest
		wantValid bool
		wantField string
	}{
		{
			name:      "both dimensions omitted",
			input:     dimensionRequest{},
			wantValid: true,
		},
		{
			name:      "explicit dimensions",
			input:     dimensionRequest{Width: 640, Height: 480},
			wantValid: true,
		},
		{
			name:      "oversized dimensions pass validation",
			input:     dimensionRequest{Width: 4000, Height: 4000},
			wantValid: true, // clamping happens downstream, not here
		},
		{
			name:      "negative width",
			input:     dimensionRequest{Width: -20, Height: 480},
			wantValid: false,
			wantField: "Width",
		},
		{
			name:      "negative height",
			input:     dimensionRequest{Width: 640, Height: -1},
			wantValid: false,
			wantField: "Height",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.input)
			if tt.wantValid {
				if err != nil {
					t.Fatalf("expected valid, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if len(err.Errors()) != 1 {
				t.Fatalf("expected 1 field error, got %d", len(err.Errors()))
			}
			if got := err.Errors()[0].Field(); got != tt.wantField {
				t.Errorf("expected failing field %q, got %q", tt.wantField, got)
			}
		})
	}
}

func TestValidateStruct_MultipleErrors(t *testing.T) {
	req := dimensionRequest{Width: -1, Height: -1}

	err := ValidateStruct(&req)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if len(err.Errors()) != 2 {
		t.Fatalf("expected 2 field errors, got %d", len(err.Errors()))
	}

	apiErr := err.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("expected code VALIDATION_ERROR, got %q", apiErr.Code)
	}
	if !strings.Contains(apiErr.Message, "Width") || !strings.Contains(apiErr.Message, "Height") {
		t.Errorf("combined message should name both fields: %q", apiErr.Message)
	}
	if _, ok := apiErr.Details["fields"]; !ok {
		t.Error("expected per-field details for multiple errors")
	}
}

func TestToAPIError_SingleError(t *testing.T) {
	req := dimensionRequest{Width: -5}

	err := ValidateStruct(&req)
	if err == nil {
		t.Fatal("expected validation error")
	}

	apiErr := err.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("expected code VALIDATION_ERROR, got %q", apiErr.Code)
	}
	if apiErr.Details["field"] != "Width" {
		t.Errorf("expected details.field Width, got %v", apiErr.Details["field"])
	}
	if apiErr.Message != "Width must be at least 1" {
		t.Errorf("unexpected message: %q", apiErr.Message)
	}
}

func TestValidationError_Accessors(t *testing.T) {
	type zoomRequest struct {
		Zoom int `validate:"min=1,max=10"`
	}

	err := ValidateStruct(&zoomRequest{Zoom: 99})
	if err == nil {
		t.Fatal("expected validation error")
	}

	fe := err.Errors()[0]
	if fe.Field() != "Zoom" {
		t.Errorf("Field() = %q", fe.Field())
	}
	if fe.Tag() != "max" {
		t.Errorf("Tag() = %q", fe.Tag())
	}
	if fe.Param() != "10" {
		t.Errorf("Param() = %q", fe.Param())
	}
	if fe.Value() != 99 {
		t.Errorf("Value() = %v", fe.Value())
	}
}
