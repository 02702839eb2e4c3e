// Pluviograph - Weather Radar Animation for Home Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pluviograph

// Package validation provides struct validation using go-playground/validator v10.
//
// This package wraps the go-playground/validator library to provide a
// thread-safe singleton validator with user-friendly error messages. It
// integrates with the API's error format for consistent error responses.
//
// # Quick Start
//
//	type RenderRequest struct {
//	    Width  int `validate:"omitempty,min=1"`
//	    Height int `validate:"omitempty,min=1"`
//	}
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//	    req := RenderRequest{...}
//	    if verr := validation.ValidateStruct(&req); verr != nil {
//	        apiErr := verr.ToAPIError()
//	        rw.BadRequestWithDetails(apiErr.Message, apiErr.Details)
//	        return
//	    }
//	    // proceed with valid request
//	}
//
// Dimension requests are only rejected when structurally invalid (zero or
// negative); in-range values that exceed the renderer's bounds are clamped
// downstream, not rejected.
//
// # API Error Integration
//
// The ToAPIError method produces errors matching the API response format:
//
//	{
//	    "code": "VALIDATION_ERROR",
//	    "message": "Width must be at least 1",
//	    "details": {"field": "Width", "tag": "min", "value": -20}
//	}
//
// # Thread Safety
//
// The singleton validator is initialized once and is safe for concurrent
// use. Struct reflection metadata is cached after the first validation of
// each type.
package validation
