// Pluviograph - Weather Radar Animation for Home Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pluviograph

package tiles

import (
	"errors"
	"testing"

	gobreaker "github.com/sony/gobreaker/v2"
)

func TestBreakerPassesThroughSuccess(t *testing.T) {
	b := newFetchBreaker("test_breaker_success")
	want := &TileData{ContentType: "image/png", Body: []byte{0x89}}

	got, err := b.execute(func() (*TileData, error) {
		return want, nil
	})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if got != want {
		t.Error("execute did not return the fetched tile")
	}
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	b := newFetchBreaker("test_breaker_open")
	upstreamDown := errors.New("upstream down")

	// Ten consecutive failures satisfy both the minimum request count and
	// the failure-rate threshold.
	for i := 0; i < 10; i++ {
		if _, err := b.execute(func() (*TileData, error) {
			return nil, upstreamDown
		}); !errors.Is(err, upstreamDown) {
			t.Fatalf("attempt %d: expected upstream error, got %v", i, err)
		}
	}

	var called bool
	_, err := b.execute(func() (*TileData, error) {
		called = true
		return &TileData{}, nil
	})
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected ErrOpenState after trip, got %v", err)
	}
	if called {
		t.Error("breaker invoked the fetch while open")
	}
}

func TestBreakerStaysClosedBelowThreshold(t *testing.T) {
	b := newFetchBreaker("test_breaker_mixed")

	// Five failures across eleven requests is under the 60% trip rate.
	for i := 0; i < 5; i++ {
		_, _ = b.execute(func() (*TileData, error) {
			return nil, errors.New("flaky")
		})
	}
	for i := 0; i < 6; i++ {
		if _, err := b.execute(func() (*TileData, error) {
			return &TileData{}, nil
		}); err != nil {
			t.Fatalf("success %d rejected: %v", i, err)
		}
	}

	if _, err := b.execute(func() (*TileData, error) {
		return &TileData{}, nil
	}); err != nil {
		t.Fatalf("breaker should remain closed, got %v", err)
	}
}

func TestStateOrdinal(t *testing.T) {
	tests := []struct {
		state gobreaker.State
		want  int
	}{
		{gobreaker.StateClosed, 0},
		{gobreaker.StateHalfOpen, 1},
		{gobreaker.StateOpen, 2},
		{gobreaker.State(99), -1},
	}

	for _, tt := range tests {
		if got := stateOrdinal(tt.state); got != tt.want {
			t.Errorf("stateOrdinal(%v) = %d, want %d", tt.state, got, tt.want)
		}
	}
}

func TestStateName(t *testing.T) {
	tests := []struct {
		state gobreaker.State
		want  string
	}{
		{gobreaker.StateClosed, "closed"},
		{gobreaker.StateHalfOpen, "half-open"},
		{gobreaker.StateOpen, "open"},
		{gobreaker.State(99), "unknown"},
	}

	for _, tt := range tests {
		if got := stateName(tt.state); got != tt.want {
			t.Errorf("stateName(%v) = %q, want %q", tt.state, got, tt.want)
		}
	}
}
