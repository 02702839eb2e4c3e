// Pluviograph - Weather Radar Animation for Home Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pluviograph

package radar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/pluviograph/internal/config"
)

func testManagerConfig(indexURL string, interval time.Duration) *config.Config {
	return &config.Config{
		Radar: config.RadarConfig{
			IncludeNowcast: false,
		},
		Tiles: config.TilesConfig{
			RadarIndexURL:  indexURL,
			UserAgent:      "pluviograph-test/1.0",
			RequestTimeout: 5 * time.Second,
			PollInterval:   interval,
		},
	}
}

func TestManagerRefresh(t *testing.T) {
	var gotUA atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA.Store(r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleIndex))
	}))
	defer server.Close()

	m := NewManager(testManagerConfig(server.URL, time.Minute))

	if err := m.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	st := m.State()
	if len(st.Frames) != 3 {
		t.Errorf("got %d frames, want 3", len(st.Frames))
	}
	if st.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not set after successful refresh")
	}
	if st.Err != nil {
		t.Errorf("Err = %v, want nil", st.Err)
	}
	if ua := gotUA.Load(); ua != "pluviograph-test/1.0" {
		t.Errorf("User-Agent = %v", ua)
	}
}

func TestManagerFailedPollKeepsFrames(t *testing.T) {
	var failing atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			http.Error(w, "index offline", http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(sampleIndex))
	}))
	defer server.Close()

	m := NewManager(testManagerConfig(server.URL, time.Minute))
	ctx := context.Background()

	if err := m.Refresh(ctx); err != nil {
		t.Fatalf("initial refresh failed: %v", err)
	}
	updatedAt := m.State().UpdatedAt

	failing.Store(true)
	if err := m.Refresh(ctx); err == nil {
		t.Fatal("expected refresh error while upstream failing")
	}

	st := m.State()
	if len(st.Frames) != 3 {
		t.Errorf("failed poll dropped frames: got %d, want 3", len(st.Frames))
	}
	if !st.UpdatedAt.Equal(updatedAt) {
		t.Error("UpdatedAt advanced on a failed poll")
	}
	if st.Err == nil {
		t.Error("Err not recorded after failed poll")
	}

	// Recovery clears the recorded error.
	failing.Store(false)
	if err := m.Refresh(ctx); err != nil {
		t.Fatalf("recovery refresh failed: %v", err)
	}
	if st := m.State(); st.Err != nil {
		t.Errorf("Err = %v after recovery, want nil", st.Err)
	}
}

func TestManagerStartStop(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		_, _ = w.Write([]byte(sampleIndex))
	}))
	defer server.Close()

	m := NewManager(testManagerConfig(server.URL, 20*time.Millisecond))
	ctx := context.Background()

	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := m.Start(ctx); err == nil {
		t.Error("second Start should fail while running")
	}

	// Wait for the initial poll plus at least one tick.
	deadline := time.Now().Add(2 * time.Second)
	for requests.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if requests.Load() < 2 {
		t.Errorf("expected initial poll plus ticks, saw %d requests", requests.Load())
	}

	if err := m.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := m.Stop(); err == nil {
		t.Error("second Stop should fail when not running")
	}

	if len(m.State().Frames) == 0 {
		t.Error("no frames after polled start")
	}
}

func TestManagerStateReturnsCopy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleIndex))
	}))
	defer server.Close()

	m := NewManager(testManagerConfig(server.URL, time.Minute))
	if err := m.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	st := m.State()
	st.Frames[0] = Frame{Time: -1, Path: "mutated"}

	if got := m.State().Frames[0]; got.Time == -1 || got.Path == "mutated" {
		t.Error("State shares its backing array with callers")
	}
}
