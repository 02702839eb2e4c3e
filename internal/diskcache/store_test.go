// Pluviograph - Weather Radar Animation for Home Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pluviograph

package diskcache

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

const testKey = "0123456789abcdef"

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestPublishAndLatest(t *testing.T) {
	s := newTestStore(t)
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	artifact := []byte("GIF89a-test-artifact")

	if err := s.Publish(testKey, artifact, 200, 150, now); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	data, meta, err := s.Latest(10*time.Minute, now.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if !bytes.Equal(data, artifact) {
		t.Error("Latest returned different bytes than published")
	}
	if meta.Width != 200 || meta.Height != 150 {
		t.Errorf("meta dimensions = %dx%d, want 200x150", meta.Width, meta.Height)
	}
	if !meta.RenderedAt.Equal(now) {
		t.Errorf("meta.RenderedAt = %v, want %v", meta.RenderedAt, now)
	}

	// No temp files left behind.
	entries, err := os.ReadDir(s.Dir())
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Errorf("publish left temp file %s", e.Name())
		}
	}
}

func TestLatestStale(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	if err := s.Publish(testKey, []byte("GIF89a"), 200, 150, now.Add(-time.Hour)); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if _, _, err := s.Latest(10*time.Minute, now); !errors.Is(err, ErrNoArtifact) {
		t.Errorf("stale artifact should report ErrNoArtifact, got %v", err)
	}

	// The age gate hides the entry but does not delete it.
	if _, err := os.Stat(filepath.Join(s.Dir(), "radar-latest.gif")); err != nil {
		t.Errorf("stale latest slot should remain on disk: %v", err)
	}

	// LatestMeta has no age gate.
	meta, err := s.LatestMeta()
	if err != nil {
		t.Fatalf("LatestMeta: %v", err)
	}
	if meta.Width != 200 {
		t.Errorf("meta.Width = %d, want 200", meta.Width)
	}
}

func TestLatestEmptyStore(t *testing.T) {
	s := newTestStore(t)
	if _, _, err := s.Latest(time.Hour, time.Now()); !errors.Is(err, ErrNoArtifact) {
		t.Errorf("empty store should report ErrNoArtifact, got %v", err)
	}
	if _, err := s.LatestMeta(); !errors.Is(err, ErrNoArtifact) {
		t.Errorf("empty store LatestMeta should report ErrNoArtifact, got %v", err)
	}
}

func TestCorruptSidecarHidesArtifact(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	if err := s.Publish(testKey, []byte("GIF89a"), 200, 150, now); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	tests := []struct {
		name    string
		sidecar string
	}{
		{"malformed json", `{"width": 200,`},
		{"zero dimensions", `{"width":0,"height":150,"renderedAt":"2026-03-14T09:30:00Z"}`},
		{"missing timestamp", `{"width":200,"height":150}`},
		{"missing checksum", `{"width":200,"height":150,"renderedAt":"2026-03-14T09:30:00Z"}`},
		{"truncated checksum", `{"width":200,"height":150,"renderedAt":"2026-03-14T09:30:00Z","checksum":"abc123"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(s.Dir(), "radar-latest.meta.json")
			if err := os.WriteFile(path, []byte(tt.sidecar), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, _, err := s.Latest(time.Hour, now); !errors.Is(err, ErrNoArtifact) {
				t.Errorf("untrusted sidecar should report ErrNoArtifact, got %v", err)
			}
			if _, err := s.LatestMeta(); !errors.Is(err, ErrNoArtifact) {
				t.Errorf("untrusted sidecar should hide meta too, got %v", err)
			}
		})
	}
}

// The latest slot is two files, so a publish can land between a reader's
// sidecar read and its data read. The artifacts here encode their own
// width in the payload, so any served pair whose sidecar disagrees with
// its data is caught immediately.
func TestLatestConsistentUnderConcurrentPublish(t *testing.T) {
	s := newTestStore(t)

	artifacts := map[int][]byte{
		100: []byte("GIF89a-width-0100"),
		200: []byte("GIF89a-width-0200"),
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		width := 100
		for {
			select {
			case <-done:
				return
			default:
			}
			if err := s.Publish(testKey, artifacts[width], width, width/2, time.Now()); err != nil {
				t.Errorf("Publish: %v", err)
				return
			}
			if width == 100 {
				width = 200
			} else {
				width = 100
			}
		}
	}()

	deadline := time.Now().Add(300 * time.Millisecond)
	var served int
	for time.Now().Before(deadline) {
		data, meta, err := s.Latest(time.Hour, time.Now())
		if errors.Is(err, ErrNoArtifact) {
			continue
		}
		if err != nil {
			t.Fatalf("Latest: %v", err)
		}
		if !bytes.Equal(data, artifacts[meta.Width]) {
			t.Fatalf("mismatched pair: meta.Width=%d data=%q", meta.Width, data)
		}
		served++
	}
	close(done)
	wg.Wait()

	if served == 0 {
		t.Error("reader never observed a published artifact")
	}
}

func TestPublishOverwritesLatestSlot(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	if err := s.Publish(testKey, []byte("GIF89a-old"), 200, 150, now.Add(-time.Minute)); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := s.Publish("fedcba9876543210", []byte("GIF89a-new"), 300, 200, now); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	data, meta, err := s.Latest(time.Hour, now)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if !bytes.Equal(data, []byte("GIF89a-new")) {
		t.Error("latest slot should hold the most recent publish")
	}
	if meta.Width != 300 {
		t.Errorf("meta.Width = %d, want 300", meta.Width)
	}
}
