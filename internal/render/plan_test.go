// Pluviograph - Weather Radar Animation for Home Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pluviograph

package render

import (
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/pluviograph/internal/config"
	"github.com/tomtom215/pluviograph/internal/radar"
)

// planConfig builds a minimal configuration for plan tests. UTC captions
// keep label assertions independent of the host zone.
func planConfig() *config.Config {
	return &config.Config{
		Radar: config.RadarConfig{
			Latitude:          -27.47,
			Longitude:         153.02,
			Zoom:              6,
			Width:             200,
			Height:            150,
			MaxFrames:         8,
			FrameHold:         500 * time.Millisecond,
			TileRing:          0,
			OverscanPx:        8,
			TimeZone:          "UTC",
			CaptionStaleAfter: 20 * time.Minute,
		},
		Tiles: config.TilesConfig{ProviderMaxZoom: 7},
	}
}

// framesAt builds frames at 10-minute spacing ending at end, oldest first.
func framesAt(end time.Time, n int) []radar.Frame {
	frames := make([]radar.Frame, n)
	for i := range frames {
		ts := end.Add(-time.Duration(n-1-i) * 10 * time.Minute)
		frames[i] = radar.Frame{Time: ts.Unix(), Path: "/v2/radar/" + ts.UTC().Format("1504")}
	}
	return frames
}

func TestPlanKeyDeterministic(t *testing.T) {
	cfg := planConfig()
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	frames := framesAt(now.Add(-5*time.Minute), 3)

	a, err := NewPlan(cfg, 200, 150, frames, now)
	if err != nil {
		t.Fatalf("NewPlan: %v", err)
	}
	b, err := NewPlan(cfg, 200, 150, frames, now)
	if err != nil {
		t.Fatalf("NewPlan: %v", err)
	}

	if a.Key != b.Key {
		t.Errorf("same inputs produced different keys: %q vs %q", a.Key, b.Key)
	}
	if len(a.Key) != 16 {
		t.Errorf("key length = %d, want 16 hex digits (%q)", len(a.Key), a.Key)
	}
	for _, r := range a.Key {
		if !strings.ContainsRune("0123456789abcdef", r) {
			t.Fatalf("key %q contains non-hex rune %q", a.Key, r)
		}
	}
}

func TestPlanKeySensitivity(t *testing.T) {
	cfg := planConfig()
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	frames := framesAt(now.Add(-5*time.Minute), 3)

	base, err := NewPlan(cfg, 200, 150, frames, now)
	if err != nil {
		t.Fatalf("NewPlan: %v", err)
	}

	t.Run("dimensions", func(t *testing.T) {
		p, err := NewPlan(cfg, 300, 150, frames, now)
		if err != nil {
			t.Fatalf("NewPlan: %v", err)
		}
		if p.Key == base.Key {
			t.Error("different width should change the key")
		}
	})

	t.Run("zoom", func(t *testing.T) {
		zoomed := planConfig()
		zoomed.Radar.Zoom = 5
		p, err := NewPlan(zoomed, 200, 150, frames, now)
		if err != nil {
			t.Fatalf("NewPlan: %v", err)
		}
		if p.Key == base.Key {
			t.Error("different zoom should change the key")
		}
	})

	t.Run("frame set", func(t *testing.T) {
		shifted := framesAt(now.Add(-15*time.Minute), 3)
		p, err := NewPlan(cfg, 200, 150, shifted, now)
		if err != nil {
			t.Fatalf("NewPlan: %v", err)
		}
		if p.Key == base.Key {
			t.Error("different frame timestamps should change the key")
		}
	})

	t.Run("center rounding", func(t *testing.T) {
		// Noise below the 4th decimal must not split the cache.
		noisy := planConfig()
		noisy.Radar.Latitude += 0.000004
		p, err := NewPlan(noisy, 200, 150, frames, now)
		if err != nil {
			t.Fatalf("NewPlan: %v", err)
		}
		if p.Key != base.Key {
			t.Error("sub-rounding center noise should not change the key")
		}
	})
}

func TestPlanNoFrames(t *testing.T) {
	_, err := NewPlan(planConfig(), 200, 150, nil, time.Now())
	if err == nil {
		t.Fatal("expected an error for an empty frame index")
	}
	if KindOf(err) != KindNoFrames {
		t.Errorf("KindOf = %q, want %q", KindOf(err), KindNoFrames)
	}
}

func TestPlanFrameSelection(t *testing.T) {
	cfg := planConfig()
	cfg.Radar.MaxFrames = 4
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	frames := framesAt(now.Add(-5*time.Minute), 10)

	p, err := NewPlan(cfg, 200, 150, frames, now)
	if err != nil {
		t.Fatalf("NewPlan: %v", err)
	}

	if len(p.Frames) != 4 {
		t.Fatalf("len(Frames) = %d, want 4", len(p.Frames))
	}
	// The trailing (newest) subset survives, oldest first.
	if p.Frames[3].Time != frames[9].Time {
		t.Errorf("newest kept frame = %d, want %d", p.Frames[3].Time, frames[9].Time)
	}
	if p.Frames[0].Time != frames[6].Time {
		t.Errorf("oldest kept frame = %d, want %d", p.Frames[0].Time, frames[6].Time)
	}
	if len(p.Labels) != len(p.Frames) {
		t.Errorf("len(Labels) = %d, want %d", len(p.Labels), len(p.Frames))
	}
}

func TestPlanCaptionShift(t *testing.T) {
	cfg := planConfig()
	cfg.Radar.CaptionStaleAfter = 20 * time.Minute
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	t.Run("fresh frames keep real timestamps", func(t *testing.T) {
		frames := framesAt(now.Add(-5*time.Minute), 2)
		p, err := NewPlan(cfg, 200, 150, frames, now)
		if err != nil {
			t.Fatalf("NewPlan: %v", err)
		}
		if got, want := p.Labels[1], "09:55"; got != want {
			t.Errorf("newest label = %q, want %q", got, want)
		}
	})

	t.Run("stale frames shift to read current", func(t *testing.T) {
		// Newest frame is an hour old; the whole ladder shifts so the
		// newest label reads as now.
		frames := framesAt(now.Add(-time.Hour), 2)
		p, err := NewPlan(cfg, 200, 150, frames, now)
		if err != nil {
			t.Fatalf("NewPlan: %v", err)
		}
		if got, want := p.Labels[1], "10:00"; got != want {
			t.Errorf("newest label = %q, want %q", got, want)
		}
		if got, want := p.Labels[0], "09:50"; got != want {
			t.Errorf("older label = %q, want %q (spacing must survive the shift)", got, want)
		}
	})

	t.Run("zero threshold disables the shift", func(t *testing.T) {
		off := planConfig()
		off.Radar.CaptionStaleAfter = 0
		frames := framesAt(now.Add(-time.Hour), 1)
		p, err := NewPlan(off, 200, 150, frames, now)
		if err != nil {
			t.Fatalf("NewPlan: %v", err)
		}
		if got, want := p.Labels[0], "09:00"; got != want {
			t.Errorf("label = %q, want %q", got, want)
		}
	})
}

func TestPlanOverscanGeometry(t *testing.T) {
	cfg := planConfig()
	cfg.Radar.OverscanPx = 12
	now := time.Now()

	p, err := NewPlan(cfg, 200, 150, framesAt(now, 1), now)
	if err != nil {
		t.Fatalf("NewPlan: %v", err)
	}

	if p.RenderWidth != 224 || p.RenderHeight != 174 {
		t.Errorf("render canvas = %dx%d, want 224x174", p.RenderWidth, p.RenderHeight)
	}
	if p.OverscanX() != 12 || p.OverscanY() != 12 {
		t.Errorf("overscan offsets = (%d,%d), want (12,12)", p.OverscanX(), p.OverscanY())
	}
	if len(p.Tiles) == 0 {
		t.Error("plan enumerated no tiles")
	}
}

func TestPlanClampsDimensions(t *testing.T) {
	cfg := planConfig()
	now := time.Now()
	frames := framesAt(now, 1)

	p, err := NewPlan(cfg, 4000, 10, frames, now)
	if err != nil {
		t.Fatalf("NewPlan: %v", err)
	}
	if p.Width != config.MaxDimension {
		t.Errorf("Width = %d, want clamp to %d", p.Width, config.MaxDimension)
	}
	if p.Height != config.MinDimension {
		t.Errorf("Height = %d, want clamp to %d", p.Height, config.MinDimension)
	}
}

func TestPlanZoomCappedByProvider(t *testing.T) {
	cfg := planConfig()
	cfg.Radar.Zoom = 12
	cfg.Tiles.ProviderMaxZoom = 7

	p, err := NewPlan(cfg, 200, 150, framesAt(time.Now(), 1), time.Now())
	if err != nil {
		t.Fatalf("NewPlan: %v", err)
	}
	if p.Zoom != 7 {
		t.Errorf("Zoom = %d, want provider cap 7", p.Zoom)
	}
}
