// Pluviograph - Weather Radar Animation for Home Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pluviograph

package render

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomtom215/pluviograph/internal/config"
	"github.com/tomtom215/pluviograph/internal/radar"
)

func writeTestPNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test png: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatalf("write test png: %v", err)
	}
}

// composeTestFrame runs one native composition into dir and returns the
// output path.
func composeTestFrame(t *testing.T, n *Native, dir string, index int) string {
	t.Helper()
	cfg := planConfig()
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	frames := []radar.Frame{{Time: now.Add(-5 * time.Minute).Unix(), Path: "/v2/radar/0925"}}

	plan, err := NewPlan(cfg, 96, 80, frames, now)
	if err != nil {
		t.Fatalf("NewPlan: %v", err)
	}

	mapPath := filepath.Join(dir, "map.png")
	radarPath := filepath.Join(dir, "radar.png")
	writeTestPNG(t, mapPath)
	writeTestPNG(t, radarPath)

	job := &FrameJob{
		Plan:           plan,
		Index:          index,
		Label:          plan.Labels[0],
		GeneratedLabel: plan.GeneratedLabel,
		Tiles:          make([]TileFiles, len(plan.Tiles)),
		OutPath:        filepath.Join(dir, "frame.png"),
	}
	if index > 0 {
		job.OutPath = filepath.Join(dir, "frame2.png")
	}
	for i, tile := range plan.Tiles {
		job.Tiles[i] = TileFiles{Tile: tile, MapPath: mapPath, RadarPath: radarPath}
	}

	if err := n.ComposeFrame(context.Background(), job); err != nil {
		t.Fatalf("ComposeFrame: %v", err)
	}
	return job.OutPath
}

func TestNativeComposeFrame(t *testing.T) {
	n := NewNative(&config.RenderConfig{})
	out := composeTestFrame(t, n, t.TempDir(), 0)

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("open composed frame: %v", err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		t.Fatalf("decode composed frame: %v", err)
	}
	if format != "png" {
		t.Errorf("frame format = %q, want png", format)
	}
	// The overscan ring is cropped away: output is viewport-sized.
	b := img.Bounds()
	if b.Dx() != 96 || b.Dy() != 80 {
		t.Errorf("frame size = %dx%d, want 96x80", b.Dx(), b.Dy())
	}
}

func TestNativeComposeFrameCanceledContext(t *testing.T) {
	n := NewNative(&config.RenderConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := n.ComposeFrame(ctx, &FrameJob{Plan: &Plan{RenderWidth: 80, RenderHeight: 80}})
	if err == nil {
		t.Fatal("expected error for canceled context")
	}
	if KindOf(err) != KindRenderFailed {
		t.Errorf("KindOf = %q, want %q", KindOf(err), KindRenderFailed)
	}
}

func TestNativeComposeFrameMissingTile(t *testing.T) {
	n := NewNative(&config.RenderConfig{})
	cfg := planConfig()
	now := time.Now()
	plan, err := NewPlan(cfg, 96, 80, []radar.Frame{{Time: now.Unix()}}, now)
	if err != nil {
		t.Fatalf("NewPlan: %v", err)
	}

	job := &FrameJob{
		Plan:    plan,
		Index:   2,
		Tiles:   []TileFiles{{Tile: plan.Tiles[0], MapPath: "/nonexistent/map.png"}},
		OutPath: filepath.Join(t.TempDir(), "frame.png"),
	}

	err = n.ComposeFrame(context.Background(), job)
	if err == nil {
		t.Fatal("expected error for unreadable tile imagery")
	}
	var re *Error
	if !errors.As(err, &re) {
		t.Fatalf("error type = %T, want *Error", err)
	}
	if re.Frame != 2 {
		t.Errorf("error frame = %d, want 2", re.Frame)
	}
}

func TestNativeEncodeAnimation(t *testing.T) {
	n := NewNative(&config.RenderConfig{})
	dir := t.TempDir()

	paths := []string{
		composeTestFrame(t, n, dir, 0),
		composeTestFrame(t, n, dir, 1),
	}

	data, err := n.EncodeAnimation(context.Background(), &EncodeJob{
		WorkDir:    dir,
		FramePaths: paths,
		Delay:      500 * time.Millisecond,
		Width:      96,
		Height:     80,
	})
	if err != nil {
		t.Fatalf("EncodeAnimation: %v", err)
	}

	if !bytes.HasPrefix(data, []byte("GIF8")) {
		t.Fatalf("output missing GIF magic, got %q", data[:min(len(data), 6)])
	}

	anim, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode animation: %v", err)
	}
	if len(anim.Image) != 2 {
		t.Errorf("frame count = %d, want 2", len(anim.Image))
	}
	if anim.LoopCount != 0 {
		t.Errorf("LoopCount = %d, want 0 (infinite)", anim.LoopCount)
	}
	// 500ms hold in GIF centiseconds.
	for i, d := range anim.Delay {
		if d != 50 {
			t.Errorf("frame %d delay = %d, want 50", i, d)
		}
	}
}

func TestNativeEncodeDelayFloor(t *testing.T) {
	n := NewNative(&config.RenderConfig{})
	dir := t.TempDir()
	path := composeTestFrame(t, n, dir, 0)

	data, err := n.EncodeAnimation(context.Background(), &EncodeJob{
		WorkDir:    dir,
		FramePaths: []string{path},
		Delay:      time.Millisecond, // below the floor browsers honor
		Width:      96,
		Height:     80,
	})
	if err != nil {
		t.Fatalf("EncodeAnimation: %v", err)
	}

	anim, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode animation: %v", err)
	}
	if anim.Delay[0] != 2 {
		t.Errorf("delay = %d, want floor of 2 centiseconds", anim.Delay[0])
	}
}

func TestNativeProbeAndName(t *testing.T) {
	n := NewNative(&config.RenderConfig{})
	if n.Name() != "native" {
		t.Errorf("Name() = %q, want native", n.Name())
	}
	if err := n.Probe(context.Background()); err != nil {
		t.Errorf("Probe() = %v, want nil", err)
	}
}

func TestLoadCaptionFontFallback(t *testing.T) {
	// A missing or broken configured font falls back to the embedded face.
	if f := loadCaptionFont("/nonexistent/caption.ttf"); f == nil {
		t.Error("expected embedded fallback font for unreadable path")
	}

	bad := filepath.Join(t.TempDir(), "broken.ttf")
	if err := os.WriteFile(bad, []byte("not a font"), 0o600); err != nil {
		t.Fatal(err)
	}
	if f := loadCaptionFont(bad); f == nil {
		t.Error("expected embedded fallback font for unparseable file")
	}
}
