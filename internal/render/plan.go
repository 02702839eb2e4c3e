// Pluviograph - Weather Radar Animation for Home Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pluviograph

package render

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/pluviograph/internal/config"
	"github.com/tomtom215/pluviograph/internal/geo"
	"github.com/tomtom215/pluviograph/internal/radar"
)

// Plan is everything one render attempt needs, computed once and never
// mutated. Two requests that would produce pixel-identical output share a
// Key; any difference in dimensions, view, or frame composition changes it.
type Plan struct {
	// Width, Height are the requested output dimensions.
	Width  int
	Height int

	// RenderWidth, RenderHeight are the overscanned canvas dimensions.
	// Frames are composed at this size and cropped down so tile seams and
	// caption glyphs never clip at the viewport edge.
	RenderWidth  int
	RenderHeight int

	Zoom int
	Lat  float64
	Lon  float64

	// Tiles covers the overscanned canvas. Coordinates are unnormalized;
	// the pipeline normalizes immediately before each fetch.
	Tiles []geo.Tile

	// Frames is the trailing subset of the radar index included in the
	// animation, oldest first.
	Frames []radar.Frame

	// Labels holds the caption text per frame, same length as Frames.
	Labels []string

	// GeneratedLabel is the "generated at" caption, identical on every
	// frame.
	GeneratedLabel string

	// FrameHold is how long each frame stays on screen.
	FrameHold time.Duration

	// Key is the deterministic cache key: a 16-hex-digit hash of the
	// dimensions, zoom, center (rounded to 4 decimals), and the included
	// frame timestamps.
	Key string
}

// OverscanX returns the horizontal crop offset from the overscanned canvas
// to the output viewport.
func (p *Plan) OverscanX() int { return (p.RenderWidth - p.Width) / 2 }

// OverscanY returns the vertical crop offset.
func (p *Plan) OverscanY() int { return (p.RenderHeight - p.Height) / 2 }

// NewPlan computes the render plan for one attempt: requested dimensions
// are clamped, the newest cfg.Radar.MaxFrames frames are selected, the
// covering tile set is enumerated for the overscanned canvas, and caption
// labels are rendered in the configured time zone.
//
// Caption smoothing: when the newest frame is older than
// cfg.Radar.CaptionStaleAfter, every displayed timestamp is shifted forward
// by the gap between now and that frame's real time. A frozen upstream then
// still reads as current on the dashboard; the imagery is honest, the clock
// is cosmetic. A threshold of zero or below disables the shift.
//
// Returns a KindNoFrames error when frames is empty.
func NewPlan(cfg *config.Config, width, height int, frames []radar.Frame, now time.Time) (*Plan, error) {
	if len(frames) == 0 {
		return nil, NewError(KindNoFrames, fmt.Errorf("radar index has no frames"))
	}

	width = config.ClampDimension(width)
	height = config.ClampDimension(height)

	maxFrames := config.ClampFrames(cfg.Radar.MaxFrames)
	if len(frames) > maxFrames {
		frames = frames[len(frames)-maxFrames:]
	}

	overscan := cfg.Radar.OverscanPx
	if overscan < 0 {
		overscan = 0
	}
	renderW := width + 2*overscan
	renderH := height + 2*overscan

	zoom := cfg.EffectiveZoom()
	lat := cfg.Radar.Latitude
	lon := cfg.Radar.Longitude

	loc, err := cfg.Radar.Location()
	if err != nil {
		// Validated at load time; a broken zone here means the host's
		// tzdata changed underneath us. Fall back to UTC rather than fail.
		loc = time.UTC
	}

	var shift time.Duration
	newest := time.Unix(frames[len(frames)-1].Time, 0)
	if threshold := cfg.Radar.CaptionStaleAfter; threshold > 0 {
		if gap := now.Sub(newest); gap > threshold {
			shift = gap
		}
	}

	labels := make([]string, len(frames))
	for i, f := range frames {
		labels[i] = time.Unix(f.Time, 0).Add(shift).In(loc).Format("15:04")
	}

	return &Plan{
		Width:          width,
		Height:         height,
		RenderWidth:    renderW,
		RenderHeight:   renderH,
		Zoom:           zoom,
		Lat:            lat,
		Lon:            lon,
		Tiles:          geo.VisibleTiles(lat, lon, zoom, renderW, renderH, cfg.Radar.TileRing, 0, 0),
		Frames:         frames,
		Labels:         labels,
		GeneratedLabel: "Generated " + now.In(loc).Format("15:04"),
		FrameHold:      cfg.Radar.FrameHold,
		Key:            planKey(width, height, zoom, lat, lon, frames),
	}, nil
}

// planKey derives the deterministic cache key. The center is rounded to 4
// decimal places (about 11 meters, far below one pixel at any supported
// zoom) so float noise in configuration round-trips cannot split the cache.
func planKey(width, height, zoom int, lat, lon float64, frames []radar.Frame) string {
	times := make([]string, len(frames))
	for i, f := range frames {
		times[i] = strconv.FormatInt(f.Time, 10)
	}

	seed := fmt.Sprintf("%dx%d|z%d|%.4f,%.4f|%s",
		width, height, zoom, lat, lon, strings.Join(times, ","))

	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:8])
}
