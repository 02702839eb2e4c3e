// Pluviograph - Weather Radar Animation for Home Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pluviograph

package tiles

import (
	"bytes"
	"context"
	"errors"
	"fmt"
)

// Layer label values used for metrics and format policy. A map tile is
// basemap imagery; a radar tile is a transparent precipitation overlay.
const (
	LayerMap   = "map"
	LayerRadar = "radar"
)

// ErrInvalidFormat indicates a tile payload that failed magic-byte
// validation. Upstream tile servers occasionally return HTML error pages or
// truncated bodies with a 200 status; those must surface as fetch failures,
// never as garbage pixels in a frame.
var ErrInvalidFormat = errors.New("tile payload failed image format validation")

// TileData is one fetched tile payload. ContentType carries the upstream
// header for diagnostics only; consumers must trust the magic bytes, not
// the header.
type TileData struct {
	ContentType string
	Body        []byte
}

// Source supplies map and radar tile imagery for the render pipeline.
//
// Implementations may fetch over HTTP, serve from a cache, or return fixture
// data in tests; the engine treats the source as opaque. Both methods may
// block on network I/O and honor context cancellation.
//
// frameIndex identifies the animation frame position and is carried only for
// error context. framePath is the opaque frame identifier published by the
// radar index, already joined with its tile host.
type Source interface {
	MapTile(ctx context.Context, z, x, y int) (*TileData, error)
	RadarTile(ctx context.Context, frameIndex int, framePath string, z, x, y int) (*TileData, error)
}

// Magic-byte signatures for the raster formats tile servers actually emit.
var (
	pngMagic   = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	jpegMagic  = []byte{0xFF, 0xD8, 0xFF}
	gif87Magic = []byte("GIF87a")
	gif89Magic = []byte("GIF89a")
)

// DetectImageFormat sniffs the leading magic bytes of data and returns
// "png", "jpeg", "gif", "webp", or "" when no known raster signature
// matches.
func DetectImageFormat(data []byte) string {
	switch {
	case len(data) >= 8 && bytes.Equal(data[:8], pngMagic):
		return "png"
	case len(data) >= 3 && bytes.Equal(data[:3], jpegMagic):
		return "jpeg"
	case len(data) >= 6 && (bytes.Equal(data[:6], gif87Magic) || bytes.Equal(data[:6], gif89Magic)):
		return "gif"
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return "webp"
	default:
		return ""
	}
}

// ValidateFormat checks that data carries an accepted raster signature for
// the given layer. Map tiles may be PNG or JPEG (basemap providers serve
// both); radar tiles must be PNG because the overlay depends on the alpha
// channel. Returns an error wrapping ErrInvalidFormat on rejection.
func ValidateFormat(layer string, data []byte) error {
	format := DetectImageFormat(data)
	if format == "" {
		return fmt.Errorf("%w: %d-byte payload has no known raster signature", ErrInvalidFormat, len(data))
	}

	switch layer {
	case LayerRadar:
		if format != "png" {
			return fmt.Errorf("%w: radar tile decoded as %s, need png", ErrInvalidFormat, format)
		}
	default:
		if format != "png" && format != "jpeg" {
			return fmt.Errorf("%w: map tile decoded as %s", ErrInvalidFormat, format)
		}
	}
	return nil
}
