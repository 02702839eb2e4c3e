// Pluviograph - Weather Radar Animation for Home Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pluviograph

package render

import (
	"errors"
	"fmt"
)

// Kind classifies a render failure. The set is closed; the HTTP layer maps
// kinds straight onto error codes and the metrics label uses the same
// strings.
type Kind string

const (
	// KindToolchainUnavailable means the renderer probe failed; no render
	// can start until the process restarts with a working toolchain.
	KindToolchainUnavailable Kind = "toolchain_unavailable"

	// KindNoFrames means the radar index currently offers zero frames.
	KindNoFrames Kind = "no_frames_available"

	// KindMapTilesUnavailable means a basemap tile fetch failed during the
	// attempt. The whole attempt is voided; partial mosaics are never
	// rendered.
	KindMapTilesUnavailable Kind = "map_tiles_unavailable"

	// KindRadarTilesIncomplete means a radar overlay tile fetch failed for
	// one of the animation frames.
	KindRadarTilesIncomplete Kind = "radar_tiles_incomplete"

	// KindInvalidTileFormat means a tile payload failed magic-byte
	// validation (HTML error page, truncated body) and was rejected before
	// it reached the canvas.
	KindInvalidTileFormat Kind = "invalid_tile_format"

	// KindRenderFailed means the toolchain was present but a compose or
	// encode invocation failed.
	KindRenderFailed Kind = "render_failed"
)

// Error is a classified render failure carrying structured context: which
// frame and which tile broke the attempt, when that is known.
type Error struct {
	Kind Kind

	// Frame is the animation frame index, or -1 when the failure is not
	// frame-specific.
	Frame int

	// Tile identifies the failing tile as "z/x/y", empty when the failure
	// is not tile-specific.
	Tile string

	Err error
}

// NewError builds a render error without frame or tile context.
func NewError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Frame: -1, Err: err}
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Frame >= 0 {
		msg = fmt.Sprintf("%s (frame %d)", msg, e.Frame)
	}
	if e.Tile != "" {
		msg = fmt.Sprintf("%s (tile %s)", msg, e.Tile)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the Kind from any error in err's chain. Unclassified
// errors report KindRenderFailed so callers always have a usable label.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindRenderFailed
}

// IsIncomplete reports whether err belongs to the incomplete-tiling family:
// the attempt failed because tile imagery could not be assembled, and a
// cached artifact is an acceptable stand-in.
func IsIncomplete(err error) bool {
	switch KindOf(err) {
	case KindMapTilesUnavailable, KindRadarTilesIncomplete, KindInvalidTileFormat:
		return true
	default:
		return false
	}
}
