// Pluviograph - Weather Radar Animation for Home Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pluviograph

package radar

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-json"
)

// Frame is one radar snapshot available from the tile provider.
//
// Time is the capture instant in epoch seconds. Path is the absolute tile
// URL prefix for the frame (index host joined with the frame's published
// path); the tile source appends the per-tile suffix. A frame's position in
// the animation is its slice index, assigned when the render plan slices
// the trailing subset.
type Frame struct {
	Time int64
	Path string
}

// indexFrame is one frame entry in the provider's index document.
type indexFrame struct {
	Time int64  `json:"time"`
	Path string `json:"path"`
}

// weatherMapsIndex mirrors the RainViewer-style weather-maps.json layout.
// Fields outside the radar section (satellite, coverage) are ignored.
type weatherMapsIndex struct {
	Version   string `json:"version"`
	Generated int64  `json:"generated"`
	Host      string `json:"host"`
	Radar     struct {
		Past    []indexFrame `json:"past"`
		Nowcast []indexFrame `json:"nowcast"`
	} `json:"radar"`
}

// parseIndex decodes an index document and returns the usable frames in
// chronological order, plus the past/nowcast counts for metrics. Nowcast
// (forecast) frames are appended only when includeNowcast is set.
//
// generated is the upstream production time of the index in epoch seconds,
// zero when the provider omits it.
func parseIndex(data []byte, includeNowcast bool) (frames []Frame, past, nowcast int, generated int64, err error) {
	var idx weatherMapsIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, 0, 0, 0, fmt.Errorf("failed to decode radar index: %w", err)
	}

	host := strings.TrimSuffix(idx.Host, "/")
	if host == "" {
		return nil, 0, 0, 0, fmt.Errorf("radar index has no tile host")
	}

	appendUsable := func(dst []Frame, entries []indexFrame) []Frame {
		for _, e := range entries {
			if e.Path == "" || e.Time <= 0 {
				continue // malformed entry, the provider emits these during outages
			}
			path := e.Path
			if !strings.HasPrefix(path, "/") {
				path = "/" + path
			}
			dst = append(dst, Frame{Time: e.Time, Path: host + path})
		}
		return dst
	}

	frames = make([]Frame, 0, len(idx.Radar.Past)+len(idx.Radar.Nowcast))
	frames = appendUsable(frames, idx.Radar.Past)
	past = len(frames)
	if includeNowcast {
		frames = appendUsable(frames, idx.Radar.Nowcast)
		nowcast = len(frames) - past
	}

	// Providers publish past frames in chronological order already; sorting
	// makes the ordering a guarantee of this package rather than of the
	// upstream service.
	sort.Slice(frames, func(i, j int) bool { return frames[i].Time < frames[j].Time })

	return frames, past, nowcast, idx.Generated, nil
}
