// Pluviograph - Weather Radar Animation for Home Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pluviograph

/*
Package render turns a radar frame list and a tile source into a looping
animated GIF.

The work is split across three layers:

  - Plan: an immutable per-attempt value computed up front from the
    configuration and the current frame list. It fixes the output and
    overscanned canvas dimensions, the covering tile set, the per-frame
    caption labels, and the deterministic cache key.

  - Renderer: the toolchain behind frame composition and GIF encoding.
    Two implementations ship: FFmpeg shells out to an ffmpeg binary
    (filter-graph compose per frame, shared-palette encode), Native
    composites in-process with fogleman/gg and encodes with image/gif.
    Both produce identical frame sequencing so the Pipeline does not care
    which one it drives.

  - Pipeline: orchestrates one attempt. It creates a temporary working
    directory, fetches and validates every tile (map tiles once, radar
    tiles per frame), composes frames strictly in order, encodes, and
    removes the working tree on every exit path.

Failures follow a closed taxonomy (Kind). One bad tile voids the whole
attempt; the engine layer decides whether a cached artifact can stand in.
*/
package render
