// Pluviograph - Weather Radar Animation for Home Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pluviograph

// Package geo implements Web Mercator tile-pyramid geometry: projecting
// coordinates to fractional tile positions, normalizing tile indices for
// fetching, and computing the tile set that covers a render viewport.
//
// All functions are pure. Tile coordinates returned by VisibleTiles are
// deliberately unnormalized (they may be negative or exceed 2^zoom) because
// draw offsets are derived from the unwrapped grid; callers normalize with
// NormalizeTile immediately before fetching.
package geo

import "math"

// TileSize is the edge length in pixels of one map tile, per the standard
// tile-pyramid convention shared by basemap and radar providers.
const TileSize = 256

// Tile is one tile of a render plan: its pyramid coordinates and the pixel
// offset where its top-left corner lands on the render canvas.
type Tile struct {
	// X, Y are tile-pyramid coordinates on the unwrapped grid.
	X int
	Y int

	// DrawX, DrawY are pixel offsets within the render canvas.
	// They may be negative for tiles that extend past the canvas edge.
	DrawX int
	DrawY int
}

// LatLonToTile projects a coordinate to fractional tile coordinates at the
// given zoom using the Web Mercator transform:
//
//	x = (lon + 180) / 360 * 2^zoom
//	y = (1 - asinh(tan(lat)) / pi) / 2 * 2^zoom
//
// Valid for lat strictly inside (-90, 90).
func LatLonToTile(lat, lon float64, zoom int) (x, y float64) {
	latRad := lat * math.Pi / 180.0
	n := math.Exp2(float64(zoom))
	x = (lon + 180.0) / 360.0 * n
	y = (1.0 - math.Asinh(math.Tan(latRad))/math.Pi) / 2.0 * n
	return x, y
}

// NormalizeTile wraps x around the antimeridian (modulo 2^zoom, negative
// safe) and clamps y to the valid pyramid range [0, 2^zoom-1]. Call this on
// a tile coordinate just before fetching it, never before computing draw
// offsets.
func NormalizeTile(zoom, x, y int) (nx, ny int) {
	n := 1 << uint(zoom)

	nx = x % n
	if nx < 0 {
		nx += n
	}

	ny = y
	if ny < 0 {
		ny = 0
	}
	if ny > n-1 {
		ny = n - 1
	}
	return nx, ny
}

// VisibleTiles enumerates the tiles covering a width x height pixel canvas
// centered on (lat, lon) at the given zoom, expanded by ring full tiles in
// every direction. The ring guards against seams at the canvas boundary and
// gives caption text room to draw before the final crop.
//
// offsetX and offsetY shift the viewport center east/south in pixels; pass
// zero for a plain centered viewport.
func VisibleTiles(lat, lon float64, zoom, width, height, ring, offsetX, offsetY int) []Tile {
	cx, cy := LatLonToTile(lat, lon, zoom)

	// Viewport top-left in global pixel space.
	left := cx*TileSize - float64(width)/2 + float64(offsetX)
	top := cy*TileSize - float64(height)/2 + float64(offsetY)

	minTX := int(math.Floor(left/TileSize)) - ring
	maxTX := int(math.Floor((left+float64(width)-1)/TileSize)) + ring
	minTY := int(math.Floor(top/TileSize)) - ring
	maxTY := int(math.Floor((top+float64(height)-1)/TileSize)) + ring

	tiles := make([]Tile, 0, (maxTX-minTX+1)*(maxTY-minTY+1))
	for ty := minTY; ty <= maxTY; ty++ {
		for tx := minTX; tx <= maxTX; tx++ {
			tiles = append(tiles, Tile{
				X:     tx,
				Y:     ty,
				DrawX: int(math.Round(float64(tx*TileSize) - left)),
				DrawY: int(math.Round(float64(ty*TileSize) - top)),
			})
		}
	}
	return tiles
}
