// Pluviograph - Weather Radar Animation for Home Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pluviograph

// Package tiles fetches map and radar tile imagery for the render pipeline.
//
// The package defines the Source interface consumed by the renderer and
// provides Client, the production HTTP implementation. Client layers an
// in-memory LRU cache, a token-bucket rate limiter, per-layer circuit
// breakers, and retry-with-backoff underneath a simple two-method surface:
//
//	src := tiles.NewClient(&cfg.Tiles)
//	mapTile, err := src.MapTile(ctx, z, x, y)
//	radarTile, err := src.RadarTile(ctx, frameIndex, framePath, z, x, y)
//
// Every payload is validated against raster magic bytes before use. Tile
// servers answer with HTML error pages and truncated bodies often enough
// that trusting the status code or Content-Type header puts garbage pixels
// into rendered animations; DetectImageFormat and ValidateFormat are
// exported so the render pipeline can re-check payloads from any Source
// implementation before writing them to disk.
package tiles
