// Pluviograph - Weather Radar Animation for Home Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pluviograph

/*
pipeline.go - Render attempt orchestration

This file drives one complete render attempt: a private temporary
directory, tile fetch and validation (map tiles once per attempt, radar
tiles per frame), strictly ordered frame composition, and the final encode.

Tiling is all-or-nothing. A mosaic missing one tile looks broken in a way
no viewer forgives, so any fetch or validation failure voids the whole
attempt with an incomplete-family error and nothing is published. Tiles
within one layer fetch concurrently (bounded); frames compose sequentially
because the encoder consumes a numbered file sequence.
*/

package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/pluviograph/internal/config"
	"github.com/tomtom215/pluviograph/internal/geo"
	"github.com/tomtom215/pluviograph/internal/logging"
	"github.com/tomtom215/pluviograph/internal/metrics"
	"github.com/tomtom215/pluviograph/internal/tiles"
)

// framePattern names composed stills inside the working directory. The
// ffmpeg encoder consumes it as an image-sequence input pattern.
const framePattern = "frame-%03d.png"

// tileFetchConcurrency bounds concurrent tile fetches within one layer of
// one attempt. The upstream rate limiter is the real throttle; this only
// keeps a single attempt from monopolizing it.
const tileFetchConcurrency = 4

// Pipeline executes render attempts against a tile source and a renderer.
// Safe for concurrent use; every attempt works in its own directory.
type Pipeline struct {
	source   tiles.Source
	renderer Renderer
	workDir  string
}

// NewPipeline creates a pipeline. workDir (RENDER_WORK_DIR) is the parent
// for per-attempt temporary directories; empty means the system default.
func NewPipeline(source tiles.Source, renderer Renderer, cfg *config.RenderConfig) *Pipeline {
	return &Pipeline{
		source:   source,
		renderer: renderer,
		workDir:  cfg.WorkDir,
	}
}

// Render executes one attempt for plan and returns the encoded GIF bytes.
// The temporary working tree is removed on every exit path.
func (p *Pipeline) Render(ctx context.Context, plan *Plan) (data []byte, err error) {
	dir, err := os.MkdirTemp(p.workDir, "radar-render-*")
	if err != nil {
		return nil, NewError(KindRenderFailed, fmt.Errorf("failed to create work dir: %w", err))
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			logging.Warn().Err(rmErr).Str("dir", dir).Msg("Failed to remove render work dir")
		}
	}()

	started := time.Now()

	mapPaths, err := p.fetchMapLayer(ctx, plan, dir)
	if err != nil {
		return nil, err
	}

	framePaths := make([]string, 0, len(plan.Frames))
	for i, frame := range plan.Frames {
		radarPaths, err := p.fetchRadarLayer(ctx, plan, dir, i, frame.Path)
		if err != nil {
			return nil, err
		}

		job := &FrameJob{
			Plan:           plan,
			Index:          i,
			Label:          plan.Labels[i],
			GeneratedLabel: plan.GeneratedLabel,
			Tiles:          make([]TileFiles, len(plan.Tiles)),
			OutPath:        filepath.Join(dir, fmt.Sprintf(framePattern, i)),
		}
		for ti, t := range plan.Tiles {
			job.Tiles[ti] = TileFiles{Tile: t, MapPath: mapPaths[ti], RadarPath: radarPaths[ti]}
		}

		if err := p.renderer.ComposeFrame(ctx, job); err != nil {
			return nil, err
		}
		framePaths = append(framePaths, job.OutPath)
	}

	data, err = p.renderer.EncodeAnimation(ctx, &EncodeJob{
		WorkDir:    dir,
		FramePaths: framePaths,
		Delay:      plan.FrameHold,
		Width:      plan.Width,
		Height:     plan.Height,
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordRenderResult(len(plan.Frames), len(data))
	logging.Debug().
		Str("key", plan.Key).
		Int("frames", len(plan.Frames)).
		Int("tiles", len(plan.Tiles)).
		Int("bytes", len(data)).
		Dur("elapsed", time.Since(started)).
		Msg("Render attempt complete")

	return data, nil
}

// fetchMapLayer fetches every basemap tile once and writes it into the
// working directory. Returns per-tile file paths in plan order.
func (p *Pipeline) fetchMapLayer(ctx context.Context, plan *Plan, dir string) ([]string, error) {
	paths := make([]string, len(plan.Tiles))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(tileFetchConcurrency)

	for i, t := range plan.Tiles {
		g.Go(func() error {
			nx, ny := geo.NormalizeTile(plan.Zoom, t.X, t.Y)
			td, err := p.source.MapTile(gctx, plan.Zoom, nx, ny)
			if err != nil {
				return &Error{Kind: mapFailureKind(err), Frame: -1, Tile: tileRef(plan.Zoom, nx, ny), Err: err}
			}

			path, err := writeTile(dir, fmt.Sprintf("map-%03d", i), tiles.LayerMap, td.Body)
			if err != nil {
				return classifyWrite(err, -1, tileRef(plan.Zoom, nx, ny), KindMapTilesUnavailable)
			}
			paths[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

// fetchRadarLayer fetches one frame's radar overlay tiles. Returns per-tile
// file paths in plan order.
func (p *Pipeline) fetchRadarLayer(ctx context.Context, plan *Plan, dir string, frameIndex int, framePath string) ([]string, error) {
	paths := make([]string, len(plan.Tiles))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(tileFetchConcurrency)

	for i, t := range plan.Tiles {
		g.Go(func() error {
			nx, ny := geo.NormalizeTile(plan.Zoom, t.X, t.Y)
			td, err := p.source.RadarTile(gctx, frameIndex, framePath, plan.Zoom, nx, ny)
			if err != nil {
				return &Error{Kind: radarFailureKind(err), Frame: frameIndex, Tile: tileRef(plan.Zoom, nx, ny), Err: err}
			}

			path, err := writeTile(dir, fmt.Sprintf("radar-%03d-%03d", frameIndex, i), tiles.LayerRadar, td.Body)
			if err != nil {
				return classifyWrite(err, frameIndex, tileRef(plan.Zoom, nx, ny), KindRadarTilesIncomplete)
			}
			paths[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

// writeTile validates a tile payload's magic bytes and writes it under dir
// with an extension matching the detected format. Validation here is the
// last line of defense: the HTTP source validates too, but the pipeline
// must never write a non-raster payload for the toolchain to choke on,
// whatever source implementation is plugged in.
func writeTile(dir, name, layer string, body []byte) (string, error) {
	if err := tiles.ValidateFormat(layer, body); err != nil {
		return "", err
	}

	path := filepath.Join(dir, name+"."+tiles.DetectImageFormat(body))
	if err := os.WriteFile(path, body, 0o600); err != nil {
		return "", fmt.Errorf("failed to write tile: %w", err)
	}
	return path, nil
}

// classifyWrite wraps a writeTile failure: format rejections become
// KindInvalidTileFormat, disk failures take the layer's unavailable kind.
func classifyWrite(err error, frame int, tile string, layerKind Kind) *Error {
	kind := layerKind
	if errors.Is(err, tiles.ErrInvalidFormat) {
		kind = KindInvalidTileFormat
	}
	return &Error{Kind: kind, Frame: frame, Tile: tile, Err: err}
}

// mapFailureKind classifies a map tile fetch error.
func mapFailureKind(err error) Kind {
	if errors.Is(err, tiles.ErrInvalidFormat) {
		return KindInvalidTileFormat
	}
	return KindMapTilesUnavailable
}

// radarFailureKind classifies a radar tile fetch error.
func radarFailureKind(err error) Kind {
	if errors.Is(err, tiles.ErrInvalidFormat) {
		return KindInvalidTileFormat
	}
	return KindRadarTilesIncomplete
}

// tileRef formats a tile coordinate for error context.
func tileRef(z, x, y int) string {
	return fmt.Sprintf("%d/%d/%d", z, x, y)
}
