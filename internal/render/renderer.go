// Pluviograph - Weather Radar Animation for Home Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pluviograph

package render

import (
	"context"
	"time"

	"github.com/tomtom215/pluviograph/internal/geo"
)

// TileFiles pairs one plan tile with the on-disk imagery the pipeline
// fetched for it. MapPath is shared across all frames of an attempt;
// RadarPath is specific to the frame being composed.
type TileFiles struct {
	Tile      geo.Tile
	MapPath   string
	RadarPath string
}

// FrameJob describes the composition of one animation frame. The renderer
// draws the overscanned mosaic, the center marker and the captions, crops
// to the plan's output dimensions, and writes the finished still to
// OutPath.
type FrameJob struct {
	Plan  *Plan
	Index int

	// Label is the frame's timestamp caption; GeneratedLabel the shared
	// "generated at" caption below it.
	Label          string
	GeneratedLabel string

	Tiles   []TileFiles
	OutPath string
}

// EncodeJob describes the final encode of an ordered frame sequence into a
// looping GIF. FramePaths is in strict animation order; every referenced
// still already has the output dimensions.
type EncodeJob struct {
	WorkDir    string
	FramePaths []string
	Delay      time.Duration
	Width      int
	Height     int
}

// Renderer is the toolchain behind frame composition and animation
// encoding. The pipeline drives it as a black box so the subprocess-backed
// implementation and the in-process one are interchangeable, and tests can
// substitute fakes.
//
// Probe verifies the toolchain is usable; implementations cache the result
// for the life of the process, so a toolchain installed after startup is
// not picked up without a restart.
type Renderer interface {
	// Name identifies the backend in logs and health output.
	Name() string

	// Probe verifies the toolchain is available. The first call does the
	// work; subsequent calls return the cached result.
	Probe(ctx context.Context) error

	// ComposeFrame renders one finished still to job.OutPath.
	ComposeFrame(ctx context.Context, job *FrameJob) error

	// EncodeAnimation encodes the ordered stills into a looping GIF and
	// returns the encoded bytes.
	EncodeAnimation(ctx context.Context, job *EncodeJob) ([]byte, error)
}
