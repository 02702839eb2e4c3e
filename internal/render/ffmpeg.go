// Pluviograph - Weather Radar Animation for Home Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pluviograph

/*
ffmpeg.go - Subprocess-backed renderer

This file implements Renderer on top of an external ffmpeg binary. Each
frame is composed with a single filter-graph invocation (solid background,
per-tile overlays, crosshair drawbox marker, drawtext captions, final crop)
and the animation is encoded with a shared palettegen/paletteuse pass so
the loop never flickers between per-frame palettes.

The binary is probed exactly once per process (LookPath plus a -version
run); installing ffmpeg after startup requires a restart to be noticed.
*/

package render

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/tomtom215/pluviograph/internal/config"
	"github.com/tomtom215/pluviograph/internal/logging"
)

// backgroundColor is the canvas fill behind the basemap, a dark slate that
// matches the dashboard theme. Visible only where a map tile failed to
// cover the overscan ring, which the ring size is chosen to prevent.
const backgroundColor = "0x1A1A2E"

// probeTimeout bounds the one-time toolchain probe.
const probeTimeout = 10 * time.Second

// FFmpeg renders by shelling out to an ffmpeg binary. Safe for concurrent
// use; every invocation builds its own command.
type FFmpeg struct {
	binPath  string
	fontPath string

	probeOnce sync.Once
	probeErr  error
}

var _ Renderer = (*FFmpeg)(nil)

// NewFFmpeg creates the subprocess renderer from the render configuration.
// The binary is not probed until Probe is called.
func NewFFmpeg(cfg *config.RenderConfig) *FFmpeg {
	return &FFmpeg{
		binPath:  cfg.FFmpegPath,
		fontPath: cfg.FontPath,
	}
}

// Name implements Renderer.
func (f *FFmpeg) Name() string { return "ffmpeg" }

// Probe resolves the binary and runs `-version` once. The result is cached
// for the life of the process.
func (f *FFmpeg) Probe(ctx context.Context) error {
	f.probeOnce.Do(func() {
		resolved, err := exec.LookPath(f.binPath)
		if err != nil {
			f.probeErr = NewError(KindToolchainUnavailable,
				fmt.Errorf("ffmpeg binary %q not found: %w", f.binPath, err))
			return
		}

		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		defer cancel()

		out, err := exec.CommandContext(probeCtx, resolved, "-version").Output()
		if err != nil {
			f.probeErr = NewError(KindToolchainUnavailable,
				fmt.Errorf("ffmpeg -version failed: %w", err))
			return
		}

		version := string(out)
		if i := strings.IndexByte(version, '\n'); i > 0 {
			version = version[:i]
		}
		logging.Info().Str("binary", resolved).Str("version", version).Msg("ffmpeg toolchain probed")
	})
	return f.probeErr
}

// ComposeFrame composes one still with a single ffmpeg invocation and
// writes it to job.OutPath.
func (f *FFmpeg) ComposeFrame(ctx context.Context, job *FrameJob) error {
	args := []string{"-y", "-hide_banner", "-loglevel", "error"}

	// Input 0 is the solid background at overscan size; every tile image
	// follows as its own input, map layer first so radar always overlays
	// the basemap.
	args = append(args, "-f", "lavfi", "-i",
		fmt.Sprintf("color=c=%s:s=%dx%d", backgroundColor, job.Plan.RenderWidth, job.Plan.RenderHeight))
	for _, t := range job.Tiles {
		args = append(args, "-i", t.MapPath)
	}
	for _, t := range job.Tiles {
		args = append(args, "-i", t.RadarPath)
	}

	args = append(args, "-filter_complex", f.composeFilter(job), "-map", "[out]", "-frames:v", "1", job.OutPath)

	if err := f.run(ctx, args); err != nil {
		return &Error{Kind: KindRenderFailed, Frame: job.Index, Err: err}
	}
	return nil
}

// composeFilter builds the filter graph for one frame: overlay chain,
// crosshair marker, captions, crop.
func (f *FFmpeg) composeFilter(job *FrameJob) string {
	p := job.Plan
	var g strings.Builder

	// Overlay each tile at its draw offset. Inputs 1..n are map tiles,
	// n+1..2n radar tiles, chained through intermediate labels.
	prev := "[0:v]"
	step := 0
	overlay := func(input int, t TileFiles) {
		step++
		label := fmt.Sprintf("[v%d]", step)
		fmt.Fprintf(&g, "%s[%d:v]overlay=%d:%d%s;", prev, input, t.Tile.DrawX, t.Tile.DrawY, label)
		prev = label
	}
	for i, t := range job.Tiles {
		overlay(1+i, t)
	}
	for i, t := range job.Tiles {
		overlay(1+len(job.Tiles)+i, t)
	}

	// Crosshair: two thin bars plus a filled square dot at the view
	// center. The native backend draws the same marker with round caps.
	cx := p.RenderWidth / 2
	cy := p.RenderHeight / 2
	fmt.Fprintf(&g, "%sdrawbox=x=%d:y=%d:w=24:h=2:color=white@0.9:t=fill,", prev, cx-12, cy-1)
	fmt.Fprintf(&g, "drawbox=x=%d:y=%d:w=2:h=24:color=white@0.9:t=fill,", cx-1, cy-12)
	fmt.Fprintf(&g, "drawbox=x=%d:y=%d:w=6:h=6:color=0xE53935@0.9:t=fill,", cx-3, cy-3)

	// Captions sit near the bottom edge of the viewport that survives the
	// crop: the frame timestamp above the smaller "generated at" line.
	oy := p.OverscanY()
	g.WriteString(f.drawtext(job.Label, 18, fmt.Sprintf("h-%d", oy+44)))
	g.WriteByte(',')
	g.WriteString(f.drawtext(job.GeneratedLabel, 11, fmt.Sprintf("h-%d", oy+20)))

	fmt.Fprintf(&g, ",crop=%d:%d:%d:%d[out]", p.Width, p.Height, p.OverscanX(), oy)
	return g.String()
}

// drawtext builds one bottom-centered caption filter.
func (f *FFmpeg) drawtext(text string, size int, yExpr string) string {
	var b strings.Builder
	b.WriteString("drawtext=")
	if f.fontPath != "" {
		if _, err := os.Stat(f.fontPath); err == nil {
			fmt.Fprintf(&b, "fontfile=%s:", EscapeFilterText(f.fontPath))
		}
		// A missing font degrades to ffmpeg's default, never fails the render.
	}
	fmt.Fprintf(&b, "text=%s:fontsize=%d:fontcolor=white:borderw=2:bordercolor=black@0.6:x=(w-text_w)/2:y=%s",
		EscapeFilterText(text), size, yExpr)
	return b.String()
}

// EncodeAnimation encodes the numbered stills into a looping GIF with one
// shared palette. A per-frame palette would shimmer as precipitation moves
// between frames; palettegen over the whole sequence keeps colors stable.
func (f *FFmpeg) EncodeAnimation(ctx context.Context, job *EncodeJob) ([]byte, error) {
	outPath := filepath.Join(job.WorkDir, "out.gif")

	fps := 1000.0 / float64(job.Delay.Milliseconds())
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-framerate", fmt.Sprintf("%.4f", fps),
		"-start_number", "0",
		"-i", filepath.Join(job.WorkDir, framePattern),
		"-filter_complex", "split[s0][s1];[s0]palettegen=stats_mode=diff[p];[s1][p]paletteuse=new=0:dither=sierra2_4a",
		"-loop", "0",
		outPath,
	}

	if err := f.run(ctx, args); err != nil {
		return nil, NewError(KindRenderFailed, err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, NewError(KindRenderFailed, fmt.Errorf("failed to read encoded animation: %w", err))
	}
	return data, nil
}

// run executes one ffmpeg invocation, surfacing a bounded stderr tail on
// failure. ffmpeg writes its diagnostics to stderr only.
func (f *FFmpeg) run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, f.binPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 512 {
			msg = "..." + msg[len(msg)-512:]
		}
		return fmt.Errorf("ffmpeg failed: %w: %s", err, msg)
	}
	return nil
}

// EscapeFilterText escapes a string for use inside an ffmpeg filter-graph
// value. Every metacharacter of the filter syntax is escaped rather than
// allow-listing "safe" inputs; caption text is derived from clocks and
// configuration today, but nothing here should depend on that staying true.
func EscapeFilterText(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 8)
	for _, r := range s {
		switch r {
		case '\\', '\'', ':', ',', ';', '[', ']', '=', '%':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
