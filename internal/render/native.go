// Pluviograph - Weather Radar Animation for Home Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pluviograph

/*
native.go - In-process renderer

This file implements Renderer without any external toolchain: frames are
composited on a fogleman/gg canvas and the animation is encoded with
image/gif over one shared 256-color palette. Output parity with the ffmpeg
backend is intentional (same compositing order, marker, captions, crop) so
the two are interchangeable behind the Renderer interface.

Captions use the font at RENDER_FONT_PATH when readable, otherwise the
embedded Go Regular face; a missing font never fails a render.
*/

package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"image/png"
	"os"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/tomtom215/pluviograph/internal/config"
	"github.com/tomtom215/pluviograph/internal/logging"

	// Tile payloads arrive as PNG or JPEG; register both decoders for
	// image.Decode.
	_ "image/jpeg"
)

// Native renders in-process. Safe for concurrent use; each frame is
// composed on its own canvas.
type Native struct {
	font *truetype.Font
}

var _ Renderer = (*Native)(nil)

// NewNative creates the in-process renderer. The caption font is resolved
// eagerly: the configured TTF when it parses, the embedded Go Regular face
// otherwise.
func NewNative(cfg *config.RenderConfig) *Native {
	return &Native{font: loadCaptionFont(cfg.FontPath)}
}

// loadCaptionFont parses the configured font file, degrading to the
// embedded face on any failure.
func loadCaptionFont(path string) *truetype.Font {
	if path != "" {
		if data, err := os.ReadFile(path); err == nil {
			if f, err := truetype.Parse(data); err == nil {
				return f
			}
			logging.Warn().Str("font", path).Msg("Caption font failed to parse, using built-in font")
		} else {
			logging.Warn().Str("font", path).Err(err).Msg("Caption font unreadable, using built-in font")
		}
	}

	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		// The embedded face is a compile-time asset; this cannot happen
		// outside a corrupted build.
		panic(fmt.Sprintf("embedded caption font failed to parse: %v", err))
	}
	return f
}

// Name implements Renderer.
func (n *Native) Name() string { return "native" }

// Probe implements Renderer. The in-process backend has no external
// dependency to verify.
func (n *Native) Probe(context.Context) error { return nil }

// ComposeFrame draws one frame and writes it to job.OutPath as PNG.
func (n *Native) ComposeFrame(ctx context.Context, job *FrameJob) error {
	if err := ctx.Err(); err != nil {
		return &Error{Kind: KindRenderFailed, Frame: job.Index, Err: err}
	}

	p := job.Plan
	dc := gg.NewContext(p.RenderWidth, p.RenderHeight)

	// Background fill, then map mosaic, then radar mosaic on top.
	dc.SetRGB255(0x1A, 0x1A, 0x2E)
	dc.Clear()

	for _, t := range job.Tiles {
		img, err := loadTileImage(t.MapPath)
		if err != nil {
			return &Error{Kind: KindRenderFailed, Frame: job.Index, Tile: tileRef(p.Zoom, t.Tile.X, t.Tile.Y), Err: err}
		}
		dc.DrawImage(img, t.Tile.DrawX, t.Tile.DrawY)
	}
	for _, t := range job.Tiles {
		img, err := loadTileImage(t.RadarPath)
		if err != nil {
			return &Error{Kind: KindRenderFailed, Frame: job.Index, Tile: tileRef(p.Zoom, t.Tile.X, t.Tile.Y), Err: err}
		}
		dc.DrawImage(img, t.Tile.DrawX, t.Tile.DrawY)
	}

	n.drawCrosshair(dc, float64(p.RenderWidth)/2, float64(p.RenderHeight)/2)
	n.drawCaptions(dc, job)

	// Crop the overscan ring away.
	out := image.NewRGBA(image.Rect(0, 0, p.Width, p.Height))
	draw.Draw(out, out.Bounds(), dc.Image(), image.Pt(p.OverscanX(), p.OverscanY()), draw.Src)

	file, err := os.Create(job.OutPath)
	if err != nil {
		return &Error{Kind: KindRenderFailed, Frame: job.Index, Err: err}
	}
	if err := png.Encode(file, out); err != nil {
		_ = file.Close()
		return &Error{Kind: KindRenderFailed, Frame: job.Index, Err: err}
	}
	if err := file.Close(); err != nil {
		return &Error{Kind: KindRenderFailed, Frame: job.Index, Err: err}
	}
	return nil
}

// drawCrosshair marks the configured center: a white cross with a filled
// red dot.
func (n *Native) drawCrosshair(dc *gg.Context, cx, cy float64) {
	dc.SetRGBA(1, 1, 1, 0.9)
	dc.SetLineWidth(2)
	dc.DrawLine(cx-12, cy, cx+12, cy)
	dc.Stroke()
	dc.DrawLine(cx, cy-12, cx, cy+12)
	dc.Stroke()

	dc.SetRGBA(0xE5/255.0, 0x39/255.0, 0x35/255.0, 0.9)
	dc.DrawPoint(cx, cy, 3.5)
	dc.Fill()
}

// drawCaptions draws the frame timestamp and the "generated at" line,
// bottom-centered inside the region that survives the crop.
func (n *Native) drawCaptions(dc *gg.Context, job *FrameJob) {
	p := job.Plan
	cx := float64(p.RenderWidth) / 2
	bottom := float64(p.RenderHeight - p.OverscanY())

	drawOutlined := func(text string, size, y float64) {
		dc.SetFontFace(truetype.NewFace(n.font, &truetype.Options{Size: size}))

		// Cheap outline: the text drawn in black at four offsets, then in
		// white on top. Matches the ffmpeg backend's borderw=2 look.
		dc.SetRGBA(0, 0, 0, 0.6)
		for _, d := range [][2]float64{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
			dc.DrawStringAnchored(text, cx+d[0], y+d[1], 0.5, 0.5)
		}
		dc.SetColor(color.White)
		dc.DrawStringAnchored(text, cx, y, 0.5, 0.5)
	}

	drawOutlined(job.Label, 18, bottom-38)
	drawOutlined(job.GeneratedLabel, 11, bottom-16)
}

// EncodeAnimation encodes the stills with image/gif. Every frame is
// quantized against the same 256-color palette so the loop does not
// flicker between per-frame palettes.
func (n *Native) EncodeAnimation(ctx context.Context, job *EncodeJob) ([]byte, error) {
	delay := int(job.Delay.Milliseconds() / 10) // GIF delays are centiseconds
	if delay < 2 {
		delay = 2
	}

	anim := &gif.GIF{LoopCount: 0}
	for i, path := range job.FramePaths {
		if err := ctx.Err(); err != nil {
			return nil, NewError(KindRenderFailed, err)
		}

		img, err := loadTileImage(path)
		if err != nil {
			return nil, &Error{Kind: KindRenderFailed, Frame: i, Err: fmt.Errorf("failed to read composed frame: %w", err)}
		}

		pal := image.NewPaletted(img.Bounds(), palette.Plan9)
		draw.FloydSteinberg.Draw(pal, img.Bounds(), img, image.Point{})

		anim.Image = append(anim.Image, pal)
		anim.Delay = append(anim.Delay, delay)
	}

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, anim); err != nil {
		return nil, NewError(KindRenderFailed, fmt.Errorf("gif encode failed: %w", err))
	}
	return buf.Bytes(), nil
}

// loadTileImage decodes a PNG or JPEG file from the working directory.
func loadTileImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return img, nil
}
