// Pluviograph - Weather Radar Animation for Home Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pluviograph

package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/pluviograph/internal/config"
	"github.com/tomtom215/pluviograph/internal/diskcache"
	"github.com/tomtom215/pluviograph/internal/logging"
	"github.com/tomtom215/pluviograph/internal/metrics"
	"github.com/tomtom215/pluviograph/internal/radar"
	"github.com/tomtom215/pluviograph/internal/render"
	"github.com/tomtom215/pluviograph/internal/tiles"
)

// FrameSource supplies read-only radar frame snapshots. Satisfied by
// *radar.Manager.
type FrameSource interface {
	State() radar.State
}

// renderRunner executes one planned render attempt. Satisfied by
// *render.Pipeline; tests substitute fakes.
type renderRunner interface {
	Render(ctx context.Context, plan *render.Plan) ([]byte, error)
}

// Params are the per-request render parameters. Zero values fall back to
// the configured defaults; out-of-range values are clamped, not rejected.
type Params struct {
	Width  int
	Height int
}

// Artifact is one rendered animation as served to callers.
type Artifact struct {
	Bytes       []byte
	ContentType string
	Width       int
	Height      int
	RenderedAt  time.Time
}

// Coordinator guards rendering: request dedup, the probe-once toolchain
// gate, cache-first serving and the stale-fallback policy. One Coordinator
// exists per process; all entry points are safe for concurrent use.
type Coordinator struct {
	cfg      *config.Config
	frames   FrameSource
	renderer render.Renderer
	runner   renderRunner
	store    *diskcache.Store

	group singleflight.Group

	probeOnce sync.Once
	probeErr  error

	// now is the clock, replaceable in tests.
	now func() time.Time
}

// NewCoordinator wires the engine: a pipeline over the given tile source
// and renderer, publishing into store.
func NewCoordinator(cfg *config.Config, frames FrameSource, renderer render.Renderer, source tiles.Source, store *diskcache.Store) *Coordinator {
	return &Coordinator{
		cfg:      cfg,
		frames:   frames,
		renderer: renderer,
		runner:   render.NewPipeline(source, renderer, &cfg.Render),
		store:    store,
		now:      time.Now,
	}
}

// CanRender reports whether the rendering toolchain is usable. The probe
// runs once per process and the verdict is cached; a toolchain installed
// later is not noticed until restart.
func (c *Coordinator) CanRender(ctx context.Context) bool {
	c.probeOnce.Do(func() {
		c.probeErr = c.renderer.Probe(ctx)
		if c.probeErr != nil {
			logging.Error().Err(c.probeErr).Str("backend", c.renderer.Name()).Msg("Render toolchain unavailable")
		}
	})
	return c.probeErr == nil
}

// RenderOnce builds a plan for the current frame list and executes it,
// publishing the result to the cache. Concurrent calls that compute the
// same plan key share a single execution and all receive its artifact.
// trigger labels the attempt in metrics ("on_demand", "scheduled",
// "warm").
func (c *Coordinator) RenderOnce(ctx context.Context, trigger string, p Params) (*Artifact, error) {
	st := c.frames.State()
	if len(st.Frames) == 0 {
		err := render.NewError(render.KindNoFrames, fmt.Errorf("radar index is empty"))
		metrics.RecordRenderError(string(render.KindNoFrames))
		return nil, err
	}

	if !c.CanRender(ctx) {
		err := render.NewError(render.KindToolchainUnavailable, c.probeErr)
		metrics.RecordRenderError(string(render.KindToolchainUnavailable))
		return nil, err
	}

	width, height := c.effectiveParams(p)
	plan, err := render.NewPlan(c.cfg, width, height, st.Frames, c.now())
	if err != nil {
		metrics.RecordRenderError(string(render.KindOf(err)))
		return nil, err
	}

	v, err, shared := c.group.Do(plan.Key, func() (interface{}, error) {
		return c.execute(ctx, trigger, plan)
	})
	if shared {
		metrics.RenderDedupJoins.Inc()
	}
	if err != nil {
		return nil, err
	}
	return v.(*Artifact), nil
}

// execute runs one deduplicated render attempt. The context is detached
// from the initiating caller — joined callers must not lose the shared
// result because the first requester gave up — and bounded by the
// configured render timeout.
func (c *Coordinator) execute(ctx context.Context, trigger string, plan *render.Plan) (*Artifact, error) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.Render.Timeout)
	defer cancel()
	rctx = logging.ContextWithAttemptID(rctx, logging.GenerateAttemptID())

	metrics.TrackRenderInFlight(true)
	defer metrics.TrackRenderInFlight(false)

	started := time.Now()
	data, err := c.runner.Render(rctx, plan)
	metrics.RecordRenderAttempt(trigger, time.Since(started), err)
	if err != nil {
		kind := render.KindOf(err)
		metrics.RecordRenderError(string(kind))
		logging.Ctx(rctx).Error().Err(err).
			Str("kind", string(kind)).
			Str("key", plan.Key).
			Str("trigger", trigger).
			Msg("Render attempt failed")
		return nil, err
	}

	renderedAt := c.now()
	if err := c.store.Publish(plan.Key, data, plan.Width, plan.Height, renderedAt); err != nil {
		// The render succeeded; serve it even though the cache write
		// failed. The next attempt will try to publish again.
		logging.Ctx(rctx).Error().Err(err).Str("key", plan.Key).Msg("Failed to publish rendered artifact")
	} else {
		c.store.MaybeSweep(c.cfg.Cache.Retention, c.cfg.Cache.SweepEvery, renderedAt)
	}

	return &Artifact{
		Bytes:       data,
		ContentType: "image/gif",
		Width:       plan.Width,
		Height:      plan.Height,
		RenderedAt:  renderedAt,
	}, nil
}

// WarmGIF is the best-effort pre-render trigger. It returns true when a
// fresh artifact is already cached or a render is now in flight, and false
// only when rendering is impossible (no frames, no toolchain). Render
// failures are logged, never surfaced: warming is background work with no
// caller waiting on the outcome.
func (c *Coordinator) WarmGIF(ctx context.Context, p Params) bool {
	if _, _, err := c.store.Latest(c.cfg.Cache.MaxAge, c.now()); err == nil {
		return true
	}

	if len(c.frames.State().Frames) == 0 || !c.CanRender(ctx) {
		return false
	}

	bg := context.WithoutCancel(ctx)
	go func() {
		if _, err := c.RenderOnce(bg, "warm", p); err != nil {
			logging.Warn().Err(err).Str("kind", string(render.KindOf(err))).Msg("Warm render failed")
		}
	}()
	return true
}

// LatestGIF returns the freshest cached artifact. It never triggers a
// render.
func (c *Coordinator) LatestGIF() (*Artifact, error) {
	data, meta, err := c.store.Latest(c.cfg.Cache.MaxAge, c.now())
	if err != nil {
		return nil, err
	}
	return &Artifact{
		Bytes:       data,
		ContentType: "image/gif",
		Width:       meta.Width,
		Height:      meta.Height,
		RenderedAt:  meta.RenderedAt,
	}, nil
}

// LatestMeta returns the cached artifact's sidecar without an age gate. It
// never triggers a render.
func (c *Coordinator) LatestMeta() (*diskcache.Meta, error) {
	return c.store.LatestMeta()
}

// RenderGIF is the serving entry point, implementing the degradation
// ladder: fresh cache, then a fresh render, then the newest history
// artifact of any configuration (isFallback true), and only then the
// render error. A stale animation on the dashboard beats an error tile.
func (c *Coordinator) RenderGIF(ctx context.Context, p Params) (*Artifact, bool, error) {
	if a, err := c.LatestGIF(); err == nil {
		return a, false, nil
	}

	a, renderErr := c.RenderOnce(ctx, "on_demand", p)
	if renderErr == nil {
		return a, false, nil
	}

	if data, err := c.store.FindNewestAny(c.cfg.Cache.Retention, c.now()); err == nil {
		metrics.ArtifactCacheFallbacks.Inc()
		logging.Warn().
			Str("kind", string(render.KindOf(renderErr))).
			Msg("Serving stale cached artifact after failed render")
		return &Artifact{Bytes: data, ContentType: "image/gif"}, true, nil
	}

	return nil, false, renderErr
}

// effectiveParams resolves request parameters against configured defaults
// with clamping.
func (c *Coordinator) effectiveParams(p Params) (width, height int) {
	width = p.Width
	if width <= 0 {
		width = c.cfg.Radar.Width
	}
	height = p.Height
	if height <= 0 {
		height = c.cfg.Radar.Height
	}
	return config.ClampDimension(width), config.ClampDimension(height)
}
