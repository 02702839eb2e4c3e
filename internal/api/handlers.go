// Pluviograph - Weather Radar Animation for Home Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pluviograph

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/pluviograph/internal/config"
	"github.com/tomtom215/pluviograph/internal/diskcache"
	"github.com/tomtom215/pluviograph/internal/engine"
	"github.com/tomtom215/pluviograph/internal/logging"
	"github.com/tomtom215/pluviograph/internal/radar"
	"github.com/tomtom215/pluviograph/internal/render"
	"github.com/tomtom215/pluviograph/internal/validation"
)

// FrameStater supplies the radar frame snapshot for health reporting.
// Satisfied by *radar.Manager.
type FrameStater interface {
	State() radar.State
}

// Handler holds the dependencies for all HTTP handlers.
type Handler struct {
	cfg       *config.Config
	coord     *engine.Coordinator
	frames    FrameStater
	startTime time.Time
}

// NewHandler creates the handler set for the radar API.
func NewHandler(cfg *config.Config, coord *engine.Coordinator, frames FrameStater) *Handler {
	return &Handler{
		cfg:       cfg,
		coord:     coord,
		frames:    frames,
		startTime: time.Now(),
	}
}

// dimensionRequest carries the optional per-request output dimensions.
// Zero means "use the configured default"; negative values are rejected.
// In-range values beyond the renderer's bounds are clamped downstream.
type dimensionRequest struct {
	Width  int `validate:"omitempty,min=1"`
	Height int `validate:"omitempty,min=1"`
}

// parseDimensions reads width/height query parameters. A missing parameter
// yields zero; a non-numeric or negative one is a validation error.
func parseDimensions(r *http.Request) (dimensionRequest, error) {
	var req dimensionRequest

	if raw := r.URL.Query().Get("width"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return req, fmt.Errorf("width must be an integer")
		}
		req.Width = v
	}
	if raw := r.URL.Query().Get("height"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return req, fmt.Errorf("height must be an integer")
		}
		req.Height = v
	}

	return req, nil
}

// LatestGIF serves the radar animation, rendering on demand when the cache
// is stale. A stale fallback artifact is served with X-Radar-Fallback: true
// and status 200, so dashboard image tags keep displaying something through
// upstream outages.
func (h *Handler) LatestGIF(w http.ResponseWriter, r *http.Request) {
	req, err := parseDimensions(r)
	if err != nil {
		NewResponseWriter(w, r).BadRequest(err.Error())
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		NewResponseWriter(w, r).ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	artifact, fallback, err := h.coord.RenderGIF(r.Context(), engine.Params{
		Width:  req.Width,
		Height: req.Height,
	})
	if err != nil {
		h.writeRenderError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(artifact.Bytes)))
	w.Header().Set("Cache-Control", "no-cache")
	if !artifact.RenderedAt.IsZero() {
		w.Header().Set("X-Radar-Rendered-At", artifact.RenderedAt.UTC().Format(time.RFC3339))
	}
	if fallback {
		w.Header().Set("X-Radar-Fallback", "true")
	}
	if _, err := w.Write(artifact.Bytes); err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Client disconnected during GIF write")
	}
}

// writeRenderError maps a render failure to 503 with the error kind as the
// machine-readable code. Every kind means "cannot produce an animation
// right now"; none of them are the caller's fault.
func (h *Handler) writeRenderError(w http.ResponseWriter, r *http.Request, err error) {
	kind := render.KindOf(err)
	NewResponseWriter(w, r).ServiceUnavailable(
		strings.ToUpper(string(kind)),
		renderErrorMessage(kind),
	)
}

// renderErrorMessage provides stable operator-facing messages per kind.
// The underlying error text stays in the logs, not the response.
func renderErrorMessage(kind render.Kind) string {
	switch kind {
	case render.KindToolchainUnavailable:
		return "Render toolchain is not available on this host"
	case render.KindNoFrames:
		return "No radar frames are available from the provider"
	case render.KindMapTilesUnavailable:
		return "Basemap tiles could not be fetched"
	case render.KindRadarTilesIncomplete:
		return "Radar overlay tiles could not be fetched for every frame"
	case render.KindInvalidTileFormat:
		return "Tile provider returned data in an unexpected format"
	default:
		return "Radar animation could not be rendered"
	}
}

// metaPayload is the JSON body for the meta endpoint.
type metaPayload struct {
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	RenderedAt time.Time `json:"rendered_at"`
	AgeSeconds int64     `json:"age_seconds"`
	Stale      bool      `json:"stale"`
}

// Meta reports the cached artifact's sidecar metadata. It never triggers
// a render; 404 means nothing has been rendered yet.
func (h *Handler) Meta(w http.ResponseWriter, r *http.Request) {
	meta, err := h.coord.LatestMeta()
	if err != nil {
		if errors.Is(err, diskcache.ErrNoArtifact) {
			NewResponseWriter(w, r).NotFound("No rendered animation is cached yet")
			return
		}
		NewResponseWriter(w, r).InternalError("Failed to read cached artifact metadata")
		return
	}

	age := time.Since(meta.RenderedAt)
	NewResponseWriter(w, r).Success(metaPayload{
		Width:      meta.Width,
		Height:     meta.Height,
		RenderedAt: meta.RenderedAt,
		AgeSeconds: int64(age.Seconds()),
		Stale:      age > h.cfg.Cache.MaxAge,
	})
}

// warmPayload is the JSON body for the warm endpoint.
type warmPayload struct {
	Scheduled bool `json:"scheduled"`
}

// Warm kicks a background render when the cache is stale. It answers
// immediately: 202 with scheduled=true when a fresh artifact exists or a
// render is now in flight, scheduled=false when rendering is impossible.
func (h *Handler) Warm(w http.ResponseWriter, r *http.Request) {
	req, err := parseDimensions(r)
	if err != nil {
		NewResponseWriter(w, r).BadRequest(err.Error())
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		NewResponseWriter(w, r).ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	scheduled := h.coord.WarmGIF(r.Context(), engine.Params{
		Width:  req.Width,
		Height: req.Height,
	})
	NewResponseWriter(w, r).Accepted(warmPayload{Scheduled: scheduled})
}

// healthPayload is the JSON body for the health endpoint.
type healthPayload struct {
	Status        string         `json:"status"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Radar         radarHealth    `json:"radar"`
	Renderer      rendererHealth `json:"renderer"`
	Cache         cacheHealth    `json:"cache"`
}

type radarHealth struct {
	Frames    int       `json:"frames"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
	Error     string    `json:"error,omitempty"`
}

type rendererHealth struct {
	Backend   string `json:"backend"`
	Available bool   `json:"available"`
}

type cacheHealth struct {
	Artifact   bool      `json:"artifact"`
	RenderedAt time.Time `json:"rendered_at,omitempty"`
}

// Health reports per-component status. Degraded means the service is up
// but cannot currently produce a fresh animation.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	st := h.frames.State()
	canRender := h.coord.CanRender(r.Context())

	payload := healthPayload{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Radar: radarHealth{
			Frames:    len(st.Frames),
			UpdatedAt: st.UpdatedAt,
		},
		Renderer: rendererHealth{
			Backend:   h.cfg.Render.Backend,
			Available: canRender,
		},
	}
	if st.Err != nil {
		payload.Radar.Error = st.Err.Error()
	}

	if meta, err := h.coord.LatestMeta(); err == nil {
		payload.Cache.Artifact = true
		payload.Cache.RenderedAt = meta.RenderedAt
	}

	if len(st.Frames) == 0 || !canRender {
		payload.Status = "degraded"
	}

	NewResponseWriter(w, r).Success(payload)
}

// HealthLive is the liveness probe: the process is serving requests.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]string{"status": "alive"})
}

// HealthReady is the readiness probe. Ready means a request for the
// animation can be answered: either radar frames are available to render
// from, or a previously rendered artifact is cached.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if len(h.frames.State().Frames) > 0 {
		NewResponseWriter(w, r).Success(map[string]string{"status": "ready"})
		return
	}
	if _, err := h.coord.LatestMeta(); err == nil {
		NewResponseWriter(w, r).Success(map[string]string{"status": "ready"})
		return
	}

	NewResponseWriter(w, r).ServiceUnavailable(ErrCodeServiceUnavailable,
		"No radar frames and no cached animation yet")
}
