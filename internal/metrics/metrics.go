// Pluviograph - Weather Radar Animation for Home Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pluviograph

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus Metrics Integration for Production Observability
// This package provides instrumentation for:
// - Render pipeline throughput, latency and failure kinds
// - Upstream tile fetching and the in-memory tile cache
// - The on-disk artifact cache (hits, fallbacks, sweeps)
// - Radar frame source freshness
// - API endpoint latency and throughput

var (
	// Render Pipeline Metrics
	RenderAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radar_render_attempts_total",
			Help: "Total number of render attempts",
		},
		[]string{"trigger", "outcome"}, // trigger: "scheduled", "on_demand", "warm"; outcome: "success", "failure"
	)

	RenderDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "radar_render_duration_seconds",
			Help:    "Duration of complete render attempts in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120}, // Renders shell out per frame and can take a while
		},
	)

	RenderErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radar_render_errors_total",
			Help: "Total number of render errors by kind",
		},
		[]string{"kind"}, // "toolchain_unavailable", "no_frames_available", "map_tiles_unavailable", ...
	)

	RendersInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "radar_renders_in_flight",
			Help: "Current number of render attempts in progress",
		},
	)

	RenderDedupJoins = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "radar_render_dedup_joins_total",
			Help: "Total number of callers that joined an in-flight render instead of starting one",
		},
	)

	RenderFramesPerAnimation = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "radar_render_frames_per_animation",
			Help:    "Number of frames encoded per animation",
			Buckets: []float64{1, 2, 4, 6, 8, 12, 16, 24, 30},
		},
	)

	RenderArtifactBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "radar_render_artifact_bytes",
			Help:    "Size of encoded animations in bytes",
			Buckets: prometheus.ExponentialBuckets(4096, 4, 8), // 4KB .. 64MB
		},
	)

	// Tile Fetch Metrics
	TileFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tile_fetches_total",
			Help: "Total number of upstream tile fetches",
		},
		[]string{"layer", "outcome"}, // layer: "map", "radar"; outcome: "success", "failure"
	)

	TileFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tile_fetch_duration_seconds",
			Help:    "Duration of upstream tile fetches in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"layer"},
	)

	TileFetchRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tile_fetch_retries_total",
			Help: "Total number of tile fetch retry attempts",
		},
	)

	TileCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tile_cache_hits_total",
			Help: "Total number of in-memory tile cache hits",
		},
	)

	TileCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tile_cache_misses_total",
			Help: "Total number of in-memory tile cache misses",
		},
	)

	TileCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tile_cache_entries",
			Help: "Current number of cached tiles",
		},
	)

	TileCacheBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tile_cache_bytes",
			Help: "Current byte size of the in-memory tile cache",
		},
	)

	// Artifact Cache Metrics
	ArtifactCacheReads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artifact_cache_reads_total",
			Help: "Total number of artifact cache reads by result",
		},
		[]string{"result"}, // "hit", "miss", "stale"
	)

	ArtifactCacheFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "artifact_cache_fallbacks_total",
			Help: "Total number of stale artifacts served after a failed fresh render",
		},
	)

	ArtifactCacheSweeps = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "artifact_cache_sweeps_total",
			Help: "Total number of expiry sweeps executed",
		},
	)

	ArtifactCacheSweepRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "artifact_cache_sweep_removed_total",
			Help: "Total number of expired artifacts removed by sweeps",
		},
	)

	// Radar Frame Source Metrics
	RadarFramesAvailable = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "radar_frames_available",
			Help: "Number of frames currently offered by the radar index",
		},
		[]string{"kind"}, // "past", "nowcast"
	)

	RadarIndexAgeSeconds = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "radar_index_age_seconds",
			Help: "Seconds since the radar frame index was last refreshed",
		},
	)

	RadarIndexPolls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radar_index_polls_total",
			Help: "Total number of radar index poll attempts",
		},
		[]string{"outcome"}, // "success", "failure"
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}, // Optimized for API latency
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordRenderAttempt records the outcome and duration of one render attempt
func RecordRenderAttempt(trigger string, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	RenderAttemptsTotal.WithLabelValues(trigger, outcome).Inc()
	RenderDuration.Observe(duration.Seconds())
}

// RecordRenderError records a render failure by its error kind
func RecordRenderError(kind string) {
	RenderErrors.WithLabelValues(kind).Inc()
}

// TrackRenderInFlight tracks render attempts in progress
func TrackRenderInFlight(inc bool) {
	if inc {
		RendersInFlight.Inc()
	} else {
		RendersInFlight.Dec()
	}
}

// RecordRenderResult records the shape of a successfully encoded animation
func RecordRenderResult(frames int, artifactBytes int) {
	RenderFramesPerAnimation.Observe(float64(frames))
	RenderArtifactBytes.Observe(float64(artifactBytes))
}

// RecordTileFetch records an upstream tile fetch and its outcome
func RecordTileFetch(layer string, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	TileFetchesTotal.WithLabelValues(layer, outcome).Inc()
	TileFetchDuration.WithLabelValues(layer).Observe(duration.Seconds())
}

// UpdateTileCacheStats updates the tile cache size gauges
func UpdateTileCacheStats(entries int, bytes int64) {
	TileCacheEntries.Set(float64(entries))
	TileCacheBytes.Set(float64(bytes))
}

// RecordArtifactCacheRead records an artifact cache read result
func RecordArtifactCacheRead(result string) {
	ArtifactCacheReads.WithLabelValues(result).Inc()
}

// RecordSweep records an expiry sweep and the number of artifacts it removed
func RecordSweep(removed int) {
	ArtifactCacheSweeps.Inc()
	ArtifactCacheSweepRemoved.Add(float64(removed))
}

// UpdateRadarFrameStats updates frame availability and index age gauges
func UpdateRadarFrameStats(past, nowcast int, updatedAt time.Time) {
	RadarFramesAvailable.WithLabelValues("past").Set(float64(past))
	RadarFramesAvailable.WithLabelValues("nowcast").Set(float64(nowcast))
	if !updatedAt.IsZero() {
		RadarIndexAgeSeconds.Set(time.Since(updatedAt).Seconds())
	}
}

// RecordRadarIndexPoll records a radar index poll attempt
func RecordRadarIndexPoll(err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	RadarIndexPolls.WithLabelValues(outcome).Inc()
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordBreakerTransition records a circuit breaker state transition and
// updates the state gauge
func RecordBreakerTransition(name, from, to string, state int) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}
