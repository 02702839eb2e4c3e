// Pluviograph - Weather Radar Animation for Home Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pluviograph

/*
Package metrics provides Prometheus instrumentation for Pluviograph.

All metrics are registered on the default registry via promauto at package
init and exposed by the /metrics endpoint. Helper functions wrap the
common record patterns so call sites stay one-liners.

# Metric Groups

Render pipeline:

  - radar_render_attempts_total{trigger,outcome}
  - radar_render_duration_seconds
  - radar_render_errors_total{kind}
  - radar_renders_in_flight
  - radar_render_dedup_joins_total
  - radar_render_frames_per_animation
  - radar_render_artifact_bytes

Tile fetching and tile cache:

  - tile_fetches_total{layer,outcome}
  - tile_fetch_duration_seconds{layer}
  - tile_fetch_retries_total
  - tile_cache_hits_total / tile_cache_misses_total
  - tile_cache_entries / tile_cache_bytes

Artifact cache:

  - artifact_cache_reads_total{result}
  - artifact_cache_fallbacks_total
  - artifact_cache_sweeps_total / artifact_cache_sweep_removed_total

Radar frame source:

  - radar_frames_available{kind}
  - radar_index_age_seconds
  - radar_index_polls_total{outcome}

API and system:

  - api_requests_total{method,endpoint,status_code}
  - api_request_duration_seconds{method,endpoint}
  - api_active_requests
  - api_rate_limit_hits_total{endpoint}
  - circuit_breaker_state{name}
  - circuit_breaker_state_transitions_total{name,from_state,to_state}
  - app_info{version,go_version} / app_uptime_seconds

# Usage

	start := time.Now()
	err := engine.RenderOnce(ctx, params)
	metrics.RecordRenderAttempt("scheduled", time.Since(start), err)
*/
package metrics
