// Pluviograph - Weather Radar Animation for Home Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pluviograph

/*
Package main is the entry point for the Pluviograph server application.

Pluviograph is a self-hosted service that renders animated weather-radar
GIF loops for a configured location. It composites basemap and radar
precipitation tiles into timestamped frames, encodes them as an animated
GIF, and serves the result over a small HTTP API with disk-backed
caching so dashboards and e-ink displays can poll it cheaply.

# Application Architecture

The server implements a layered architecture with Suture v4 process
supervision:

	RootSupervisor ("pluviograph")
	├── DataSupervisor ("data-layer")
	│   └── radar-index (frame index poller)
	├── EngineSupervisor ("engine-layer")
	│   └── render-schedule (periodic re-render)
	└── APISupervisor ("api-layer")
	    └── HTTP server

Component initialization order:

 1. Configuration: Koanf v2 with environment variables and config files
 2. Radar manager: polls the radar provider's frame index
 3. Tile client: basemap and radar tile fetches with circuit breaker
    and in-memory LRU cache
 4. Renderer: ffmpeg subprocess or in-process native backend
 5. Disk cache: atomic GIF artifact store with TTL and retention sweep
 6. Render coordinator: singleflight render deduplication with stale
    fallback
 7. HTTP server: REST API with Prometheus metrics

# Configuration

Configuration is loaded via Koanf v2 with layered sources (highest
priority wins):
  - Environment variables (RADAR_*, TILES_*, RENDER_*, CACHE_*, ...)
  - Config file (config.yaml, or CONFIG_PATH)
  - Built-in defaults

The only settings most deployments need are the location and zoom:

	export RADAR_LATITUDE=-27.47
	export RADAR_LONGITUDE=153.02
	export RADAR_ZOOM=7
	./pluviograph

# Render Backends

Two render backends are available via RENDER_BACKEND:

	ffmpeg  Shells out to an ffmpeg binary for frame composition and
	        palette-aware GIF encoding (default; best quality).
	native  Composites and encodes entirely in-process. No external
	        dependencies, useful for containers without ffmpeg.

If the configured backend fails its startup probe the server still
starts and serves cached artifacts until the toolchain becomes
available.

# Signal Handling

The server handles graceful shutdown on SIGINT and SIGTERM:
  - Stops accepting new connections
  - Waits for in-flight requests to complete (10s timeout)
  - Stops the re-render schedule and the frame index poller

# Example Usage

Docker:

	docker run -d \
	  -e RADAR_LATITUDE=-27.47 \
	  -e RADAR_LONGITUDE=153.02 \
	  -v pluviograph-cache:/data/cache \
	  -p 8632:8632 \
	  ghcr.io/tomtom215/pluviograph

# Port 8632

The default port 8632 has no IANA assignment and stays clear of the
ports common home-dashboard stacks already claim.
*/
package main
