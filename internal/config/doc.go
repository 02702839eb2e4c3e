// Pluviograph - Weather Radar Animation for Home Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pluviograph

/*
Package config provides centralized configuration management for Pluviograph.

This package handles loading, clamping, and validation of all application
settings. Configuration is loaded with Koanf v2 from three layered sources,
each overriding the last:

  - Built-in defaults
  - Optional YAML config file (config.yaml, or CONFIG_PATH)
  - Environment variables

# Configuration Structure

Settings are organized into logical groups:

  - ServerConfig: HTTP listener, rate limiting, CORS
  - RadarConfig: map center, zoom, output dimensions, frame selection,
    caption time zone and staleness smoothing, render cadence
  - TilesConfig: basemap URL template, radar frame index, fetch limits,
    in-memory tile cache
  - RenderConfig: toolchain backend (ffmpeg or native), binary path,
    caption font, per-attempt timeout
  - CacheConfig: on-disk artifact directory, freshness window, retention
  - LoggingConfig: level, format, caller reporting

Each group's struct documents its environment variables. Dimension and
frame-count fields are clamped to their supported bounds at load time
rather than rejected; everything else is validated strictly.

# Usage

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}
	fmt.Println(cfg.Server.Addr(), cfg.EffectiveZoom())

Config values are immutable after Load and safe for concurrent reads.
For hot reload of the log level, pair WatchConfigFile with
logging.SetLevelString.
*/
package config
