// Pluviograph - Weather Radar Animation for Home Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pluviograph

package config

import (
	"fmt"
	"time"
)

// Render timing bounds. GIF frame delays are expressed in centiseconds,
// so holds below 20ms collapse to browser-dependent defaults.
const (
	minFrameHold = 20 * time.Millisecond
	maxFrameHold = 10 * time.Second
	maxZoomLevel = 22
)

// normalize clamps bounded fields to their supported ranges. Called by
// LoadWithKoanf after unmarshaling and before Validate, so validation
// never has to reason about out-of-range dimensions.
func (c *Config) normalize() {
	c.Radar.Width = ClampDimension(c.Radar.Width)
	c.Radar.Height = ClampDimension(c.Radar.Height)
	c.Radar.MaxFrames = ClampFrames(c.Radar.MaxFrames)

	if c.Radar.TileRing < 0 {
		c.Radar.TileRing = 0
	}
	if c.Radar.OverscanPx < 0 {
		c.Radar.OverscanPx = 0
	}
	if c.Radar.FrameHold < minFrameHold {
		c.Radar.FrameHold = minFrameHold
	}
	if c.Radar.FrameHold > maxFrameHold {
		c.Radar.FrameHold = maxFrameHold
	}
	if c.Radar.CaptionStaleAfter < 0 {
		c.Radar.CaptionStaleAfter = 0
	}
}

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateRadar(); err != nil {
		return err
	}

	if err := c.validateTiles(); err != nil {
		return err
	}

	if err := c.validateRender(); err != nil {
		return err
	}

	if err := c.validateCache(); err != nil {
		return err
	}

	return c.validateLogging()
}

// validateServer validates HTTP server configuration
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got: %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got: %s", c.Server.Timeout)
	}
	if !c.Server.RateLimitDisabled {
		if c.Server.RateLimitReqs < 1 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1, got: %d", c.Server.RateLimitReqs)
		}
		if c.Server.RateLimitWindow <= 0 {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got: %s", c.Server.RateLimitWindow)
		}
	}
	return nil
}

// validateRadar validates the radar view configuration
func (c *Config) validateRadar() error {
	if err := c.validateRadarCenter(); err != nil {
		return err
	}
	if c.Radar.Zoom < 0 || c.Radar.Zoom > maxZoomLevel {
		return fmt.Errorf("RADAR_ZOOM must be between 0 and %d, got: %d", maxZoomLevel, c.Radar.Zoom)
	}
	if c.Radar.RenderInterval <= 0 {
		return fmt.Errorf("RADAR_RENDER_INTERVAL must be positive, got: %s", c.Radar.RenderInterval)
	}
	return c.validateRadarTimeZone()
}

// validateRadarCenter validates the map center coordinates. Latitude is
// exclusive at the poles: the Mercator projection diverges there.
func (c *Config) validateRadarCenter() error {
	if c.Radar.Latitude <= -90 || c.Radar.Latitude >= 90 {
		return fmt.Errorf("RADAR_LATITUDE must be between -90 and 90 exclusive, got: %g", c.Radar.Latitude)
	}
	if c.Radar.Longitude < -180 || c.Radar.Longitude > 180 {
		return fmt.Errorf("RADAR_LONGITUDE must be between -180 and 180, got: %g", c.Radar.Longitude)
	}
	return nil
}

// validateRadarTimeZone validates the caption time zone name
func (c *Config) validateRadarTimeZone() error {
	if _, err := c.Radar.Location(); err != nil {
		return fmt.Errorf("RADAR_TIME_ZONE is invalid: %w", err)
	}
	return nil
}

// Location resolves the configured caption time zone. An empty or
// "Local" value resolves to the host's local zone.
func (r RadarConfig) Location() (*time.Location, error) {
	if r.TimeZone == "" || r.TimeZone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(r.TimeZone)
}

// validateTiles validates upstream tile provider configuration
func (c *Config) validateTiles() error {
	if err := validateTileURLTemplate(c.Tiles.MapURLTemplate, "TILES_MAP_URL_TEMPLATE"); err != nil {
		return err
	}
	if err := validateHTTPURL(c.Tiles.RadarIndexURL, "TILES_RADAR_INDEX_URL"); err != nil {
		return err
	}
	if c.Tiles.ProviderMaxZoom < 0 || c.Tiles.ProviderMaxZoom > maxZoomLevel {
		return fmt.Errorf("TILES_PROVIDER_MAX_ZOOM must be between 0 and %d, got: %d", maxZoomLevel, c.Tiles.ProviderMaxZoom)
	}
	if c.Tiles.RequestTimeout <= 0 {
		return fmt.Errorf("TILES_REQUEST_TIMEOUT must be positive, got: %s", c.Tiles.RequestTimeout)
	}
	if c.Tiles.RetryAttempts < 0 {
		return fmt.Errorf("TILES_RETRY_ATTEMPTS must not be negative, got: %d", c.Tiles.RetryAttempts)
	}
	if c.Tiles.RateLimit <= 0 {
		return fmt.Errorf("TILES_RATE_LIMIT must be positive, got: %g", c.Tiles.RateLimit)
	}
	if c.Tiles.RateBurst < 1 {
		return fmt.Errorf("TILES_RATE_BURST must be at least 1, got: %d", c.Tiles.RateBurst)
	}
	if c.Tiles.PollInterval <= 0 {
		return fmt.Errorf("TILES_POLL_INTERVAL must be positive, got: %s", c.Tiles.PollInterval)
	}
	return nil
}

// validateRender validates the render toolchain configuration
func (c *Config) validateRender() error {
	switch c.Render.Backend {
	case "ffmpeg":
		if c.Render.FFmpegPath == "" {
			return fmt.Errorf("RENDER_FFMPEG_PATH is required when RENDER_BACKEND=ffmpeg")
		}
	case "native":
		// No binary needed.
	default:
		return fmt.Errorf("RENDER_BACKEND must be ffmpeg or native, got: %s", c.Render.Backend)
	}
	if c.Render.Timeout <= 0 {
		return fmt.Errorf("RENDER_TIMEOUT must be positive, got: %s", c.Render.Timeout)
	}
	return nil
}

// validateCache validates the artifact cache configuration
func (c *Config) validateCache() error {
	if c.Cache.Dir == "" {
		return fmt.Errorf("CACHE_DIR is required")
	}
	if c.Cache.MaxAge <= 0 {
		return fmt.Errorf("CACHE_MAX_AGE must be positive, got: %s", c.Cache.MaxAge)
	}
	if c.Cache.Retention < c.Cache.MaxAge {
		return fmt.Errorf("CACHE_RETENTION must be at least CACHE_MAX_AGE (%s), got: %s", c.Cache.MaxAge, c.Cache.Retention)
	}
	if c.Cache.SweepEvery <= 0 {
		return fmt.Errorf("CACHE_SWEEP_EVERY must be positive, got: %s", c.Cache.SweepEvery)
	}
	return nil
}

// validateLogging validates logging configuration
func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, fatal, got: %s", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got: %s", c.Logging.Format)
	}

	return nil
}
