// Pluviograph - Weather Radar Animation for Home Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pluviograph

package config

import (
	"fmt"
	"time"
)

// Bounds enforced on render dimensions and frame counts. Values outside
// these ranges are clamped during load and on per-request overrides, never
// rejected: a dashboard asking for a 4000px radar gets the largest
// supported size, not an error page.
const (
	MinDimension = 64
	MaxDimension = 1920
	MinFrames    = 1
	MaxFrames    = 30
)

// Config holds all application configuration loaded from environment
// variables and config files.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for all optional settings
//  2. Config File: Optional YAML config file (config.yaml) for persistent settings
//  3. Environment Variables: Override any setting via environment variables
//
// Configuration Categories:
//
//  1. Radar View: center coordinates, zoom, output dimensions, frame
//     selection and caption behaviour (RadarConfig)
//  2. Upstream Providers: basemap tile URL template, radar index URL,
//     fetch limits and the in-memory tile cache (TilesConfig)
//  3. Rendering: toolchain backend selection, binary path, font,
//     per-attempt timeout (RenderConfig)
//  4. Cache: artifact directory, freshness window, retention and sweep
//     cadence (CacheConfig)
//  5. Server: HTTP listener, rate limiting, CORS (ServerConfig)
//  6. Observability: log level and format (LoggingConfig)
//
// Example - Load configuration from environment:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal("Failed to load config:", err)
//	}
//	// cfg.Radar.Latitude, cfg.Cache.Dir, etc. are now populated
//
// Validation:
// Load() clamps dimension and frame-count fields to their supported
// bounds, then validates the rest and returns an error if values are
// malformed (invalid URL template, out-of-range coordinates, unknown
// render backend).
//
// Thread Safety:
// Config is immutable after Load() and safe for concurrent read access
// from multiple goroutines.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Radar   RadarConfig   `koanf:"radar"`
	Tiles   TilesConfig   `koanf:"tiles"`
	Render  RenderConfig  `koanf:"render"`
	Cache   CacheConfig   `koanf:"cache"`
	Logging LoggingConfig `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
//
// Environment Variables:
//   - HTTP_HOST: Listen address (default: 0.0.0.0)
//   - HTTP_PORT: Listen port (default: 8632)
//   - HTTP_TIMEOUT: Read/write timeout (default: 30s)
//   - RATE_LIMIT_REQUESTS: Requests allowed per window per client (default: 60)
//   - RATE_LIMIT_WINDOW: Rate limit window (default: 1m)
//   - DISABLE_RATE_LIMIT: Disable request rate limiting (default: false)
//   - CORS_ORIGINS: Comma-separated list of allowed origins (default: *)
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              int           `koanf:"port"`
	Timeout           time.Duration `koanf:"timeout"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RadarConfig describes the radar view: where the map is centered, how
// large the output animation is, which frames are included and how the
// per-frame captions behave.
//
// Dimensions are clamped to [64, 1920] and MaxFrames to [1, 30] during
// load. The requested zoom is capped by the radar provider's maximum
// (see TilesConfig.ProviderMaxZoom); use Config.EffectiveZoom for the
// value actually rendered.
//
// CaptionStaleAfter controls timestamp smoothing: when the newest radar
// frame is older than this threshold the displayed frame times are all
// shifted forward by the gap, so a frozen upstream still reads as
// current on the dashboard. Set it to 0 to always show real frame times.
//
// Environment Variables:
//   - RADAR_LATITUDE: Map center latitude (required, -90 to 90 exclusive)
//   - RADAR_LONGITUDE: Map center longitude (required, -180 to 180)
//   - RADAR_ZOOM: Requested tile zoom level (default: 6)
//   - RADAR_WIDTH: Output width in pixels (default: 640)
//   - RADAR_HEIGHT: Output height in pixels (default: 480)
//   - RADAR_MAX_FRAMES: Newest frames per animation (default: 8)
//   - RADAR_FRAME_HOLD: Display time per frame (default: 500ms)
//   - RADAR_TILE_RING: Extra tile ring around the viewport (default: 1)
//   - RADAR_OVERSCAN_PX: Overscan margin cropped from each edge (default: 32)
//   - RADAR_TIME_ZONE: IANA zone for caption times (default: Local)
//   - RADAR_CAPTION_STALE_AFTER: Staleness threshold for timestamp smoothing (default: 20m)
//   - RADAR_INCLUDE_NOWCAST: Append forecast frames after past frames (default: false)
//   - RADAR_RENDER_INTERVAL: Background re-render cadence (default: 5m)
type RadarConfig struct {
	Latitude          float64       `koanf:"latitude"`
	Longitude         float64       `koanf:"longitude"`
	Zoom              int           `koanf:"zoom"`
	Width             int           `koanf:"width"`
	Height            int           `koanf:"height"`
	MaxFrames         int           `koanf:"max_frames"`
	FrameHold         time.Duration `koanf:"frame_hold"`
	TileRing          int           `koanf:"tile_ring"`
	OverscanPx        int           `koanf:"overscan_px"`
	TimeZone          string        `koanf:"time_zone"`
	CaptionStaleAfter time.Duration `koanf:"caption_stale_after"`
	IncludeNowcast    bool          `koanf:"include_nowcast"`
	RenderInterval    time.Duration `koanf:"render_interval"`
}

// TilesConfig holds upstream tile provider settings: the basemap URL
// template, the radar frame index, fetch limits and the in-memory tile
// cache shared by all render attempts.
//
// MapURLTemplate must contain the {z}, {x} and {y} placeholders. The
// radar index URL points at a RainViewer-style weather-maps.json
// document listing past (and optionally nowcast) frame paths.
//
// Environment Variables:
//   - TILES_MAP_URL_TEMPLATE: Basemap tile URL template (default: OpenStreetMap)
//   - TILES_RADAR_INDEX_URL: Radar frame index URL (default: RainViewer public API)
//   - TILES_RADAR_COLOR: Radar color scheme index (default: 4)
//   - TILES_RADAR_OPTIONS: Radar tile options segment, smooth_snow (default: 1_1)
//   - TILES_PROVIDER_MAX_ZOOM: Maximum zoom the radar provider serves (default: 7)
//   - TILES_USER_AGENT: User-Agent header sent upstream
//   - TILES_REQUEST_TIMEOUT: Per-request timeout (default: 15s)
//   - TILES_RETRY_ATTEMPTS: Fetch retries per tile (default: 3)
//   - TILES_RATE_LIMIT: Upstream requests per second (default: 4)
//   - TILES_RATE_BURST: Rate limiter burst size (default: 8)
//   - TILES_POLL_INTERVAL: Radar index poll cadence (default: 2m)
//   - TILES_CACHE_CAPACITY: Max cached tiles (default: 2048)
//   - TILES_CACHE_MAX_BYTES: Max cached tile bytes (default: 134217728)
//   - TILES_CACHE_TTL: Cached tile lifetime (default: 10m)
type TilesConfig struct {
	MapURLTemplate  string        `koanf:"map_url_template"`
	RadarIndexURL   string        `koanf:"radar_index_url"`
	RadarColor      int           `koanf:"radar_color"`
	RadarOptions    string        `koanf:"radar_options"`
	ProviderMaxZoom int           `koanf:"provider_max_zoom"`
	UserAgent       string        `koanf:"user_agent"`
	RequestTimeout  time.Duration `koanf:"request_timeout"`
	RetryAttempts   int           `koanf:"retry_attempts"`
	RateLimit       float64       `koanf:"rate_limit"`
	RateBurst       int           `koanf:"rate_burst"`
	PollInterval    time.Duration `koanf:"poll_interval"`
	CacheCapacity   int           `koanf:"cache_capacity"`
	CacheMaxBytes   int64         `koanf:"cache_max_bytes"`
	CacheTTL        time.Duration `koanf:"cache_ttl"`
}

// RenderConfig selects and bounds the rendering toolchain.
//
// Backend "ffmpeg" shells out to an ffmpeg binary for frame composition
// and GIF encoding; "native" composites and encodes in-process. FontPath
// is optional for both backends: when empty or unreadable, captions fall
// back to a built-in font instead of failing the render.
//
// Environment Variables:
//   - RENDER_BACKEND: Toolchain backend, ffmpeg or native (default: ffmpeg)
//   - RENDER_FFMPEG_PATH: ffmpeg binary path or name (default: ffmpeg)
//   - RENDER_FONT_PATH: TTF font file for captions (optional)
//   - RENDER_TIMEOUT: Per-attempt render timeout (default: 60s)
//   - RENDER_WORK_DIR: Parent directory for per-attempt temp dirs (default: system temp)
type RenderConfig struct {
	Backend    string        `koanf:"backend"`
	FFmpegPath string        `koanf:"ffmpeg_path"`
	FontPath   string        `koanf:"font_path"`
	Timeout    time.Duration `koanf:"timeout"`
	WorkDir    string        `koanf:"work_dir"`
}

// CacheConfig holds the on-disk artifact cache settings. MaxAge is the
// freshness window for serving without re-rendering; Retention is how
// long swept history entries survive; SweepEvery rate-limits the sweep.
//
// Environment Variables:
//   - CACHE_DIR: Artifact cache directory (default: /data/radar-cache)
//   - CACHE_MAX_AGE: Freshness window for cached animations (default: 10m)
//   - CACHE_RETENTION: Retention window for keyed history entries (default: 168h)
//   - CACHE_SWEEP_EVERY: Minimum interval between expiry sweeps (default: 1m)
type CacheConfig struct {
	Dir        string        `koanf:"dir"`
	MaxAge     time.Duration `koanf:"max_age"`
	Retention  time.Duration `koanf:"retention"`
	SweepEvery time.Duration `koanf:"sweep_every"`
}

// LoggingConfig holds logging settings.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error, fatal (default: info)
//   - LOG_FORMAT: json or console (default: json)
//   - LOG_CALLER: Include caller file:line in log output (default: false)
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// EffectiveZoom returns the zoom level actually used for rendering: the
// configured zoom capped by the radar provider's maximum. Basemap and
// radar tiles must share a zoom level or the mosaics will not align.
func (c *Config) EffectiveZoom() int {
	if c.Radar.Zoom > c.Tiles.ProviderMaxZoom {
		return c.Tiles.ProviderMaxZoom
	}
	return c.Radar.Zoom
}

// ClampDimension bounds a requested output dimension to the supported
// range. Used both at load time and for per-request width/height
// overrides from the HTTP layer.
func ClampDimension(v int) int {
	if v < MinDimension {
		return MinDimension
	}
	if v > MaxDimension {
		return MaxDimension
	}
	return v
}

// ClampFrames bounds a requested frame count to the supported range.
func ClampFrames(n int) int {
	if n < MinFrames {
		return MinFrames
	}
	if n > MaxFrames {
		return MaxFrames
	}
	return n
}

// Load reads configuration with the following precedence:
//  1. Built-in defaults
//  2. Config file (config.yaml if exists, or path specified in CONFIG_PATH env var)
//  3. Environment variables
//
// See LoadWithKoanf() for the underlying implementation.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
