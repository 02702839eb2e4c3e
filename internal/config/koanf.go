// Pluviograph - Weather Radar Animation for Home Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pluviograph

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/pluviograph/config.yaml",
	"/etc/pluviograph/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8632,
			Timeout:           30 * time.Second,
			RateLimitReqs:     60,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
		},
		Radar: RadarConfig{
			Latitude:          0.0, // No meaningful default; operators set their own coordinates
			Longitude:         0.0,
			Zoom:              6,
			Width:             640,
			Height:            480,
			MaxFrames:         8,
			FrameHold:         500 * time.Millisecond,
			TileRing:          1,
			OverscanPx:        32,
			TimeZone:          "Local",
			CaptionStaleAfter: 20 * time.Minute,
			IncludeNowcast:    false,
			RenderInterval:    5 * time.Minute,
		},
		Tiles: TilesConfig{
			MapURLTemplate:  "https://tile.openstreetmap.org/{z}/{x}/{y}.png",
			RadarIndexURL:   "https://api.rainviewer.com/public/weather-maps.json",
			RadarColor:      4,
			RadarOptions:    "1_1",
			ProviderMaxZoom: 7,
			UserAgent:       "pluviograph/1.0 (+https://github.com/tomtom215/pluviograph)",
			RequestTimeout:  15 * time.Second,
			RetryAttempts:   3,
			RateLimit:       4,
			RateBurst:       8,
			PollInterval:    2 * time.Minute,
			CacheCapacity:   2048,
			CacheMaxBytes:   128 << 20, // 128MB
			CacheTTL:        10 * time.Minute,
		},
		Render: RenderConfig{
			Backend:    "ffmpeg",
			FFmpegPath: "ffmpeg",
			FontPath:   "",
			Timeout:    60 * time.Second,
			WorkDir:    "", // Empty = os.TempDir()
		},
		Cache: CacheConfig{
			Dir:        "/data/radar-cache",
			MaxAge:     10 * time.Minute,
			Retention:  7 * 24 * time.Hour,
			SweepEvery: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in sensible defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
//
// This function is the preferred way to load configuration and provides:
//   - Type-safe configuration unmarshaling
//   - Clear precedence: ENV > File > Defaults
//   - Support for nested configuration via koanf struct tags
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// Transform environment variable names to koanf paths:
	// RADAR_WIDTH -> radar.width
	// TILES_MAP_URL_TEMPLATE -> tiles.map_url_template
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Post-process slice fields from comma-separated strings
	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	// Unmarshal into Config struct
	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	// Clamp bounded fields, then validate the rest
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	// Check environment variable first
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	// Search default paths
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// This is necessary because env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// If it's already a slice (from YAML file), skip
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		// If it's a string, split by comma
		if strVal, ok := val.(string); ok {
			if strVal == "" {
				continue
			}
			parts := strings.Split(strVal, ",")
			trimmed := make([]string, 0, len(parts))
			for _, p := range parts {
				p = strings.TrimSpace(p)
				if p != "" {
					trimmed = append(trimmed, p)
				}
			}
			if len(trimmed) > 0 {
				if err := k.Set(path, trimmed); err != nil {
					return fmt.Errorf("failed to set %s: %w", path, err)
				}
			}
		}
	}
	return nil
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - RADAR_LATITUDE -> radar.latitude
//   - RENDER_BACKEND -> render.backend
//   - HTTP_PORT -> server.port
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Server mappings
		"http_host":           "server.host",
		"http_port":           "server.port",
		"http_timeout":        "server.timeout",
		"rate_limit_requests": "server.rate_limit_reqs",
		"rate_limit_window":   "server.rate_limit_window",
		"disable_rate_limit":  "server.rate_limit_disabled",
		"cors_origins":        "server.cors_origins",

		// Radar view mappings
		"radar_latitude":            "radar.latitude",
		"radar_longitude":           "radar.longitude",
		"radar_zoom":                "radar.zoom",
		"radar_width":               "radar.width",
		"radar_height":              "radar.height",
		"radar_max_frames":          "radar.max_frames",
		"radar_frame_hold":          "radar.frame_hold",
		"radar_tile_ring":           "radar.tile_ring",
		"radar_overscan_px":         "radar.overscan_px",
		"radar_time_zone":           "radar.time_zone",
		"radar_caption_stale_after": "radar.caption_stale_after",
		"radar_include_nowcast":     "radar.include_nowcast",
		"radar_render_interval":     "radar.render_interval",

		// Tile provider mappings
		"tiles_map_url_template":  "tiles.map_url_template",
		"tiles_radar_index_url":   "tiles.radar_index_url",
		"tiles_radar_color":       "tiles.radar_color",
		"tiles_radar_options":     "tiles.radar_options",
		"tiles_provider_max_zoom": "tiles.provider_max_zoom",
		"tiles_user_agent":        "tiles.user_agent",
		"tiles_request_timeout":   "tiles.request_timeout",
		"tiles_retry_attempts":    "tiles.retry_attempts",
		"tiles_rate_limit":        "tiles.rate_limit",
		"tiles_rate_burst":        "tiles.rate_burst",
		"tiles_poll_interval":     "tiles.poll_interval",
		"tiles_cache_capacity":    "tiles.cache_capacity",
		"tiles_cache_max_bytes":   "tiles.cache_max_bytes",
		"tiles_cache_ttl":         "tiles.cache_ttl",

		// Render toolchain mappings
		"render_backend":     "render.backend",
		"render_ffmpeg_path": "render.ffmpeg_path",
		"render_font_path":   "render.font_path",
		"render_timeout":     "render.timeout",
		"render_work_dir":    "render.work_dir",

		// Artifact cache mappings
		"cache_dir":         "cache.dir",
		"cache_max_age":     "cache.max_age",
		"cache_retention":   "cache.retention",
		"cache_sweep_every": "cache.sweep_every",

		// Logging mappings
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	// For unmapped keys, return empty string to skip them
	// This prevents random environment variables from polluting config
	return ""
}

// GetKoanfInstance returns a new Koanf instance for advanced usage.
// This is useful for:
//   - Hot-reload scenarios (with proper mutex protection)
//   - Custom configuration sources
//   - Testing with mock configurations
func GetKoanfInstance() *koanf.Koanf {
	return koanf.New(".")
}

// WatchConfigFile sets up a file watcher for hot-reload capability.
// Note: The caller is responsible for mutex protection when accessing
// configuration during reloads.
//
// Example usage:
//
//	err := WatchConfigFile(configPath, func() {
//	    newCfg, err := config.Load()
//	    if err != nil {
//	        logging.Error().Err(err).Msg("Config reload failed")
//	        return
//	    }
//	    logging.SetLevelString(newCfg.Logging.Level)
//	})
func WatchConfigFile(path string, callback func()) error {
	provider := file.Provider(path)

	// Start watching the file for changes
	return provider.Watch(func(event interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
