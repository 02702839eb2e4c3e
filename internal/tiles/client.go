// Pluviograph - Weather Radar Animation for Home Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pluviograph

/*
client.go - HTTP tile source

This file provides the Client struct implementing Source over HTTP for both
tile layers: basemap tiles from a {z}/{x}/{y} URL template and radar overlay
tiles from RainViewer-style frame paths.

Client Features:
  - URL templating with {z}/{x}/{y} placeholder substitution
  - Shared in-memory LRU cache keyed by final tile URL
  - Token-bucket rate limiting across all upstream requests
  - Per-layer circuit breakers (map and radar hosts fail independently)
  - Automatic retry with exponential backoff on HTTP 429 and 5xx
  - Magic-byte validation of every payload before it enters the cache

Resilience Mechanisms:
  - Circuit Breaker: opens at 60% failure rate over 10+ requests (2m recovery)
  - Rate Limiting: configurable requests/second with burst allowance
  - Retries: exponential backoff (1s, 2s, 4s, ...) honoring Retry-After
  - Context: all methods accept context for cancellation

Related Files:
  - source.go: Source interface, TileData, format validation
  - breaker.go: circuit breaker wrapper around gobreaker
*/

package tiles

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/pluviograph/internal/cache"
	"github.com/tomtom215/pluviograph/internal/config"
	"github.com/tomtom215/pluviograph/internal/geo"
	"github.com/tomtom215/pluviograph/internal/logging"
	"github.com/tomtom215/pluviograph/internal/metrics"
)

// maxTileBytes bounds a single tile payload read. Real tiles run a few tens
// of kilobytes; anything past this is a misbehaving upstream, not imagery.
const maxTileBytes = 2 << 20 // 2MB

// maxErrorBodySize limits how much of an error response body is read for
// diagnostics. Prevents unbounded allocation on large upstream error pages.
const maxErrorBodySize = 64 * 1024 // 64KB

// cacheCleanupInterval gates how often a fetch may trigger a sweep of
// expired tile cache entries.
const cacheCleanupInterval = 5 * time.Minute

// Client fetches map and radar tiles over HTTP with caching, rate limiting,
// retries, and circuit breaker protection. It implements Source.
//
// Thread Safety: safe for concurrent use. The cache, limiter, and breakers
// are all internally synchronized; each request builds its own http.Request.
//
// Example:
//
//	src := tiles.NewClient(&cfg.Tiles)
//	td, err := src.MapTile(ctx, 6, 59, 37)
type Client struct {
	mapTemplate  string
	radarColor   int
	radarOptions string
	userAgent    string

	client  *http.Client
	limiter *rate.Limiter
	cache   *cache.LRU

	mapBreaker   *fetchBreaker
	radarBreaker *fetchBreaker

	maxRetries     int           // Maximum retries per tile fetch
	retryBaseDelay time.Duration // Base delay for exponential backoff

	lastCleanup atomic.Int64 // unix seconds of the last expired-entry sweep
}

var _ Source = (*Client)(nil)

// NewClient creates an HTTP tile source from the tiles configuration.
//
// The client is configured with:
//   - HTTP timeout from TILES_REQUEST_TIMEOUT
//   - retry budget from TILES_RETRY_ATTEMPTS with 1-second base backoff
//   - token bucket from TILES_RATE_LIMIT and TILES_RATE_BURST
//   - LRU tile cache sized by TILES_CACHE_CAPACITY and TILES_CACHE_MAX_BYTES
func NewClient(cfg *config.TilesConfig) *Client {
	limit := rate.Limit(cfg.RateLimit)
	if cfg.RateLimit <= 0 {
		limit = rate.Inf
	}
	burst := cfg.RateBurst
	if burst < 1 {
		burst = 1
	}

	return &Client{
		mapTemplate:  cfg.MapURLTemplate,
		radarColor:   cfg.RadarColor,
		radarOptions: cfg.RadarOptions,
		userAgent:    cfg.UserAgent,
		client: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		limiter:        rate.NewLimiter(limit, burst),
		cache:          cache.NewLRU(cfg.CacheCapacity, cfg.CacheMaxBytes, cfg.CacheTTL),
		mapBreaker:     newFetchBreaker("map_tiles"),
		radarBreaker:   newFetchBreaker("radar_tiles"),
		maxRetries:     cfg.RetryAttempts,
		retryBaseDelay: 1 * time.Second,
	}
}

// MapTile fetches one basemap tile. Coordinates must already be normalized
// to the tile pyramid (x wrapped, y clamped).
func (c *Client) MapTile(ctx context.Context, z, x, y int) (*TileData, error) {
	td, err := c.fetch(ctx, LayerMap, c.mapTileURL(z, x, y), c.mapBreaker)
	if err != nil {
		return nil, fmt.Errorf("map tile %d/%d/%d: %w", z, x, y, err)
	}
	return td, nil
}

// RadarTile fetches one radar overlay tile for the frame identified by
// framePath. The configured color scheme and options select the palette and
// smoothing variant served by the radar provider.
func (c *Client) RadarTile(ctx context.Context, frameIndex int, framePath string, z, x, y int) (*TileData, error) {
	td, err := c.fetch(ctx, LayerRadar, c.radarTileURL(framePath, z, x, y), c.radarBreaker)
	if err != nil {
		return nil, fmt.Errorf("radar tile frame %d at %d/%d/%d: %w", frameIndex, z, x, y, err)
	}
	return td, nil
}

// mapTileURL substitutes {z}/{x}/{y} placeholders in the configured template.
func (c *Client) mapTileURL(z, x, y int) string {
	r := strings.NewReplacer(
		"{z}", strconv.Itoa(z),
		"{x}", strconv.Itoa(x),
		"{y}", strconv.Itoa(y),
	)
	return r.Replace(c.mapTemplate)
}

// radarTileURL builds a RainViewer-style tile URL:
// {framePath}/{tileSize}/{z}/{x}/{y}/{color}/{options}.png
func (c *Client) radarTileURL(framePath string, z, x, y int) string {
	return fmt.Sprintf("%s/%d/%d/%d/%d/%d/%s.png",
		strings.TrimSuffix(framePath, "/"), geo.TileSize, z, x, y, c.radarColor, c.radarOptions)
}

// fetch returns the tile at rawURL, serving from the LRU cache when
// possible. Network fetches run under the layer's circuit breaker and are
// recorded in the tile fetch metrics; only validated payloads enter the
// cache.
func (c *Client) fetch(ctx context.Context, layer, rawURL string, br *fetchBreaker) (*TileData, error) {
	if body, ok := c.cache.Get(rawURL); ok {
		metrics.TileCacheHits.Inc()
		return &TileData{ContentType: contentTypeFor(DetectImageFormat(body)), Body: body}, nil
	}
	metrics.TileCacheMisses.Inc()

	start := time.Now()
	td, err := br.execute(func() (*TileData, error) {
		return c.fetchRemote(ctx, layer, rawURL)
	})
	metrics.RecordTileFetch(layer, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	c.cache.Add(rawURL, td.Body)
	metrics.UpdateTileCacheStats(c.cache.Len(), c.cache.Bytes())
	c.maybeCleanup()

	return td, nil
}

// fetchRemote performs the HTTP request with retry handling. Retries cover
// transport errors, HTTP 429 (honoring Retry-After), and 5xx responses;
// other statuses and invalid payloads fail immediately.
func (c *Client) fetchRemote(ctx context.Context, layer, rawURL string) (*TileData, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		// Every network attempt, including retries, consumes a rate token.
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("HTTP request failed: %w", err)
			if attempt < c.maxRetries {
				if waitErr := c.backoff(ctx, layer, attempt, ""); waitErr != nil {
					return nil, waitErr
				}
				continue
			}
			break
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return c.readTile(resp, layer)

		case resp.StatusCode == http.StatusTooManyRequests:
			retryAfter := resp.Header.Get("Retry-After")
			_ = resp.Body.Close() // Explicitly ignore error - will retry anyway
			lastErr = fmt.Errorf("upstream rate limit (HTTP 429)")
			if attempt < c.maxRetries {
				if waitErr := c.backoff(ctx, layer, attempt, retryAfter); waitErr != nil {
					return nil, waitErr
				}
				continue
			}

		case resp.StatusCode >= 500:
			body := readBodyForError(resp.Body)
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("upstream error (HTTP %d): %s", resp.StatusCode, body)
			if attempt < c.maxRetries {
				if waitErr := c.backoff(ctx, layer, attempt, ""); waitErr != nil {
					return nil, waitErr
				}
				continue
			}

		default:
			// Remaining 4xx statuses are permanent for this URL; retrying
			// cannot help a missing or forbidden tile.
			body := readBodyForError(resp.Body)
			_ = resp.Body.Close()
			return nil, fmt.Errorf("tile request failed (HTTP %d): %s", resp.StatusCode, body)
		}
	}

	return nil, lastErr
}

// readTile drains and validates a 200 response. The body read is bounded,
// and the payload must pass magic-byte validation for the layer before it
// is returned.
func (c *Client) readTile(resp *http.Response, layer string) (*TileData, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTileBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read tile body: %w", err)
	}
	if len(body) > maxTileBytes {
		return nil, fmt.Errorf("tile payload exceeds %d bytes", maxTileBytes)
	}

	if err := ValidateFormat(layer, body); err != nil {
		return nil, err
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = contentTypeFor(DetectImageFormat(body))
	}

	return &TileData{ContentType: contentType, Body: body}, nil
}

// backoff waits before the next retry attempt. The delay grows as
// retryBaseDelay * 2^attempt; a parseable Retry-After header value (seconds,
// RFC 6585) takes precedence. The wait is cancellable through ctx.
func (c *Client) backoff(ctx context.Context, layer string, attempt int, retryAfter string) error {
	delay := c.retryBaseDelay * time.Duration(1<<uint(attempt))
	if retryAfter != "" {
		if seconds, err := time.ParseDuration(retryAfter + "s"); err == nil {
			delay = seconds
		}
	}

	metrics.TileFetchRetries.Inc()
	logging.Debug().Str("layer", layer).Int("attempt", attempt+1).Dur("delay", delay).Msg("Retrying tile fetch")

	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// maybeCleanup sweeps expired cache entries at most once per
// cacheCleanupInterval. Runs opportunistically on the fetch path so the
// client needs no background goroutine.
func (c *Client) maybeCleanup() {
	now := time.Now().Unix()
	last := c.lastCleanup.Load()
	if now-last < int64(cacheCleanupInterval/time.Second) {
		return
	}
	if !c.lastCleanup.CompareAndSwap(last, now) {
		return // another goroutine took this sweep
	}

	if removed := c.cache.CleanupExpired(); removed > 0 {
		logging.Debug().Int("removed", removed).Msg("Swept expired tile cache entries")
		metrics.UpdateTileCacheStats(c.cache.Len(), c.cache.Bytes())
	}
}

// readBodyForError reads a bounded prefix of an error response body for
// diagnostics. Returns a placeholder when the read itself fails.
func readBodyForError(r io.Reader) []byte {
	limited := io.LimitReader(r, maxErrorBodySize)
	body, err := io.ReadAll(limited)
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("... (truncated)")...)
	}
	return body
}

// contentTypeFor maps a sniffed format to a MIME type for cache hits, where
// the original response header is no longer available.
func contentTypeFor(format string) string {
	if format == "" {
		return "application/octet-stream"
	}
	return "image/" + format
}
