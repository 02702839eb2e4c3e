// Pluviograph - Weather Radar Animation for Home Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pluviograph

package tiles

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/pluviograph/internal/config"
)

// tinyPNG encodes a small real PNG so payloads pass magic-byte validation
// the same way production tiles do.
func tinyPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test png: %v", err)
	}
	return buf.Bytes()
}

func tinyJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode test jpeg: %v", err)
	}
	return buf.Bytes()
}

// testClient builds a Client against the given map template with a
// millisecond retry delay so backoff paths run fast under test.
func testClient(t *testing.T, mapTemplate string) *Client {
	t.Helper()
	cfg := &config.TilesConfig{
		MapURLTemplate: mapTemplate,
		RadarColor:     4,
		RadarOptions:   "1_1",
		UserAgent:      "pluviograph-test/1.0",
		RequestTimeout: 5 * time.Second,
		RetryAttempts:  3,
		RateLimit:      1000,
		RateBurst:      1000,
		CacheCapacity:  64,
		CacheMaxBytes:  8 << 20,
		CacheTTL:       time.Minute,
	}
	c := NewClient(cfg)
	c.retryBaseDelay = time.Millisecond
	return c
}

func TestMapTileFetch(t *testing.T) {
	want := tinyPNG(t)
	var gotPath atomic.Value

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath.Store(r.URL.Path)
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(want)
	}))
	defer server.Close()

	c := testClient(t, server.URL+"/tiles/{z}/{x}/{y}.png")

	td, err := c.MapTile(context.Background(), 6, 59, 37)
	if err != nil {
		t.Fatalf("MapTile failed: %v", err)
	}
	if !bytes.Equal(td.Body, want) {
		t.Errorf("body mismatch: got %d bytes, want %d", len(td.Body), len(want))
	}
	if td.ContentType != "image/png" {
		t.Errorf("ContentType = %q, want image/png", td.ContentType)
	}
	if path := gotPath.Load(); path != "/tiles/6/59/37.png" {
		t.Errorf("requested path = %v, want /tiles/6/59/37.png", path)
	}
}

func TestMapTileServedFromCache(t *testing.T) {
	var requests atomic.Int64
	payload := tinyPNG(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	c := testClient(t, server.URL+"/{z}/{x}/{y}.png")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := c.MapTile(ctx, 6, 10, 20); err != nil {
			t.Fatalf("MapTile attempt %d failed: %v", i, err)
		}
	}

	if n := requests.Load(); n != 1 {
		t.Errorf("server saw %d requests, want 1 (rest from cache)", n)
	}
}

func TestRadarTileURLShape(t *testing.T) {
	c := testClient(t, "https://example.com/{z}/{x}/{y}.png")

	tests := []struct {
		name      string
		framePath string
		z, x, y   int
		want      string
	}{
		{
			name:      "rainviewer frame",
			framePath: "https://tilecache.example.com/v2/radar/1700000000",
			z:         6, x: 59, y: 37,
			want: "https://tilecache.example.com/v2/radar/1700000000/256/6/59/37/4/1_1.png",
		},
		{
			name:      "trailing slash trimmed",
			framePath: "https://tilecache.example.com/v2/radar/1700000600/",
			z:         3, x: 0, y: 7,
			want: "https://tilecache.example.com/v2/radar/1700000600/256/3/0/7/4/1_1.png",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.radarTileURL(tt.framePath, tt.z, tt.x, tt.y); got != tt.want {
				t.Errorf("radarTileURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMapTileURLTemplate(t *testing.T) {
	tests := []struct {
		name     string
		template string
		z, x, y  int
		want     string
	}{
		{
			name:     "standard osm layout",
			template: "https://tile.example.org/{z}/{x}/{y}.png",
			z:        6, x: 59, y: 37,
			want: "https://tile.example.org/6/59/37.png",
		},
		{
			name:     "query parameter style",
			template: "https://maps.example.com/raster?z={z}&x={x}&y={y}",
			z:        2, x: 1, y: 3,
			want: "https://maps.example.com/raster?z=2&x=1&y=3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testClient(t, tt.template)
			if got := c.mapTileURL(tt.z, tt.x, tt.y); got != tt.want {
				t.Errorf("mapTileURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFetchRejectsNonImagePayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png") // header lies
		_, _ = w.Write([]byte("<html><body>tile server maintenance</body></html>"))
	}))
	defer server.Close()

	c := testClient(t, server.URL+"/{z}/{x}/{y}.png")

	_, err := c.MapTile(context.Background(), 6, 1, 1)
	if !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("expected ErrInvalidFormat, got %v", err)
	}
}

func TestRadarTileRequiresPNG(t *testing.T) {
	jpegBody := tinyJPEG(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(jpegBody)
	}))
	defer server.Close()

	c := testClient(t, server.URL+"/{z}/{x}/{y}.png")
	ctx := context.Background()

	// JPEG is fine for the basemap layer.
	if _, err := c.MapTile(ctx, 6, 2, 2); err != nil {
		t.Fatalf("MapTile rejected jpeg: %v", err)
	}

	// The radar overlay needs alpha, so JPEG payloads fail validation.
	_, err := c.RadarTile(ctx, 0, server.URL+"/v2/radar/1700000000", 6, 2, 2)
	if !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("expected ErrInvalidFormat for jpeg radar tile, got %v", err)
	}
}

func TestRetryAfterRateLimit(t *testing.T) {
	var requests atomic.Int64
	payload := tinyPNG(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	c := testClient(t, server.URL+"/{z}/{x}/{y}.png")

	td, err := c.MapTile(context.Background(), 5, 3, 3)
	if err != nil {
		t.Fatalf("MapTile failed after rate limit retry: %v", err)
	}
	if len(td.Body) == 0 {
		t.Error("expected tile body after retry")
	}
	if n := requests.Load(); n != 2 {
		t.Errorf("server saw %d requests, want 2", n)
	}
}

func TestRetryOnServerError(t *testing.T) {
	var requests atomic.Int64
	payload := tinyPNG(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) <= 2 {
			http.Error(w, "upstream exploded", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	c := testClient(t, server.URL+"/{z}/{x}/{y}.png")

	if _, err := c.MapTile(context.Background(), 4, 1, 2); err != nil {
		t.Fatalf("MapTile failed despite retry budget: %v", err)
	}
	if n := requests.Load(); n != 3 {
		t.Errorf("server saw %d requests, want 3", n)
	}
}

func TestNotFoundDoesNotRetry(t *testing.T) {
	var requests atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	c := testClient(t, server.URL+"/{z}/{x}/{y}.png")

	_, err := c.MapTile(context.Background(), 9, 100, 100)
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error should mention status, got: %v", err)
	}
	if n := requests.Load(); n != 1 {
		t.Errorf("server saw %d requests, want 1 (404 is permanent)", n)
	}
}

func TestRetriesExhausted(t *testing.T) {
	var requests atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		http.Error(w, "still broken", http.StatusBadGateway)
	}))
	defer server.Close()

	c := testClient(t, server.URL+"/{z}/{x}/{y}.png")

	_, err := c.MapTile(context.Background(), 4, 0, 0)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	// RetryAttempts=3 means one initial attempt plus three retries.
	if n := requests.Load(); n != 4 {
		t.Errorf("server saw %d requests, want 4", n)
	}
}

func TestUserAgentHeader(t *testing.T) {
	var gotUA atomic.Value
	payload := tinyPNG(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA.Store(r.Header.Get("User-Agent"))
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	c := testClient(t, server.URL+"/{z}/{x}/{y}.png")

	if _, err := c.MapTile(context.Background(), 1, 0, 0); err != nil {
		t.Fatalf("MapTile failed: %v", err)
	}
	if ua := gotUA.Load(); ua != "pluviograph-test/1.0" {
		t.Errorf("User-Agent = %v, want pluviograph-test/1.0", ua)
	}
}

func TestFetchHonorsContextCancellation(t *testing.T) {
	payload := tinyPNG(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	c := testClient(t, server.URL+"/{z}/{x}/{y}.png")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.MapTile(ctx, 1, 0, 0); err == nil {
		t.Fatal("expected error for canceled context")
	}
}

func TestConcurrentFetches(t *testing.T) {
	payload := tinyPNG(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	c := testClient(t, server.URL+"/{z}/{x}/{y}.png")
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 32)

	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if _, err := c.MapTile(ctx, 6, n%4, n%3); err != nil {
				errs <- err
			}
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent fetch failed: %v", err)
	}
}

func TestDetectImageFormat(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"png magic", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00}, "png"},
		{"jpeg magic", []byte{0xFF, 0xD8, 0xFF, 0xE0}, "jpeg"},
		{"gif87a", []byte("GIF87a....."), "gif"},
		{"gif89a", []byte("GIF89a....."), "gif"},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), "webp"},
		{"html page", []byte("<!DOCTYPE html><html>"), ""},
		{"empty", nil, ""},
		{"truncated png magic", []byte{0x89, 0x50, 0x4E}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectImageFormat(tt.data); got != tt.want {
				t.Errorf("DetectImageFormat() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateFormat(t *testing.T) {
	pngData := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	jpegData := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	gifData := []byte("GIF89a")

	tests := []struct {
		name    string
		layer   string
		data    []byte
		wantErr bool
	}{
		{"map accepts png", LayerMap, pngData, false},
		{"map accepts jpeg", LayerMap, jpegData, false},
		{"map rejects gif", LayerMap, gifData, true},
		{"map rejects garbage", LayerMap, []byte("nope"), true},
		{"radar accepts png", LayerRadar, pngData, false},
		{"radar rejects jpeg", LayerRadar, jpegData, true},
		{"radar rejects empty", LayerRadar, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFormat(tt.layer, tt.data)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFormat() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidFormat) {
				t.Errorf("error should wrap ErrInvalidFormat, got %v", err)
			}
		})
	}
}

func BenchmarkDetectImageFormat(b *testing.B) {
	data := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x01, 0x02}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		DetectImageFormat(data)
	}
}
