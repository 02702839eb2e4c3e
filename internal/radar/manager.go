// Pluviograph - Weather Radar Animation for Home Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pluviograph

/*
manager.go - Radar Index Polling Lifecycle

This file contains the Manager struct that polls the provider's radar index
(weather-maps.json layout) and maintains the current frame list consumed by
the render engine.

Lifecycle Methods:
  - NewManager(): initialize from configuration
  - Start(): immediate refresh in background, then periodic polling
  - Stop(): graceful shutdown, waits for in-flight polls
  - Refresh(): manual poll (mutex-protected)
  - State(): read-only snapshot of frames, update time, and last error

Thread Safety:
  - pollMu: prevents concurrent poll execution
  - mu: protects shared state (frames, updatedAt, lastErr, running)
  - WaitGroup coordinates shutdown of the poll goroutines
*/

//nolint:staticcheck // File documentation, not package doc
package radar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/tomtom215/pluviograph/internal/config"
	"github.com/tomtom215/pluviograph/internal/logging"
	"github.com/tomtom215/pluviograph/internal/metrics"
)

// maxIndexBytes bounds the radar index document read. The real document is
// a few kilobytes of JSON.
const maxIndexBytes = 1 << 20 // 1MB

// State is a read-only snapshot of the radar frame source.
//
// Frames is in chronological order and retains the last good index across
// failed polls, so an upstream blip does not blank the animation. UpdatedAt
// is the local time of the last successful poll. Err holds the most recent
// poll failure and clears on the next success.
type State struct {
	Frames    []Frame
	UpdatedAt time.Time
	Err       error
}

// Manager polls the radar index on an interval and exposes the current
// frame list. The render engine reads snapshots via State; nothing is
// pushed.
type Manager struct {
	indexURL       string
	userAgent      string
	includeNowcast bool
	interval       time.Duration
	client         *http.Client

	mu        sync.RWMutex
	frames    []Frame
	updatedAt time.Time
	lastErr   error
	running   bool

	pollMu   sync.Mutex // Protects concurrent poll execution
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewManager creates a radar index manager from the application
// configuration. Poll interval, index URL, and the HTTP timeout come from
// the tiles section; the nowcast switch from the radar section.
func NewManager(cfg *config.Config) *Manager {
	m := &Manager{
		indexURL:       cfg.Tiles.RadarIndexURL,
		userAgent:      cfg.Tiles.UserAgent,
		includeNowcast: cfg.Radar.IncludeNowcast,
		interval:       cfg.Tiles.PollInterval,
		client: &http.Client{
			Timeout: cfg.Tiles.RequestTimeout,
		},
		stopChan: make(chan struct{}),
	}

	logging.Info().
		Str("index_url", m.indexURL).
		Dur("poll_interval", m.interval).
		Bool("include_nowcast", m.includeNowcast).
		Msg("Radar index manager config loaded")

	return m
}

// Start begins the periodic polling process. The first refresh runs in the
// background so server startup is never blocked on the radar provider.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("radar index manager is already running")
	}
	m.running = true
	m.mu.Unlock()

	logging.Info().Msg("Starting radar index manager...")

	// Add all goroutines to the WaitGroup BEFORE starting them so Stop()
	// cannot call Wait() between the Add() calls.
	m.wg.Add(2)

	go func() {
		defer m.wg.Done()
		if err := m.Refresh(ctx); err != nil {
			logging.Warn().Err(err).Msg("Initial radar index poll failed (will retry)")
		}
	}()

	go m.pollLoop(ctx)

	return nil
}

// Stop gracefully stops the polling process.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return fmt.Errorf("radar index manager is not running")
	}
	m.running = false
	m.mu.Unlock()

	logging.Info().Msg("Stopping radar index manager...")
	close(m.stopChan)
	m.wg.Wait()
	logging.Info().Msg("Radar index manager stopped")

	return nil
}

// State returns a snapshot of the current frame list. The returned slice is
// a copy; callers may slice it freely.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	frames := make([]Frame, len(m.frames))
	copy(frames, m.frames)

	return State{Frames: frames, UpdatedAt: m.updatedAt, Err: m.lastErr}
}

// Refresh polls the index once. Safe to call concurrently with the poll
// loop; executions are serialized.
func (m *Manager) Refresh(ctx context.Context) error {
	m.pollMu.Lock()
	defer m.pollMu.Unlock()

	err := m.refresh(ctx)
	metrics.RecordRadarIndexPoll(err)
	if err != nil {
		m.mu.Lock()
		m.lastErr = err
		m.mu.Unlock()
	}
	return err
}

// pollLoop refreshes the index on the configured interval until stopped.
func (m *Manager) pollLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopChan:
			return
		case <-ticker.C:
			if err := m.Refresh(ctx); err != nil {
				logging.Warn().Err(err).Msg("Radar index poll failed")
			}
		}
	}
}

// refresh fetches and applies the index document. Frame state is replaced
// only on full success; any failure leaves the previous frames in place.
func (m *Manager) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.indexURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create radar index request: %w", err)
	}
	req.Header.Set("User-Agent", m.userAgent)

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("radar index request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("radar index request failed with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxIndexBytes))
	if err != nil {
		return fmt.Errorf("failed to read radar index body: %w", err)
	}

	frames, past, nowcast, generated, err := parseIndex(body, m.includeNowcast)
	if err != nil {
		return err
	}

	now := time.Now()
	m.mu.Lock()
	m.frames = frames
	m.updatedAt = now
	m.lastErr = nil
	m.mu.Unlock()

	generatedAt := now
	if generated > 0 {
		generatedAt = time.Unix(generated, 0)
	}
	metrics.UpdateRadarFrameStats(past, nowcast, generatedAt)

	logging.Debug().
		Int("past", past).
		Int("nowcast", nowcast).
		Msg("Radar index refreshed")

	return nil
}
