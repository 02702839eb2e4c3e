// Pluviograph - Weather Radar Animation for Home Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pluviograph

package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/pluviograph/internal/config"
)

// ScheduleManager gives the render schedule a Start/Stop lifecycle so the
// supervision tree can own it like any other service. Parameters come from
// the radar configuration: the default output dimensions and
// RADAR_RENDER_INTERVAL.
type ScheduleManager struct {
	coord    *Coordinator
	params   Params
	interval time.Duration

	mu      sync.Mutex
	running bool
	stop    func()
}

// NewScheduleManager creates the schedule manager for the configured view.
func NewScheduleManager(coord *Coordinator, cfg *config.Config) *ScheduleManager {
	return &ScheduleManager{
		coord:    coord,
		params:   Params{Width: cfg.Radar.Width, Height: cfg.Radar.Height},
		interval: cfg.Radar.RenderInterval,
	}
}

// Start begins the background render schedule.
func (m *ScheduleManager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("schedule manager is already running")
	}
	m.running = true
	m.stop = m.coord.StartSchedule(m.params, m.interval)
	return nil
}

// Stop cancels the pending schedule tick. An attempt already in flight
// runs to completion and still publishes its result.
func (m *ScheduleManager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return fmt.Errorf("schedule manager is not running")
	}
	m.running = false
	m.stop()
	m.stop = nil
	return nil
}
