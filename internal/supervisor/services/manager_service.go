// Pluviograph - Weather Radar Animation for Home Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pluviograph

package services

import (
	"context"
	"fmt"
)

// StartStopManager matches the Start/Stop lifecycle shared by the
// application's managers.
//
// Satisfied by *radar.Manager (the frame index poller) and
// *engine.ScheduleManager (the scheduled render loop).
type StartStopManager interface {
	Start(ctx context.Context) error
	Stop() error
}

// ManagerService wraps a Start/Stop manager as a supervised service.
//
// It adapts the Start/Stop lifecycle to suture's Serve pattern:
//  1. Calls Start(ctx), which spawns internal goroutines and returns
//  2. Blocks until the context is canceled
//  3. Calls Stop(), which waits for the internal goroutines to finish
//
// If Start fails, the error returns immediately and suture restarts the
// service under its backoff policy.
type ManagerService struct {
	manager StartStopManager
	name    string
}

// NewManagerService creates a supervised wrapper around a manager.
//
// Example usage:
//
//	radarManager := radar.NewManager(cfg)
//	tree.AddDataService(services.NewManagerService(radarManager, "radar-index"))
func NewManagerService(manager StartStopManager, name string) *ManagerService {
	return &ManagerService{
		manager: manager,
		name:    name,
	}
}

// Serve implements suture.Service.
func (s *ManagerService) Serve(ctx context.Context) error {
	if err := s.manager.Start(ctx); err != nil {
		return fmt.Errorf("%s start failed: %w", s.name, err)
	}

	<-ctx.Done()

	if err := s.manager.Stop(); err != nil {
		return fmt.Errorf("%s stop failed: %w", s.name, err)
	}

	return ctx.Err()
}

// String implements fmt.Stringer for suture's log messages.
func (s *ManagerService) String() string {
	return s.name
}
