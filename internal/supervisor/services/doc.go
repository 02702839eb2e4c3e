// Pluviograph - Weather Radar Animation for Home Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pluviograph

/*
Package services provides suture.Service wrappers for Pluviograph components.

This package adapts application components to the suture v4 supervision
model, translating their lifecycle patterns (Start/Stop, ListenAndServe)
into suture's context-aware Serve pattern.

Each wrapper implements the suture.Service interface:

	type Service interface {
	    Serve(ctx context.Context) error
	}

The wrappers handle:
  - Lifecycle translation (Start/Stop to Serve pattern)
  - Graceful shutdown via context cancellation
  - Error propagation for supervisor restart decisions
  - Service identification via fmt.Stringer

# Available Services

HTTP Server (HTTPServerService):
  - Wraps *http.Server with graceful shutdown
  - Converts the blocking ListenAndServe pattern to Serve
  - Configurable shutdown timeout for draining connections

Manager (ManagerService):
  - Wraps any Start/Stop manager: the radar frame index poller
    (*radar.Manager) and the scheduled render loop
    (*engine.ScheduleManager)
  - Start errors propagate so suture restarts with backoff

See Also:

  - internal/supervisor: the tree these services are added to
*/
package services
