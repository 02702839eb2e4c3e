// Pluviograph - Weather Radar Animation for Home Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pluviograph

/*
Package supervisor provides process supervision for Pluviograph using suture v4.

This package implements a hierarchical supervisor tree that manages the
lifecycle of all long-running components. It provides Erlang/OTP-style
supervision with automatic restart, failure isolation, and graceful shutdown.

# Overview

The tree organizes services into three layers for failure isolation:

	RootSupervisor ("pluviograph")
	├── DataSupervisor ("data-layer")
	│   └── ManagerService (radar frame index poller)
	├── EngineSupervisor ("engine-layer")
	│   └── ManagerService (scheduled render loop)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

This hierarchy ensures that:
  - A crashing render loop doesn't affect HTTP serving
  - Radar index poll failures don't impact the API layer
  - Each layer restarts independently with its own failure counting

# Key Features

Automatic Restart:
  - Crashed services are automatically restarted
  - Exponential backoff prevents restart storms
  - Configurable failure thresholds and decay rates

Graceful Shutdown:
  - Context cancellation triggers orderly shutdown
  - Configurable shutdown timeout per service
  - UnstoppedServiceReport for debugging hangs

Structured Logging:
  - Suture events flow into zerolog via the slog adapter
    (logging.NewSlogLogger) and the sutureslog event hook

# Usage Example

	logger := logging.NewSlogLogger()
	tree, err := supervisor.NewSupervisorTree(logger, supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}

	tree.AddDataService(services.NewManagerService(radarManager, "radar-index"))
	tree.AddEngineService(services.NewManagerService(scheduleManager, "render-schedule"))
	tree.AddAPIService(services.NewHTTPServerService(httpServer, 10*time.Second))

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    return err
	}

See Also:

  - internal/supervisor/services: service adapters for suture
  - internal/radar: the frame index poller supervised in the data layer
  - internal/engine: the render scheduler supervised in the engine layer
*/
package supervisor
