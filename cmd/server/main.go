// Pluviograph - Weather Radar Animation for Home Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pluviograph

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/pluviograph/internal/api"
	"github.com/tomtom215/pluviograph/internal/config"
	"github.com/tomtom215/pluviograph/internal/diskcache"
	"github.com/tomtom215/pluviograph/internal/engine"
	"github.com/tomtom215/pluviograph/internal/logging"
	"github.com/tomtom215/pluviograph/internal/radar"
	"github.com/tomtom215/pluviograph/internal/render"
	"github.com/tomtom215/pluviograph/internal/supervisor"
	"github.com/tomtom215/pluviograph/internal/supervisor/services"
	"github.com/tomtom215/pluviograph/internal/tiles"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		// Default logger for config errors (config not yet available)
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize zerolog with configuration
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Msg("Starting Pluviograph with supervisor tree")
	logging.Info().
		Float64("latitude", cfg.Radar.Latitude).
		Float64("longitude", cfg.Radar.Longitude).
		Int("zoom", cfg.EffectiveZoom()).
		Int("width", cfg.Radar.Width).
		Int("height", cfg.Radar.Height).
		Str("backend", cfg.Render.Backend).
		Msg("Configuration loaded")

	// Radar frame index manager polls the provider for available frames
	radarMgr := radar.NewManager(cfg)

	// Tile client with circuit breaker and in-memory LRU cache
	tileClient := tiles.NewClient(&cfg.Tiles)

	renderer := newRenderer(cfg)

	// Probe is advisory at startup: a missing ffmpeg binary should not
	// prevent serving cached artifacts. The result is cached for the life
	// of the process; installing the toolchain later needs a restart.
	if err := renderer.Probe(context.Background()); err != nil {
		logging.Warn().Err(err).
			Str("backend", renderer.Name()).
			Msg("Render toolchain unavailable; serving cached artifacts until restart")
	} else {
		logging.Info().Str("backend", renderer.Name()).Msg("Render toolchain ready")
	}

	store, err := diskcache.NewStore(cfg.Cache.Dir)
	if err != nil {
		logging.Fatal().Err(err).Str("dir", cfg.Cache.Dir).Msg("Failed to initialize disk cache")
	}
	logging.Info().Str("dir", cfg.Cache.Dir).Msg("Disk cache initialized")

	coord := engine.NewCoordinator(cfg, radarMgr, renderer, tileClient, store)
	schedMgr := engine.NewScheduleManager(coord, cfg)

	handler := api.NewHandler(cfg, coord, radarMgr)
	router := api.NewRouter(cfg, handler)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Structured logger for supervisor events via the slog adapter
	slogLogger := logging.NewSlogLogger()

	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddDataService(services.NewManagerService(radarMgr, "radar-index"))
	tree.AddEngineService(services.NewManagerService(schedMgr, "render-schedule"))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("Services added to supervisor tree")

	// Hot reload of the log level when the config file changes. Other
	// settings still require a restart.
	watchLogLevel()

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// Wait for supervisor to finish (either from signal or error)
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Wait for the error channel to close (supervisor finished)
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	// Report any services that failed to stop within timeout
	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}

// newRenderer selects the render backend from configuration. Unknown
// values fall back to ffmpeg, matching the config default.
func newRenderer(cfg *config.Config) render.Renderer {
	switch cfg.Render.Backend {
	case "native":
		return render.NewNative(&cfg.Render)
	case "ffmpeg":
		return render.NewFFmpeg(&cfg.Render)
	default:
		logging.Warn().
			Str("backend", cfg.Render.Backend).
			Msg("Unknown render backend, using ffmpeg")
		return render.NewFFmpeg(&cfg.Render)
	}
}

// watchLogLevel wires config-file changes to the global log level. A
// failure to establish the watch is non-fatal: the configured level
// simply stays fixed for the life of the process.
func watchLogLevel() {
	path := os.Getenv(config.ConfigPathEnvVar)
	if path == "" {
		for _, candidate := range config.DefaultConfigPaths {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}
	if path == "" {
		return
	}

	err := config.WatchConfigFile(path, func() {
		reloaded, err := config.Load()
		if err != nil {
			logging.Warn().Err(err).Msg("Config reload failed, keeping current log level")
			return
		}
		logging.SetLevelString(reloaded.Logging.Level)
		logging.Info().Str("level", reloaded.Logging.Level).Msg("Log level reloaded from config file")
	})
	if err != nil {
		logging.Warn().Err(err).Str("path", path).Msg("Config file watch unavailable")
		return
	}
	logging.Info().Str("path", path).Msg("Watching config file for log level changes")
}
