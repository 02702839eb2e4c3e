// Pluviograph - Weather Radar Animation for Home Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pluviograph

// Package logging provides centralized zerolog-based structured logging.
//
// The package exposes a global logger behind package functions so every
// component logs through one configuration:
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Str("component", "engine").Msg("Render scheduled")
//	logging.Error().Err(err).Msg("Render failed")
//
// # Output Formats
//
// JSON format (production):
//
//	{"level":"info","time":"2026-03-01T10:30:00Z","message":"Server starting","port":3857}
//
// Console format (development):
//
//	10:30:00 INF Server starting port=3857
//
// # Context-Aware Logging
//
// Request and render-attempt IDs propagate through context:
//
//	ctx = logging.ContextWithAttemptID(ctx, logging.GenerateAttemptID())
//	logging.Ctx(ctx).Info().Msg("Composing frame")
//
// # slog Adapter
//
// NewSlogLogger returns an *slog.Logger backed by zerolog for libraries that
// require slog (the suture event hook via sutureslog):
//
//	slogger := logging.NewSlogLogger()
//	hook := (&sutureslog.Handler{Logger: slogger}).MustHook()
//
// All exported functions are safe for concurrent use; the global logger is
// protected by a sync.RWMutex for configuration changes.
package logging
