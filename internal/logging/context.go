// Pluviograph - Weather Radar Animation for Home Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pluviograph

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// contextKey is the private type for logging context keys.
type contextKey string

const (
	// requestIDKey is the context key for HTTP request IDs.
	requestIDKey contextKey = "request_id"

	// attemptIDKey is the context key for render attempt IDs.
	attemptIDKey contextKey = "attempt_id"
)

// GenerateRequestID creates a new unique request ID.
func GenerateRequestID() string {
	return uuid.New().String()
}

// GenerateAttemptID creates a short unique ID for one render attempt.
// The first 8 characters of a UUID are enough to correlate one attempt's
// log lines without the noise of a full UUID per line.
func GenerateAttemptID() string {
	return uuid.New().String()[:8]
}

// ContextWithRequestID returns a new context carrying the given request ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext retrieves the request ID from context.
// Returns empty string if not present.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithAttemptID returns a new context carrying a render attempt ID.
func ContextWithAttemptID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, attemptIDKey, id)
}

// AttemptIDFromContext retrieves the render attempt ID from context.
// Returns empty string if not present.
func AttemptIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(attemptIDKey).(string); ok {
		return id
	}
	return ""
}

// Ctx returns a logger with context values (request_id, attempt_id)
// automatically added. This is the recommended way to log inside handlers
// and render attempts.
//
//	logging.Ctx(ctx).Info().Msg("Serving cached artifact")
func Ctx(ctx context.Context) *zerolog.Logger {
	logCtx := Logger().With()
	if requestID := RequestIDFromContext(ctx); requestID != "" {
		logCtx = logCtx.Str("request_id", requestID)
	}
	if attemptID := AttemptIDFromContext(ctx); attemptID != "" {
		logCtx = logCtx.Str("attempt_id", attemptID)
	}
	logger := logCtx.Logger()
	return &logger
}

// WithComponent creates a child logger with a component field.
//
//	engineLogger := logging.WithComponent("engine")
//	engineLogger.Info().Msg("Render scheduled")
func WithComponent(component string) zerolog.Logger {
	return With().Str("component", component).Logger()
}
