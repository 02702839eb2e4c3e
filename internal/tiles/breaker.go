// Pluviograph - Weather Radar Animation for Home Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pluviograph

package tiles

import (
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/pluviograph/internal/logging"
	"github.com/tomtom215/pluviograph/internal/metrics"
)

// fetchBreaker wraps tile fetches for one upstream host with a circuit
// breaker, so a dead basemap CDN or radar tile host stops a render early
// instead of burning the full retry budget on every tile of every frame.
// The map and radar layers get independent breakers because they point at
// unrelated upstreams.
//
// DETERMINISM NOTE: the breaker uses real time (via sony/gobreaker) for its
// interval and timeout calculations. The timing decides when to probe for
// recovery, not data integrity; tests exercise trip behavior through the
// failure counts, not the clock.
type fetchBreaker struct {
	cb   *gobreaker.CircuitBreaker[*TileData]
	name string
}

// newFetchBreaker creates a circuit breaker for one tile layer.
// Configuration:
// - Max 3 probe requests in half-open state
// - 1 minute measurement window
// - 2 minute timeout before attempting recovery
// - Opens after 60% failure rate with minimum 10 requests
//
// One render touches a few dozen tiles, so a hard upstream outage trips the
// breaker within the first attempt and the remaining fetches fail fast.
func newFetchBreaker(name string) *fetchBreaker {
	// Initialize the state gauge so the series exists before any transition.
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[*TileData](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false // Need at least 10 requests for statistical significance
			}

			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6

			if shouldTrip {
				logging.Warn().Str("layer", name).Uint32("failures", counts.TotalFailures).Float64("failure_rate", failureRatio*100).Msg("[CIRCUIT BREAKER] Opening circuit")
			}

			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateName(from)
			toStr := stateName(to)

			logging.Info().Str("layer", name).Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.RecordBreakerTransition(name, fromStr, toStr, stateOrdinal(to))
		},
	})

	return &fetchBreaker{cb: cb, name: name}
}

// execute runs one tile fetch under breaker protection. Rejections from an
// open circuit surface as errors distinct from the underlying fetch failure
// so callers can tell "upstream down, suspended" from "this tile failed".
func (b *fetchBreaker) execute(fn func() (*TileData, error)) (*TileData, error) {
	result, err := b.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			logging.Warn().Str("layer", b.name).Err(err).Msg("[CIRCUIT BREAKER] Request rejected")
			return nil, fmt.Errorf("%s tile fetches suspended: %w", b.name, err)
		}
		return nil, err
	}
	return result, nil
}

// stateOrdinal converts circuit breaker state to a numeric value for metrics
func stateOrdinal(state gobreaker.State) int {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// stateName converts circuit breaker state to a string for logging
func stateName(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
