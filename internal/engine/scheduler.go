// Pluviograph - Weather Radar Animation for Home Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pluviograph

package engine

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/pluviograph/internal/logging"
	"github.com/tomtom215/pluviograph/internal/render"
)

// StartSchedule begins periodic background renders: one immediately, then
// another a fixed interval after each attempt completes. The delay re-arms
// only on completion — deliberately not a fixed-rate ticker — so an attempt
// that outruns the interval can never overlap the next one.
//
// The returned stop function cancels the pending delay and prevents
// re-arming; it never cancels an attempt already in flight. Calling stop
// more than once is safe.
func (c *Coordinator) StartSchedule(p Params, interval time.Duration) (stop func()) {
	stopCh := make(chan struct{})
	var once sync.Once

	logging.Info().
		Int("width", p.Width).
		Int("height", p.Height).
		Dur("interval", interval).
		Msg("Render schedule started")

	go func() {
		for {
			// When stop races an already-expired delay the select below can
			// pick either case; re-check here so a stopped schedule never
			// starts another attempt.
			select {
			case <-stopCh:
				logging.Info().Msg("Render schedule stopped")
				return
			default:
			}

			c.scheduledRender(p)
			select {
			case <-time.After(interval):
			case <-stopCh:
				logging.Info().Msg("Render schedule stopped")
				return
			}
		}
	}()

	return func() {
		once.Do(func() { close(stopCh) })
	}
}

// scheduledRender runs one background attempt. Failures are logged and
// absorbed; the schedule itself never dies with an attempt.
func (c *Coordinator) scheduledRender(p Params) {
	if _, err := c.RenderOnce(context.Background(), "scheduled", p); err != nil {
		logging.Warn().
			Err(err).
			Str("kind", string(render.KindOf(err))).
			Msg("Scheduled render failed")
	}
}
