// Pluviograph - Weather Radar Animation for Home Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pluviograph

// Package radar tracks the frames published by the radar tile provider.
//
// The provider exposes an index document (RainViewer's weather-maps.json
// layout) listing past radar snapshots and near-term nowcast frames, each
// identified by an epoch timestamp and a tile path. Manager polls that
// index on an interval and holds the current frame list; the render engine
// pulls read-only snapshots through State when building an animation:
//
//	mgr := radar.NewManager(cfg)
//	_ = mgr.Start(ctx)
//	defer mgr.Stop()
//
//	st := mgr.State()
//	if len(st.Frames) == 0 {
//		// nothing to render yet
//	}
//
// A failed poll never clears previously fetched frames; the engine keeps
// animating the last good data and the staleness handling in the caption
// layer tells the viewer when imagery has stopped updating.
package radar
