// Pluviograph - Weather Radar Animation for Home Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pluviograph

/*
Package engine coordinates radar animation rendering against the disk
cache.

Coordinator is the single front door for everything that wants a rendered
animation: the HTTP handlers, the warm-up endpoint, and the background
schedule all go through it. It owns three responsibilities the lower
layers deliberately do not have:

  - Deduplication: concurrent requests that compute the same render plan
    share one in-flight attempt (singleflight), so a burst of dashboard
    reloads costs one toolchain run, not N.

  - Degradation: the serving path prefers a fresh cached artifact, then a
    fresh render, then the newest cached artifact of any configuration,
    and only fails when the cache is truly empty. A slightly stale radar
    loop beats an error state on a wall-mounted display every time.

  - Lifecycle guards: the toolchain is probed exactly once per process,
    renders run under a bounded timeout detached from the requesting
    caller, and the background schedule re-arms only after each attempt
    completes so long renders never overlap.
*/
package engine
