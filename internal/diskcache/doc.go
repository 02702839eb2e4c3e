// Pluviograph - Weather Radar Animation for Home Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pluviograph

/*
Package diskcache stores rendered radar animations on disk.

Two layouts coexist in one directory, written together on every publish:

  - Latest slot: radar-latest.gif plus a JSON sidecar
    (radar-latest.meta.json) recording width, height, render time and a
    checksum of the data file. This is the stable artifact the dashboard
    polls; every successful render overwrites it.

  - Keyed history: radar-<keyhash>-<epochms>.gif, one file per render,
    addressed by the render plan's cache key. History supports
    newest-per-key and newest-of-any-key lookups (the engine's fallback
    path) and an age-based retention sweep.

Every write in either layout is a temp-write followed by a rename within
the same directory, so a concurrent reader never observes a partial file.
The sidecar is written strictly after its data file for the same reason:
metadata must never describe an artifact that is not yet in place. Because
the slot spans two files, a reader additionally verifies the sidecar
checksum against the data it read and retries when a publish interleaved
with the pair of reads.

Freshness and eviction are separate concerns: a latest-slot entry older
than the freshness window is reported as absent but left on disk, while
history files are deleted only by the retention sweep.
*/
package diskcache
