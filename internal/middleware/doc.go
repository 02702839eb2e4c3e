// Pluviograph - Weather Radar Animation for Home Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pluviograph

/*
Package middleware provides HTTP middleware components for the API surface.

Three concerns live here:

  - Request ID: every request carries an X-Request-ID (propagated from an
    upstream proxy when present) that flows into the logging context, so a
    render triggered by a request can be traced end to end.
  - Prometheus metrics: per-endpoint request counts, latency histograms and
    an active-request gauge, recorded through internal/metrics.
  - Compression: gzip for the JSON endpoints. The GIF endpoint bypasses it
    entirely; GIF data is already entropy-coded and recompressing it only
    burns CPU on the kind of small boards this runs on.

The middleware functions wrap http.HandlerFunc; the router adapts them to
chi's func(http.Handler) http.Handler form where needed.

Thread Safety:

All middleware components are thread-safe:
  - Compression uses per-request gzip writers drawn from a sync.Pool
  - Request ID uses context.Context (immutable)
  - Prometheus metrics use atomic operations

See Also:

  - internal/api: HTTP handlers wrapped by middleware
  - internal/metrics: Prometheus metrics definitions
*/
package middleware
