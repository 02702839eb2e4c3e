// Pluviograph - Weather Radar Animation for Home Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pluviograph

/*
Package api provides the HTTP surface of the radar service.

Routing uses Chi with the production middleware ecosystem (go-chi/cors,
go-chi/httprate). The surface is deliberately small:

	GET  /api/v1/radar/latest.gif  - the animation, rendering on demand
	GET  /api/v1/radar/meta        - sidecar metadata for the cached artifact
	POST /api/v1/radar/warm        - kick a background render if the cache is stale
	GET  /api/v1/health            - component health report
	GET  /api/v1/health/live       - liveness probe
	GET  /api/v1/health/ready      - readiness probe
	GET  /metrics                  - Prometheus exposition

JSON endpoints use the APIResponse envelope (success flag, data, error,
meta with request ID and timing). The GIF endpoint writes raw image bytes
with image/gif and signals a stale fallback via the X-Radar-Fallback
header instead of a status change, so dashboard <img> tags keep working
through upstream outages.

Render failures map to HTTP status by error kind: structurally invalid
request parameters are 400, everything that means "cannot produce an
animation right now" (no frames, missing toolchain, tile outages) is 503
with the kind as the machine-readable error code.
*/
package api
