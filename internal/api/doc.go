// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

/*
Package api provides the HTTP API for Lanefinder.

Reads are served from daily snapshots (see package snapshot) and are
cacheable: list endpoints send Cache-Control and a weak ETag over the payload
so clients can revalidate with If-None-Match. A single venue is read straight
from the store and is never cached, so an owner sees an edit at once.

Routes:

	GET    /api/v1/health/live
	GET    /api/v1/health/ready                 snapshot ages; 503 until primed
	GET    /api/v1/venues                       ?category= ?state= ?city= ?min_rating=
	GET    /api/v1/venues/{id}
	GET    /api/v1/venues/{id}/reviews
	GET    /api/v1/reviews/recent               ?limit=
	GET    /api/v1/categories
	GET    /api/v1/facets/states                ?category=
	GET    /api/v1/facets/cities                ?category= ?state=
	GET    /api/v1/facets/state-counts          ?category=
	GET    /api/v1/pricing                      ?state=
	GET    /sitemap.xml
	GET    /metrics

	POST   /api/v1/venues                       admin
	PUT    /api/v1/venues/{id}                  owner of the venue, or admin
	POST   /api/v1/venues/{id}/reviews          reviewer
	DELETE /api/v1/venues/{id}/reviews/me       reviewer
	GET    /api/v1/admin/caches                 admin
	POST   /api/v1/admin/cache/{name}/invalidate
	POST   /api/v1/admin/venues/{id}/reconcile

Writes require an HS256 bearer token (package auth) whose role the casbin
policy admits for the path (package authz).

Every JSON response uses the same envelope:

	{"success": true, "data": ..., "meta": {"request_id": "...", "timestamp": "..."}}
	{"success": false, "error": {"code": "NOT_FOUND", "message": "..."}, "meta": {...}}

A rating write that loses every optimistic transaction attempt returns 409
CONFLICT with Retry-After. A read with no snapshot at all returns 503.
*/
package api
