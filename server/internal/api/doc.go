// Package api implements the HTTP REST API for sitewatch-server.
//
// New(store) returns an http.Handler that serves:
//
//	GET /status.json                 the snapshot file as last loaded; 404 until one exists
//	GET /api/v1/health               overall state, per-state counts, staleness
//	GET /api/v1/sites                one dashboard card per site ([]SiteResponse)
//	GET /api/v1/sites/lookup?url=    single card; 400 without url, 404 if unknown
//	GET /api/v1/certs                certificate table
//	GET /api/v1/snapshot             full view model: cards + generated_at + stale
//
// All endpoints:
//   - Respond with Content-Type: application/json
//   - Return 405 for non-GET methods
//   - Read the current snapshot from the store
//
// JSON types are defined in types.go. No external HTTP framework is used.
package api
