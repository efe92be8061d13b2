// Package config loads the server-side configuration from the `server:` section
// of config.yaml (the `agent:` key is ignored by the server binary).
//
// Config fields:
//   - HTTPPort            port for the REST API, WebSocket hub and /metrics (default 8080)
//   - SnapshotPath        status file written by the agent (default docs/status.json)
//   - BroadcastInterval   periodic WebSocket push interval (default 60s)
//   - StaleAfter          age after which the snapshot is reported stale (default 2h)
//
// Load(path) loads an optional .env, applies defaults before unmarshalling,
// applies SITEWATCH_OUTPUT, then validates.
package config
