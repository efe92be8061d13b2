// Package types defines the snapshot data model shared by the agent and the
// server. The JSON encoding of Snapshot is the on-disk contract consumed by
// the dashboard, so field names and null handling must not change.
package types
