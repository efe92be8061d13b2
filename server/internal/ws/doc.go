// Package ws implements the WebSocket hub for sitewatch-server.
//
// Hub manages a set of connected dashboard clients and broadcasts the current
// site snapshot to all of them every broadcast_interval, and immediately when
// Notify is called after the snapshot file changes.
//
// New(store, interval) creates a Hub.
// Hub.Run(ctx) starts the broadcast loop and blocks until ctx is cancelled,
// then closes all active connections.
// Hub.ServeHTTP upgrades an HTTP connection to WebSocket, sends the current
// snapshot immediately on connect, then streams updates.
//
// Message format sent to clients:
//
//	{
//	  "event": "snapshot",
//	  "data":  { /* same schema as GET /api/v1/snapshot */ }
//	}
//
// The endpoint is mounted at /ws/stream by the server.
package ws
