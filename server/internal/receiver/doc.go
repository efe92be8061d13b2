// Package receiver feeds the snapshot written by sitewatch-agent into the
// in-memory store.
//
// Receiver.Run performs an initial load, then watches the file's directory
// with fsnotify so that atomic replace-by-rename writes are picked up. A
// corrupt file is logged and the previous snapshot stays active; a removed
// file empties the store. After each change the onChange callback fires,
// which the server uses to push the new snapshot to WebSocket clients.
package receiver
