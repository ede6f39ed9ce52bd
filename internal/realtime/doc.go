// Package realtime implements the Connection Manager for the candidate
// change feed.
//
// The Connection Manager:
//   - Keeps at most one live subscription to a named change channel
//   - Tracks connection status (connecting, connected, disconnected)
//   - Reconnects after a fixed delay, replacing any pending attempt
//   - Sends a heartbeat broadcast while connected
//   - Routes INSERT/UPDATE/DELETE messages to a Handler in delivery order
//
// Transports implement Channel; see internal/connection (WebSocket) and
// internal/pgnotify (PostgreSQL LISTEN/NOTIFY).
package realtime
