// Package connection implements the realtime change channel over a
// Phoenix-protocol WebSocket (the protocol spoken by Supabase Realtime).
//
// The Socket:
//   - Dials lazily on the first subscription and hangs up when the last
//     one leaves
//   - Joins one Phoenix channel per subscription with a postgres_changes
//     filter and reports the join reply as the subscription ack
//   - Decodes postgres_changes payloads into realtime.ChangeMessage values
//   - Sends Phoenix heartbeats and treats a missed reply as a dead socket
//   - Reports socket loss to every joined subscription
package connection
