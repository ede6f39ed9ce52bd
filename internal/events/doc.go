// Package events fans dashboard notices out to live subscribers such as
// server-sent event streams.
//
// Each subscriber owns a growable buffer so a slow reader never blocks the
// realtime callback path that publishes into the hub. Buffers grow up to a
// limit; beyond it the oldest undelivered events are dropped.
package events
