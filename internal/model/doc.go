// Package model defines the shared data types of the candidate tracker.
//
// Candidate rows mirror the candidates table of the backing store. Field
// names follow the store's snake_case JSON columns so rows delivered by the
// REST API, the realtime feed and pg_notify payloads decode into the same
// struct.
//
// Conventions:
//   - IDs: opaque strings (uuid text in both backends, temp-<ms> for
//     optimistic rows that have not been confirmed yet)
//   - Timestamps: Timestamp, tolerant of the formats Postgres emits
package model
