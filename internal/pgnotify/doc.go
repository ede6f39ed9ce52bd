// Package pgnotify implements realtime.Channel on PostgreSQL LISTEN/NOTIFY
// for the self-hosted backend.
//
// Row changes arrive from the trigger installed by store.Migrate.
// Broadcasts are sent with pg_notify on the same channel and carry
// "type":"broadcast", which listeners skip when routing changes.
package pgnotify
