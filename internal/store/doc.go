// Package store persists candidates in PostgreSQL for the self-hosted
// backend.
//
// Migrate creates the candidates table and a row trigger that publishes
// every INSERT, UPDATE and DELETE with pg_notify. The notification payload
// has the same shape as a hosted postgres_changes event:
//
//	{"type":"UPDATE","schema":"public","table":"candidates",
//	 "record":{...},"old_record":{...}}
//
// so the pgnotify channel can hand rows to the realtime manager unchanged.
package store
