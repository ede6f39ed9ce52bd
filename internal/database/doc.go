// Package database provides the PostgreSQL connection pool for the
// self-hosted backend.
//
// One pool serves candidate queries, migrations and pg_notify broadcasts.
// LISTEN sessions take a dedicated connection from the same pool.
package database
