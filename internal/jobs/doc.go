// Package jobs persists bridge jobs in SQLite and exposes helpers for
// driving their lifecycle.
//
// The Store manages database connections, schema initialization, stats
// queries, and stuck-job recovery. A job row carries the opaque settings
// document submitted by the caller, the relayed result, and timestamps; the
// bridge owns transitions between statuses. The database is transient
// storage for in-flight jobs rather than a long-term archive: schema
// changes bump the version in schema.go and users clear the database to
// adopt the new schema.
package jobs
