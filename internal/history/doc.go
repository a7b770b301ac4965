// Package history keeps a SQLite log of finished compression jobs.
//
// The Store records one row per terminal job outcome (completed or failed)
// and answers list and summary queries for the CLI and the daemon API. It is
// an audit trail, not a work queue: nothing is resumed from it. Schema
// changes bump schemaVersion in schema.go; users clear the database to adopt
// the new schema.
package history
