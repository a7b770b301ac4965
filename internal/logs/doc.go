// Package logs reads shrink session logs for `shrink logs` and the daemon's
// GET /api/logs endpoint.
//
// Tail keeps memory bounded when reading the last N lines, returns byte
// offsets so callers can resume where they stopped, and can wait for new
// lines when following a live daemon log. Latest finds the log to read in a
// log directory, preferring the shrinkd.log pointer the daemon maintains.
package logs
