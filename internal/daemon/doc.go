// Package daemon coordinates the long-running shrinkd process.
//
// It wires configuration, job history, the dependency resolver, the
// compression runner and the preview generator into a single lifecycle with
// flock-based locking to prevent multiple instances. The HTTP API streams job
// and install progress as newline-delimited JSON and serves history, preview
// and readiness queries.
//
// Keep orchestration logic here: encoding, probing and installing live in their
// respective packages while the daemon focuses on startup, shutdown and
// transport.
package daemon
