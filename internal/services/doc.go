// Package services defines shared utilities consumed by the compression
// pipeline and its outer surfaces.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, job states, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so failures surface with
//     a stable taxonomy (dependency missing, probe, spawn, encoding, io).
//
// Use these helpers when wiring new job logic so error classification and
// observability stay uniform.
package services
