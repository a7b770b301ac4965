// Package api defines wire-format types and converters for the daemon HTTP
// API. It translates history rows, dependency reports and job requests into
// transport-friendly DTOs so clients never couple to internal types.
//
// # Key Types
//
// JobsRequest: the body of POST /api/jobs, a list of compress.Request values.
//
// HistoryEntry/HistoryResponse: recorded job outcomes with formatted
// timestamps and the saved byte count precomputed.
//
// DependenciesResponse: the installer report plus per-binary availability.
//
// HealthResponse: preflight results and overall readiness.
//
// # Design Notes
//
// DTOs use snake_case JSON tags, matching the job event stream. Timestamps
// use RFC3339 with milliseconds in UTC.
package api
