// Package preflight provides readiness checks for the directories and
// external binaries shrink depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup and serves the results from
//     /api/health so clients can prompt for a dependency install.
//   - The CLI "shrink info" command renders the same results as a table.
//
// Checks report problems; they never create directories or download binaries.
package preflight
