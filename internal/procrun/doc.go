// Package procrun starts external executables and streams their stderr.
//
// Arguments are always passed as an argv slice; no shell is involved. Each
// Handle owns its process exclusively, so concurrent handles need no
// coordination. Callers read progress from Lines, collect the outcome with
// Wait, and may Cancel at any point until the process exits.
package procrun
