// Package compress runs compression jobs end to end.
//
// A Runner takes one Request per file, probes videos, evaluates the ordered
// encoding plans from package encoding, streams progress and finalises the
// output at compressed-<name> beside the input (or over the input when
// replacement is requested). Every job ends with exactly one Result or one
// error event. Jobs share no state and may run concurrently; the only
// coordination is the dependency install gate.
package compress
