// Package ffprobe wraps the ffprobe executable.
//
// Probe issues the three plain-output queries (duration, first audio bitrate,
// first video bitrate) the encoder strategy needs, degrading unknown values to
// zero. Inspect decodes the full JSON report for diagnostic output.
package ffprobe
