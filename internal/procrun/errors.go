package procrun

import (
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"

	"shrink/internal/services"
)

// ProcessError reports a non-zero exit. Stderr holds everything the process
// wrote to stderr.
type ProcessError struct {
	Executable string
	ExitCode   int
	Stderr     string
}

func (e *ProcessError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Executable, e.ExitCode)
	if tail := StderrTail(e.Stderr, 3); tail != "" {
		msg += ": " + tail
	}
	return msg
}

// SpawnError reports that the executable could not be started at all.
type SpawnError struct {
	Executable string
	Err        error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("start %s: %v", e.Executable, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// Is lets callers match spawn failures with services.ErrSpawnFailed.
func (e *SpawnError) Is(target error) bool {
	return target == services.ErrSpawnFailed
}

// NotFound reports whether the spawn failed because the binary is absent, as
// opposed to present but not executable.
func (e *SpawnError) NotFound() bool {
	return errors.Is(e.Err, exec.ErrNotFound) || errors.Is(e.Err, fs.ErrNotExist)
}

// StderrTail returns the last n non-empty lines of stderr joined by " | ".
func StderrTail(stderr string, n int) string {
	if n <= 0 {
		return ""
	}
	fields := strings.FieldsFunc(stderr, func(r rune) bool { return r == '\n' || r == '\r' })
	lines := make([]string, 0, n)
	for i := len(fields) - 1; i >= 0 && len(lines) < n; i-- {
		if trimmed := strings.TrimSpace(fields[i]); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}
	return strings.Join(lines, " | ")
}
