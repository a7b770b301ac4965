package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDependencyMissing = errors.New("dependency missing")
	ErrProbeFailed       = errors.New("probe failed")
	ErrSpawnFailed       = errors.New("spawn failed")
	ErrEncodingFailed    = errors.New("encoding failed")
	ErrIOFailed          = errors.New("io failed")
	ErrPreviewFailed     = errors.New("preview failed")
	ErrValidation        = errors.New("validation error")
	ErrConfiguration     = errors.New("configuration error")
	ErrNotFound          = errors.New("not found")
	ErrTimeout           = errors.New("timeout")
	ErrCanceled          = errors.New("canceled")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrEncodingFailed
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns the taxonomy label for err, used in job events and history rows.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDependencyMissing):
		return "DependencyMissing"
	case errors.Is(err, ErrSpawnFailed):
		return "SpawnFailed"
	case errors.Is(err, ErrIOFailed):
		return "IOFailed"
	case errors.Is(err, ErrPreviewFailed):
		return "PreviewFailed"
	case errors.Is(err, ErrTimeout):
		return "Timeout"
	case errors.Is(err, ErrCanceled):
		return "Canceled"
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConfiguration), errors.Is(err, ErrNotFound):
		return "Invalid"
	case errors.Is(err, ErrProbeFailed):
		return "ProbeFailed"
	default:
		return "EncodingFailed"
	}
}

// Fatal reports whether err must end a job. Probe and preview failures degrade
// instead.
func Fatal(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrProbeFailed) && !errors.Is(err, ErrDependencyMissing) {
		return false
	}
	return !errors.Is(err, ErrPreviewFailed)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
