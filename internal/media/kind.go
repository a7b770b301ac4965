// Package media classifies input files and describes them as assets.
package media

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Kind is the detected media category of a file.
type Kind string

const (
	KindImage   Kind = "image"
	KindVideo   Kind = "video"
	KindUnknown Kind = "unknown"
)

var (
	imageExtensions = []string{"jpg", "jpeg", "png", "webp", "avif"}
	videoExtensions = []string{"mp4", "mov", "avi", "mkv", "webm"}
)

// ImageExtensions returns the recognised image extensions without dots.
func ImageExtensions() []string { return append([]string(nil), imageExtensions...) }

// VideoExtensions returns the recognised video extensions without dots.
func VideoExtensions() []string { return append([]string(nil), videoExtensions...) }

// Classify determines the kind of path from its extension, case-insensitively.
func Classify(path string) Kind {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	for _, candidate := range imageExtensions {
		if ext == candidate {
			return KindImage
		}
	}
	for _, candidate := range videoExtensions {
		if ext == candidate {
			return KindVideo
		}
	}
	return KindUnknown
}

// ParseKind converts user input into a Kind. An empty string classifies path.
func ParseKind(value, path string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return Classify(path), nil
	case string(KindImage):
		return KindImage, nil
	case string(KindVideo):
		return KindVideo, nil
	default:
		return KindUnknown, fmt.Errorf("unsupported media kind %q", value)
	}
}

// Asset is one file submitted for compression.
type Asset struct {
	ID        string `json:"id"`
	Path      string `json:"path"`
	Name      string `json:"name"`
	Kind      Kind   `json:"kind"`
	SizeBytes int64  `json:"size_bytes"`
}

// Stat describes path as an asset. The path is made absolute.
func Stat(id, path string) (Asset, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Asset{}, fmt.Errorf("resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Asset{}, fmt.Errorf("stat %s: %w", abs, err)
	}
	if info.IsDir() {
		return Asset{}, fmt.Errorf("%s is a directory", abs)
	}
	return Asset{
		ID:        id,
		Path:      abs,
		Name:      filepath.Base(abs),
		Kind:      Classify(abs),
		SizeBytes: info.Size(),
	}, nil
}
