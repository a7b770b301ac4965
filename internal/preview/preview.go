// Package preview renders small JPEG thumbnails as data URLs for the UI.
package preview

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	_ "golang.org/x/image/webp"

	"shrink/internal/fileutil"
	"shrink/internal/logging"
	"shrink/internal/media"
	"shrink/internal/media/ffprobe"
	"shrink/internal/procrun"
	"shrink/internal/services"
)

const (
	// DefaultSize is the thumbnail edge in pixels.
	DefaultSize   = 200
	jpegQuality   = 80
	frameOffset   = 1.0
	dataURLPrefix = "data:image/jpeg;base64,"
)

// BinaryResolver resolves ffmpeg and ffprobe to absolute paths.
type BinaryResolver interface {
	Binary(name string) (string, error)
}

// Generator produces previews. It holds no per-call state.
type Generator struct {
	binaries BinaryResolver
	size     int
	tempDir  string
	logger   *slog.Logger
}

// Option customises a Generator.
type Option func(*Generator)

// WithSize sets the thumbnail edge length.
func WithSize(size int) Option {
	return func(g *Generator) {
		if size > 0 {
			g.size = size
		}
	}
}

// WithTempDir sets where extracted video frames are written.
func WithTempDir(dir string) Option {
	return func(g *Generator) { g.tempDir = dir }
}

// WithLogger sets the generator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) { g.logger = logger }
}

// NewGenerator constructs a Generator. binaries may be nil, in which case
// only images the in-process decoder understands get previews.
func NewGenerator(binaries BinaryResolver, opts ...Option) *Generator {
	g := &Generator{binaries: binaries, size: DefaultSize}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = logging.NewComponentLogger(g.logger, "preview")
	return g
}

// Get returns a JPEG data URL for path, or false when no preview could be
// made. Failures are logged at debug level and never returned.
func (g *Generator) Get(ctx context.Context, path string, kind media.Kind) (string, bool) {
	url, err := g.Generate(ctx, path, kind)
	if err != nil {
		g.logger.Debug("preview unavailable",
			logging.String("path", path),
			logging.String(logging.FieldEventType, "preview_failed"),
			logging.Error(err),
		)
		return "", false
	}
	return url, true
}

// Generate is Get with the failure reason. Errors match
// services.ErrPreviewFailed.
func (g *Generator) Generate(ctx context.Context, path string, kind media.Kind) (string, error) {
	if kind == "" || kind == media.KindUnknown {
		kind = media.Classify(path)
	}
	switch kind {
	case media.KindImage:
		return g.imagePreview(ctx, path)
	case media.KindVideo:
		return g.videoPreview(ctx, path)
	default:
		return "", services.Wrap(services.ErrPreviewFailed, "preview", "classify", "unsupported file type "+filepath.Ext(path), nil)
	}
}

func (g *Generator) imagePreview(ctx context.Context, path string) (string, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return g.framePreview(ctx, path, 0, CoverFilter(g.size))
		}
		return "", services.Wrap(services.ErrPreviewFailed, "preview", "decode", path, err)
	}
	thumb := imaging.Fill(img, g.size, g.size, imaging.Center, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return "", services.Wrap(services.ErrPreviewFailed, "preview", "encode", path, err)
	}
	return dataURL(buf.Bytes()), nil
}

// videoPreview grabs the frame at one second, or halfway through clips that
// are shorter than that.
func (g *Generator) videoPreview(ctx context.Context, path string) (string, error) {
	offset := frameOffset
	if g.binaries != nil {
		if probe, err := g.binaries.Binary("ffprobe"); err == nil {
			if md, _ := ffprobe.Probe(ctx, probe, path); md.DurationSeconds > 0 && md.DurationSeconds < frameOffset {
				offset = md.DurationSeconds / 2
			}
		}
	}
	return g.framePreview(ctx, path, offset, fmt.Sprintf("scale=%d:-1", g.size))
}

func (g *Generator) framePreview(ctx context.Context, path string, offset float64, filter string) (string, error) {
	if g.binaries == nil {
		return "", services.Wrap(services.ErrPreviewFailed, "preview", "resolve", "ffmpeg resolver not configured", nil)
	}
	ffmpegBin, err := g.binaries.Binary("ffmpeg")
	if err != nil {
		return "", services.Wrap(services.ErrPreviewFailed, "preview", "resolve", "ffmpeg", err)
	}

	dir := g.tempDir
	if dir == "" {
		dir = os.TempDir()
	}
	frame := filepath.Join(dir, "preview-"+uuid.NewString()+".jpg")
	defer func() {
		_ = fileutil.RemoveIfExists(frame)
	}()

	args := FrameArgs(path, frame, offset, filter)
	if _, err := procrun.Run(ctx, ffmpegBin, args); err != nil {
		return "", services.Wrap(services.ErrPreviewFailed, "preview", "extract frame", path, err)
	}
	data, err := os.ReadFile(frame)
	if err != nil {
		return "", services.Wrap(services.ErrPreviewFailed, "preview", "read frame", frame, err)
	}
	if len(data) == 0 {
		return "", services.Wrap(services.ErrPreviewFailed, "preview", "read frame", "ffmpeg wrote an empty frame", nil)
	}
	return dataURL(data), nil
}

// CoverFilter scales to fill a size by size square and crops the overflow,
// matching the in-process thumbnails.
func CoverFilter(size int) string {
	return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d", size, size, size, size)
}

// FrameArgs builds the ffmpeg arguments that extract one frame through filter.
func FrameArgs(input, output string, offset float64, filter string) []string {
	return []string{
		"-y", "-hide_banner",
		"-ss", strconv.FormatFloat(offset, 'f', 3, 64),
		"-i", input,
		"-vframes", "1",
		"-q:v", "2",
		"-vf", filter,
		output,
	}
}

func dataURL(jpeg []byte) string {
	return dataURLPrefix + base64.StdEncoding.EncodeToString(jpeg)
}
