package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"shrink/internal/procrun"
	"shrink/internal/services"
)

// Result represents the parsed JSON output from a full ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
	raw     []byte
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index     int    `json:"index"`
	CodecName string `json:"codec_name"`
	CodecType string `json:"codec_type"`
	Duration  string `json:"duration"`
	BitRate   string `json:"bit_rate"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Channels  int    `json:"channels"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
	FormatName string `json:"format_name"`
}

// Inspect executes ffprobe against path and decodes the JSON response.
func Inspect(ctx context.Context, binary string, path string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, services.Wrap(services.ErrValidation, "probe", "inspect", "empty path", nil)
	}

	res, err := procrun.Run(ctx, binary, []string{"-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path})
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, err
		}
		var spawnErr *procrun.SpawnError
		if errors.As(err, &spawnErr) {
			if spawnErr.NotFound() {
				return Result{}, services.Wrap(services.ErrDependencyMissing, "probe", "inspect", binary, err)
			}
			return Result{}, services.Wrap(services.ErrSpawnFailed, "probe", "inspect", binary, err)
		}
		return Result{}, services.Wrap(services.ErrProbeFailed, "probe", "inspect", path, err)
	}

	var result Result
	if err := json.Unmarshal([]byte(res.Stdout), &result); err != nil {
		return Result{}, services.Wrap(services.ErrProbeFailed, "probe", "parse", path, err)
	}
	result.raw = []byte(res.Stdout)
	return result, nil
}

// RawJSON returns the raw ffprobe JSON payload.
func (r Result) RawJSON() []byte {
	return append([]byte(nil), r.raw...)
}

// VideoStream returns the first video stream, if any.
func (r Result) VideoStream() (Stream, bool) {
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "video") {
			return stream, true
		}
	}
	return Stream{}, false
}

// AudioStreamCount returns the number of audio streams discovered.
func (r Result) AudioStreamCount() int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "audio") {
			count++
		}
	}
	return count
}

// DurationSeconds returns the container duration in seconds, or 0 when unavailable.
func (r Result) DurationSeconds() float64 {
	return nonNegative(parseFloat(r.Format.Duration))
}

// BitRate returns the container bitrate in bits per second, or 0 when unavailable.
func (r Result) BitRate() int64 {
	return int64(nonNegative(parseFloat(r.Format.BitRate)))
}

// Summary renders a one-line description for CLI output.
func (r Result) Summary() string {
	parts := []string{fmt.Sprintf("%.1fs", r.DurationSeconds())}
	if video, ok := r.VideoStream(); ok {
		parts = append(parts, fmt.Sprintf("%s %dx%d", video.CodecName, video.Width, video.Height))
	}
	if n := r.AudioStreamCount(); n > 0 {
		parts = append(parts, fmt.Sprintf("%d audio", n))
	}
	return strings.Join(parts, ", ")
}

// parseFloat returns NaN for values ffprobe could not determine ("N/A") or
// that are otherwise malformed, and 0 for empty input.
func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}

func nonNegative(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
