package ffprobe

import (
	"context"
	"errors"
	"strings"

	"shrink/internal/procrun"
	"shrink/internal/services"
)

// Metadata is the subset of probe data that drives encoding decisions. Zero
// means unknown.
type Metadata struct {
	DurationSeconds float64
	AudioBitrateBps int64
	VideoBitrateBps int64
}

type query struct {
	field string
	args  []string
}

func queries(path string) []query {
	plain := []string{"-of", "default=noprint_wrappers=1:nokey=1"}
	return []query{
		{field: "duration", args: append([]string{"-v", "error", "-show_entries", "format=duration"}, append(plain, path)...)},
		{field: "audio_bitrate", args: append([]string{"-v", "error", "-select_streams", "a:0", "-show_entries", "stream=bit_rate"}, append(plain, path)...)},
		{field: "video_bitrate", args: append([]string{"-v", "error", "-select_streams", "v:0", "-show_entries", "stream=bit_rate"}, append(plain, path)...)},
	}
}

// Probe reads duration and the first audio and video stream bitrates using
// three plain-output ffprobe queries. Fields that fail or do not parse are
// left at zero; in that case the metadata is still returned together with an
// error matching services.ErrProbeFailed. A missing binary yields
// services.ErrDependencyMissing and one that exists but cannot be started
// yields services.ErrSpawnFailed. A canceled or expired ctx stops the probe
// with services.ErrCanceled or services.ErrTimeout.
func Probe(ctx context.Context, binary, path string) (Metadata, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return Metadata{}, services.Wrap(services.ErrDependencyMissing, "probe", "resolve", "ffprobe binary not configured", nil)
	}

	var md Metadata
	var failed []error
	for _, q := range queries(path) {
		res, err := procrun.Run(ctx, binary, q.args)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				if errors.Is(ctxErr, context.DeadlineExceeded) {
					return md, services.Wrap(services.ErrTimeout, "probe", q.field, "deadline exceeded", ctxErr)
				}
				return md, services.Wrap(services.ErrCanceled, "probe", q.field, "canceled", ctxErr)
			}
			var spawnErr *procrun.SpawnError
			if errors.As(err, &spawnErr) {
				if spawnErr.NotFound() {
					return Metadata{}, services.Wrap(services.ErrDependencyMissing, "probe", q.field, binary, err)
				}
				return Metadata{}, services.Wrap(services.ErrSpawnFailed, "probe", q.field, binary, err)
			}
			failed = append(failed, services.Wrap(services.ErrProbeFailed, "probe", q.field, "", err))
			continue
		}
		value := nonNegative(parseFloat(firstLine(res.Stdout)))
		switch q.field {
		case "duration":
			md.DurationSeconds = value
		case "audio_bitrate":
			md.AudioBitrateBps = int64(value)
		case "video_bitrate":
			md.VideoBitrateBps = int64(value)
		}
	}
	if len(failed) > 0 {
		return md, errors.Join(failed...)
	}
	return md, nil
}

func firstLine(output string) string {
	for _, line := range strings.Split(output, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
