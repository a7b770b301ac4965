package encoding

import (
	"fmt"
	"strings"
)

// OutputFormat selects the encoded image format.
type OutputFormat string

const (
	FormatPreserve OutputFormat = "preserve"
	FormatPNG      OutputFormat = "png"
	FormatJPEG     OutputFormat = "jpeg"
)

// Speed maps onto an x264 preset; SpeedDefault adds no preset.
type Speed string

const (
	SpeedDefault   Speed = "default"
	SpeedSuperfast Speed = "superfast"
	SpeedVeryfast  Speed = "veryfast"
	SpeedVeryslow  Speed = "veryslow"
)

// Resolution is either ResolutionPreserve or a WxH preset.
type Resolution string

const ResolutionPreserve Resolution = "preserve"

var resolutionPresets = []Resolution{"1920x1080", "1280x720", "854x480", "640x360"}

// ResolutionPresets lists the accepted target resolutions.
func ResolutionPresets() []Resolution {
	return append([]Resolution(nil), resolutionPresets...)
}

// ParseResolution accepts "preserve", "WxH" or "W:H".
func ParseResolution(value string) (Resolution, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" || normalized == string(ResolutionPreserve) {
		return ResolutionPreserve, nil
	}
	normalized = strings.ReplaceAll(normalized, ":", "x")
	for _, preset := range resolutionPresets {
		if normalized == string(preset) {
			return preset, nil
		}
	}
	return "", fmt.Errorf("unsupported resolution %q", value)
}

// ScaleFilter returns the ffmpeg scale filter expression, or false for preserve.
func (r Resolution) ScaleFilter() (string, bool) {
	if r == "" || r == ResolutionPreserve {
		return "", false
	}
	return "scale=" + strings.ReplaceAll(string(r), "x", ":"), true
}

// ParseSpeed validates a speed setting. Empty means default.
func ParseSpeed(value string) (Speed, error) {
	switch speed := Speed(strings.ToLower(strings.TrimSpace(value))); speed {
	case "":
		return SpeedDefault, nil
	case SpeedDefault, SpeedSuperfast, SpeedVeryfast, SpeedVeryslow:
		return speed, nil
	default:
		return "", fmt.Errorf("unsupported speed %q", value)
	}
}

// ParseOutputFormat validates an image output format. Empty means preserve;
// "jpg" is accepted as jpeg.
func ParseOutputFormat(value string) (OutputFormat, error) {
	switch format := OutputFormat(strings.ToLower(strings.TrimSpace(value))); format {
	case "":
		return FormatPreserve, nil
	case "jpg":
		return FormatJPEG, nil
	case FormatPreserve, FormatPNG, FormatJPEG:
		return format, nil
	default:
		return "", fmt.Errorf("unsupported output format %q", value)
	}
}

// ImageSettings is the immutable image job configuration. Quality is nil when
// unset and falls back to the configured default.
type ImageSettings struct {
	Quality      *int         `json:"compression_quality,omitempty"`
	OutputFormat OutputFormat `json:"output_format,omitempty"`
	ReplaceInput bool         `json:"replace_input_file,omitempty"`
}

// VideoSettings is the immutable video job configuration.
type VideoSettings struct {
	Resolution   Resolution `json:"resolution,omitempty"`
	Quality      *int       `json:"compression_quality,omitempty"`
	Speed        Speed      `json:"speed,omitempty"`
	ReplaceInput bool       `json:"replace_input_file,omitempty"`
	RemoveAudio  bool       `json:"remove_audio,omitempty"`
}

// Normalize validates the settings and fills empty enums with defaults.
func (s ImageSettings) Normalize() (ImageSettings, error) {
	if err := checkQuality(s.Quality); err != nil {
		return s, err
	}
	format, err := ParseOutputFormat(string(s.OutputFormat))
	if err != nil {
		return s, err
	}
	s.OutputFormat = format
	return s, nil
}

// Normalize validates the settings and fills empty enums with defaults.
func (s VideoSettings) Normalize() (VideoSettings, error) {
	if err := checkQuality(s.Quality); err != nil {
		return s, err
	}
	resolution, err := ParseResolution(string(s.Resolution))
	if err != nil {
		return s, err
	}
	speed, err := ParseSpeed(string(s.Speed))
	if err != nil {
		return s, err
	}
	s.Resolution = resolution
	s.Speed = speed
	return s, nil
}

func checkQuality(q *int) error {
	if q != nil && (*q < 0 || *q > 100) {
		return fmt.Errorf("compression quality must be between 0 and 100 (got %d)", *q)
	}
	return nil
}

// Quality returns a pointer to q, for building settings literals.
func Quality(q int) *int {
	return &q
}
