package encoding

import (
	"path/filepath"
	"strconv"
	"strings"

	"shrink/internal/media/ffprobe"
	"shrink/internal/platform"
)

// OutputPrefix is prepended to the input file name to form the output name.
const OutputPrefix = "compressed-"

// Path identifies how a plan encodes.
type Path string

const (
	PathHardware Path = "hardware"
	PathSoftware Path = "software"
)

const softwareEncoder = "libx264"

// Plan is one concrete encoder invocation.
type Plan struct {
	Path    Path
	Encoder string
	Args    []string
	Output  string
}

// ImagePlan describes an in-process image re-encode.
type ImagePlan struct {
	Output      string
	Format      OutputFormat
	JPEGQuality int
}

// OutputPath returns dir/compressed-<basename> for input.
func OutputPath(input string) string {
	return filepath.Join(filepath.Dir(input), OutputPrefix+filepath.Base(input))
}

// BuildImagePlan resolves the output location, format and quality for an
// image job. Preserve keeps PNG as PNG; every other source is written as
// JPEG. The output name always keeps the input's name.
func BuildImagePlan(input string, s ImageSettings, t Tuning) ImagePlan {
	format := s.OutputFormat
	if format == "" || format == FormatPreserve {
		switch strings.ToLower(filepath.Ext(input)) {
		case ".png":
			format = FormatPNG
		default:
			format = FormatJPEG
		}
	}
	return ImagePlan{
		Output:      OutputPath(input),
		Format:      format,
		JPEGQuality: t.ImageQualityFor(s),
	}
}

// BuildVideoPlans returns the ordered encode attempts for a video job. When the
// platform resolves a hardware encoder the hardware plan comes first; the
// software plan is always last.
func BuildVideoPlans(input string, s VideoSettings, caps platform.Capabilities, md ffprobe.Metadata, t Tuning) []Plan {
	output := OutputPath(input)
	plans := make([]Plan, 0, 2)
	if encoder, ok := caps.HardwareEncoder(t.HardwareEncoder); ok {
		plans = append(plans, Plan{
			Path:    PathHardware,
			Encoder: encoder,
			Args:    hardwareArgs(input, output, encoder, s, md, t),
			Output:  output,
		})
	}
	plans = append(plans, Plan{
		Path:    PathSoftware,
		Encoder: softwareEncoder,
		Args:    softwareArgs(input, output, s, md, t),
		Output:  output,
	})
	return plans
}

func softwareArgs(input, output string, s VideoSettings, md ffprobe.Metadata, t Tuning) []string {
	args := []string{"-y", "-hide_banner", "-i", input, "-vcodec", softwareEncoder, "-threads", "0"}
	if !s.RemoveAudio {
		args = append(args, "-acodec", "libopus")
	}
	if filter, ok := s.Resolution.ScaleFilter(); ok {
		args = append(args, "-vf", filter)
	}
	args = append(args, "-crf", strconv.Itoa(t.CRFFor(s)))
	if s.Speed != "" && s.Speed != SpeedDefault {
		args = append(args, "-preset", string(s.Speed))
	}
	if !s.RemoveAudio && exceeds(md.AudioBitrateBps, t.AudioCapMbps) {
		args = append(args, "-b:a", formatMbps(t.AudioCapMbps))
	}
	if exceeds(md.VideoBitrateBps, t.VideoCapMbps) {
		args = append(args, "-b:v", formatMbps(t.VideoCapMbps))
	}
	if s.RemoveAudio {
		args = append(args, "-an")
	}
	return append(args, output)
}

func hardwareArgs(input, output, encoder string, s VideoSettings, md ffprobe.Metadata, t Tuning) []string {
	args := []string{"-y", "-hide_banner"}
	vaapi := encoder == "h264_vaapi"
	if vaapi {
		args = append(args, "-vaapi_device", t.VAAPIDevice)
	}
	args = append(args, "-i", input, "-vcodec", encoder)
	if !s.RemoveAudio {
		args = append(args, "-acodec", "libopus")
	}

	filters := make([]string, 0, 3)
	if filter, ok := s.Resolution.ScaleFilter(); ok {
		filters = append(filters, filter)
	}
	if vaapi {
		filters = append(filters, "format=nv12", "hwupload")
	}
	if len(filters) > 0 {
		args = append(args, "-vf", strings.Join(filters, ","))
	}

	args = append(args, "-b:v", strconv.Itoa(hardwareBitrate(s, md, t))+"k")
	if !s.RemoveAudio && exceeds(md.AudioBitrateBps, t.AudioCapMbps) {
		args = append(args, "-b:a", formatMbps(t.AudioCapMbps))
	}
	if s.RemoveAudio {
		args = append(args, "-an")
	}
	return append(args, output)
}

// hardwareBitrate never asks for more than the source carries or than the
// video cap allows once the source exceeds it.
func hardwareBitrate(s VideoSettings, md ffprobe.Metadata, t Tuning) int {
	kbps := t.BitrateFor(s)
	if md.VideoBitrateBps > 0 {
		kbps = min(kbps, max(int(md.VideoBitrateBps/1000), t.HardwareBitrateKbps.Min))
	}
	if exceeds(md.VideoBitrateBps, t.VideoCapMbps) {
		kbps = min(kbps, int(t.VideoCapMbps*1000))
	}
	return kbps
}

func exceeds(probedBps int64, capMbps float64) bool {
	return capMbps > 0 && probedBps > 0 && float64(probedBps) > capMbps*1_000_000
}

func formatMbps(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64) + "M"
}

// FFmpegImageArgs re-encodes a single image through ffmpeg, for sources the
// in-process decoder cannot read.
func FFmpegImageArgs(input string, p ImagePlan) []string {
	args := []string{"-y", "-hide_banner", "-i", input, "-frames:v", "1"}
	switch p.Format {
	case FormatPNG:
		args = append(args, "-c:v", "png")
	default:
		args = append(args, "-c:v", "mjpeg", "-q:v", strconv.Itoa(JPEGQScale(p.JPEGQuality)))
	}
	return append(args, "-f", "image2", p.Output)
}

// JPEGQScale converts a 0-100 JPEG quality to ffmpeg's mjpeg qscale, where 2
// is finest and 31 coarsest.
func JPEGQScale(quality int) int {
	return lerp(min(max(quality, 0), 100), 31, 2)
}
