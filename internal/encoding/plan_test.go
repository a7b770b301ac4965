package encoding_test

import (
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"shrink/internal/encoding"
	"shrink/internal/media/ffprobe"
	"shrink/internal/platform"
)

func argValue(args []string, flag string) (string, bool) {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag {
			return args[i+1], true
		}
	}
	return "", false
}

func TestOutputPathKeepsNameBesideInput(t *testing.T) {
	input := filepath.Join("/data", "My Clips", "clip.final.mp4")
	want := filepath.Join("/data", "My Clips", "compressed-clip.final.mp4")
	if got := encoding.OutputPath(input); got != want {
		t.Fatalf("OutputPath = %q, want %q", got, want)
	}
}

func TestVideoRemoveAudioPreserveResolution(t *testing.T) {
	input := filepath.Join("/videos", "clip.mp4")
	settings, err := encoding.VideoSettings{Resolution: encoding.ResolutionPreserve, RemoveAudio: true}.Normalize()
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	plans := encoding.BuildVideoPlans(input, settings, platform.Lookup("linux"), ffprobe.Metadata{DurationSeconds: 10}, encoding.DefaultTuning())
	if len(plans) != 1 || plans[0].Path != encoding.PathSoftware {
		t.Fatalf("expected a single software plan, got %+v", plans)
	}
	args := plans[0].Args
	if !slices.Contains(args, "-an") {
		t.Fatalf("expected -an in %v", args)
	}
	if slices.Contains(args, "-acodec") {
		t.Fatalf("audio codec must be omitted when audio is removed: %v", args)
	}
	if _, ok := argValue(args, "-vf"); ok {
		t.Fatalf("unexpected scale filter in %v", args)
	}
	if _, ok := argValue(args, "-preset"); ok {
		t.Fatalf("default speed must not set a preset: %v", args)
	}
	if filepath.Base(args[len(args)-1]) != "compressed-clip.mp4" {
		t.Fatalf("unexpected output argument %q", args[len(args)-1])
	}
}

func TestSoftwareArgsApplyScaleSpeedAndCaps(t *testing.T) {
	settings := encoding.VideoSettings{Resolution: "854x480", Speed: encoding.SpeedVeryslow, Quality: encoding.Quality(100)}
	md := ffprobe.Metadata{DurationSeconds: 30, AudioBitrateBps: 700_000, VideoBitrateBps: 9_000_000}
	plans := encoding.BuildVideoPlans("/v/in.mov", settings, platform.Lookup("plan9"), md, encoding.DefaultTuning())
	args := plans[len(plans)-1].Args

	checks := map[string]string{
		"-vcodec": "libx264",
		"-vf":     "scale=854:480",
		"-crf":    "24",
		"-preset": "veryslow",
		"-b:a":    "0.6M",
		"-b:v":    "5M",
		"-acodec": "libopus",
		"-i":      "/v/in.mov",
	}
	for flag, want := range checks {
		if got, ok := argValue(args, flag); !ok || got != want {
			t.Fatalf("%s = %q (present=%v), want %q in %v", flag, got, ok, want, args)
		}
	}
}

func TestCapsSkippedWhenBitrateUnknownOrBelow(t *testing.T) {
	md := ffprobe.Metadata{DurationSeconds: 30, AudioBitrateBps: 0, VideoBitrateBps: 4_000_000}
	plans := encoding.BuildVideoPlans("/v/in.mp4", encoding.VideoSettings{}, platform.Lookup("linux"), md, encoding.DefaultTuning())
	args := plans[0].Args
	if _, ok := argValue(args, "-b:a"); ok {
		t.Fatalf("unexpected audio cap in %v", args)
	}
	if _, ok := argValue(args, "-b:v"); ok {
		t.Fatalf("unexpected video cap in %v", args)
	}
}

func TestHardwarePlanPrecedesSoftware(t *testing.T) {
	tuning := encoding.DefaultTuning()
	plans := encoding.BuildVideoPlans("/v/in.mp4", encoding.VideoSettings{Quality: encoding.Quality(50)}, platform.Lookup("darwin"), ffprobe.Metadata{}, tuning)
	if len(plans) != 2 {
		t.Fatalf("expected hardware and software plans, got %d", len(plans))
	}
	hw, sw := plans[0], plans[1]
	if hw.Path != encoding.PathHardware || hw.Encoder != "h264_videotoolbox" {
		t.Fatalf("unexpected hardware plan %+v", hw)
	}
	if sw.Path != encoding.PathSoftware {
		t.Fatalf("expected software fallback, got %+v", sw)
	}
	if hw.Output != sw.Output {
		t.Fatalf("plans must share the output path: %q vs %q", hw.Output, sw.Output)
	}
	if got, _ := argValue(hw.Args, "-b:v"); got != "4500k" {
		t.Fatalf("expected bitrate-controlled hardware plan, got -b:v %q", got)
	}
	if _, ok := argValue(hw.Args, "-crf"); ok {
		t.Fatalf("hardware plan must not use crf: %v", hw.Args)
	}
}

func TestHardwareBitrateNeverExceedsSource(t *testing.T) {
	md := ffprobe.Metadata{VideoBitrateBps: 2_000_000}
	plans := encoding.BuildVideoPlans("/v/in.mp4", encoding.VideoSettings{Quality: encoding.Quality(100)}, platform.Lookup("darwin"), md, encoding.DefaultTuning())
	if got, _ := argValue(plans[0].Args, "-b:v"); got != "2000k" {
		t.Fatalf("expected source bitrate ceiling, got %q", got)
	}
}

func TestVAAPIPlanUploadsFrames(t *testing.T) {
	tuning := encoding.DefaultTuning()
	tuning.HardwareEncoder = "h264_vaapi"
	plans := encoding.BuildVideoPlans("/v/in.mp4", encoding.VideoSettings{Resolution: "1280x720"}, platform.Lookup("linux"), ffprobe.Metadata{}, tuning)
	if len(plans) != 2 {
		t.Fatalf("expected two plans, got %d", len(plans))
	}
	args := plans[0].Args
	if got, _ := argValue(args, "-vaapi_device"); got != "/dev/dri/renderD128" {
		t.Fatalf("unexpected vaapi device %q", got)
	}
	if got, _ := argValue(args, "-vf"); got != "scale=1280:720,format=nv12,hwupload" {
		t.Fatalf("unexpected vaapi filter chain %q", got)
	}
	if slices.Index(args, "-vaapi_device") > slices.Index(args, "-i") {
		t.Fatalf("vaapi device must precede the input: %v", args)
	}
}

func TestBuildImagePlan(t *testing.T) {
	tuning := encoding.DefaultTuning()
	plan := encoding.BuildImagePlan("/p/photo.jpg", encoding.ImageSettings{Quality: encoding.Quality(80)}, tuning)
	if plan.Output != "/p/compressed-photo.jpg" || plan.Format != encoding.FormatJPEG || plan.JPEGQuality != 52 {
		t.Fatalf("unexpected jpeg plan %+v", plan)
	}
	if plan := encoding.BuildImagePlan("/p/icon.PNG", encoding.ImageSettings{}, tuning); plan.Format != encoding.FormatPNG {
		t.Fatalf("expected png preserved, got %+v", plan)
	}
	if plan := encoding.BuildImagePlan("/p/shot.webp", encoding.ImageSettings{}, tuning); plan.Format != encoding.FormatJPEG || !strings.HasSuffix(plan.Output, "compressed-shot.webp") {
		t.Fatalf("expected webp re-encoded as jpeg under its own name, got %+v", plan)
	}
	if plan := encoding.BuildImagePlan("/p/icon.png", encoding.ImageSettings{OutputFormat: encoding.FormatJPEG}, tuning); plan.Format != encoding.FormatJPEG {
		t.Fatalf("expected explicit jpeg, got %+v", plan)
	}
}

func TestFFmpegImageArgs(t *testing.T) {
	plan := encoding.BuildImagePlan("/p/shot.avif", encoding.ImageSettings{Quality: encoding.Quality(80)}, encoding.DefaultTuning())
	args := encoding.FFmpegImageArgs("/p/shot.avif", plan)
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-c:v mjpeg -q:v ") || !strings.HasSuffix(joined, "-f image2 /p/compressed-shot.avif") {
		t.Fatalf("unexpected args %q", joined)
	}

	plan.Format = encoding.FormatPNG
	if joined := strings.Join(encoding.FFmpegImageArgs("/p/shot.avif", plan), " "); !strings.Contains(joined, "-c:v png") {
		t.Fatalf("png fallback args %q", joined)
	}
}

func TestJPEGQScaleIsInverted(t *testing.T) {
	prev := encoding.JPEGQScale(0)
	if prev != 31 || encoding.JPEGQScale(100) != 2 {
		t.Fatalf("endpoints = %d, %d", prev, encoding.JPEGQScale(100))
	}
	for q := 1; q <= 100; q++ {
		got := encoding.JPEGQScale(q)
		if got > prev {
			t.Fatalf("qscale rose from %d to %d at quality %d", prev, got, q)
		}
		prev = got
	}
}
