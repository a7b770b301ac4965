package platform_test

import (
	"testing"

	"shrink/internal/platform"
)

func TestLookupKnownPlatforms(t *testing.T) {
	cases := map[string]string{"darwin": "macos", "windows": "windows", "linux": "linux"}
	for goos, name := range cases {
		caps := platform.Lookup(goos)
		if !caps.Known || caps.Name != name {
			t.Fatalf("Lookup(%q) = %+v, want name %q", goos, caps, name)
		}
	}
}

func TestUnknownPlatformIsSoftwareOnly(t *testing.T) {
	caps := platform.Lookup("plan9")
	if caps.Known {
		t.Fatal("expected unknown platform")
	}
	for _, setting := range []string{"auto", "h264_nvenc", "h264_videotoolbox"} {
		if enc, ok := caps.HardwareEncoder(setting); ok {
			t.Fatalf("unknown platform selected %q for %q", enc, setting)
		}
	}
}

func TestHardwareEncoderResolution(t *testing.T) {
	mac := platform.Lookup("darwin")
	if enc, ok := mac.HardwareEncoder("auto"); !ok || enc != "h264_videotoolbox" {
		t.Fatalf("expected videotoolbox on macos, got %q %v", enc, ok)
	}
	if _, ok := mac.HardwareEncoder("none"); ok {
		t.Fatal("none must disable hardware")
	}
	if _, ok := mac.HardwareEncoder("h264_nvenc"); ok {
		t.Fatal("nvenc is not offered on macos")
	}

	linux := platform.Lookup("linux")
	if _, ok := linux.HardwareEncoder("auto"); ok {
		t.Fatal("linux has no default hardware encoder")
	}
	if enc, ok := linux.HardwareEncoder("H264_VAAPI"); !ok || enc != "h264_vaapi" {
		t.Fatalf("expected explicit vaapi, got %q %v", enc, ok)
	}
}

func TestExecutableSuffix(t *testing.T) {
	if got := platform.Lookup("windows").Executable("ffmpeg"); got != "ffmpeg.exe" {
		t.Fatalf("unexpected windows name %q", got)
	}
	if got := platform.Lookup("windows").Executable("ffmpeg.exe"); got != "ffmpeg.exe" {
		t.Fatalf("suffix applied twice: %q", got)
	}
	if got := platform.Lookup("linux").Executable("ffmpeg"); got != "ffmpeg" {
		t.Fatalf("unexpected linux name %q", got)
	}
}
