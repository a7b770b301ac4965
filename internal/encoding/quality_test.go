package encoding_test

import (
	"testing"

	"shrink/internal/encoding"
)

func TestQualityMappingsAreMonotonic(t *testing.T) {
	tuning := encoding.DefaultTuning()
	prevImage, prevCRF, prevBitrate := -1, 1<<30, -1
	for q := 0; q <= 100; q++ {
		image := encoding.MapImageQuality(q, tuning.ImageQuality)
		if image < prevImage {
			t.Fatalf("image quality decreased at q=%d: %d < %d", q, image, prevImage)
		}
		crf := encoding.MapCRF(q, tuning.CRF)
		if crf > prevCRF {
			t.Fatalf("crf became coarser at q=%d: %d > %d", q, crf, prevCRF)
		}
		bitrate := encoding.HardwareBitrateKbps(q, tuning.HardwareBitrateKbps)
		if bitrate < prevBitrate {
			t.Fatalf("hardware bitrate decreased at q=%d: %d < %d", q, bitrate, prevBitrate)
		}
		prevImage, prevCRF, prevBitrate = image, crf, bitrate
	}
}

func TestQualityMappingBounds(t *testing.T) {
	tuning := encoding.DefaultTuning()
	cases := []struct {
		name string
		got  int
		want int
	}{
		{"image q0", encoding.MapImageQuality(0, tuning.ImageQuality), 20},
		{"image q100", encoding.MapImageQuality(100, tuning.ImageQuality), 60},
		{"image q80", encoding.MapImageQuality(80, tuning.ImageQuality), 52},
		{"image clamps above", encoding.MapImageQuality(150, tuning.ImageQuality), 60},
		{"crf q0", encoding.MapCRF(0, tuning.CRF), 40},
		{"crf q100", encoding.MapCRF(100, tuning.CRF), 24},
		{"crf q48", encoding.MapCRF(48, tuning.CRF), 32},
		{"crf clamps below", encoding.MapCRF(-5, tuning.CRF), 40},
		{"bitrate q0", encoding.HardwareBitrateKbps(0, tuning.HardwareBitrateKbps), 1000},
		{"bitrate q100", encoding.HardwareBitrateKbps(100, tuning.HardwareBitrateKbps), 8000},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Fatalf("%s: got %d want %d", tc.name, tc.got, tc.want)
		}
	}
}

func TestUnsetQualityUsesDefaults(t *testing.T) {
	tuning := encoding.DefaultTuning()
	if got := tuning.ImageQualityFor(encoding.ImageSettings{}); got != 52 {
		t.Fatalf("expected default image quality 80 to map to 52, got %d", got)
	}
	if got := tuning.CRFFor(encoding.VideoSettings{}); got != 32 {
		t.Fatalf("expected default video quality 48 to map to crf 32, got %d", got)
	}
	if got := tuning.CRFFor(encoding.VideoSettings{Quality: encoding.Quality(0)}); got != 40 {
		t.Fatalf("explicit zero quality must not fall back to the default, got %d", got)
	}
}

func TestSettingsNormalize(t *testing.T) {
	video, err := encoding.VideoSettings{Resolution: "1280:720"}.Normalize()
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if video.Resolution != "1280x720" || video.Speed != encoding.SpeedDefault {
		t.Fatalf("unexpected normalized settings %+v", video)
	}
	if _, err := (encoding.VideoSettings{Resolution: "4000x3000"}).Normalize(); err == nil {
		t.Fatal("expected unsupported resolution error")
	}
	if _, err := (encoding.VideoSettings{Speed: "ludicrous"}).Normalize(); err == nil {
		t.Fatal("expected unsupported speed error")
	}
	if _, err := (encoding.ImageSettings{Quality: encoding.Quality(101)}).Normalize(); err == nil {
		t.Fatal("expected quality range error")
	}
	image, err := encoding.ImageSettings{OutputFormat: "JPG"}.Normalize()
	if err != nil || image.OutputFormat != encoding.FormatJPEG {
		t.Fatalf("expected jpg alias, got %+v %v", image, err)
	}
}
