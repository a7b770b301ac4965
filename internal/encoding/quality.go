package encoding

import (
	"math"

	"shrink/internal/config"
)

// Bounds is an inclusive numeric range.
type Bounds struct {
	Min int
	Max int
}

// Tuning carries the configured mapping bounds and caps.
type Tuning struct {
	ImageQuality        Bounds
	CRF                 Bounds
	HardwareBitrateKbps Bounds
	DefaultImageQuality int
	DefaultVideoQuality int
	// AudioCapMbps and VideoCapMbps are the probed bitrates above which an
	// explicit ceiling is added. Zero disables the cap.
	AudioCapMbps    float64
	VideoCapMbps    float64
	HardwareEncoder string
	VAAPIDevice     string
}

// TuningFromConfig extracts the encoding tuning from cfg.
func TuningFromConfig(cfg *config.Config) Tuning {
	enc := cfg.Encoding
	return Tuning{
		ImageQuality:        Bounds{Min: enc.ImageQualityMin, Max: enc.ImageQualityMax},
		CRF:                 Bounds{Min: enc.CRFMin, Max: enc.CRFMax},
		HardwareBitrateKbps: Bounds{Min: enc.HardwareBitrateMinKbps, Max: enc.HardwareBitrateMaxKbps},
		DefaultImageQuality: enc.DefaultImageQuality,
		DefaultVideoQuality: enc.DefaultVideoQuality,
		AudioCapMbps:        enc.AudioCapMbps,
		VideoCapMbps:        enc.VideoCapMbps,
		HardwareEncoder:     enc.HardwareEncoder,
		VAAPIDevice:         enc.VAAPIDevice,
	}
}

// DefaultTuning returns the tuning of the default configuration.
func DefaultTuning() Tuning {
	cfg := config.Default()
	return TuningFromConfig(&cfg)
}

// resolveQuality returns q clamped to 0-100, or fallback when q is nil.
func resolveQuality(q *int, fallback int) int {
	value := fallback
	if q != nil {
		value = *q
	}
	return min(max(value, 0), 100)
}

func lerp(q int, from, to int) int {
	return int(math.Round(float64(from) + float64(q)*float64(to-from)/100))
}

// MapImageQuality maps a 0-100 quality linearly onto the image encoder range.
func MapImageQuality(q int, b Bounds) int {
	return lerp(min(max(q, 0), 100), b.Min, b.Max)
}

// MapCRF maps a 0-100 quality inversely onto the CRF range: quality 100 gives
// the lowest (finest) CRF, quality 0 the highest.
func MapCRF(q int, b Bounds) int {
	return lerp(min(max(q, 0), 100), b.Max, b.Min)
}

// HardwareBitrateKbps maps a 0-100 quality linearly onto the hardware bitrate
// range.
func HardwareBitrateKbps(q int, b Bounds) int {
	return lerp(min(max(q, 0), 100), b.Min, b.Max)
}

// ImageQualityFor resolves the settings quality and maps it.
func (t Tuning) ImageQualityFor(s ImageSettings) int {
	return MapImageQuality(resolveQuality(s.Quality, t.DefaultImageQuality), t.ImageQuality)
}

// CRFFor resolves the settings quality and maps it onto the CRF range.
func (t Tuning) CRFFor(s VideoSettings) int {
	return MapCRF(resolveQuality(s.Quality, t.DefaultVideoQuality), t.CRF)
}

// BitrateFor resolves the settings quality and maps it onto the hardware
// bitrate range.
func (t Tuning) BitrateFor(s VideoSettings) int {
	return HardwareBitrateKbps(resolveQuality(s.Quality, t.DefaultVideoQuality), t.HardwareBitrateKbps)
}
