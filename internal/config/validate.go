package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var hardwareEncoders = map[string]struct{}{
	"auto":              {},
	"none":              {},
	"h264_videotoolbox": {},
	"h264_nvenc":        {},
	"h264_qsv":          {},
	"h264_amf":          {},
	"h264_vaapi":        {},
}

var dependencyPlatforms = map[string]struct{}{
	"macos":   {},
	"windows": {},
	"linux":   {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateEncoding(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateDependencies(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Paths.DepsDir) == "" {
		return errors.New("paths.deps_dir must be set")
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	return nil
}

func (c *Config) validateEncoding() error {
	enc := c.Encoding
	if err := validateRange("encoding.image_quality", enc.ImageQualityMin, enc.ImageQualityMax, 1, 100); err != nil {
		return err
	}
	if err := validateRange("encoding.crf", enc.CRFMin, enc.CRFMax, 0, 51); err != nil {
		return err
	}
	if enc.HardwareBitrateMinKbps <= 0 || enc.HardwareBitrateMaxKbps < enc.HardwareBitrateMinKbps {
		return fmt.Errorf("encoding.hardware_bitrate_min_kbps/max_kbps must be positive and ordered (got %d..%d)", enc.HardwareBitrateMinKbps, enc.HardwareBitrateMaxKbps)
	}
	for name, value := range map[string]int{
		"encoding.default_image_quality": enc.DefaultImageQuality,
		"encoding.default_video_quality": enc.DefaultVideoQuality,
	} {
		if value < 0 || value > 100 {
			return fmt.Errorf("%s must be between 0 and 100 (got %d)", name, value)
		}
	}
	if enc.AudioCapMbps < 0 || enc.VideoCapMbps < 0 {
		return errors.New("encoding.audio_cap_mbps and encoding.video_cap_mbps must not be negative")
	}
	if _, ok := hardwareEncoders[enc.HardwareEncoder]; !ok {
		return fmt.Errorf("encoding.hardware_encoder: unsupported value %q", enc.HardwareEncoder)
	}
	if enc.JobTimeoutMinutes < 0 {
		return errors.New("encoding.job_timeout_minutes must not be negative")
	}
	return nil
}

func validateRange(name string, lo, hi, floor, ceil int) error {
	if lo < floor || hi > ceil || lo >= hi {
		return fmt.Errorf("%s_min/max must satisfy %d <= min < max <= %d (got %d..%d)", name, floor, ceil, lo, hi)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateDependencies() error {
	for i, dep := range c.Dependencies {
		if dep.Name == "" {
			return fmt.Errorf("dependencies[%d].name must be set", i)
		}
		if _, ok := dependencyPlatforms[dep.Platform]; !ok {
			return fmt.Errorf("dependencies[%d].platform: unsupported value %q", i, dep.Platform)
		}
		parsed, err := url.Parse(dep.URL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("dependencies[%d].url must be an absolute URL", i)
		}
	}
	return nil
}
