package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeBinaries(); err != nil {
		return err
	}
	c.normalizeEncoding()
	c.normalizeAPI()
	c.normalizeNotifications()
	c.normalizeLogging()
	c.normalizeDependencies()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("SHRINK_DEPS_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.DepsDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.DepsDir) == "" {
		c.Paths.DepsDir = defaultDepsDir
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	var err error
	if c.Paths.DepsDir, err = expandPath(c.Paths.DepsDir); err != nil {
		return fmt.Errorf("paths.deps_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeBinaries() error {
	var err error
	if c.Binaries.FFmpeg = strings.TrimSpace(c.Binaries.FFmpeg); c.Binaries.FFmpeg != "" {
		if c.Binaries.FFmpeg, err = expandPath(c.Binaries.FFmpeg); err != nil {
			return fmt.Errorf("binaries.ffmpeg: %w", err)
		}
	}
	if c.Binaries.FFprobe = strings.TrimSpace(c.Binaries.FFprobe); c.Binaries.FFprobe != "" {
		if c.Binaries.FFprobe, err = expandPath(c.Binaries.FFprobe); err != nil {
			return fmt.Errorf("binaries.ffprobe: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeEncoding() {
	c.Encoding.HardwareEncoder = strings.ToLower(strings.TrimSpace(c.Encoding.HardwareEncoder))
	if c.Encoding.HardwareEncoder == "" {
		c.Encoding.HardwareEncoder = defaultHardwareEncoder
	}
	c.Encoding.VAAPIDevice = strings.TrimSpace(c.Encoding.VAAPIDevice)
	if c.Encoding.VAAPIDevice == "" {
		c.Encoding.VAAPIDevice = defaultVAAPIDevice
	}
	if c.Encoding.PreviewSize <= 0 {
		c.Encoding.PreviewSize = defaultPreviewSize
	}
}

func (c *Config) normalizeAPI() {
	if value, ok := os.LookupEnv("SHRINK_API_BIND"); ok && strings.TrimSpace(value) != "" {
		c.API.Bind = value
	}
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
	origins := c.API.AllowedOrigins[:0]
	for _, origin := range c.API.AllowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	c.API.AllowedOrigins = origins
	if value, ok := os.LookupEnv("SHRINK_API_TOKEN"); ok && strings.TrimSpace(value) != "" {
		c.API.Token = value
	}
	c.API.Token = strings.TrimSpace(c.API.Token)
}

func (c *Config) normalizeNotifications() {
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("SHRINK_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = value
		}
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func (c *Config) normalizeDependencies() {
	for i := range c.Dependencies {
		dep := &c.Dependencies[i]
		dep.Name = strings.TrimSpace(dep.Name)
		dep.Platform = strings.ToLower(strings.TrimSpace(dep.Platform))
		dep.URL = strings.TrimSpace(dep.URL)
	}
}
