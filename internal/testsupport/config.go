package testsupport

import (
	"path/filepath"
	"testing"

	"shrink/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DepsDir = filepath.Join(base, "deps")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.API.Bind = "127.0.0.1:0"
	cfgVal.Encoding.HardwareEncoder = "none"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithHardwareEncoder selects the hardware encoder on the test config.
func WithHardwareEncoder(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Encoding.HardwareEncoder = name
	}
}

// WithBinaries points the config at explicit ffmpeg and ffprobe paths.
func WithBinaries(ffmpeg, ffprobe string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Binaries.FFmpeg = ffmpeg
		b.cfg.Binaries.FFprobe = ffprobe
	}
}

// WithJobTimeoutMinutes overrides the per-job limit.
func WithJobTimeoutMinutes(minutes int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Encoding.JobTimeoutMinutes = minutes
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
