package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DepsDir  string `toml:"deps_dir"`
	LogDir   string `toml:"log_dir"`
	StateDir string `toml:"state_dir"`
}

// Binaries overrides the ffmpeg and ffprobe executables. Empty values resolve
// through the dependency directory and then PATH.
type Binaries struct {
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
}

// Encoding contains the numeric bounds used to map user quality onto encoder
// parameters, plus hardware selection and job limits.
type Encoding struct {
	ImageQualityMin        int     `toml:"image_quality_min"`
	ImageQualityMax        int     `toml:"image_quality_max"`
	CRFMin                 int     `toml:"crf_min"`
	CRFMax                 int     `toml:"crf_max"`
	HardwareBitrateMinKbps int     `toml:"hardware_bitrate_min_kbps"`
	HardwareBitrateMaxKbps int     `toml:"hardware_bitrate_max_kbps"`
	DefaultImageQuality    int     `toml:"default_image_quality"`
	DefaultVideoQuality    int     `toml:"default_video_quality"`
	AudioCapMbps           float64 `toml:"audio_cap_mbps"`
	VideoCapMbps           float64 `toml:"video_cap_mbps"`
	HardwareEncoder        string  `toml:"hardware_encoder"`
	VAAPIDevice            string  `toml:"vaapi_device"`
	JobTimeoutMinutes      int     `toml:"job_timeout_minutes"`
	PreviewSize            int     `toml:"preview_size"`
}

// API contains the daemon HTTP listener settings.
type API struct {
	Bind           string   `toml:"bind"`
	AllowedOrigins []string `toml:"allowed_origins"`
	// Token, when set, must be presented as a bearer token on every request.
	Token string `toml:"token"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	JobCompleted   bool   `toml:"job_completed"`
	JobFailed      bool   `toml:"job_failed"`
	Dependencies   bool   `toml:"dependencies"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Dependency is a downloadable binary archive entry. Entries in the config
// file replace the built-in catalog for their platform.
type Dependency struct {
	Name       string  `toml:"name"`
	Platform   string  `toml:"platform"`
	URL        string  `toml:"url"`
	SizeMB     float64 `toml:"size_mb"`
	Executable bool    `toml:"executable"`
}

// Config encapsulates all configuration values for shrink.
//
// Configuration sections by subsystem:
//   - Paths: dependency, log and state directories
//   - Binaries: explicit ffmpeg/ffprobe overrides
//   - Encoding: quality mapping bounds, bitrate caps, hardware encoder, timeouts
//   - API: daemon bind address and CORS origins
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and retention
//   - Dependencies: catalog overrides for the dependency installer
type Config struct {
	Paths         Paths         `toml:"paths"`
	Binaries      Binaries      `toml:"binaries"`
	Encoding      Encoding      `toml:"encoding"`
	API           API           `toml:"api"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
	Dependencies  []Dependency  `toml:"dependencies"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if err := loadDotEnv(resolvedPath); err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("shrink.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// loadDotEnv reads .env files from the working directory and from beside the
// config file. Variables already present in the environment win.
func loadDotEnv(configPath string) error {
	candidates := []string{".env"}
	if configPath != "" {
		candidates = append(candidates, filepath.Join(filepath.Dir(configPath), ".env"))
	}
	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() {
			continue
		}
		if err := godotenv.Load(candidate); err != nil {
			return fmt.Errorf("load %s: %w", candidate, err)
		}
	}
	return nil
}

// EnsureDirectories creates the dependency, log and state directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DepsDir, c.Paths.LogDir, c.Paths.StateDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// JobTimeout returns the per-job limit, or zero when jobs are unbounded.
func (c *Config) JobTimeout() time.Duration {
	if c.Encoding.JobTimeoutMinutes <= 0 {
		return 0
	}
	return time.Duration(c.Encoding.JobTimeoutMinutes) * time.Minute
}

// HistoryPath returns the location of the job history database.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LockPath returns the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "shrinkd.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
