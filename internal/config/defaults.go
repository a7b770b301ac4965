package config

const (
	defaultConfigPath             = "~/.config/shrink/config.toml"
	defaultDepsDir                = "~/.ShrinkX_Dependencies"
	defaultLogDir                 = "~/.local/share/shrink/logs"
	defaultStateDir               = "~/.local/share/shrink"
	defaultLogRetentionDays       = 30
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultAPIBind                = "127.0.0.1:7488"
	defaultImageQualityMin        = 20
	defaultImageQualityMax        = 60
	defaultCRFMin                 = 24
	defaultCRFMax                 = 40
	defaultHardwareBitrateMinKbps = 1000
	defaultHardwareBitrateMaxKbps = 8000
	defaultImageQuality           = 80
	defaultVideoQuality           = 48
	defaultAudioCapMbps           = 0.6
	defaultVideoCapMbps           = 5
	defaultHardwareEncoder        = "auto"
	defaultVAAPIDevice            = "/dev/dri/renderD128"
	defaultJobTimeoutMinutes      = 120
	defaultPreviewSize            = 200
	defaultNotifyRequestTimeout   = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DepsDir:  defaultDepsDir,
			LogDir:   defaultLogDir,
			StateDir: defaultStateDir,
		},
		Encoding: Encoding{
			ImageQualityMin:        defaultImageQualityMin,
			ImageQualityMax:        defaultImageQualityMax,
			CRFMin:                 defaultCRFMin,
			CRFMax:                 defaultCRFMax,
			HardwareBitrateMinKbps: defaultHardwareBitrateMinKbps,
			HardwareBitrateMaxKbps: defaultHardwareBitrateMaxKbps,
			DefaultImageQuality:    defaultImageQuality,
			DefaultVideoQuality:    defaultVideoQuality,
			AudioCapMbps:           defaultAudioCapMbps,
			VideoCapMbps:           defaultVideoCapMbps,
			HardwareEncoder:        defaultHardwareEncoder,
			VAAPIDevice:            defaultVAAPIDevice,
			JobTimeoutMinutes:      defaultJobTimeoutMinutes,
			PreviewSize:            defaultPreviewSize,
		},
		API: API{
			Bind:           defaultAPIBind,
			AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			JobCompleted:   true,
			JobFailed:      true,
			Dependencies:   true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
