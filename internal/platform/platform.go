// Package platform holds the per-OS capability table consulted by the
// encoder strategy and the dependency installer.
package platform

import (
	"runtime"
	"slices"
	"strings"
)

// Capabilities describes what the running platform offers.
type Capabilities struct {
	// Name is the dependency catalog platform name (macos, windows, linux).
	Name string
	// Known is false for platforms outside the table; they get software
	// encoding only and no dependency downloads.
	Known bool
	// DefaultHardwareEncoder is used when the hardware encoder setting is
	// "auto". Empty means no encoder is assumed present.
	DefaultHardwareEncoder string
	// HardwareEncoders lists the encoders that may be selected explicitly.
	HardwareEncoders []string
	// ExecutableSuffix is appended to binary names.
	ExecutableSuffix string
	// NeedsChmod reports whether extracted executables need the exec bit set.
	NeedsChmod bool
}

var table = map[string]Capabilities{
	"darwin": {
		Name:                   "macos",
		Known:                  true,
		DefaultHardwareEncoder: "h264_videotoolbox",
		HardwareEncoders:       []string{"h264_videotoolbox"},
		NeedsChmod:             true,
	},
	"windows": {
		Name:             "windows",
		Known:            true,
		HardwareEncoders: []string{"h264_nvenc", "h264_qsv", "h264_amf"},
		ExecutableSuffix: ".exe",
	},
	"linux": {
		Name:             "linux",
		Known:            true,
		HardwareEncoders: []string{"h264_nvenc", "h264_qsv", "h264_vaapi"},
		NeedsChmod:       true,
	},
}

// Lookup returns the capabilities for a GOOS value.
func Lookup(goos string) Capabilities {
	if caps, ok := table[goos]; ok {
		caps.HardwareEncoders = slices.Clone(caps.HardwareEncoders)
		return caps
	}
	return Capabilities{Name: goos}
}

// Current returns the capabilities of the running platform.
func Current() Capabilities {
	return Lookup(runtime.GOOS)
}

// HardwareEncoder resolves the configured hardware encoder setting ("auto",
// "none" or an encoder name) against the platform. The boolean is false when
// encoding must stay in software.
func (c Capabilities) HardwareEncoder(setting string) (string, bool) {
	if !c.Known {
		return "", false
	}
	switch setting = strings.ToLower(strings.TrimSpace(setting)); setting {
	case "", "none":
		return "", false
	case "auto":
		return c.DefaultHardwareEncoder, c.DefaultHardwareEncoder != ""
	default:
		if slices.Contains(c.HardwareEncoders, setting) {
			return setting, true
		}
		return "", false
	}
}

// Executable appends the platform suffix to a binary name.
func (c Capabilities) Executable(name string) string {
	if c.ExecutableSuffix != "" && !strings.HasSuffix(strings.ToLower(name), c.ExecutableSuffix) {
		return name + c.ExecutableSuffix
	}
	return name
}
