package preflight

import (
	"context"

	"shrink/internal/config"
	"shrink/internal/deps"
	"shrink/internal/platform"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
	// Optional checks never block readiness.
	Optional bool `json:"optional,omitempty"`
}

// Ready reports whether every required check passed.
func Ready(results []Result) bool {
	for _, r := range results {
		if !r.Passed && !r.Optional {
			return false
		}
	}
	return true
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config, resolver *deps.Resolver) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Dependency directory", cfg.Paths.DepsDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
	}

	if resolver == nil {
		resolver = deps.NewResolver(cfg)
	}
	for _, status := range CheckEncoders(resolver) {
		results = append(results, fromStatus(status))
	}

	if encoder, ok := platform.Current().HardwareEncoder(cfg.Encoding.HardwareEncoder); ok {
		if ffmpeg, err := resolver.Binary("ffmpeg"); err == nil {
			results = append(results, CheckHardwareEncoder(ctx, ffmpeg, encoder))
		}
	}

	if cfg.Notifications.NtfyTopic != "" {
		results = append(results, CheckNtfy(ctx, cfg.Notifications.NtfyTopic))
	}

	return results
}

func fromStatus(status deps.Status) Result {
	detail := status.Command
	if !status.Available {
		detail = status.Detail
	}
	return Result{
		Name:     status.Name,
		Passed:   status.Available,
		Detail:   detail,
		Optional: status.Optional,
	}
}
