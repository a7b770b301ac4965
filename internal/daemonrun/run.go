// Package daemonrun runs the shrink daemon in the foreground until a signal
// or context cancellation stops it. Both shrinkd and "shrink serve" use it.
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"shrink/internal/config"
	"shrink/internal/daemon"
	"shrink/internal/deps"
	"shrink/internal/history"
	"shrink/internal/logging"
	"shrink/internal/platform"
)

// Options configures daemon process runtime behavior.
type Options struct {
	// LogLevel overrides logging.level when set.
	LogLevel string
	// Bind overrides api.bind when set.
	Bind string
	// Ready, when set, receives the listen address once the API is serving.
	Ready func(addr string)
}

// Run starts the shrink daemon runtime loop.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	runCfg := *cfg
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		runCfg.Logging.Level = level
	}
	if bind := strings.TrimSpace(opts.Bind); bind != "" {
		runCfg.API.Bind = bind
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, logPath, err := logging.NewFromConfig(&runCfg, "shrinkd")
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if err := ensureCurrentLogPointer(runCfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update shrinkd.log link: %v\n", err)
	}

	store, err := history.Open(&runCfg)
	if err != nil {
		logger.Error("open history store", logging.Error(err))
		return err
	}
	defer store.Close()

	resolver := deps.NewResolver(&runCfg, deps.WithLogger(logger))
	logDependencySnapshot(logger, resolver)

	d, err := daemon.New(&runCfg, store, logger, daemon.WithResolver(resolver))
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check api.bind and that no other shrinkd holds "+runCfg.LockPath()),
			logging.String(logging.FieldImpact, "no jobs can be submitted over HTTP"),
		)
		return err
	}
	defer d.Stop()

	pidPath := filepath.Join(runCfg.Paths.StateDir, "shrinkd.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	if opts.Ready != nil {
		opts.Ready(d.Addr())
	}

	<-signalCtx.Done()
	logger.Info("shrink daemon shutting down")
	return nil
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "shrinkd.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, resolver *deps.Resolver) {
	if logger == nil || resolver == nil {
		return
	}
	ffmpeg, ffmpegErr := resolver.Binary("ffmpeg")
	ffprobe, ffprobeErr := resolver.Binary("ffprobe")
	report := resolver.Check()
	logger.Info("dependency snapshot",
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.String("platform", platform.Current().Name),
		logging.String("deps_dir", resolver.Dir()),
		logging.Bool("deps_installed", report.IsInstalled),
		logging.Bool("ffmpeg_available", ffmpegErr == nil),
		logging.String("ffmpeg_binary", ffmpeg),
		logging.Bool("ffprobe_available", ffprobeErr == nil),
		logging.String("ffprobe_binary", ffprobe),
	)
}
