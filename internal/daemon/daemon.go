package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"shrink/internal/compress"
	"shrink/internal/config"
	"shrink/internal/deps"
	"shrink/internal/history"
	"shrink/internal/logging"
	"shrink/internal/notifications"
	"shrink/internal/preflight"
	"shrink/internal/preview"
)

// Version is reported by /api/health.
var Version = "dev"

// Daemon owns the runner, history and HTTP API and enforces single-instance
// execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *history.Store
	resolver *deps.Resolver
	runner   *compress.Runner
	previews *preview.Generator
	notifier notifications.Service

	lockPath string
	lock     *flock.Flock

	mu      sync.Mutex
	api     *apiServer
	running atomic.Bool
	active  atomic.Int64
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool   `json:"running"`
	PID           int    `json:"pid"`
	Address       string `json:"address"`
	ActiveJobs    int64  `json:"active_jobs"`
	HistoryDBPath string `json:"history_db_path"`
	LockFilePath  string `json:"lock_file_path"`
}

// Option customises a Daemon.
type Option func(*Daemon)

// WithResolver replaces the dependency resolver built from config.
func WithResolver(resolver *deps.Resolver) Option {
	return func(d *Daemon) {
		if resolver != nil {
			d.resolver = resolver
		}
	}
}

// WithNotifier replaces the ntfy service built from config.
func WithNotifier(service notifications.Service) Option {
	return func(d *Daemon) {
		if service != nil {
			d.notifier = service
		}
	}
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *history.Store, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("daemon requires config and history store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		notifier: notifications.NewService(cfg),
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.resolver == nil {
		d.resolver = deps.NewResolver(cfg, deps.WithLogger(logger))
	}

	runnerOpts := compress.OptionsFromConfig(cfg)
	runnerOpts.Binaries = d.resolver
	runnerOpts.Gate = d.resolver.Gate()
	runnerOpts.Logger = logger
	runnerOpts.Recorder = store
	runnerOpts.Notifier = notifications.NewJobNotifier(d.notifier, logger)
	d.runner = compress.NewRunner(runnerOpts)

	d.previews = preview.NewGenerator(d.resolver,
		preview.WithSize(cfg.Encoding.PreviewSize),
		preview.WithLogger(logger),
	)
	return d, nil
}

// Start acquires the daemon lock and begins serving the API.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another shrinkd instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	srv := newAPIServer(d.cfg, d, d.logger)
	if err := srv.start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return err
	}
	d.api = srv

	for _, check := range preflight.RunAll(d.ctx, d.cfg, d.resolver) {
		if check.Passed || check.Optional {
			continue
		}
		logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
			logging.String("check", check.Name),
			logging.String("detail", check.Detail),
			logging.String(logging.FieldImpact, "jobs may fail until resolved"),
			logging.String(logging.FieldErrorHint, "POST /api/dependencies/install or run shrink deps install"),
		)
	}

	d.running.Store(true)
	d.logger.Info("shrink daemon started",
		logging.String("lock", d.lockPath),
		logging.String("address", srv.addr()),
	)
	return nil
}

// Stop stops serving and releases the daemon lock. In-flight jobs are
// canceled through their request contexts.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.api = nil
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("shrink daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Addr returns the API listen address, or empty when not running.
func (d *Daemon) Addr() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.api.addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	return Status{
		Running:       d.running.Load(),
		PID:           os.Getpid(),
		Address:       d.Addr(),
		ActiveJobs:    d.active.Load(),
		HistoryDBPath: d.store.Path(),
		LockFilePath:  d.lockPath,
	}
}

// RunJobs executes reqs in batch order, forwarding every event to sink.
func (d *Daemon) RunJobs(ctx context.Context, reqs []compress.Request, sink func(compress.Event)) ([]compress.Result, error) {
	d.active.Add(int64(len(reqs)))
	remaining := int64(len(reqs))
	defer func() { d.active.Add(-remaining) }()

	return d.runner.RunAll(ctx, reqs, func(ev compress.Event) {
		if ev.Type != compress.EventProgress {
			d.active.Add(-1)
			remaining--
		}
		sink(ev)
	})
}

// InstallDependencies downloads missing encoder binaries.
func (d *Daemon) InstallDependencies(ctx context.Context, emit func(deps.InstallEvent)) error {
	var installed []string
	err := d.resolver.Install(ctx, func(ev deps.InstallEvent) {
		if ev.Type == deps.InstallCompleted {
			installed = ev.Installed
		}
		if emit != nil {
			emit(ev)
		}
	})
	if err != nil {
		return err
	}
	if len(installed) > 0 {
		if err := d.notifier.Publish(ctx, notifications.EventDependenciesInstalled, notifications.Payload{"installed": installed}); err != nil {
			d.logger.Warn("dependency notification failed", logging.Error(err))
		}
	}
	return nil
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.Publish(ctx, notifications.EventTestNotification, nil); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}
