package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"shrink/internal/compress"
	"shrink/internal/config"
	"shrink/internal/deps"
	"shrink/internal/history"
	"shrink/internal/logging"
	"shrink/internal/notifications"
)

type commandContext struct {
	configFlag *string
	verbose    *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag *string, verbose *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		verbose:    verbose,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// cliLogger writes warnings to stderr, or everything at the configured level
// with --verbose. Progress output owns stdout.
func (c *commandContext) cliLogger() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		level := "warn"
		if c.verbose != nil && *c.verbose {
			level = cfg.Logging.Level
		}
		logger, err := logging.New(logging.Options{Level: level, Format: cfg.Logging.Format})
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		c.logger = logger
	})
	return c.logger
}

func (c *commandContext) resolver() (*deps.Resolver, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return deps.NewResolver(cfg, deps.WithLogger(c.cliLogger())), nil
}

func (c *commandContext) openHistory() (*history.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return history.Open(cfg)
}

// newRunner wires the runner the same way the daemon does. store may be nil
// to skip history.
func (c *commandContext) newRunner(resolver *deps.Resolver, store *history.Store, notifier notifications.Service) (*compress.Runner, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	opts := compress.OptionsFromConfig(cfg)
	opts.Binaries = resolver
	opts.Gate = resolver.Gate()
	opts.Logger = c.cliLogger()
	if store != nil {
		opts.Recorder = store
	}
	if notifier != nil {
		opts.Notifier = notifications.NewJobNotifier(notifier, c.cliLogger())
	}
	return compress.NewRunner(opts), nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
