package deps

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"shrink/internal/config"
	"shrink/internal/logging"
	"shrink/internal/platform"
	"shrink/internal/services"
)

// HTTPDoer describes the HTTP client used to download archives.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Report is the result of a dependency check.
type Report struct {
	Missing     []Dependency `json:"missing"`
	IsInstalled bool         `json:"is_installed"`
}

// Resolver locates encoder binaries and installs missing ones into the
// dependency directory.
type Resolver struct {
	dir       string
	caps      platform.Capabilities
	catalog   []Dependency
	overrides map[string]string
	client    HTTPDoer
	gate      *Gate
	logger    *slog.Logger
}

// Option customises a Resolver.
type Option func(*Resolver)

// WithPlatform replaces the detected platform capabilities.
func WithPlatform(caps platform.Capabilities) Option {
	return func(r *Resolver) { r.caps = caps }
}

// WithCatalog replaces the catalog derived from configuration.
func WithCatalog(catalog []Dependency) Option {
	return func(r *Resolver) { r.catalog = catalog }
}

// WithHTTPClient sets the client used for downloads.
func WithHTTPClient(client HTTPDoer) Option {
	return func(r *Resolver) {
		if client != nil {
			r.client = client
		}
	}
}

// WithGate shares an install gate with the job runner.
func WithGate(gate *Gate) Option {
	return func(r *Resolver) { r.gate = gate }
}

// WithLogger sets the resolver logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver builds a resolver from configuration.
func NewResolver(cfg *config.Config, opts ...Option) *Resolver {
	r := &Resolver{
		caps:      platform.Current(),
		overrides: map[string]string{},
		client:    http.DefaultClient,
		gate:      &Gate{},
		logger:    logging.NewNop(),
	}
	if cfg != nil {
		r.dir = cfg.Paths.DepsDir
		r.catalog = CatalogFromConfig(cfg.Dependencies)
		r.overrides["ffmpeg"] = cfg.Binaries.FFmpeg
		r.overrides["ffprobe"] = cfg.Binaries.FFprobe
	} else {
		r.catalog = DefaultCatalog()
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "deps")
	return r
}

// Dir returns the dependency directory.
func (r *Resolver) Dir() string {
	return r.dir
}

// Platform returns the capabilities the resolver was built for.
func (r *Resolver) Platform() platform.Capabilities {
	return r.caps
}

// Gate returns the install gate shared with job runners.
func (r *Resolver) Gate() *Gate {
	return r.gate
}

// Entries returns the catalog entries for the running platform.
func (r *Resolver) Entries() []Dependency {
	return ForPlatform(r.catalog, r.caps.Name)
}

// Check reports which platform catalog entries have no file in the dependency
// directory. An entry is present when any file name starts with its name.
func (r *Resolver) Check() Report {
	names := r.listDir()
	report := Report{Missing: []Dependency{}}
	for _, dep := range r.Entries() {
		if !hasPrefix(names, dep.Name) {
			report.Missing = append(report.Missing, dep)
		}
	}
	report.IsInstalled = len(report.Missing) == 0
	return report
}

func (r *Resolver) listDir() []string {
	if strings.TrimSpace(r.dir) == "" {
		return nil
	}
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	return names
}

func hasPrefix(names []string, prefix string) bool {
	for _, name := range names {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// Binary resolves an absolute path for name. The configured override wins,
// then the dependency directory, then PATH.
func (r *Resolver) Binary(name string) (string, error) {
	if override := strings.TrimSpace(r.overrides[name]); override != "" {
		path, err := exec.LookPath(override)
		if err != nil {
			return "", services.Wrap(services.ErrDependencyMissing, "deps", "resolve", fmt.Sprintf("configured %s binary %q not usable", name, override), err)
		}
		return absolute(path), nil
	}
	if r.dir != "" {
		candidate := filepath.Join(r.dir, r.caps.Executable(name))
		if info, err := os.Stat(candidate); err == nil && isExecutable(info) {
			return candidate, nil
		}
	}
	if path, err := exec.LookPath(r.caps.Executable(name)); err == nil {
		return absolute(path), nil
	}
	return "", services.Wrap(services.ErrDependencyMissing, "deps", "resolve", fmt.Sprintf("%s not found in %s or PATH", name, r.dir), nil)
}

// Requirements lists the encoder binaries in the form CheckBinaries expects.
// Unresolvable binaries keep their bare name so the status row explains what
// is missing.
func (r *Resolver) Requirements() []Requirement {
	descriptions := map[string]string{
		"ffmpeg":  "Video encoder and frame extraction",
		"ffprobe": "Duration and bitrate probing",
	}
	reqs := make([]Requirement, 0, len(descriptions))
	for _, name := range []string{"ffmpeg", "ffprobe"} {
		command := name
		if resolved, err := r.Binary(name); err == nil {
			command = resolved
		}
		reqs = append(reqs, Requirement{Name: name, Command: command, Description: descriptions[name]})
	}
	return reqs
}

func absolute(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
