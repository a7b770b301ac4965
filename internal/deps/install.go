package deps

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"shrink/internal/fileutil"
	"shrink/internal/logging"
	"shrink/internal/services"
)

const (
	installLockName  = ".install.lock"
	lockRetryDelay   = 200 * time.Millisecond
	bytesPerMegabyte = 1 << 20
)

// InstallEventType tags an install stream event.
type InstallEventType string

const (
	InstallProgress  InstallEventType = "progress"
	InstallCompleted InstallEventType = "completed"
	InstallError     InstallEventType = "error"
)

// InstallEvent is emitted while Install runs. The stream ends with exactly one
// completed or error event.
type InstallEvent struct {
	Type       InstallEventType `json:"type"`
	Percent    float64          `json:"percent,omitempty"`
	Dependency string           `json:"dependency,omitempty"`
	Installed  []string         `json:"installed,omitempty"`
	Err        error            `json:"-"`
	Message    string           `json:"error,omitempty"`
}

// Install downloads and extracts every missing dependency for the running
// platform, one at a time. The first failure aborts the remaining queue.
// Compression jobs are refused while Install holds the gate.
func (r *Resolver) Install(ctx context.Context, emit func(InstallEvent)) error {
	if emit == nil {
		emit = func(InstallEvent) {}
	}
	fail := func(err error) error {
		emit(InstallEvent{Type: InstallError, Err: err, Message: err.Error()})
		return err
	}

	if strings.TrimSpace(r.dir) == "" {
		return fail(services.Wrap(services.ErrConfiguration, "deps", "install", "dependency directory not configured", nil))
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fail(services.Wrap(services.ErrIOFailed, "deps", "install", "create dependency directory", err))
	}

	release, err := r.gate.lock(ctx)
	if err != nil {
		return fail(services.Wrap(services.ErrCanceled, "deps", "install", "wait for running jobs", err))
	}
	defer release()

	lock := flock.New(filepath.Join(r.dir, installLockName))
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil || !locked {
		return fail(services.Wrap(services.ErrIOFailed, "deps", "install", "acquire install lock", err))
	}
	defer func() {
		_ = lock.Unlock()
	}()

	missing := r.Check().Missing
	total := len(missing)
	installed := make([]string, 0, total)
	for i, dep := range missing {
		logger := r.logger.With(logging.String("dependency", dep.Name), logging.String("url", dep.URL))
		logger.Info("installing dependency",
			logging.Int("index", i+1),
			logging.Int("total", total),
			logging.Float64("expected_size_mb", dep.SizeMB),
		)
		report := func(p float64) {
			emit(InstallEvent{
				Type:       InstallProgress,
				Percent:    p/float64(total) + float64(i)*100/float64(total),
				Dependency: dep.Name,
			})
		}
		if err := r.installOne(ctx, dep, report); err != nil {
			logging.ErrorWithContext(logger, "dependency install failed", "dependency_install_failed",
				logging.String(logging.FieldErrorHint, "check network access or set binaries.ffmpeg and binaries.ffprobe"),
				logging.Error(err),
			)
			return fail(err)
		}
		installed = append(installed, dep.Name)
		logger.Info("dependency installed", logging.String(logging.FieldEventType, "dependency_installed"))
	}
	emit(InstallEvent{Type: InstallCompleted, Percent: 100, Installed: installed})
	return nil
}

func (r *Resolver) installOne(ctx context.Context, dep Dependency, report func(float64)) error {
	archive := filepath.Join(r.dir, ".download-"+uuid.NewString()+".zip")
	defer func() {
		_ = fileutil.RemoveIfExists(archive)
	}()

	if err := r.download(ctx, dep, archive, report); err != nil {
		return err
	}
	extracted, err := extract(archive, r.dir)
	if err != nil {
		return services.Wrap(services.ErrIOFailed, "deps", "extract", dep.Name, err)
	}
	if len(extracted) == 0 {
		return services.Wrap(services.ErrIOFailed, "deps", "extract", dep.Name+": archive contained no files", nil)
	}
	if dep.Executable && r.caps.NeedsChmod {
		for _, path := range extracted {
			if err := os.Chmod(path, 0o755); err != nil {
				return services.Wrap(services.ErrIOFailed, "deps", "chmod", path, err)
			}
		}
	}
	return nil
}

func (r *Resolver) download(ctx context.Context, dep Dependency, dst string, report func(float64)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, dep.URL, nil)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "deps", "download", "build request for "+dep.Name, err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrDependencyMissing, "deps", "download", dep.Name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return services.Wrap(services.ErrDependencyMissing, "deps", "download", fmt.Sprintf("%s returned %d", dep.URL, resp.StatusCode), nil)
	}

	expected := resp.ContentLength
	if expected <= 0 {
		expected = int64(dep.SizeMB * bytesPerMegabyte)
	}
	body := &progressReader{reader: resp.Body, total: expected, report: report}
	if err := fileutil.WriteFrom(body, dst, 0o644); err != nil {
		if ctx.Err() != nil {
			return services.Wrap(services.ErrCanceled, "deps", "download", dep.Name, ctx.Err())
		}
		return services.Wrap(services.ErrIOFailed, "deps", "download", dep.Name, err)
	}
	report(100)
	return nil
}

type progressReader struct {
	reader io.Reader
	read   int64
	total  int64
	last   int
	report func(float64)
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.reader.Read(buf)
	p.read += int64(n)
	if p.total > 0 {
		percent := int(p.read * 100 / p.total)
		if percent > 99 {
			percent = 99
		}
		if percent > p.last {
			p.last = percent
			p.report(float64(percent))
		}
	}
	return n, err
}

// extract unpacks the regular files of a zip archive flat into dir and
// returns their paths. Directory structure inside the archive is discarded.
func extract(archive, dir string) ([]string, error) {
	reader, err := zip.OpenReader(archive)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	var written []string
	for _, file := range reader.File {
		if file.FileInfo().IsDir() || strings.HasPrefix(file.Name, "__MACOSX/") {
			continue
		}
		name := filepath.Base(filepath.FromSlash(file.Name))
		if name == "." || name == string(filepath.Separator) || strings.HasPrefix(name, ".") {
			continue
		}
		dst := filepath.Join(dir, name)
		if err := extractFile(file, dst); err != nil {
			return written, fmt.Errorf("extract %s: %w", file.Name, err)
		}
		written = append(written, dst)
	}
	return written, nil
}

func extractFile(file *zip.File, dst string) error {
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()
	mode := file.Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}
	return fileutil.WriteFrom(src, dst, mode)
}
