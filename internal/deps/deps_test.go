package deps_test

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"shrink/internal/config"
	"shrink/internal/deps"
	"shrink/internal/platform"
	"shrink/internal/services"
	"shrink/internal/testsupport"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []deps.Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  "},
	}

	results := deps.CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}
	if results[1].Available {
		t.Fatalf("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatalf("expected detail message for missing binary")
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("unexpected blank status: %#v", results[2])
	}
}

func TestCheckFreshDirectoryReportsEveryPlatformEntry(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	resolver := deps.NewResolver(cfg, deps.WithPlatform(platform.Lookup("linux")))

	report := resolver.Check()
	if report.IsInstalled {
		t.Fatal("fresh directory reported as installed")
	}
	want := deps.ForPlatform(deps.DefaultCatalog(), "linux")
	if len(report.Missing) != len(want) {
		t.Fatalf("missing = %d entries, want %d", len(report.Missing), len(want))
	}
	for i, dep := range report.Missing {
		if dep.Platform != "linux" {
			t.Fatalf("entry %d platform = %q", i, dep.Platform)
		}
		if dep != want[i] {
			t.Fatalf("entry %d = %#v, want %#v", i, dep, want[i])
		}
	}
}

func TestCheckMatchesFilePrefix(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.DepsDir, "ffmpeg.exe"), 4)
	resolver := deps.NewResolver(cfg, deps.WithPlatform(platform.Lookup("windows")))

	report := resolver.Check()
	if report.IsInstalled {
		t.Fatal("ffprobe missing but reported installed")
	}
	if len(report.Missing) != 1 || report.Missing[0].Name != "ffprobe" {
		t.Fatalf("missing = %#v", report.Missing)
	}

	testsupport.WriteFile(t, filepath.Join(cfg.Paths.DepsDir, "ffprobe.exe"), 4)
	if report := resolver.Check(); !report.IsInstalled || len(report.Missing) != 0 {
		t.Fatalf("expected installed, got %#v", report)
	}
}

func TestCatalogFromConfigReplacesPlatform(t *testing.T) {
	catalog := deps.CatalogFromConfig([]config.Dependency{
		{Name: "ffmpeg", Platform: "Linux", URL: "https://mirror.example/ffmpeg.zip", Executable: true},
	})
	linux := deps.ForPlatform(catalog, "linux")
	if len(linux) != 1 || linux[0].URL != "https://mirror.example/ffmpeg.zip" {
		t.Fatalf("linux entries = %#v", linux)
	}
	if len(deps.ForPlatform(catalog, "macos")) != 2 {
		t.Fatal("macos entries should be untouched")
	}
}

func zipArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, body := range files {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("zip create: %v", err)
		}
		if _, err := f.Write([]byte(body)); err != nil {
			t.Fatalf("zip write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func TestInstallDownloadsExtractsAndMarksExecutable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not meaningful on windows")
	}
	archives := map[string][]byte{
		"/ffmpeg.zip":  zipArchive(t, map[string]string{"ffmpeg": "#!/bin/sh\nexit 0\n"}),
		"/ffprobe.zip": zipArchive(t, map[string]string{"bin/ffprobe": "#!/bin/sh\nexit 0\n", "__MACOSX/._ffprobe": "junk"}),
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := archives[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(body)
	}))
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t)
	resolver := deps.NewResolver(cfg,
		deps.WithPlatform(platform.Lookup("linux")),
		deps.WithHTTPClient(server.Client()),
		deps.WithCatalog([]deps.Dependency{
			{Name: "ffmpeg", Platform: "linux", URL: server.URL + "/ffmpeg.zip", Executable: true},
			{Name: "ffprobe", Platform: "linux", URL: server.URL + "/ffprobe.zip", Executable: true},
		}),
	)

	var events []deps.InstallEvent
	if err := resolver.Install(context.Background(), func(ev deps.InstallEvent) {
		events = append(events, ev)
	}); err != nil {
		t.Fatalf("Install: %v", err)
	}

	if len(events) == 0 || events[len(events)-1].Type != deps.InstallCompleted {
		t.Fatalf("expected completed terminal event, got %#v", events)
	}
	last := -1.0
	for _, ev := range events[:len(events)-1] {
		if ev.Type != deps.InstallProgress {
			t.Fatalf("unexpected event before completion: %#v", ev)
		}
		if ev.Percent < last {
			t.Fatalf("progress went backwards: %v after %v", ev.Percent, last)
		}
		last = ev.Percent
	}

	for _, name := range []string{"ffmpeg", "ffprobe"} {
		info, err := os.Stat(filepath.Join(cfg.Paths.DepsDir, name))
		if err != nil {
			t.Fatalf("stat %s: %v", name, err)
		}
		if info.Mode().Perm()&0o111 == 0 {
			t.Fatalf("%s not executable: %o", name, info.Mode().Perm())
		}
	}
	entries, err := os.ReadDir(cfg.Paths.DepsDir)
	if err != nil {
		t.Fatalf("read deps dir: %v", err)
	}
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".zip") || strings.HasPrefix(entry.Name(), "._") {
			t.Fatalf("unexpected leftover %s", entry.Name())
		}
	}
	if report := resolver.Check(); !report.IsInstalled {
		t.Fatalf("expected installed after Install, missing %#v", report.Missing)
	}
}

func TestInstallAbortsQueueOnFirstFailure(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "gone", http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t)
	resolver := deps.NewResolver(cfg,
		deps.WithPlatform(platform.Lookup("linux")),
		deps.WithHTTPClient(server.Client()),
		deps.WithCatalog([]deps.Dependency{
			{Name: "ffmpeg", Platform: "linux", URL: server.URL + "/ffmpeg.zip"},
			{Name: "ffprobe", Platform: "linux", URL: server.URL + "/ffprobe.zip"},
		}),
	)

	var events []deps.InstallEvent
	err := resolver.Install(context.Background(), func(ev deps.InstallEvent) {
		events = append(events, ev)
	})
	if err == nil {
		t.Fatal("expected install error")
	}
	if !errors.Is(err, services.ErrDependencyMissing) {
		t.Fatalf("expected ErrDependencyMissing, got %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected queue to stop after first failure, server saw %d requests", hits.Load())
	}
	if len(events) == 0 || events[len(events)-1].Type != deps.InstallError {
		t.Fatalf("expected error terminal event, got %#v", events)
	}
	if !strings.Contains(events[len(events)-1].Message, "404") {
		t.Fatalf("error event should name the failure, got %q", events[len(events)-1].Message)
	}
}

func TestGateRefusesJobsWhileInstalling(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t)
	gate := &deps.Gate{}
	resolver := deps.NewResolver(cfg,
		deps.WithPlatform(platform.Lookup("linux")),
		deps.WithHTTPClient(server.Client()),
		deps.WithGate(gate),
		deps.WithCatalog([]deps.Dependency{{Name: "ffmpeg", Platform: "linux", URL: server.URL + "/ffmpeg.zip"}}),
	)

	done := make(chan error, 1)
	go func() { done <- resolver.Install(context.Background(), nil) }()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("install never reached the download")
	}
	if _, ok := gate.Acquire(); ok {
		t.Fatal("job admitted while install in progress")
	}
	close(release)
	if err := <-done; err == nil {
		t.Fatal("expected install error from failing server")
	}
	releaseJob, ok := gate.Acquire()
	if !ok {
		t.Fatal("job refused after install finished")
	}
	releaseJob()
}

func TestInstallWaitsForRunningJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	gate := &deps.Gate{}
	resolver := deps.NewResolver(cfg, deps.WithPlatform(platform.Lookup("linux")), deps.WithGate(gate))

	releaseJob, ok := gate.Acquire()
	if !ok {
		t.Fatal("idle gate refused a job")
	}
	defer releaseJob()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := resolver.Install(ctx, nil)
	if !errors.Is(err, services.ErrCanceled) {
		t.Fatalf("expected install to give up waiting, got %v", err)
	}
}

func TestBinaryResolutionOrder(t *testing.T) {
	testsupport.RequireShell(t)
	emptyPath := t.TempDir()
	t.Setenv("PATH", emptyPath)

	cfg := testsupport.NewConfig(t)
	resolver := deps.NewResolver(cfg, deps.WithPlatform(platform.Lookup("linux")))
	if _, err := resolver.Binary("ffmpeg"); !errors.Is(err, services.ErrDependencyMissing) {
		t.Fatalf("expected ErrDependencyMissing, got %v", err)
	}

	onPath := testsupport.WriteExecutable(t, emptyPath, "ffmpeg", "exit 0")
	got, err := resolver.Binary("ffmpeg")
	if err != nil || got != onPath {
		t.Fatalf("PATH lookup = %q, %v; want %q", got, err, onPath)
	}

	inDeps := testsupport.WriteExecutable(t, cfg.Paths.DepsDir, "ffmpeg", "exit 0")
	if got, err := resolver.Binary("ffmpeg"); err != nil || got != inDeps {
		t.Fatalf("deps dir lookup = %q, %v; want %q", got, err, inDeps)
	}

	override := testsupport.WriteExecutable(t, t.TempDir(), "custom-ffmpeg", "exit 0")
	cfg.Binaries.FFmpeg = override
	resolver = deps.NewResolver(cfg, deps.WithPlatform(platform.Lookup("linux")))
	if got, err := resolver.Binary("ffmpeg"); err != nil || got != override {
		t.Fatalf("override lookup = %q, %v; want %q", got, err, override)
	}

	cfg.Binaries.FFmpeg = filepath.Join(t.TempDir(), "missing")
	resolver = deps.NewResolver(cfg, deps.WithPlatform(platform.Lookup("linux")))
	if _, err := resolver.Binary("ffmpeg"); !errors.Is(err, services.ErrDependencyMissing) {
		t.Fatalf("broken override should be DependencyMissing, got %v", err)
	}
}
