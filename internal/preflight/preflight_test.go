package preflight_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"shrink/internal/deps"
	"shrink/internal/platform"
	"shrink/internal/preflight"
	"shrink/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := preflight.CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := preflight.CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := preflight.CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckHardwareEncoder(t *testing.T) {
	testsupport.RequireShell(t)
	dir := t.TempDir()
	ffmpeg := testsupport.WriteExecutable(t, dir, "ffmpeg", `cat <<'OUT'
Encoders:
 V....D libx264              libx264 H.264 / AVC / MPEG-4 AVC
 V....D h264_nvenc           NVIDIA NVENC H.264 encoder
OUT
`)

	if res := preflight.CheckHardwareEncoder(context.Background(), ffmpeg, "h264_nvenc"); !res.Passed || !res.Optional {
		t.Fatalf("expected optional pass, got %+v", res)
	}
	if res := preflight.CheckHardwareEncoder(context.Background(), ffmpeg, "h264_qsv"); res.Passed {
		t.Fatalf("expected missing encoder to fail, got %+v", res)
	}
}

func TestCheckNtfy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/locked/json" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if res := preflight.CheckNtfy(context.Background(), srv.URL+"/shrink"); !res.Passed {
		t.Fatalf("expected pass, got %s", res.Detail)
	}
	if res := preflight.CheckNtfy(context.Background(), srv.URL+"/locked"); res.Passed {
		t.Fatal("expected auth failure")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := preflight.RunAll(context.Background(), nil, nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_ReportsMissingEncoders(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	t.Setenv("PATH", t.TempDir())
	resolver := deps.NewResolver(cfg, deps.WithPlatform(platform.Lookup("linux")))

	results := preflight.RunAll(context.Background(), cfg, resolver)
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d: %+v", len(results), results)
	}
	for _, r := range results[:3] {
		if !r.Passed {
			t.Errorf("directory check %q failed: %s", r.Name, r.Detail)
		}
	}
	for _, r := range results[3:] {
		if r.Passed {
			t.Errorf("expected %q to fail without binaries", r.Name)
		}
	}
	if preflight.Ready(results) {
		t.Fatal("expected not ready without encoders")
	}
}

func TestRunAll_ReadyWithBinaries(t *testing.T) {
	testsupport.RequireShell(t)
	cfg := testsupport.NewConfig(t)
	t.Setenv("PATH", t.TempDir())
	testsupport.WriteExecutable(t, cfg.Paths.DepsDir, "ffmpeg", "exit 0")
	testsupport.FakeFFprobe(t, cfg.Paths.DepsDir, "1.0", "", "")
	resolver := deps.NewResolver(cfg, deps.WithPlatform(platform.Lookup("linux")))

	results := preflight.RunAll(context.Background(), cfg, resolver)
	if !preflight.Ready(results) {
		t.Fatalf("expected ready, got %+v", results)
	}
}
