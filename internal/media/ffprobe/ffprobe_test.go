package ffprobe_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"shrink/internal/media/ffprobe"
	"shrink/internal/services"
	"shrink/internal/testsupport"
)

func TestProbeParsesPlainQueries(t *testing.T) {
	testsupport.RequireShell(t)
	bin := testsupport.FakeFFprobe(t, t.TempDir(), "10.500000", "128000", "6000000")

	md, err := ffprobe.Probe(context.Background(), bin, "/videos/clip.mp4")
	if err != nil {
		t.Fatalf("Probe returned error: %v", err)
	}
	if md.DurationSeconds != 10.5 {
		t.Fatalf("unexpected duration %v", md.DurationSeconds)
	}
	if md.AudioBitrateBps != 128000 || md.VideoBitrateBps != 6000000 {
		t.Fatalf("unexpected bitrates %+v", md)
	}
}

func TestProbeUnknownFieldsDefaultToZero(t *testing.T) {
	testsupport.RequireShell(t)
	bin := testsupport.FakeFFprobe(t, t.TempDir(), "", "garbage", "")

	md, err := ffprobe.Probe(context.Background(), bin, "/videos/clip.mp4")
	if err != nil {
		t.Fatalf("unparseable values should not fail the probe, got %v", err)
	}
	if md != (ffprobe.Metadata{}) {
		t.Fatalf("expected zero metadata, got %+v", md)
	}
}

func TestProbeFailingQueryIsNonFatal(t *testing.T) {
	testsupport.RequireShell(t)
	bin := testsupport.WriteExecutable(t, t.TempDir(), "ffprobe", `case "$*" in
  *format=duration*) echo "clip.mp4: Invalid data" 1>&2; exit 1 ;;
  *) echo 64000 ;;
esac`)

	md, err := ffprobe.Probe(context.Background(), bin, "/videos/clip.mp4")
	if !errors.Is(err, services.ErrProbeFailed) {
		t.Fatalf("expected ErrProbeFailed, got %v", err)
	}
	if services.Fatal(err) {
		t.Fatal("probe failure must not be fatal")
	}
	if md.DurationSeconds != 0 || md.AudioBitrateBps != 64000 {
		t.Fatalf("expected partial metadata, got %+v", md)
	}
}

func TestProbeMissingBinary(t *testing.T) {
	_, err := ffprobe.Probe(context.Background(), filepath.Join(t.TempDir(), "ffprobe"), "/videos/clip.mp4")
	if !errors.Is(err, services.ErrDependencyMissing) {
		t.Fatalf("expected ErrDependencyMissing, got %v", err)
	}
}

func TestProbeUnstartableBinaryIsSpawnFailure(t *testing.T) {
	testsupport.RequireShell(t)
	bin := filepath.Join(t.TempDir(), "ffprobe")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\necho 1\n"), 0o644); err != nil {
		t.Fatalf("write ffprobe: %v", err)
	}

	_, err := ffprobe.Probe(context.Background(), bin, "/videos/clip.mp4")
	if !errors.Is(err, services.ErrSpawnFailed) {
		t.Fatalf("expected ErrSpawnFailed, got %v", err)
	}
	if errors.Is(err, services.ErrDependencyMissing) {
		t.Fatal("a present but unstartable binary is not a missing dependency")
	}
}

func TestProbeCanceledContext(t *testing.T) {
	testsupport.RequireShell(t)
	bin := testsupport.FakeFFprobe(t, t.TempDir(), "10.5", "128000", "6000000")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ffprobe.Probe(ctx, bin, "/videos/clip.mp4")
	if !errors.Is(err, services.ErrCanceled) {
		t.Fatalf("expected ErrCanceled, got %v", err)
	}
	if errors.Is(err, services.ErrDependencyMissing) || errors.Is(err, services.ErrProbeFailed) {
		t.Fatalf("cancellation misclassified: %v", err)
	}
}

func TestProbeDeadlineIsTimeout(t *testing.T) {
	testsupport.RequireShell(t)
	bin := testsupport.WriteExecutable(t, t.TempDir(), "ffprobe", "exec sleep 5")
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := ffprobe.Probe(ctx, bin, "/videos/clip.mp4")
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestInspectDecodesJSON(t *testing.T) {
	testsupport.RequireShell(t)
	bin := testsupport.FakeFFprobe(t, t.TempDir(), "12.0", "", "")

	result, err := ffprobe.Inspect(context.Background(), bin, "/videos/clip.mp4")
	if err != nil {
		t.Fatalf("Inspect returned error: %v", err)
	}
	if result.DurationSeconds() != 12 {
		t.Fatalf("unexpected duration %v", result.DurationSeconds())
	}
	video, ok := result.VideoStream()
	if !ok || video.Width != 640 || video.Height != 360 {
		t.Fatalf("unexpected video stream %+v", video)
	}
	if result.Summary() != "12.0s, h264 640x360" {
		t.Fatalf("unexpected summary %q", result.Summary())
	}
	if len(result.RawJSON()) == 0 {
		t.Fatal("expected raw json retained")
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := ffprobe.Result{Format: ffprobe.Format{Duration: "bad", BitRate: "-1"}}
	if result.DurationSeconds() != 0 {
		t.Fatalf("expected duration 0, got %v", result.DurationSeconds())
	}
	if result.BitRate() != 0 {
		t.Fatalf("expected bitrate 0, got %d", result.BitRate())
	}
}
