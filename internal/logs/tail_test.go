package logs_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"shrink/internal/logs"
)

func TestTailLastLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shrinkd-1.log")
	if err := os.WriteFile(path, []byte("a\nb\nc\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 2})
	if err != nil {
		t.Fatalf("tail returned error: %v", err)
	}
	if len(result.Lines) != 2 || result.Lines[0] != "b" || result.Lines[1] != "c" {
		t.Fatalf("unexpected lines: %#v", result.Lines)
	}
	if result.Offset != 6 {
		t.Fatalf("offset = %d, want 6", result.Offset)
	}
}

func TestTailFromOffsetLeavesPartialLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shrink.log")
	if err := os.WriteFile(path, []byte("one\ntwo\nthr"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: 4})
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(result.Lines) != 1 || result.Lines[0] != "two" || result.Offset != 8 {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestTailMissingFile(t *testing.T) {
	result, err := logs.Tail(context.Background(), filepath.Join(t.TempDir(), "none.log"), logs.TailOptions{Offset: -1, Limit: 5})
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(result.Lines) != 0 || result.Offset != 0 {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestTailWaitsForNewLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shrinkd.log")
	if err := os.WriteFile(path, []byte("start\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	initial, err := logs.Tail(ctx, path, logs.TailOptions{Offset: -1, Limit: 1})
	if err != nil || len(initial.Lines) != 1 {
		t.Fatalf("initial tail: %#v %v", initial, err)
	}

	done := make(chan logs.TailResult, 1)
	go func() {
		res, err := logs.Tail(ctx, path, logs.TailOptions{Offset: initial.Offset, Wait: 5 * time.Second})
		if err != nil {
			t.Errorf("follow tail error: %v", err)
		}
		done <- res
	}()

	time.Sleep(200 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString("later\n"); err != nil {
		t.Fatalf("append log: %v", err)
	}
	_ = f.Close()

	select {
	case res := <-done:
		if len(res.Lines) != 1 || res.Lines[0] != "later" {
			t.Fatalf("unexpected follow lines: %#v", res.Lines)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("tail follow did not return")
	}
}

func TestLatestPrefersPointer(t *testing.T) {
	dir := t.TempDir()
	older := filepath.Join(dir, "shrinkd-a.log")
	newer := filepath.Join(dir, "shrink-b.log")
	for _, p := range []string{older, newer} {
		if err := os.WriteFile(p, []byte("x\n"), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(older, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	got, err := logs.Latest(dir)
	if err != nil || got != newer {
		t.Fatalf("Latest = %q, %v; want newest file %q", got, err, newer)
	}

	if err := os.Symlink(older, filepath.Join(dir, logs.CurrentPointer)); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	got, err = logs.Latest(dir)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	want, _ := filepath.EvalSymlinks(older)
	if got != want {
		t.Fatalf("Latest = %q, want pointer target %q", got, want)
	}
}

func TestLatestEmptyDir(t *testing.T) {
	if _, err := logs.Latest(t.TempDir()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
}
