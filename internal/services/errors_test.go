package services_test

import (
	"errors"
	"strings"
	"testing"

	"shrink/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrEncodingFailed, "encoding", "software", "ffmpeg exited", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrEncodingFailed) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"encoding", "software", "ffmpeg exited"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestKindMapping(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{services.Wrap(services.ErrDependencyMissing, "preflight", "resolve", "ffmpeg", nil), "DependencyMissing"},
		{services.Wrap(services.ErrIOFailed, "finalize", "rename", "", errors.New("exdev")), "IOFailed"},
		{services.Wrap(services.ErrSpawnFailed, "encoding", "start", "", nil), "SpawnFailed"},
		{errors.New("plain"), "EncodingFailed"},
		{nil, ""},
	}
	for _, tc := range cases {
		if got := services.Kind(tc.err); got != tc.want {
			t.Fatalf("Kind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestFatalDegradesProbeAndPreview(t *testing.T) {
	if services.Fatal(services.Wrap(services.ErrProbeFailed, "probing", "duration", "", nil)) {
		t.Fatal("expected probe failure to be non-fatal")
	}
	if services.Fatal(services.Wrap(services.ErrPreviewFailed, "preview", "frame", "", nil)) {
		t.Fatal("expected preview failure to be non-fatal")
	}
	if !services.Fatal(services.Wrap(services.ErrIOFailed, "finalize", "rename", "", nil)) {
		t.Fatal("expected io failure to be fatal")
	}
	if services.Fatal(nil) {
		t.Fatal("nil error must not be fatal")
	}
}
