package main

import (
	"bytes"
	"strings"
	"testing"

	"shrink/internal/preflight"
)

func TestLevelForGradesChecks(t *testing.T) {
	cases := []struct {
		result preflight.Result
		want   checkLevel
	}{
		{preflight.Result{Passed: true}, levelPass},
		{preflight.Result{Passed: true, Optional: true}, levelPass},
		{preflight.Result{Optional: true}, levelWarn},
		{preflight.Result{}, levelFail},
	}
	for _, tc := range cases {
		if got := levelFor(tc.result); got != tc.want {
			t.Fatalf("levelFor(%+v) = %d, want %d", tc.result, got, tc.want)
		}
	}
}

func TestStatusBlockAlignsDetails(t *testing.T) {
	block := statusBlock{title: "Checks"}
	block.addCheck(preflight.Result{Name: "ffmpeg", Passed: true, Detail: "/usr/bin/ffmpeg"})
	block.addCheck(preflight.Result{Name: "hardware encoder", Optional: true, Detail: "h264_nvenc unavailable"})
	block.addCheck(preflight.Result{Name: "state dir"})

	lines := block.lines(false)
	want := []string{
		"Checks",
		"======",
		"  [ ok ] ffmpeg            /usr/bin/ffmpeg",
		"  [warn] hardware encoder  h264_nvenc unavailable",
		"  [FAIL] state dir",
	}
	if strings.Join(lines, "\n") != strings.Join(want, "\n") {
		t.Fatalf("unexpected block:\n%s", strings.Join(lines, "\n"))
	}
}

func TestWriteBlocksSeparatesSections(t *testing.T) {
	env := statusBlock{title: "Environment"}
	env.add(levelNote, "Platform", "linux")
	checks := statusBlock{title: "Checks"}
	checks.add(levelPass, "ffprobe", "")

	var buf bytes.Buffer
	writeBlocks(&buf, false, env, checks)
	got := buf.String()
	if !strings.Contains(got, "  [info] Platform  linux\n\nChecks\n") {
		t.Fatalf("sections not separated by a blank line:\n%s", got)
	}
	if strings.Contains(got, "\x1b[") {
		t.Fatalf("plain output must not carry escape codes: %q", got)
	}
	if shouldColorize(&buf) {
		t.Fatal("a buffer is never a terminal")
	}
}
