package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// RequireShell skips tests that depend on POSIX shell stubs.
func RequireShell(t testing.TB) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}
}

// WriteExecutable writes a shell script to dir/name with mode 0755 and returns its path.
func WriteExecutable(t testing.TB, dir, name, body string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	target := filepath.Join(dir, name)
	script := "#!/bin/sh\n" + body
	if !strings.HasSuffix(script, "\n") {
		script += "\n"
	}
	if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	return target
}

// FakeFFprobe writes an ffprobe stub answering the plain duration and bitrate
// queries with the given raw values. An empty value prints "N/A".
func FakeFFprobe(t testing.TB, dir, duration, audioBitrate, videoBitrate string) string {
	t.Helper()
	value := func(v string) string {
		if v == "" {
			return "N/A"
		}
		return v
	}
	body := fmt.Sprintf(`case "$*" in
  *format=duration*) echo %q ;;
  *a:0*) echo %q ;;
  *v:0*) echo %q ;;
  *) echo '{"streams":[{"index":0,"codec_name":"h264","codec_type":"video","width":640,"height":360}],"format":{"duration":%q}}' ;;
esac
`, value(duration), value(audioBitrate), value(videoBitrate), value(duration))
	return WriteExecutable(t, dir, "ffprobe", body)
}

// FFmpegAttempt scripts one encoder attempt of the fake ffmpeg.
type FFmpegAttempt struct {
	// Lines are written to stderr before the output is produced.
	Lines []string
	// OutputBytes is the size of the file written at the output path. Zero
	// writes nothing.
	OutputBytes int
	ExitCode    int
}

// FakeFFmpeg writes an ffmpeg stub. Invocations that name an h264_* encoder
// follow hardware, everything else follows software. Every argv is appended
// to the returned log file, one invocation per line.
func FakeFFmpeg(t testing.TB, dir string, hardware, software FFmpegAttempt) (string, string) {
	t.Helper()
	logPath := filepath.Join(dir, "ffmpeg-args.log")
	body := fmt.Sprintf(`for last; do :; done
echo "$*" >> %q
mode=software
for a in "$@"; do
  case "$a" in h264_*) mode=hardware ;; esac
done
if [ "$mode" = hardware ]; then
%s
else
%s
fi
`, logPath, attemptScript(hardware), attemptScript(software))
	return WriteExecutable(t, dir, "ffmpeg", body), logPath
}

func attemptScript(a FFmpegAttempt) string {
	var b strings.Builder
	for _, line := range a.Lines {
		fmt.Fprintf(&b, "  printf '%%s\\n' %q 1>&2\n", line)
	}
	if a.OutputBytes > 0 {
		fmt.Fprintf(&b, "  head -c %d /dev/zero > \"$last\"\n", a.OutputBytes)
	}
	fmt.Fprintf(&b, "  exit %d", a.ExitCode)
	return b.String()
}

// ReadLines returns the non-empty lines of path, or nil when it does not exist.
func ReadLines(t testing.TB, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		t.Fatalf("read %s: %v", path, err)
	}
	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
