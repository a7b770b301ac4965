package preflight

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"shrink/internal/deps"
	"shrink/internal/procrun"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := checkAccess(path); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckEncoders reports whether ffmpeg and ffprobe resolve. Both the daemon
// and the CLI use this to avoid duplicating the requirements list.
func CheckEncoders(resolver *deps.Resolver) []deps.Status {
	return deps.CheckBinaries(resolver.Requirements())
}

// CheckHardwareEncoder asks ffmpeg whether it was built with encoder. A
// failure here is optional: jobs fall back to software encoding.
func CheckHardwareEncoder(ctx context.Context, ffmpeg, encoder string) Result {
	const name = "Hardware encoder"

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	res, err := procrun.Run(checkCtx, ffmpeg, []string{"-hide_banner", "-encoders"})
	if err != nil {
		return Result{Name: name, Optional: true, Detail: fmt.Sprintf("%s (error: %v)", encoder, err)}
	}
	for _, line := range strings.Split(res.Stdout, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[1] == encoder {
			return Result{Name: name, Passed: true, Optional: true, Detail: encoder}
		}
	}
	return Result{Name: name, Optional: true, Detail: fmt.Sprintf("%s (not compiled into ffmpeg, software fallback only)", encoder)}
}

// CheckNtfy verifies the ntfy topic answers a poll request.
func CheckNtfy(ctx context.Context, topic string) Result {
	const name = "ntfy"

	base := strings.TrimRight(strings.TrimSpace(topic), "/")
	if base == "" {
		return Result{Name: name, Optional: true, Detail: "disabled"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base+"/json?poll=1&since=latest", nil)
	if err != nil {
		return Result{Name: name, Optional: true, Detail: fmt.Sprintf("check failed (%v)", err)}
	}

	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Result{Name: name, Optional: true, Detail: "check timed out"}
		}
		return Result{Name: name, Optional: true, Detail: fmt.Sprintf("check failed (%v)", err)}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return Result{Name: name, Passed: true, Optional: true, Detail: "Reachable"}
	case http.StatusUnauthorized, http.StatusForbidden:
		return Result{Name: name, Optional: true, Detail: "topic requires authentication"}
	default:
		return Result{Name: name, Optional: true, Detail: fmt.Sprintf("check failed (%d)", resp.StatusCode)}
	}
}
