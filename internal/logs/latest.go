package logs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CurrentPointer is the link the daemon keeps to its active session log.
const CurrentPointer = "shrinkd.log"

// Latest returns the log file to read in dir: the daemon pointer when it
// resolves, otherwise the most recently modified session log. It returns an
// error wrapping os.ErrNotExist when dir holds no logs.
func Latest(dir string) (string, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return "", fmt.Errorf("log directory not configured: %w", os.ErrNotExist)
	}
	if target, err := filepath.EvalSymlinks(filepath.Join(dir, CurrentPointer)); err == nil {
		return target, nil
	}

	matches, err := filepath.Glob(filepath.Join(dir, "*.log"))
	if err != nil {
		return "", fmt.Errorf("list logs: %w", err)
	}
	var newest string
	var newestMod int64
	for _, candidate := range matches {
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() {
			continue
		}
		if mod := info.ModTime().UnixNano(); newest == "" || mod > newestMod {
			newest, newestMod = candidate, mod
		}
	}
	if newest == "" {
		return "", fmt.Errorf("no logs in %s: %w", dir, os.ErrNotExist)
	}
	return newest, nil
}
