package media

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Collection is the result of expanding user supplied paths into assets.
type Collection struct {
	Assets []Asset `json:"assets"`
	// Skipped lists files that exist but are not a supported image or video.
	Skipped []string `json:"skipped"`
}

// Collect expands files and directories into assets with fresh IDs.
// Directories contribute their supported files; subdirectories are only
// entered when recursive is set. Hidden entries are ignored and a path named
// twice yields one asset.
func Collect(paths []string, recursive bool) (Collection, error) {
	out := Collection{Assets: []Asset{}, Skipped: []string{}}
	seen := make(map[string]struct{})

	add := func(path string) error {
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", path, err)
		}
		if _, dup := seen[abs]; dup {
			return nil
		}
		seen[abs] = struct{}{}
		if Classify(abs) == KindUnknown {
			out.Skipped = append(out.Skipped, abs)
			return nil
		}
		asset, err := Stat(uuid.NewString(), abs)
		if err != nil {
			return err
		}
		out.Assets = append(out.Assets, asset)
		return nil
	}

	for _, raw := range paths {
		path := strings.TrimSpace(raw)
		if path == "" {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			return Collection{}, fmt.Errorf("stat %s: %w", path, err)
		}
		if !info.IsDir() {
			if err := add(path); err != nil {
				return Collection{}, err
			}
			continue
		}
		root := path
		err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if p != root && strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				if p != root && !recursive {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}
			return add(p)
		})
		if err != nil {
			return Collection{}, fmt.Errorf("scan %s: %w", root, err)
		}
	}
	return out, nil
}
