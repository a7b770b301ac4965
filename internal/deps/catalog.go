package deps

import (
	"strings"

	"shrink/internal/config"
)

// Dependency is one downloadable archive in the catalog.
type Dependency struct {
	Name       string  `json:"name"`
	Platform   string  `json:"platform"`
	URL        string  `json:"download_url"`
	SizeMB     float64 `json:"expected_size_mb"`
	Executable bool    `json:"is_executable"`
}

const ffbinariesRelease = "https://github.com/ffbinaries/ffbinaries-prebuilt/releases/download/v6.1/"

var defaultCatalog = []Dependency{
	{Name: "ffmpeg", Platform: "macos", URL: "https://evermeet.cx/ffmpeg/getrelease/zip", SizeMB: 26, Executable: true},
	{Name: "ffprobe", Platform: "macos", URL: "https://evermeet.cx/ffmpeg/getrelease/ffprobe/zip", SizeMB: 26, Executable: true},
	{Name: "ffmpeg", Platform: "windows", URL: ffbinariesRelease + "ffmpeg-6.1-win-64.zip", SizeMB: 30, Executable: true},
	{Name: "ffprobe", Platform: "windows", URL: ffbinariesRelease + "ffprobe-6.1-win-64.zip", SizeMB: 30, Executable: true},
	{Name: "ffmpeg", Platform: "linux", URL: ffbinariesRelease + "ffmpeg-6.1-linux-64.zip", SizeMB: 27, Executable: true},
	{Name: "ffprobe", Platform: "linux", URL: ffbinariesRelease + "ffprobe-6.1-linux-64.zip", SizeMB: 27, Executable: true},
}

// DefaultCatalog returns a copy of the built-in catalog.
func DefaultCatalog() []Dependency {
	out := make([]Dependency, len(defaultCatalog))
	copy(out, defaultCatalog)
	return out
}

// CatalogFromConfig merges configured entries over the built-in catalog. A
// platform named in the config has its built-in entries replaced wholesale.
func CatalogFromConfig(entries []config.Dependency) []Dependency {
	if len(entries) == 0 {
		return DefaultCatalog()
	}
	overridden := make(map[string]bool, len(entries))
	for _, entry := range entries {
		overridden[strings.ToLower(entry.Platform)] = true
	}
	var out []Dependency
	for _, dep := range defaultCatalog {
		if !overridden[dep.Platform] {
			out = append(out, dep)
		}
	}
	for _, entry := range entries {
		out = append(out, Dependency{
			Name:       strings.TrimSpace(entry.Name),
			Platform:   strings.ToLower(strings.TrimSpace(entry.Platform)),
			URL:        strings.TrimSpace(entry.URL),
			SizeMB:     entry.SizeMB,
			Executable: entry.Executable,
		})
	}
	return out
}

// ForPlatform filters the catalog down to one platform.
func ForPlatform(catalog []Dependency, platform string) []Dependency {
	var out []Dependency
	for _, dep := range catalog {
		if dep.Platform == platform {
			out = append(out, dep)
		}
	}
	return out
}
