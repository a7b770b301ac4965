package api

import (
	"shrink/internal/compress"
	"shrink/internal/deps"
	"shrink/internal/media"
	"shrink/internal/preflight"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// JobsRequest is the body of a job submission.
type JobsRequest struct {
	Jobs []compress.Request `json:"jobs"`
}

// HistoryEntry describes a recorded job in a transport-friendly format.
type HistoryEntry struct {
	ID           int64  `json:"id"`
	JobID        string `json:"job_id"`
	InputPath    string `json:"input_path"`
	Kind         string `json:"kind"`
	Status       string `json:"status"`
	OutputPath   string `json:"output_path,omitempty"`
	EncodingPath string `json:"encoding_path,omitempty"`
	InputBytes   int64  `json:"input_bytes"`
	OutputBytes  int64  `json:"output_bytes"`
	SavedBytes   int64  `json:"saved_bytes"`
	ErrorKind    string `json:"error_kind,omitempty"`
	ErrorMessage string `json:"error,omitempty"`
	StartedAt    string `json:"started_at,omitempty"`
	FinishedAt   string `json:"finished_at,omitempty"`
	ElapsedMs    int64  `json:"elapsed_ms"`
}

// HistorySummary aggregates the whole history.
type HistorySummary struct {
	Completed  int   `json:"completed"`
	Failed     int   `json:"failed"`
	InputBytes int64 `json:"input_bytes"`
	SavedBytes int64 `json:"saved_bytes"`
}

// HistoryResponse wraps a page of history entries.
type HistoryResponse struct {
	Entries []HistoryEntry `json:"entries"`
	Summary HistorySummary `json:"summary"`
}

// ClearResponse reports how many rows a clear removed.
type ClearResponse struct {
	Removed int64 `json:"removed"`
}

// DependencyStatus captures availability of an external binary.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DependenciesResponse combines the installer view with binary resolution.
type DependenciesResponse struct {
	Platform    string             `json:"platform"`
	Directory   string             `json:"directory"`
	IsInstalled bool               `json:"is_installed"`
	Missing     []deps.Dependency  `json:"missing"`
	Binaries    []DependencyStatus `json:"binaries"`
}

// HealthResponse reports daemon readiness.
type HealthResponse struct {
	Ready   bool               `json:"ready"`
	Version string             `json:"version"`
	Checks  []preflight.Result `json:"checks"`
}

// FilesRequest asks the daemon to expand paths into media assets.
type FilesRequest struct {
	Paths     []string `json:"paths"`
	Recursive bool     `json:"recursive"`
}

// FilesResponse lists the assets found for a FilesRequest.
type FilesResponse = media.Collection

// PreviewResponse carries a thumbnail data URL.
type PreviewResponse struct {
	Path    string `json:"path"`
	DataURL string `json:"data_url"`
}

// LogsResponse carries a slice of the daemon log and the offset to poll from
// next.
type LogsResponse struct {
	Path   string   `json:"path"`
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
