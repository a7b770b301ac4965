package compress

import (
	"time"

	"shrink/internal/encoding"
	"shrink/internal/media"
)

// State is a job lifecycle state.
type State string

const (
	StatePending    State = "pending"
	StateProbing    State = "probing"
	StateFinalizing State = "finalizing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// encodingState names the Encoding state for a plan path, e.g.
// "encoding(hardware)".
func encodingState(path encoding.Path) State {
	return State("encoding(" + string(path) + ")")
}

// EventType tags a job stream event.
type EventType string

const (
	EventProgress EventType = "progress"
	EventResult   EventType = "result"
	EventError    EventType = "error"
)

// Event is one message on a job stream. Progress percents never decrease; a
// successful stream ends with a 100 progress event followed by the result.
type Event struct {
	JobID     string    `json:"job_id"`
	Type      EventType `json:"type"`
	Percent   float64   `json:"percent,omitempty"`
	Result    *Result   `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	ErrorKind string    `json:"error_kind,omitempty"`
	Err       error     `json:"-"`
}

// Result describes a finished job.
type Result struct {
	JobID           string        `json:"job_id"`
	InputPath       string        `json:"input_path"`
	OutputPath      string        `json:"output_path"`
	InputSizeBytes  int64         `json:"input_size_bytes"`
	OutputSizeBytes int64         `json:"output_size_bytes"`
	Elapsed         time.Duration `json:"-"`
	ElapsedMs       int64         `json:"elapsed_ms"`
	EncodingPath    encoding.Path `json:"encoding_path"`
	ReplacedInput   bool          `json:"replaced_input"`
}

// Request is one compression job. Kind may be empty, in which case it is
// classified from the path extension. Only the settings matching the kind
// are consulted.
type Request struct {
	ID    string                 `json:"id"`
	Path  string                 `json:"path"`
	Kind  media.Kind             `json:"kind,omitempty"`
	Image encoding.ImageSettings `json:"image"`
	Video encoding.VideoSettings `json:"video"`
}

// Outcome is handed to recorders and notifiers once a job has terminated.
type Outcome struct {
	JobID          string
	Path           string
	Kind           media.Kind
	InputSizeBytes int64
	Result         *Result
	Err            error
	StartedAt      time.Time
	FinishedAt     time.Time
}
