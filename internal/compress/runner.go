package compress

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"shrink/internal/config"
	"shrink/internal/encoding"
	"shrink/internal/logging"
	"shrink/internal/media"
	"shrink/internal/platform"
	"shrink/internal/services"
)

const (
	eventBuffer = 32
	// Progress events are dropped before they can take the slots reserved for
	// the terminal 100 and result events.
	terminalReserve = 2
)

// BinaryResolver resolves ffmpeg and ffprobe to absolute paths.
type BinaryResolver interface {
	Binary(name string) (string, error)
}

// JobGate admits jobs while no dependency install is running.
type JobGate interface {
	Acquire() (release func(), ok bool)
}

// Recorder persists terminal job outcomes.
type Recorder interface {
	Record(ctx context.Context, outcome Outcome) error
}

// Notifier is told about terminal job outcomes.
type Notifier interface {
	JobFinished(ctx context.Context, outcome Outcome)
}

// Options configures a Runner.
type Options struct {
	Tuning   encoding.Tuning
	Platform platform.Capabilities
	Binaries BinaryResolver
	Gate     JobGate
	// Timeout bounds each job. Zero means no limit beyond the caller's context.
	Timeout  time.Duration
	Logger   *slog.Logger
	Recorder Recorder
	Notifier Notifier
}

// OptionsFromConfig fills tuning, platform and timeout from cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Tuning:   encoding.TuningFromConfig(cfg),
		Platform: platform.Current(),
		Timeout:  cfg.JobTimeout(),
	}
}

// Runner executes compression jobs. It is safe for concurrent use.
type Runner struct {
	opts   Options
	logger *slog.Logger
}

// NewRunner constructs a Runner.
func NewRunner(opts Options) *Runner {
	return &Runner{
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "compress"),
	}
}

// Submit starts req in its own goroutine and returns its event stream. The
// channel is closed after the terminal event. Progress events may be skipped
// when the consumer falls behind; terminal events never are.
func (r *Runner) Submit(ctx context.Context, req Request) <-chan Event {
	if strings.TrimSpace(req.ID) == "" {
		req.ID = uuid.NewString()
	}
	events := make(chan Event, eventBuffer)
	go func() {
		defer close(events)
		_, _ = r.Run(ctx, req, func(ev Event) {
			if ev.Type == EventProgress && ev.Percent < 100 && len(events) >= cap(events)-terminalReserve {
				return
			}
			events <- ev
		})
	}()
	return events
}

// Run executes req synchronously, passing every event to sink. The returned
// error is the same error delivered in the terminal error event.
func (r *Runner) Run(ctx context.Context, req Request, sink func(Event)) (Result, error) {
	if sink == nil {
		sink = func(Event) {}
	}
	if strings.TrimSpace(req.ID) == "" {
		req.ID = uuid.NewString()
	}
	ctx = services.WithJobID(ctx, req.ID)
	j := &job{
		runner:  r,
		req:     req,
		sink:    sink,
		started: time.Now(),
		logger:  logging.WithContext(ctx, r.logger),
	}
	j.progress = newProgressTracker(req.ID, sink, j.logger)
	j.transition(StatePending)

	result, err := j.execute(ctx)
	outcome := Outcome{
		JobID:          req.ID,
		Path:           j.input,
		Kind:           j.kind,
		InputSizeBytes: j.inputSize,
		Err:            err,
		StartedAt:      j.started,
		FinishedAt:     time.Now(),
	}
	if outcome.Path == "" {
		outcome.Path = req.Path
	}
	if err != nil {
		j.transition(StateFailed)
		logging.ErrorWithContext(j.logger, "compression failed", "job_failed",
			logging.String("error_kind", services.Kind(err)),
			logging.String(logging.FieldErrorHint, hintFor(err)),
			logging.Error(err),
		)
		r.observe(ctx, outcome)
		sink(Event{JobID: req.ID, Type: EventError, Error: err.Error(), ErrorKind: services.Kind(err), Err: err})
		return Result{}, err
	}

	j.transition(StateCompleted)
	j.logger.Info("compression completed",
		logging.String(logging.FieldEventType, "job_completed"),
		logging.String("output", result.OutputPath),
		logging.Int64("input_bytes", result.InputSizeBytes),
		logging.Int64("output_bytes", result.OutputSizeBytes),
		logging.Duration("elapsed", result.Elapsed),
		logging.String("encoding_path", string(result.EncodingPath)),
	)
	outcome.Result = &result
	r.observe(ctx, outcome)
	sink(Event{JobID: req.ID, Type: EventResult, Result: &result})
	return result, nil
}

func (r *Runner) observe(ctx context.Context, outcome Outcome) {
	ctx = context.WithoutCancel(ctx)
	if r.opts.Recorder != nil {
		if err := r.opts.Recorder.Record(ctx, outcome); err != nil {
			logging.WarnWithContext(logging.WithContext(ctx, r.logger), "failed to record job history", "history_record_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "job missing from history"),
			)
		}
	}
	if r.opts.Notifier != nil {
		r.opts.Notifier.JobFinished(ctx, outcome)
	}
}

func hintFor(err error) string {
	switch {
	case errors.Is(err, services.ErrDependencyMissing):
		return "run `shrink deps install` or set binaries.ffmpeg and binaries.ffprobe"
	case errors.Is(err, services.ErrIOFailed):
		return "check permissions on the input directory; the compressed file is kept beside the input"
	case errors.Is(err, services.ErrTimeout):
		return "raise encoding.job_timeout_minutes or pick a faster speed"
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrNotFound):
		return "check the input path and settings"
	default:
		return "inspect the encoder stderr in the error message"
	}
}

// job holds the per-request state. It never escapes Run.
type job struct {
	runner    *Runner
	req       Request
	sink      func(Event)
	started   time.Time
	logger    *slog.Logger
	progress  *progressTracker
	input     string
	inputSize int64
	kind      media.Kind
	state     State
}

func (j *job) transition(state State, attrs ...logging.Attr) {
	if j.state == state {
		return
	}
	from := j.state
	j.state = state
	attrs = append([]logging.Attr{
		logging.String(logging.FieldState, string(state)),
		logging.String("from", string(from)),
	}, attrs...)
	j.logger.Debug("job state changed", logging.Args(attrs...)...)
}

func (j *job) execute(ctx context.Context) (Result, error) {
	release, ok := j.admit()
	if !ok {
		return Result{}, services.Wrap(services.ErrDependencyMissing, "compress", "admit", "dependency install in progress", nil)
	}
	defer release()

	if timeout := j.runner.opts.Timeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := j.resolveInput(); err != nil {
		return Result{}, err
	}

	var (
		output string
		path   encoding.Path
		err    error
	)
	replace := false
	switch j.kind {
	case media.KindImage:
		replace = j.req.Image.ReplaceInput
		output, path, err = j.compressImage(ctx)
	case media.KindVideo:
		replace = j.req.Video.ReplaceInput
		output, path, err = j.compressVideo(ctx)
	}
	if err != nil {
		return Result{}, err
	}
	return j.finalize(output, path, replace)
}

func (j *job) admit() (func(), bool) {
	if j.runner.opts.Gate == nil {
		return func() {}, true
	}
	return j.runner.opts.Gate.Acquire()
}

func (j *job) resolveInput() error {
	if strings.TrimSpace(j.req.Path) == "" {
		return services.Wrap(services.ErrValidation, "compress", "input", "path is required", nil)
	}
	input, err := filepath.Abs(j.req.Path)
	if err != nil {
		return services.Wrap(services.ErrValidation, "compress", "input", j.req.Path, err)
	}
	info, err := os.Stat(input)
	if err != nil {
		return services.Wrap(services.ErrNotFound, "compress", "input", input, err)
	}
	if !info.Mode().IsRegular() {
		return services.Wrap(services.ErrValidation, "compress", "input", input+" is not a regular file", nil)
	}
	kind := j.req.Kind
	if kind == "" || kind == media.KindUnknown {
		kind = media.Classify(input)
	}
	if kind != media.KindImage && kind != media.KindVideo {
		return services.Wrap(services.ErrValidation, "compress", "input", "unsupported file type "+filepath.Ext(input), nil)
	}
	j.input = input
	j.inputSize = info.Size()
	j.kind = kind
	j.logger = j.logger.With(logging.String("input", input), logging.String("kind", string(kind)))
	return nil
}

// contextError converts a finished context into the taxonomy.
func contextError(ctx context.Context, op string) error {
	err := ctx.Err()
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "compress", op, "job deadline exceeded", err)
	}
	return services.Wrap(services.ErrCanceled, "compress", op, "job canceled", err)
}
