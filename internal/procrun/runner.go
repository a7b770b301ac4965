package procrun

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"strings"
	"time"

	"shrink/internal/services"
)

var commandContext = exec.CommandContext

const lineBuffer = 64

// waitDelay bounds how long Wait keeps copying output after the process is
// killed or exits while a grandchild still holds its pipes.
const waitDelay = 2 * time.Second

// Result captures the output of a finished process.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Handle is a running process.
type Handle struct {
	executable string
	ctx        context.Context
	cancel     context.CancelFunc
	cmd        *exec.Cmd

	stdout bytes.Buffer
	stderr bytes.Buffer
	lines  chan string
	done   chan struct{}

	result Result
	err    error
}

// Start launches executable with args. Spawn failures are returned as
// *SpawnError; everything after a successful start is reported by Wait.
func Start(ctx context.Context, executable string, args []string) (*Handle, error) {
	if strings.TrimSpace(executable) == "" {
		return nil, &SpawnError{Executable: executable, Err: exec.ErrNotFound}
	}
	runCtx, cancel := context.WithCancel(ctx)
	h := &Handle{
		executable: executable,
		ctx:        runCtx,
		cancel:     cancel,
		lines:      make(chan string, lineBuffer),
		done:       make(chan struct{}),
	}

	cmd := commandContext(runCtx, executable, args...) //nolint:gosec
	cmd.Stdout = &h.stdout
	cmd.WaitDelay = waitDelay
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return nil, &SpawnError{Executable: executable, Err: err}
	}
	if err := cmd.Start(); err != nil {
		cancel()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, contextFailure(executable, ctxErr)
		}
		return nil, &SpawnError{Executable: executable, Err: err}
	}
	h.cmd = cmd

	// A grandchild holding stderr open must not keep a canceled handle alive.
	go func() {
		<-runCtx.Done()
		_ = stderr.Close()
	}()
	go h.run(stderr)
	return h, nil
}

// Run starts the process and waits for it, ignoring the live line stream.
func Run(ctx context.Context, executable string, args []string) (Result, error) {
	h, err := Start(ctx, executable, args)
	if err != nil {
		return Result{ExitCode: -1}, err
	}
	return h.Wait()
}

// Lines streams stderr line by line. Carriage returns count as line breaks so
// encoders that rewrite a status line still yield one line per update. Lines
// are dropped rather than blocking the process when the reader falls behind.
// The channel closes once stderr reaches EOF.
func (h *Handle) Lines() <-chan string {
	return h.lines
}

// Done is closed after the process has exited and Wait's result is ready.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the process exits.
func (h *Handle) Wait() (Result, error) {
	<-h.done
	return h.result, h.err
}

// Cancel terminates the process. It is safe to call repeatedly and after exit.
func (h *Handle) Cancel() {
	h.cancel()
}

func (h *Handle) run(stderr io.Reader) {
	defer close(h.done)
	defer h.cancel()

	h.pump(stderr)
	waitErr := h.cmd.Wait()

	h.result = Result{
		Stdout:   h.stdout.String(),
		Stderr:   h.stderr.String(),
		ExitCode: h.cmd.ProcessState.ExitCode(),
	}
	h.err = h.classify(waitErr)
}

func (h *Handle) pump(stderr io.Reader) {
	defer close(h.lines)
	scanner := bufio.NewScanner(io.TeeReader(stderr, &h.stderr))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(scanLines)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		select {
		case h.lines <- line:
		default:
		}
	}
	// Drain anything the scanner refused so the process never blocks on a full pipe.
	_, _ = io.Copy(io.Discard, io.TeeReader(stderr, &h.stderr))
}

func (h *Handle) classify(waitErr error) error {
	if waitErr == nil {
		return nil
	}
	if ctxErr := h.ctx.Err(); ctxErr != nil {
		return contextFailure(h.executable, ctxErr)
	}
	// The process itself exited cleanly; only a descendant kept the pipes open.
	if errors.Is(waitErr, exec.ErrWaitDelay) && h.cmd.ProcessState != nil && h.cmd.ProcessState.Success() {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return &ProcessError{Executable: h.executable, ExitCode: exitErr.ExitCode(), Stderr: h.result.Stderr}
	}
	return &ProcessError{Executable: h.executable, ExitCode: -1, Stderr: h.result.Stderr}
}

func contextFailure(executable string, ctxErr error) error {
	if errors.Is(ctxErr, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "process", executable, "deadline exceeded", ctxErr)
	}
	return services.Wrap(services.ErrCanceled, "process", executable, "canceled", ctxErr)
}

func scanLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
