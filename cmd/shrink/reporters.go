package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"

	"shrink/internal/compress"
)

// jsonReporter streams events as newline-delimited JSON, the same shape the
// daemon serves from POST /api/jobs.
type jsonReporter struct {
	out *lineEncoder
}

func newJSONReporter(w io.Writer) *jsonReporter {
	return &jsonReporter{out: newLineEncoder(w)}
}

func (r *jsonReporter) handle(ev compress.Event) {
	_ = r.out.write(ev)
}

// barReporter draws one progress bar per job. Jobs run one at a time so at
// most one bar is live.
type barReporter struct {
	w     io.Writer
	total int
	index int
	jobID string
	bar   *progressbar.ProgressBar
}

func newBarReporter(w io.Writer, total int) *barReporter {
	return &barReporter{w: w, total: total}
}

func (r *barReporter) handle(ev compress.Event) {
	if ev.JobID != r.jobID {
		r.jobID = ev.JobID
		r.index++
		r.bar = progressbar.NewOptions(100,
			progressbar.OptionSetWriter(r.w),
			progressbar.OptionSetDescription(fmt.Sprintf("[%d/%d]", r.index, r.total)),
			progressbar.OptionSetWidth(30),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionClearOnFinish(),
		)
	}
	switch ev.Type {
	case compress.EventProgress:
		_ = r.bar.Set(int(ev.Percent))
	case compress.EventResult:
		_ = r.bar.Finish()
		fmt.Fprintf(r.w, "✓ %s\n", describeResult(ev.Result))
		r.bar = nil
	case compress.EventError:
		_ = r.bar.Exit()
		fmt.Fprintf(r.w, "\n✗ %s: %s\n", ev.ErrorKind, ev.Error)
		r.bar = nil
	}
}

// lineReporter prints one line per finished job for pipes and logs.
type lineReporter struct {
	w     io.Writer
	total int
	index int
}

func newLineReporter(w io.Writer, total int) *lineReporter {
	return &lineReporter{w: w, total: total}
}

func (r *lineReporter) handle(ev compress.Event) {
	switch ev.Type {
	case compress.EventResult:
		r.index++
		fmt.Fprintf(r.w, "[%d/%d] ok %s\n", r.index, r.total, describeResult(ev.Result))
	case compress.EventError:
		r.index++
		fmt.Fprintf(r.w, "[%d/%d] failed (%s): %s\n", r.index, r.total, ev.ErrorKind, ev.Error)
	}
}

func describeResult(res *compress.Result) string {
	if res == nil {
		return ""
	}
	line := fmt.Sprintf("%s → %s (%s → %s)",
		filepath.Base(res.InputPath),
		filepath.Base(res.OutputPath),
		humanize.Bytes(uint64(res.InputSizeBytes)),
		humanize.Bytes(uint64(res.OutputSizeBytes)),
	)
	if res.ReplacedInput {
		line += " replaced"
	}
	return line
}
