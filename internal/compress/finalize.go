package compress

import (
	"time"

	"shrink/internal/encoding"
	"shrink/internal/fileutil"
	"shrink/internal/services"
)

// finalize moves the output into place and emits the closing 100. On a
// replace failure the output stays at its compressed- path.
func (j *job) finalize(output string, path encoding.Path, replace bool) (Result, error) {
	j.transition(StateFinalizing)
	size, ok := fileutil.NonEmpty(output)
	if !ok {
		return Result{}, services.Wrap(services.ErrEncodingFailed, "compress", "finalize", "output missing after encode: "+output, nil)
	}
	final := output
	if replace {
		if err := fileutil.ReplaceFile(output, j.input); err != nil {
			return Result{}, services.Wrap(services.ErrIOFailed, "compress", "replace input", "output kept at "+output, err)
		}
		final = j.input
	}
	j.progress.complete()

	elapsed := time.Since(j.started)
	return Result{
		JobID:           j.req.ID,
		InputPath:       j.input,
		OutputPath:      final,
		InputSizeBytes:  j.inputSize,
		OutputSizeBytes: size,
		Elapsed:         elapsed,
		ElapsedMs:       elapsed.Milliseconds(),
		EncodingPath:    path,
		ReplacedInput:   replace,
	}, nil
}
