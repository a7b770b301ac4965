package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// TailOptions selects what Tail returns. A negative Offset reads the last
// Limit lines; otherwise reading starts at Offset. A positive Wait polls for
// new lines when none are available yet.
type TailOptions struct {
	Offset int64
	Limit  int
	Wait   time.Duration
}

// TailResult holds the lines read and the offset to resume from.
type TailResult struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

const pollInterval = 250 * time.Millisecond

// Tail reads lines from path. A missing file yields no lines and offset 0.
func Tail(ctx context.Context, path string, opts TailOptions) (TailResult, error) {
	result := TailResult{Lines: []string{}, Offset: opts.Offset}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			result.Offset = 0
			return result, nil
		}
		return result, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return result, fmt.Errorf("log path %q is a directory", path)
	}

	var lines []string
	var offset int64
	if opts.Offset < 0 {
		lines, offset, err = readLastLines(path, opts.Limit)
	} else {
		start := opts.Offset
		if start > info.Size() {
			// Truncated or rotated; restart from the top.
			start = 0
		}
		lines, offset, err = readForward(path, start, opts.Limit)
	}
	if err != nil {
		return result, err
	}
	if len(lines) == 0 && opts.Wait > 0 {
		return waitForLines(ctx, path, offset, opts.Limit, opts.Wait)
	}
	if lines != nil {
		result.Lines = lines
	}
	result.Offset = offset
	return result, nil
}

func readLastLines(path string, limit int) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if limit <= 0 {
		size, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, fmt.Errorf("seek log file: %w", err)
		}
		return nil, size, nil
	}

	ring := make([]string, limit)
	count, idx := 0, 0
	offset, err := scanLines(file, func(line string) bool {
		ring[idx] = line
		idx = (idx + 1) % limit
		if count < limit {
			count++
		}
		return true
	})
	if err != nil {
		return nil, 0, err
	}

	lines := make([]string, count)
	if count == limit {
		for i := range count {
			lines[i] = ring[(idx+i)%limit]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, offset, nil
}

// readForward returns complete lines from offset, at most limit when limit is
// positive. A trailing partial line is left for the next call.
func readForward(path string, offset int64, limit int) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}
	var lines []string
	consumed, err := scanLines(file, func(line string) bool {
		lines = append(lines, line)
		return limit <= 0 || len(lines) < limit
	})
	if err != nil {
		return nil, 0, err
	}
	return lines, offset + consumed, nil
}

// scanLines feeds newline-terminated lines to fn until it returns false and
// reports how many bytes those lines occupied.
func scanLines(r io.Reader, fn func(string) bool) (int64, error) {
	reader := bufio.NewReaderSize(r, 64*1024)
	var consumed int64
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return consumed, nil
			}
			return consumed, fmt.Errorf("read log file: %w", err)
		}
		consumed += int64(len(line))
		trimmed := line[:len(line)-1]
		if n := len(trimmed); n > 0 && trimmed[n-1] == '\r' {
			trimmed = trimmed[:n-1]
		}
		if !fn(trimmed) {
			return consumed, nil
		}
	}
}

func waitForLines(ctx context.Context, path string, offset int64, limit int, wait time.Duration) (TailResult, error) {
	deadline := time.Now().Add(wait)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	result := TailResult{Lines: []string{}, Offset: offset}
	for {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-ticker.C:
		}

		lines, newOffset, err := readForward(path, result.Offset, limit)
		if err != nil {
			return result, err
		}
		result.Offset = newOffset
		if len(lines) > 0 {
			result.Lines = lines
			return result, nil
		}
		if time.Now().After(deadline) {
			return result, nil
		}
	}
}
