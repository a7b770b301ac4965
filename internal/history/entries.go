package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"shrink/internal/compress"
	"shrink/internal/services"
)

// Status is the terminal state of a recorded job.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Entry is one recorded job.
type Entry struct {
	ID           int64     `json:"id"`
	JobID        string    `json:"job_id"`
	InputPath    string    `json:"input_path"`
	Kind         string    `json:"kind"`
	Status       Status    `json:"status"`
	OutputPath   string    `json:"output_path,omitempty"`
	EncodingPath string    `json:"encoding_path,omitempty"`
	InputBytes   int64     `json:"input_bytes"`
	OutputBytes  int64     `json:"output_bytes"`
	ErrorKind    string    `json:"error_kind,omitempty"`
	ErrorMessage string    `json:"error,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	ElapsedMs    int64     `json:"elapsed_ms"`
}

// SavedBytes is how much smaller the output is than the input. Failed jobs
// and outputs that grew report zero.
func (e Entry) SavedBytes() int64 {
	if e.Status != StatusCompleted || e.OutputBytes >= e.InputBytes {
		return 0
	}
	return e.InputBytes - e.OutputBytes
}

// Summary aggregates the whole history.
type Summary struct {
	Completed  int   `json:"completed"`
	Failed     int   `json:"failed"`
	InputBytes int64 `json:"input_bytes"`
	SavedBytes int64 `json:"saved_bytes"`
}

const timeLayout = time.RFC3339Nano

// Record stores a terminal job outcome. It satisfies compress.Recorder.
func (s *Store) Record(ctx context.Context, outcome compress.Outcome) error {
	entry := Entry{
		JobID:      outcome.JobID,
		InputPath:  outcome.Path,
		Kind:       string(outcome.Kind),
		InputBytes: outcome.InputSizeBytes,
		StartedAt:  outcome.StartedAt,
		FinishedAt: outcome.FinishedAt,
		ElapsedMs:  outcome.FinishedAt.Sub(outcome.StartedAt).Milliseconds(),
	}
	if outcome.Err != nil {
		entry.Status = StatusFailed
		entry.ErrorKind = services.Kind(outcome.Err)
		entry.ErrorMessage = outcome.Err.Error()
	} else {
		entry.Status = StatusCompleted
	}
	if res := outcome.Result; res != nil {
		entry.OutputPath = res.OutputPath
		entry.EncodingPath = string(res.EncodingPath)
		entry.OutputBytes = res.OutputSizeBytes
		entry.ElapsedMs = res.ElapsedMs
	}
	if entry.Kind == "" {
		entry.Kind = "unknown"
	}
	_, err := s.Insert(ctx, entry)
	return err
}

// Insert stores entry and returns its row id.
func (s *Store) Insert(ctx context.Context, entry Entry) (int64, error) {
	res, err := s.execWithRetry(ctx, `INSERT INTO jobs (
		job_id, input_path, kind, status, output_path, encoding_path,
		input_bytes, output_bytes, error_kind, error_message,
		started_at, finished_at, elapsed_ms
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.JobID, entry.InputPath, entry.Kind, string(entry.Status), entry.OutputPath, entry.EncodingPath,
		entry.InputBytes, entry.OutputBytes, entry.ErrorKind, entry.ErrorMessage,
		entry.StartedAt.UTC().Format(timeLayout), entry.FinishedAt.UTC().Format(timeLayout), entry.ElapsedMs,
	)
	if err != nil {
		return 0, fmt.Errorf("insert job %s: %w", entry.JobID, err)
	}
	return res.LastInsertId()
}

// ListOptions filters List.
type ListOptions struct {
	// Limit caps the number of rows. Zero means 50.
	Limit  int
	Status Status
}

const defaultListLimit = 50

// List returns the most recent entries first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Entry, error) {
	ctx = ensureContext(ctx)
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	var (
		where []string
		args  []any
	)
	if opts.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(opts.Status))
	}
	query := `SELECT id, job_id, input_path, kind, status, output_path, encoding_path,
		input_bytes, output_bytes, error_kind, error_message, started_at, finished_at, elapsed_ms
		FROM jobs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	var entries []Entry
	err := retryOnBusy(ctx, func() error {
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		entries = entries[:0]
		for rows.Next() {
			entry, err := scanEntry(rows)
			if err != nil {
				return err
			}
			entries = append(entries, entry)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return entries, nil
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		entry             Entry
		status            string
		started, finished string
	)
	if err := rows.Scan(
		&entry.ID, &entry.JobID, &entry.InputPath, &entry.Kind, &status, &entry.OutputPath, &entry.EncodingPath,
		&entry.InputBytes, &entry.OutputBytes, &entry.ErrorKind, &entry.ErrorMessage, &started, &finished, &entry.ElapsedMs,
	); err != nil {
		return Entry{}, err
	}
	entry.Status = Status(status)
	entry.StartedAt = parseTime(started)
	entry.FinishedAt = parseTime(finished)
	return entry, nil
}

func parseTime(value string) time.Time {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Summarize aggregates every recorded job.
func (s *Store) Summarize(ctx context.Context) (Summary, error) {
	ctx = ensureContext(ctx)
	var summary Summary
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx, `SELECT
			COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'completed' THEN input_bytes ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'completed' AND output_bytes < input_bytes THEN input_bytes - output_bytes ELSE 0 END), 0)
			FROM jobs`).Scan(&summary.Completed, &summary.Failed, &summary.InputBytes, &summary.SavedBytes)
	})
	if err != nil {
		return Summary{}, fmt.Errorf("summarize jobs: %w", err)
	}
	return summary, nil
}

// Clear deletes every entry and returns how many were removed.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, "DELETE FROM jobs")
	if err != nil {
		return 0, fmt.Errorf("clear jobs: %w", err)
	}
	return res.RowsAffected()
}
