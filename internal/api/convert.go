package api

import (
	"shrink/internal/deps"
	"shrink/internal/history"
)

// FromHistoryEntry converts a history row to its API representation.
func FromHistoryEntry(entry history.Entry) HistoryEntry {
	dto := HistoryEntry{
		ID:           entry.ID,
		JobID:        entry.JobID,
		InputPath:    entry.InputPath,
		Kind:         entry.Kind,
		Status:       string(entry.Status),
		OutputPath:   entry.OutputPath,
		EncodingPath: entry.EncodingPath,
		InputBytes:   entry.InputBytes,
		OutputBytes:  entry.OutputBytes,
		SavedBytes:   entry.SavedBytes(),
		ErrorKind:    entry.ErrorKind,
		ErrorMessage: entry.ErrorMessage,
		ElapsedMs:    entry.ElapsedMs,
	}
	if !entry.StartedAt.IsZero() {
		dto.StartedAt = entry.StartedAt.UTC().Format(dateTimeFormat)
	}
	if !entry.FinishedAt.IsZero() {
		dto.FinishedAt = entry.FinishedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromHistoryEntries converts a slice of history rows.
func FromHistoryEntries(entries []history.Entry) []HistoryEntry {
	out := make([]HistoryEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, FromHistoryEntry(entry))
	}
	return out
}

// FromSummary converts the history aggregate.
func FromSummary(summary history.Summary) HistorySummary {
	return HistorySummary{
		Completed:  summary.Completed,
		Failed:     summary.Failed,
		InputBytes: summary.InputBytes,
		SavedBytes: summary.SavedBytes,
	}
}

// FromDependencyStatuses converts binary availability rows.
func FromDependencyStatuses(statuses []deps.Status) []DependencyStatus {
	out := make([]DependencyStatus, 0, len(statuses))
	for _, dep := range statuses {
		out = append(out, DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		})
	}
	return out
}
