package api

import (
	"context"
	"fmt"
	"strings"

	"shrink/internal/history"
)

// HistoryReader abstracts history persistence needed for API queries.
type HistoryReader interface {
	List(ctx context.Context, opts history.ListOptions) ([]history.Entry, error)
	Summarize(ctx context.Context) (history.Summary, error)
}

// HistoryService exposes read-only history queries returning API DTOs.
type HistoryService struct {
	store HistoryReader
}

// NewHistoryService constructs a HistoryService around the provided reader.
func NewHistoryService(store HistoryReader) *HistoryService {
	if store == nil {
		return nil
	}
	return &HistoryService{store: store}
}

// ParseStatus validates a status filter. Empty means all.
func ParseStatus(value string) (history.Status, error) {
	switch status := history.Status(strings.ToLower(strings.TrimSpace(value))); status {
	case "":
		return "", nil
	case history.StatusCompleted, history.StatusFailed:
		return status, nil
	default:
		return "", fmt.Errorf("unknown status %q", value)
	}
}

// List returns recent entries together with the overall summary.
func (s *HistoryService) List(ctx context.Context, opts history.ListOptions) (HistoryResponse, error) {
	if s == nil || s.store == nil {
		return HistoryResponse{Entries: []HistoryEntry{}}, nil
	}
	entries, err := s.store.List(ctx, opts)
	if err != nil {
		return HistoryResponse{}, err
	}
	summary, err := s.store.Summarize(ctx)
	if err != nil {
		return HistoryResponse{}, err
	}
	return HistoryResponse{
		Entries: FromHistoryEntries(entries),
		Summary: FromSummary(summary),
	}, nil
}
