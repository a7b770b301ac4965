package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"shrink/internal/api"
	"shrink/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded compression jobs",
	}
	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistorySummaryCommand(ctx))
	historyCmd.AddCommand(newHistoryClearCommand(ctx))
	return historyCmd
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var statusFlag string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := api.ParseStatus(statusFlag)
			if err != nil {
				return err
			}
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(cmd.Context(), history.ListOptions{Limit: limit, Status: status})
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, api.FromHistoryEntries(entries))
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No jobs recorded")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, historyRow(entry))
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Finished", "File", "Status", "Before", "After", "Detail"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of jobs to show")
	cmd.Flags().StringVar(&statusFlag, "status", "", "Filter by status: completed or failed")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func historyRow(entry history.Entry) []string {
	after := "-"
	detail := entry.EncodingPath
	if entry.Status == history.StatusCompleted {
		after = humanize.Bytes(uint64(entry.OutputBytes))
	} else {
		detail = entry.ErrorKind
	}
	return []string{
		strconv.FormatInt(entry.ID, 10),
		humanize.Time(entry.FinishedAt),
		filepath.Base(entry.InputPath),
		string(entry.Status),
		humanize.Bytes(uint64(entry.InputBytes)),
		after,
		detail,
	}
}

func newHistorySummaryCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show totals across all recorded jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			summary, err := store.Summarize(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, api.FromSummary(summary))
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Completed: %d\n", summary.Completed)
			fmt.Fprintf(out, "Failed:    %d\n", summary.Failed)
			fmt.Fprintf(out, "Input:     %s\n", humanize.Bytes(uint64(summary.InputBytes)))
			fmt.Fprintf(out, "Saved:     %s\n", humanize.Bytes(uint64(summary.SavedBytes)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newHistoryClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every recorded job",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d job(s)\n", removed)
			return nil
		},
	}
}
