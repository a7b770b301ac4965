package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shrink/internal/media/ffprobe"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "probe <file>",
		Short: "Show duration, bitrates and streams of a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver, err := ctx.resolver()
			if err != nil {
				return err
			}
			binary, err := resolver.Binary("ffprobe")
			if err != nil {
				return err
			}

			inspected, err := ffprobe.Inspect(cmd.Context(), binary, args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				_, err := cmd.OutOrStdout().Write(append(inspected.RawJSON(), '\n'))
				return err
			}

			md, probeErr := ffprobe.Probe(cmd.Context(), binary, args[0])
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "File:          %s\n", args[0])
			fmt.Fprintf(out, "Summary:       %s\n", inspected.Summary())
			fmt.Fprintf(out, "Duration:      %.2fs\n", md.DurationSeconds)
			fmt.Fprintf(out, "Audio bitrate: %s\n", formatBitrate(md.AudioBitrateBps))
			fmt.Fprintf(out, "Video bitrate: %s\n", formatBitrate(md.VideoBitrateBps))
			if probeErr != nil {
				fmt.Fprintf(out, "Warning:       %v\n", probeErr)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the raw ffprobe JSON")
	return cmd
}

func formatBitrate(bps int64) string {
	switch {
	case bps <= 0:
		return "unknown"
	case bps >= 1_000_000:
		return fmt.Sprintf("%.2f Mb/s", float64(bps)/1e6)
	default:
		return fmt.Sprintf("%d kb/s", bps/1000)
	}
}
