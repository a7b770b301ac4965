package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"shrink/internal/media"
	"shrink/internal/platform"
	"shrink/internal/preflight"
)

func newInfoCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var recursive bool

	cmd := &cobra.Command{
		Use:   "info [file|dir]...",
		Short: "Show environment readiness, or the kind and size of files",
		Long: "Without arguments, report dependency and directory checks.\n" +
			"With paths, list supported files. Images: " + strings.Join(media.ImageExtensions(), ", ") +
			"; videos: " + strings.Join(media.VideoExtensions(), ", ") + ".",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return runFileInfo(cmd, args, recursive, jsonOutput)
			}
			return runEnvironmentInfo(cmd, ctx, jsonOutput)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Descend into subdirectories")
	return cmd
}

func runFileInfo(cmd *cobra.Command, args []string, recursive, jsonOutput bool) error {
	collection, err := media.Collect(args, recursive)
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(cmd, collection)
	}

	title := cases.Title(language.English)
	rows := make([][]string, 0, len(collection.Assets)+len(collection.Skipped))
	var total int64
	for _, asset := range collection.Assets {
		total += asset.SizeBytes
		rows = append(rows, []string{asset.Name, title.String(string(asset.Kind)), humanize.Bytes(uint64(asset.SizeBytes))})
	}
	for _, skipped := range collection.Skipped {
		rows = append(rows, []string{skipped, title.String(string(media.KindUnknown)), "-"})
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderTable(
		[]string{"File", "Kind", "Size"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight},
	))
	fmt.Fprintf(out, "%d supported file(s), %s total\n", len(collection.Assets), humanize.Bytes(uint64(total)))
	return nil
}

func runEnvironmentInfo(cmd *cobra.Command, ctx *commandContext, jsonOutput bool) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	resolver, err := ctx.resolver()
	if err != nil {
		return err
	}
	checks := preflight.RunAll(cmd.Context(), cfg, resolver)
	if jsonOutput {
		return writeJSON(cmd, map[string]any{
			"ready":  preflight.Ready(checks),
			"checks": checks,
		})
	}

	out := cmd.OutOrStdout()
	caps := platform.Current()
	encoder, ok := caps.HardwareEncoder(cfg.Encoding.HardwareEncoder)
	if !ok {
		encoder = "software only"
	}
	env := statusBlock{title: "Environment"}
	env.add(levelNote, "Platform", caps.Name)
	env.add(levelNote, "Hardware encoder", encoder)
	env.add(levelNote, "Dependency directory", resolver.Dir())

	readiness := statusBlock{title: "Checks"}
	for _, check := range checks {
		readiness.addCheck(check)
	}
	writeBlocks(out, shouldColorize(out), env, readiness)
	fmt.Fprintln(out)
	if preflight.Ready(checks) {
		fmt.Fprintln(out, "Ready")
	} else {
		fmt.Fprintln(out, "Not ready: run `shrink deps install` or set binaries.ffmpeg and binaries.ffprobe")
	}
	return nil
}
