package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"shrink/internal/compress"
	"shrink/internal/encoding"
	"shrink/internal/history"
	"shrink/internal/logging"
	"shrink/internal/media"
	"shrink/internal/notifications"
)

type compressOptions struct {
	quality     int
	format      string
	resolution  string
	speed       string
	removeAudio bool
	replace     bool
	recursive   bool
	jsonOutput  bool
	noHistory   bool
}

func newCompressCommand(ctx *commandContext) *cobra.Command {
	var opts compressOptions

	cmd := &cobra.Command{
		Use:   "compress <file|dir>...",
		Short: "Compress images and videos",
		Long: "Compress the given files, or every supported file in the given directories.\n" +
			"Outputs are written beside the input as compressed-<name> unless --replace is set.\n" +
			"Images run before videos; a failed job does not stop the batch.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			image, video, err := opts.settings(cmd)
			if err != nil {
				return err
			}
			return runCompress(cmd, ctx, args, opts, image, video)
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&opts.quality, "quality", "q", 0, "Compression quality 0-100, higher keeps more detail (default from config)")
	flags.StringVar(&opts.format, "format", "preserve", "Image output format: preserve, png or jpeg")
	flags.StringVar(&opts.resolution, "resolution", "preserve", "Video resolution: preserve or one of "+resolutionChoices())
	flags.StringVar(&opts.speed, "speed", "default", "Video encoder speed: default, superfast, veryfast or veryslow")
	flags.BoolVar(&opts.removeAudio, "remove-audio", false, "Drop audio tracks from videos")
	flags.BoolVar(&opts.replace, "replace", false, "Replace the input file with the compressed output")
	flags.BoolVarP(&opts.recursive, "recursive", "r", false, "Descend into subdirectories")
	flags.BoolVar(&opts.jsonOutput, "json", false, "Stream job events as newline-delimited JSON")
	flags.BoolVar(&opts.noHistory, "no-history", false, "Do not record jobs in the history database")
	return cmd
}

func (o compressOptions) settings(cmd *cobra.Command) (encoding.ImageSettings, encoding.VideoSettings, error) {
	var quality *int
	if cmd.Flags().Changed("quality") {
		quality = encoding.Quality(o.quality)
	}
	image, err := encoding.ImageSettings{
		Quality:      quality,
		OutputFormat: encoding.OutputFormat(o.format),
		ReplaceInput: o.replace,
	}.Normalize()
	if err != nil {
		return image, encoding.VideoSettings{}, err
	}
	video, err := encoding.VideoSettings{
		Resolution:   encoding.Resolution(o.resolution),
		Quality:      quality,
		Speed:        encoding.Speed(o.speed),
		ReplaceInput: o.replace,
		RemoveAudio:  o.removeAudio,
	}.Normalize()
	return image, video, err
}

func runCompress(cmd *cobra.Command, ctx *commandContext, args []string, opts compressOptions, image encoding.ImageSettings, video encoding.VideoSettings) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}

	collection, err := media.Collect(args, opts.recursive)
	if err != nil {
		return err
	}
	errOut := cmd.ErrOrStderr()
	if n := len(collection.Skipped); n > 0 && !opts.jsonOutput {
		fmt.Fprintf(errOut, "Skipping %d unsupported file(s)\n", n)
	}
	if len(collection.Assets) == 0 {
		return errors.New("no supported images or videos found")
	}

	resolver, err := ctx.resolver()
	if err != nil {
		return err
	}
	var store *history.Store
	if !opts.noHistory {
		store, err = ctx.openHistory()
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer store.Close()
	}
	notifier := notifications.NewService(cfg)
	runner, err := ctx.newRunner(resolver, store, notifier)
	if err != nil {
		return err
	}

	reqs := make([]compress.Request, 0, len(collection.Assets))
	for _, asset := range collection.Assets {
		reqs = append(reqs, compress.Request{
			ID:    asset.ID,
			Path:  asset.Path,
			Kind:  asset.Kind,
			Image: image,
			Video: video,
		})
	}

	signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	out := cmd.OutOrStdout()
	var reporter jobReporter
	switch {
	case opts.jsonOutput:
		reporter = newJSONReporter(out)
	case shouldColorize(out):
		reporter = newBarReporter(out, len(reqs))
	default:
		reporter = newLineReporter(out, len(reqs))
	}

	started := time.Now()
	results, runErr := runner.RunAll(signalCtx, reqs, reporter.handle)
	failed := len(reqs) - len(results)

	var saved int64
	for _, res := range results {
		if res.OutputSizeBytes < res.InputSizeBytes {
			saved += res.InputSizeBytes - res.OutputSizeBytes
		}
	}

	if err := notifier.Publish(context.WithoutCancel(signalCtx), notifications.EventBatchCompleted, notifications.Payload{
		"processed":   len(results),
		"failed":      failed,
		"duration_ms": time.Since(started).Milliseconds(),
		"saved_bytes": saved,
	}); err != nil {
		ctx.cliLogger().Warn("batch notification failed", logging.Error(err))
	}

	if !opts.jsonOutput {
		if len(results) > 0 {
			fmt.Fprintln(out, renderResults(results))
		}
		fmt.Fprintf(out, "%d compressed, %d failed, saved %s in %s\n",
			len(results), failed, humanize.Bytes(uint64(saved)), time.Since(started).Round(time.Second))
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			return context.Canceled
		}
		return fmt.Errorf("%d of %d jobs failed", failed, len(reqs))
	}
	return nil
}

func renderResults(results []compress.Result) string {
	rows := make([][]string, 0, len(results))
	var before, after int64
	for _, res := range results {
		before += res.InputSizeBytes
		after += res.OutputSizeBytes
		rows = append(rows, []string{
			filepath.Base(res.InputPath),
			humanize.Bytes(uint64(res.InputSizeBytes)),
			humanize.Bytes(uint64(res.OutputSizeBytes)),
			savedPercent(res.InputSizeBytes, res.OutputSizeBytes),
			string(res.EncodingPath),
			res.Elapsed.Round(100 * time.Millisecond).String(),
		})
	}
	tbl := tableSpec{
		headers: []string{"File", "Before", "After", "Saved", "Encoder", "Time"},
		rows:    rows,
		aligns:  []columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignLeft, alignRight},
	}
	if len(results) > 1 {
		tbl.footer = []string{
			fmt.Sprintf("%d files", len(results)),
			humanize.Bytes(uint64(before)),
			humanize.Bytes(uint64(after)),
			savedPercent(before, after),
		}
	}
	return tbl.render()
}

func savedPercent(before, after int64) string {
	if before <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.0f%%", float64(before-after)*100/float64(before))
}

func resolutionChoices() string {
	presets := encoding.ResolutionPresets()
	names := make([]string, 0, len(presets))
	for _, preset := range presets {
		names = append(names, string(preset))
	}
	return strings.Join(names, ", ")
}

type jobReporter interface {
	handle(ev compress.Event)
}
