package main

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"shrink/internal/media"
	"shrink/internal/preview"
)

func newPreviewCommand(ctx *commandContext) *cobra.Command {
	var outPath string
	var kindFlag string

	cmd := &cobra.Command{
		Use:   "preview <file>",
		Short: "Render a thumbnail for an image or video",
		Long:  "Render a thumbnail and print it as a data URL, or write the JPEG to --out.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			resolver, err := ctx.resolver()
			if err != nil {
				return err
			}
			kind, err := media.ParseKind(kindFlag, args[0])
			if err != nil {
				return err
			}
			gen := preview.NewGenerator(resolver,
				preview.WithSize(cfg.Encoding.PreviewSize),
				preview.WithLogger(ctx.cliLogger()),
			)
			dataURL, err := gen.Generate(cmd.Context(), args[0], kind)
			if err != nil {
				return err
			}

			target := strings.TrimSpace(outPath)
			if target == "" {
				fmt.Fprintln(cmd.OutOrStdout(), dataURL)
				return nil
			}
			jpeg, err := decodeDataURL(dataURL)
			if err != nil {
				return err
			}
			if err := os.WriteFile(target, jpeg, 0o644); err != nil {
				return fmt.Errorf("write preview: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote preview to %s\n", target)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the JPEG thumbnail to this path")
	cmd.Flags().StringVar(&kindFlag, "kind", "", "Force image or video instead of detecting from the extension")
	return cmd
}

func decodeDataURL(dataURL string) ([]byte, error) {
	_, payload, ok := strings.Cut(dataURL, ";base64,")
	if !ok {
		return nil, errors.New("preview is not a base64 data URL")
	}
	return base64.StdEncoding.DecodeString(payload)
}
