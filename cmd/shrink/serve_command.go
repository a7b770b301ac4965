package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shrink/internal/daemonrun"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string
	var logLevel string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP daemon in the foreground",
		Long: "Serve the shrink HTTP API until interrupted. Jobs submitted over HTTP\n" +
			"stream their progress back as newline-delimited JSON.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel: logLevel,
				Bind:     bind,
				Ready: func(addr string) {
					fmt.Fprintf(out, "Listening on http://%s\n", addr)
				},
			})
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Override api.bind (host:port)")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override logging.level")
	return cmd
}
