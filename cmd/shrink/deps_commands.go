package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"shrink/internal/deps"
	"shrink/internal/logging"
	"shrink/internal/notifications"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	depsCmd := &cobra.Command{
		Use:   "deps",
		Short: "Check or install the ffmpeg dependencies",
	}
	depsCmd.AddCommand(newDepsCheckCommand(ctx))
	depsCmd.AddCommand(newDepsInstallCommand(ctx))
	return depsCmd
}

func newDepsCheckCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report missing dependencies and resolved binaries",
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver, err := ctx.resolver()
			if err != nil {
				return err
			}
			report := resolver.Check()
			binaries := deps.CheckBinaries(resolver.Requirements())
			if jsonOutput {
				return writeJSON(cmd, map[string]any{
					"platform":     resolver.Platform().Name,
					"directory":    resolver.Dir(),
					"is_installed": report.IsInstalled,
					"missing":      report.Missing,
					"binaries":     binaries,
				})
			}

			missing := make(map[string]bool, len(report.Missing))
			for _, dep := range report.Missing {
				missing[dep.Name] = true
			}
			rows := make([][]string, 0, len(resolver.Entries()))
			for _, dep := range resolver.Entries() {
				state := "installed"
				if missing[dep.Name] {
					state = "missing"
				}
				rows = append(rows, []string{dep.Name, dep.Platform, state, fmt.Sprintf("%.0f MB", dep.SizeMB), dep.URL})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Dependency directory: %s\n", resolver.Dir())
			if len(rows) > 0 {
				fmt.Fprintln(out, renderTable(
					[]string{"Name", "Platform", "Status", "Size", "Source"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
			} else {
				fmt.Fprintln(out, "No downloadable dependencies for this platform")
			}

			binRows := make([][]string, 0, len(binaries))
			for _, status := range binaries {
				detail := status.Command
				if !status.Available {
					detail = status.Detail
				}
				binRows = append(binRows, []string{status.Name, yesNo(status.Available), detail})
			}
			fmt.Fprintln(out, renderTable([]string{"Binary", "Available", "Path"}, binRows, nil))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newDepsInstallCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Download missing dependencies into the dependency directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			resolver, err := ctx.resolver()
			if err != nil {
				return err
			}
			if resolver.Check().IsInstalled {
				fmt.Fprintln(cmd.OutOrStdout(), "All dependencies are installed")
				return nil
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			out := cmd.OutOrStdout()
			var bar *progressbar.ProgressBar
			if shouldColorize(out) {
				bar = progressbar.NewOptions(100,
					progressbar.OptionSetWriter(out),
					progressbar.OptionSetDescription("Installing"),
					progressbar.OptionSetWidth(30),
					progressbar.OptionClearOnFinish(),
				)
			}
			var installed []string
			current := ""
			err = resolver.Install(signalCtx, func(ev deps.InstallEvent) {
				switch ev.Type {
				case deps.InstallProgress:
					if bar != nil {
						if ev.Dependency != current {
							bar.Describe("Installing " + ev.Dependency)
						}
						_ = bar.Set(int(ev.Percent))
					} else if ev.Dependency != current {
						fmt.Fprintf(out, "Installing %s\n", ev.Dependency)
					}
					current = ev.Dependency
				case deps.InstallCompleted:
					installed = ev.Installed
					if bar != nil {
						_ = bar.Finish()
					}
				case deps.InstallError:
					if bar != nil {
						_ = bar.Exit()
						fmt.Fprintln(out)
					}
				}
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Installed: %s\n", strings.Join(installed, ", "))
			notifier := notifications.NewService(cfg)
			if err := notifier.Publish(cmd.Context(), notifications.EventDependenciesInstalled, notifications.Payload{"installed": installed}); err != nil {
				ctx.cliLogger().Warn("dependency notification failed", logging.Error(err))
			}
			return nil
		},
	}
}
