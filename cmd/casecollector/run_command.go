package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"CaseCollector/internal/app"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one collection pass and print its summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.loadConfig()
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.New(runCtx, cfg, ctx.logger(cfg), app.Options{DryRun: dryRun})
			if err != nil {
				return err
			}
			defer application.Close()

			report, runErr := application.Run(runCtx)
			if report.RunID != "" {
				fmt.Fprintln(cmd.OutOrStdout(), renderSummary(report))
			}
			if runErr != nil {
				return fmt.Errorf("run failed: %w", runErr)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Keep results in memory and skip notifications")
	return cmd
}
