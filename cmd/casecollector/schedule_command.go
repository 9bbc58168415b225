package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"CaseCollector/internal/app"
)

func newScheduleCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run collection on the configured cron expression until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.loadConfig()
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.New(runCtx, cfg, ctx.logger(cfg), app.Options{})
			if err != nil {
				return err
			}
			defer application.Close()

			return application.Schedule(runCtx)
		},
	}
}
