package main

import (
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"CaseCollector/internal/config"
	"CaseCollector/internal/logging"
)

type commandContext struct {
	configFlag *string
}

func (c *commandContext) loadConfig() (config.Config, error) {
	if path := strings.TrimSpace(*c.configFlag); path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func (c *commandContext) logger(cfg config.Config) *slog.Logger {
	return logging.New(cfg.Logging.Level)
}

func newRootCommand() *cobra.Command {
	var configFlag string
	ctx := &commandContext{configFlag: &configFlag}

	rootCmd := &cobra.Command{
		Use:           "casecollector",
		Short:         "Collect and classify team-project cases from blog and news search",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path (defaults to $CASE_COLLECTOR_CONFIG)")

	rootCmd.AddCommand(newRunCommand(ctx))
	rootCmd.AddCommand(newScheduleCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newReviewCommand(ctx))

	return rootCmd
}
