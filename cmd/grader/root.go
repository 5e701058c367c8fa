package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kirillkom/paper-grader/internal/config"
	"github.com/kirillkom/paper-grader/internal/observability/logging"
)

const serviceName = "paper-grader"

// commandContext carries the persistent flags shared by every subcommand.
type commandContext struct {
	envFile  string
	logLevel string
	stdout   io.Writer
	stderr   io.Writer
}

func (c *commandContext) loadConfig() (config.Config, error) {
	if c.envFile != "" {
		if err := config.LoadDotEnv(c.envFile); err != nil {
			return config.Config{}, err
		}
	}
	cfg := config.Load()
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	return cfg, nil
}

func (c *commandContext) logger(cfg config.Config) *slog.Logger {
	return logging.NewJSONLogger(c.stderr, serviceName, cfg.LogLevel)
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{stdout: os.Stdout, stderr: os.Stderr}

	rootCmd := &cobra.Command{
		Use:           "grader",
		Short:         "Batch-grade scanned handwritten answer sheets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ctx.stdout = cmd.OutOrStdout()
			ctx.stderr = cmd.ErrOrStderr()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&ctx.envFile, "env-file", ".env", "Environment file loaded before reading configuration")
	rootCmd.PersistentFlags().StringVar(&ctx.logLevel, "log-level", "", "Override LOG_LEVEL (debug, info, warn, error)")

	rootCmd.AddCommand(newRunCommand(ctx))
	rootCmd.AddCommand(newCheckCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))

	return rootCmd
}
