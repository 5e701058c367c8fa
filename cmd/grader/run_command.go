package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/kirillkom/paper-grader/internal/bootstrap"
	"github.com/kirillkom/paper-grader/internal/config"
	"github.com/kirillkom/paper-grader/internal/infrastructure/storage/localfs"
)

type runFlags struct {
	inputDir   string
	outputFile string
	outputXLSX string
	rubricFile string
	pace       time.Duration
}

func (f runFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("input") {
		cfg.InputDir = f.inputDir
	}
	if cmd.Flags().Changed("output") {
		cfg.OutputFile = f.outputFile
	}
	if cmd.Flags().Changed("xlsx") {
		cfg.OutputXLSX = f.outputXLSX
	}
	if cmd.Flags().Changed("rubric") {
		cfg.RubricFile = f.rubricFile
	}
	if cmd.Flags().Changed("pace") {
		cfg.PaceInterval = f.pace
	}
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Grade every image in the input directory and write the results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.loadConfig()
			if err != nil {
				return err
			}
			flags.apply(cmd, &cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger := ctx.logger(cfg)

			lock, err := localfs.LockOutput(cfg.OutputFile)
			if err != nil {
				return err
			}
			defer func() {
				if err := lock.Release(); err != nil {
					logger.Warn("release_lock_failed", "path", lock.Path(), "error", err)
				}
			}()

			app, err := bootstrap.New(cmd.Context(), cfg, bootstrap.Options{
				Stdout: ctx.stdout,
				Logger: logger,
			})
			if err != nil {
				return err
			}
			defer app.Close()

			logger.Info("grading_started", "input_dir", cfg.InputDir, "rubric", app.Rubric.Title)
			run, err := app.GradeUC.Run(cmd.Context())
			if err != nil {
				return err
			}
			stats := run.Stats()
			logger.Info("grading_finished",
				"run_id", run.RunID,
				"total", stats.Total,
				"graded", stats.Graded,
				"failed", stats.Failed,
				"duration_ms", run.Duration().Milliseconds(),
			)
			return nil
		},
	}

	cmd.Flags().StringVarP(&flags.inputDir, "input", "i", "", "Directory of answer-sheet images (INPUT_DIR)")
	cmd.Flags().StringVarP(&flags.outputFile, "output", "o", "", "Results JSON file (OUTPUT_FILE)")
	cmd.Flags().StringVar(&flags.outputXLSX, "xlsx", "", "Also write an XLSX workbook (OUTPUT_XLSX)")
	cmd.Flags().StringVar(&flags.rubricFile, "rubric", "", "Rubric file, YAML or plain text (RUBRIC_FILE)")
	cmd.Flags().DurationVar(&flags.pace, "pace", time.Second, "Pause after each graded item (PACE_INTERVAL_MS)")

	return cmd
}
