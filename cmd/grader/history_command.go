package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kirillkom/paper-grader/internal/bootstrap"
	"github.com/kirillkom/paper-grader/internal/infrastructure/report"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history <file>",
		Short: "Show archived scores for an answer sheet across runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.loadConfig()
			if err != nil {
				return err
			}
			archive, closeFn, err := bootstrap.OpenArchive(cmd.Context(), cfg.PostgresDSN)
			if err != nil {
				return err
			}
			defer closeFn()

			records, err := archive.ScoreHistory(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintf(ctx.stdout, "no archived results for %s\n", args[0])
				return nil
			}
			fmt.Fprintln(ctx.stdout, report.SummaryTable(records))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of runs to show")
	return cmd
}
