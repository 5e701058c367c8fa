package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kirillkom/paper-grader/internal/bootstrap"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate configuration, the input directory and OCR credentials without grading",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.loadConfig()
			if err != nil {
				return err
			}
			app, err := bootstrap.New(cmd.Context(), cfg, bootstrap.Options{
				Stdout: ctx.stdout,
				Logger: ctx.logger(cfg),
			})
			if err != nil {
				return err
			}
			defer app.Close()
			out := ctx.stdout

			fmt.Fprintln(out, "configuration: ok")
			fmt.Fprintf(out, "rubric: %s\n", app.Rubric.Title)

			if err := app.Source.Check(cmd.Context()); err != nil {
				return fmt.Errorf("input directory: %w", err)
			}
			items, err := app.Source.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("input directory: %w", err)
			}
			fmt.Fprintf(out, "input directory: %s (%d image(s))\n", app.Source.Dir(), len(items))

			cred, err := app.Credentials.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			if cred.ExpiresAt.IsZero() {
				fmt.Fprintln(out, "ocr credentials: ok")
			} else {
				fmt.Fprintf(out, "ocr credentials: ok, token valid until %s\n", cred.ExpiresAt.Format(time.RFC3339))
			}
			if app.Archive != nil {
				fmt.Fprintln(out, "results archive: ok")
			}
			return nil
		},
	}
}
