package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kirillkom/paper-grader/internal/core/domain"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, diagnostic(err))
		}
		stop()
		os.Exit(1)
	}
}

// diagnostic separates run-level aborts (bad configuration, rejected
// credentials) from other command failures.
func diagnostic(err error) string {
	if domain.IsFatal(err) {
		return "grading aborted: " + err.Error()
	}
	return "error: " + err.Error()
}
