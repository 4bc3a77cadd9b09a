package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/mustx/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)

	if err := shared.LoadDotEnv(); err != nil {
		logger.Warn("ignoring .env", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := NewRunner(RunnerOpts{Logger: logger})
	if err := runner.App().Run(ctx, os.Args); err != nil {
		stop()
		logger.Fatalf("application error: %v", err)
	}
}
