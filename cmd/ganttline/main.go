package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	appLog "ganttline/internal/log"
)

var version = "0.1.0-dev"

func main() {
	os.Exit(run())
}

func run() int {
	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		appLog.Error("ganttline failed", err)
		return 1
	}
	return 0
}
