package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adda-Baaj/sepm-epm/internal/cli"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

// run executes the CLI; errors are already printed by cli.Execute.
func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return cli.Execute(ctx)
}
