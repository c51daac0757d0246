package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kitbuilder587/efmnb-optimizer/internal/bootstrap"
	"github.com/kitbuilder587/efmnb-optimizer/internal/cli"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.App{
		Load: bootstrap.Load,
	}

	return cli.NewRootCmd(app).ExecuteContext(ctx)
}
