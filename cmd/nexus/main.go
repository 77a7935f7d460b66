package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	app := &cli.Command{
		Name:  "nexus",
		Usage: "Iterative self-correcting research agent",
		Commands: []*cli.Command{
			serveCommand(),
			researchCommand(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		slog.Error("command failed", slog.Any("error", err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
