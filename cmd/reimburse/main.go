package main

import (
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "reimburse",
		Usage: "Reimbursement claims service",
		Commands: []*cli.Command{
			serveCommand,
			listCommand,
			addCommand,
			updateCommand,
			removeCommand,
			clearCommand,
			resetCommand,
			eventsCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}
