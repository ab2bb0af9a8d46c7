package main

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/urfave/cli/v2"

	appcli "reimburse/internal/cli"
	"reimburse/internal/events"
)

var eventsCommand = &cli.Command{
	Name:  "events",
	Usage: "Inspect submission notifications",
	Subcommands: []*cli.Command{
		{
			Name:  "tail",
			Usage: "Print claim.submitted messages as they arrive",
			Action: func(cCtx *cli.Context) error {
				ctx, stop := appcli.SignalContext(cCtx.Context)
				defer stop()

				app, err := appcli.Init(ctx, appcli.Options{Events: true})
				if err != nil {
					return err
				}
				defer app.Close()
				if app.Events == nil {
					return cli.Exit("AMQP_URL is not set", 2)
				}

				enc := json.NewEncoder(os.Stdout)
				err = app.Events.Consume(ctx, func(msg *events.ClaimSubmittedMessage) error {
					return enc.Encode(msg)
				})
				if errors.Is(err, ctx.Err()) {
					return nil
				}
				return err
			},
		},
	},
}
