package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	appcli "reimburse/internal/cli"
	"reimburse/internal/core"
	applog "reimburse/internal/log"
	"reimburse/internal/presenter"
	"reimburse/internal/submission"
)

var listCommand = &cli.Command{
	Name:  "list",
	Usage: "Print the stored claims, newest first",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "json", Usage: "Print the raw collection as JSON"},
	},
	Action: func(cCtx *cli.Context) error {
		app, err := appcli.Init(cCtx.Context, appcli.Options{})
		if err != nil {
			return err
		}
		defer app.Close()

		view := presenter.New(app.Claims, app.Logger.Slog()).Load(cCtx.Context)
		if cCtx.Bool("json") {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(view.Items)
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTITLE\tTYPE\tAMOUNT\tDATE\tSTATUS")
		listed := make([]core.Claim, 0, len(view.Items))
		for _, it := range view.Items {
			listed = append(listed, it.Claim)
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", it.ID, it.Title, it.Type, it.Amount, it.Date, it.StatusLabel)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		for _, s := range view.Summary {
			fmt.Printf("%s: %d  ", s.Label, s.Count)
		}
		sum, _ := core.SumAmounts(listed)
		fmt.Printf("\ntotal: %d (%s)\n", view.Total, core.FormatRupiah(sum))
		return nil
	},
}

var addCommand = &cli.Command{
	Name:  "add",
	Usage: "Submit a new pending claim",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "Category: " + strings.Join(core.Categories(), ", "), Required: true},
		&cli.StringFlag{Name: "detail", Aliases: []string{"d"}, Usage: "What the expense was for", Required: true},
		&cli.StringFlag{Name: "title", Usage: "Defaults to the category"},
		&cli.StringFlag{Name: "amount", Aliases: []string{"a"}},
		&cli.StringFlag{Name: "date", Usage: "MM-DD-YYYY HH:mm:ss, defaults to now"},
	},
	Action: func(cCtx *cli.Context) error {
		app, err := appcli.Init(cCtx.Context, appcli.Options{Events: true})
		if err != nil {
			return err
		}
		defer app.Close()

		opts := []submission.Option{
			submission.WithLogger(app.Logger.WithComponent(applog.ComponentSubmission).Slog()),
			submission.WithRecorder(app.Metrics),
		}
		if app.Events != nil {
			opts = append(opts, submission.WithNotifier(app.Events))
		}

		date := cCtx.String("date")
		if date == "" {
			date = core.FormatClaimDate(time.Now())
		}

		wf := submission.NewWorkflow(app.Claims, nil, opts...)
		c, err := wf.Submit(cCtx.Context, submission.Form{
			Title:  cCtx.String("title"),
			Date:   date,
			Type:   cCtx.String("type"),
			Detail: cCtx.String("detail"),
			Amount: cCtx.String("amount"),
		})
		wf.Wait()
		if err != nil {
			return err
		}
		fmt.Println(c.ID)
		return nil
	},
}

var updateCommand = &cli.Command{
	Name:      "update",
	Usage:     "Change fields of an existing claim",
	ArgsUsage: "<id>",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "status", Aliases: []string{"s"}, Usage: "pending, approved or rejected"},
		&cli.StringFlag{Name: "title"},
		&cli.StringFlag{Name: "amount"},
		&cli.StringFlag{Name: "date"},
		&cli.StringFlag{Name: "type"},
		&cli.StringFlag{Name: "detail"},
	},
	Action: func(cCtx *cli.Context) error {
		id := cCtx.Args().First()
		if id == "" {
			return cli.Exit("claim id is required", 2)
		}

		var patch core.ClaimPatch
		for name, dst := range map[string]**string{
			"title":  &patch.Title,
			"amount": &patch.Amount,
			"date":   &patch.Date,
			"type":   &patch.Type,
			"detail": &patch.Detail,
		} {
			if cCtx.IsSet(name) {
				v := cCtx.String(name)
				*dst = &v
			}
		}
		if cCtx.IsSet("status") {
			s := core.Status(cCtx.String("status"))
			patch.Status = &s
		}
		if patch.IsEmpty() {
			return cli.Exit("nothing to update", 2)
		}

		app, err := appcli.Init(cCtx.Context, appcli.Options{})
		if err != nil {
			return err
		}
		defer app.Close()

		if _, ok := app.Claims.Get(cCtx.Context, id); !ok {
			return cli.Exit(fmt.Sprintf("claim %s not found", id), 1)
		}
		return app.Claims.Update(cCtx.Context, id, patch)
	},
}

var removeCommand = &cli.Command{
	Name:      "remove",
	Usage:     "Delete a claim",
	ArgsUsage: "<id>",
	Action: func(cCtx *cli.Context) error {
		id := cCtx.Args().First()
		if id == "" {
			return cli.Exit("claim id is required", 2)
		}
		app, err := appcli.Init(cCtx.Context, appcli.Options{})
		if err != nil {
			return err
		}
		defer app.Close()

		if _, ok := app.Claims.Get(cCtx.Context, id); !ok {
			return cli.Exit(fmt.Sprintf("claim %s not found", id), 1)
		}
		return app.Claims.Remove(cCtx.Context, id)
	},
}

var clearCommand = &cli.Command{
	Name:  "clear",
	Usage: "Delete the stored collection; the defaults come back on the next read",
	Action: func(cCtx *cli.Context) error {
		app, err := appcli.Init(cCtx.Context, appcli.Options{})
		if err != nil {
			return err
		}
		defer app.Close()
		return app.Claims.Clear(cCtx.Context)
	},
}

var resetCommand = &cli.Command{
	Name:  "reset",
	Usage: "Overwrite the stored collection with the default claims",
	Action: func(cCtx *cli.Context) error {
		app, err := appcli.Init(cCtx.Context, appcli.Options{})
		if err != nil {
			return err
		}
		defer app.Close()
		return app.Claims.ResetToDefault(cCtx.Context)
	},
}
