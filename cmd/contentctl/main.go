package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/vadim/neo-content/cmd/contentctl/commands"
)

func envFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "env",
		Usage: "path to the .env file",
		Value: ".env",
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "contentctl",
		Usage: "operator tool for article generation and scheduling",
		Commands: []*cli.Command{
			{
				Name:  "generate",
				Usage: "generate articles for topics in one bulk run and print the results",
				Flags: []cli.Flag{
					envFlag(),
					&cli.StringFlag{
						Name:     "store",
						Usage:    "store id",
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:     "topic",
						Usage:    "topic to write about (repeatable)",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "type",
						Usage: "publication type (draft/schedule/publish)",
						Value: "draft",
					},
					&cli.StringFlag{
						Name:  "date",
						Usage: "store-local publish date YYYY-MM-DD (schedule only)",
					},
					&cli.StringFlag{
						Name:  "time",
						Usage: "store-local publish time HH:MM (schedule only)",
					},
					&cli.StringFlag{
						Name:  "style",
						Usage: "free-form style instructions",
					},
					&cli.StringSliceFlag{
						Name:  "keyword",
						Usage: "keyword to weave into the article (repeatable)",
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "create even when a post with the same title exists",
					},
				},
				Action: commands.GenerateAction,
			},
			{
				Name:  "schedule",
				Usage: "timezone resolution helpers",
				Commands: []*cli.Command{
					{
						Name:  "resolve",
						Usage: "resolve a local date and time in a zone to an absolute instant",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "date",
								Usage: "local date YYYY-MM-DD (defaults to tomorrow)",
							},
							&cli.StringFlag{
								Name:  "time",
								Usage: "local time HH:MM (defaults to 09:30)",
							},
							&cli.StringFlag{
								Name:     "tz",
								Usage:    "IANA timezone, e.g. Europe/Berlin",
								Required: true,
							},
						},
						Action: commands.ScheduleResolveAction,
					},
					{
						Name:  "tomorrow",
						Usage: "print the default publish slot for a zone",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:     "tz",
								Usage:    "IANA timezone, e.g. Europe/Berlin",
								Required: true,
							},
						},
						Action: commands.ScheduleTomorrowAction,
					},
				},
			},
			{
				Name:  "migrate",
				Usage: "apply database migrations",
				Flags: []cli.Flag{
					envFlag(),
				},
				Action: commands.MigrateAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
