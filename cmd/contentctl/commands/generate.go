package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/vadim/neo-content/internal/app"
	"github.com/vadim/neo-content/internal/config"
	batchpolicy "github.com/vadim/neo-content/internal/domain/batch/policy"
	postentity "github.com/vadim/neo-content/internal/domain/post/entity"
)

// GenerateAction runs one bulk generation in-process and prints the batch response as JSON
func GenerateAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("env"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// stdout carries the result, logs go to stderr
	logger := app.NewLogger(cfg.Log, os.Stderr)
	application, err := app.NewApp(ctx, cfg, app.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer application.Close()

	in := batchpolicy.BulkInput{
		Settings: batchpolicy.Settings{
			StoreID:      cmd.String("store"),
			StylePrompt:  cmd.String("style"),
			Keywords:     cmd.StringSlice("keyword"),
			Type:         postentity.PublicationType(cmd.String("type")),
			ScheduleDate: cmd.String("date"),
			ScheduleTime: cmd.String("time"),
			ForceCreate:  cmd.Bool("force"),
		},
		Topics: cmd.StringSlice("topic"),
	}

	run, err := application.Orchestrator().RunBulk(ctx, in)
	if err != nil {
		return fmt.Errorf("running bulk generation: %w", err)
	}

	if err := writeJSON(cmd.Root().Writer, run.Response()); err != nil {
		return err
	}
	if !run.Response().Success {
		return cli.Exit("", 2)
	}
	return nil
}
