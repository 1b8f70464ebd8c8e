package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/vadim/neo-content/internal/timezone"
)

// scheduleOutput is printed by the schedule commands
type scheduleOutput struct {
	Date     string `json:"date"`
	Time     string `json:"time"`
	Timezone string `json:"timezone"`
	Instant  string `json:"instant"`
}

// ScheduleResolveAction resolves a local date and time in an explicit zone
func ScheduleResolveAction(_ context.Context, cmd *cli.Command) error {
	zones := timezone.NewZoneSource(nil, 0, nil)
	res, err := zones.ResolveInZone(cmd.String("date"), cmd.String("time"), cmd.String("tz"))
	if err != nil {
		return err
	}
	return writeJSON(cmd.Root().Writer, newScheduleOutput(res.Spec, res.Instant))
}

// ScheduleTomorrowAction prints tomorrow's default publish slot in a zone
func ScheduleTomorrowAction(_ context.Context, cmd *cli.Command) error {
	spec, instant, err := timezone.GetTomorrow(cmd.String("tz"), time.Now())
	if err != nil {
		return err
	}
	return writeJSON(cmd.Root().Writer, newScheduleOutput(spec, instant))
}

func newScheduleOutput(spec timezone.Spec, instant time.Time) scheduleOutput {
	return scheduleOutput{
		Date:     spec.LocalDate,
		Time:     spec.LocalTime,
		Timezone: spec.Timezone,
		Instant:  instant.UTC().Format(time.RFC3339),
	}
}

func writeJSON(w io.Writer, v any) error {
	if w == nil {
		w = os.Stdout
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}
