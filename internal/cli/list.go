package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/smokyabdulrahman/salah-times/internal/astro"
	"github.com/smokyabdulrahman/salah-times/internal/cache"
	"github.com/smokyabdulrahman/salah-times/internal/display"
	"github.com/smokyabdulrahman/salah-times/internal/prayer"
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [days]",
		Short: "Show prayer times for multiple days",
		Long:  "Display a grid of cached prayer times for N days starting today (default: 7).",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, args, 7)
		},
	}
}

func newWeekCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "week",
		Short: "Show prayer times for the next 7 days",
		Long:  "Alias for 'list 7'.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, nil, 7)
		},
	}
}

func newMonthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "month",
		Short: "Show prayer times for the next 30 days",
		Long:  "Alias for 'list 30'. Days beyond what the source published are reported as missing.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, nil, 30)
		},
	}
}

// parseDays parses a positive day count.
func parseDays(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid number of days: %q (must be a positive integer)", s)
	}
	return n, nil
}

// runList is the handler for the list subcommand.
func runList(cmd *cobra.Command, args []string, defaultDays int) error {
	days := defaultDays
	if len(args) > 0 {
		n, err := parseDays(args[0])
		if err != nil {
			return err
		}
		days = n
	}

	ctx := cmd.Context()
	e, err := newEngine(ctx, cmd)
	if err != nil {
		return err
	}
	defer e.close()

	e.start(ctx, true)
	now := time.Now().In(e.tz)
	schedules, missing, err := e.upcoming(cmd, now, days)
	if err != nil {
		return err
	}

	layout := e.cfg.TimeLayout()
	if FlagJSON {
		return printListJSON(cmd.OutOrStdout(), e.loc.Key, schedules, layout)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", display.Bold(fmt.Sprintf("Prayer Times, %d Days", days)))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", e.loc.Name)
	if len(schedules) > 0 {
		first, last := hijriOf(schedules[0]), hijriOf(schedules[len(schedules)-1])
		if first == last {
			fmt.Fprintf(w, "  %s\n", first)
		} else {
			fmt.Fprintf(w, "  %s to %s\n", first, last)
		}
	}
	fmt.Fprintln(w)
	if len(schedules) > 0 {
		fmt.Fprint(w, display.ScheduleTable(schedules, now, layout).Render())
		fmt.Fprintln(w)
	}
	if missing > 0 {
		fmt.Fprintf(w, "  %s\n\n", display.Yellow(fmt.Sprintf("%d day(s) not cached yet", missing)))
	}
	return nil
}

// upcoming returns the cached schedules for days consecutive days from now,
// each with the locally estimated sunrise, and how many days are missing.
func (e *engine) upcoming(cmd *cobra.Command, now time.Time, days int) ([]prayer.DailySchedule, int, error) {
	set, err := e.store.Load(cmd.Context(), e.loc.Key)
	if err != nil && !errors.Is(err, cache.ErrAbsent) {
		return nil, 0, err
	}

	var (
		out     []prayer.DailySchedule
		missing int
	)
	for i := 0; i < days; i++ {
		d := now.AddDate(0, 0, i)
		s, ok := set.Day(d)
		if !ok {
			missing++
			continue
		}
		out = append(out, prayer.WithSolarReference(s, astro.EstimateSunrise(e.loc.Latitude, e.loc.Longitude, d)))
	}
	return out, missing, nil
}

type listJSONOutput struct {
	Location string        `json:"location"`
	Days     []listJSONDay `json:"days"`
}

type listJSONDay struct {
	Date    string            `json:"date"`
	Hijri   string            `json:"hijri"`
	Timings map[string]string `json:"timings"`
}

func printListJSON(w io.Writer, location string, schedules []prayer.DailySchedule, layout string) error {
	out := listJSONOutput{Location: location, Days: []listJSONDay{}}
	for _, s := range schedules {
		timings := make(map[string]string)
		for _, e := range s.Defined() {
			timings[strings.ToLower(e.Name.String())] = e.Time.Format(layout)
		}
		out.Days = append(out.Days, listJSONDay{Date: s.Date, Hijri: hijriOf(s), Timings: timings})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}
