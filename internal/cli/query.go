package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/smokyabdulrahman/salah-times/internal/display"
	"github.com/smokyabdulrahman/salah-times/internal/prayer"
	"github.com/spf13/cobra"
)

var flagQueryDays string

func newQueryCmd() *cobra.Command {
	names := make([]string, len(prayer.Order))
	for i, n := range prayer.Order {
		names[i] = n.String()
	}

	cmd := &cobra.Command{
		Use:   "query <prayer>",
		Short: "Query a specific prayer time",
		Long: "Query a specific prayer time for today, or across multiple days with --days.\n\n" +
			"Valid names: " + strings.Join(names, ", ") + " (common spellings such as Dhuhr or Maghrib work too)",
		Args: cobra.ExactArgs(1),
		RunE: runQuery,
	}

	cmd.Flags().StringVar(&flagQueryDays, "days", "", "Number of days to show (or 'week'/'month')")

	return cmd
}

// parseQueryDays accepts a positive count, "week" or "month".
func parseQueryDays(s string) (int, error) {
	switch s {
	case "":
		return 1, nil
	case "week":
		return 7, nil
	case "month":
		return 30, nil
	}
	n, err := parseDays(s)
	if err != nil {
		return 0, fmt.Errorf("invalid --days value %q: must be a positive integer, 'week', or 'month'", s)
	}
	return n, nil
}

type queryJSONDay struct {
	Date  string `json:"date"`
	Hijri string `json:"hijri"`
	Time  string `json:"time"`
}

func runQuery(cmd *cobra.Command, args []string) error {
	name, err := prayer.ParseName(args[0])
	if err != nil {
		return err
	}
	days, err := parseQueryDays(flagQueryDays)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	e, err := newEngine(ctx, cmd)
	if err != nil {
		return err
	}
	defer e.close()

	e.start(ctx, true)
	now := time.Now().In(e.tz)
	schedules, _, err := e.upcoming(cmd, now, days)
	if err != nil {
		return err
	}
	if len(schedules) == 0 {
		return fmt.Errorf("no cached times for %s; run 'salah-times refresh'", e.loc.Name)
	}

	layout := e.cfg.TimeLayout()
	w := cmd.OutOrStdout()

	if FlagJSON {
		out := make([]queryJSONDay, 0, len(schedules))
		for _, s := range schedules {
			out = append(out, queryJSONDay{Date: s.Date, Hijri: hijriOf(s), Time: s.Get(name).Format(layout)})
		}
		data, err := json.MarshalIndent(map[string]any{"prayer": strings.ToLower(name.String()), "days": out}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(w, string(data))
		return nil
	}

	if days == 1 {
		fmt.Fprintf(w, "%s %s  (%s)\n", name, schedules[0].Get(name).Format(layout), hijriOf(schedules[0]))
		return nil
	}

	tbl := display.NewTable([]string{"Date", "Hijri", name.String()})
	today := now.Format(prayer.DateLayout)
	for i, s := range schedules {
		tbl.AddRow([]string{s.Date, hijriOf(s), s.Get(name).Format(layout)})
		if s.Date == today {
			tbl.SetHighlightRow(i)
		}
	}
	fmt.Fprintln(w)
	fmt.Fprint(w, tbl.Render())
	fmt.Fprintln(w)
	return nil
}
