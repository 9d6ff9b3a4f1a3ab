package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/smokyabdulrahman/salah-times/internal/clock"
	"github.com/smokyabdulrahman/salah-times/internal/display"
	"github.com/smokyabdulrahman/salah-times/internal/geo"
	"github.com/smokyabdulrahman/salah-times/internal/prayer"
	"github.com/spf13/cobra"
)

func runToday(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := newEngine(ctx, cmd)
	if err != nil {
		return err
	}
	defer e.close()

	e.start(ctx, true)
	st := e.clock.Tick()
	layout := e.cfg.TimeLayout()

	if FlagJSON {
		return printTodayJSON(cmd.OutOrStdout(), st, layout)
	}
	printTodayRich(cmd.OutOrStdout(), st, layout, e.coord.Snapshot().DaysCached)
	return nil
}

// printTodayRich renders the colored terminal output for today's schedule.
func printTodayRich(w io.Writer, st clock.State, layout string, daysCached int) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s  %s\n", display.Bold("Prayer Times"), display.SourceBadge(st.Source, st.Stale))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", locationLabel(st.Location))
	fmt.Fprintf(w, "  %s\n", st.Now.Format("Monday 02 January 2006"))
	fmt.Fprintf(w, "  %s\n", prayer.HijriLabel(st.Schedule, st.Now))
	fmt.Fprintln(w)

	if st.NoData {
		fmt.Fprintf(w, "  %s\n\n", display.Gray("No prayer times available: no network, no cache, no sunrise estimate."))
		return
	}

	fmt.Fprint(w, display.RenderDay(st.Schedule, st.State, layout))
	fmt.Fprintln(w)

	switch {
	case st.Source == "offline":
		fmt.Fprintf(w, "  %s\n\n", display.Yellow("Offline: only the estimated sunrise is known."))
	case daysCached > 0:
		fmt.Fprintf(w, "  %s\n\n", display.Dim(fmt.Sprintf("%d day(s) cached", daysCached)))
	}
}

// hijriOf labels a cached day with its Hijri date, approximated when the
// source gave none.
func hijriOf(s prayer.DailySchedule) string {
	date, err := time.Parse(prayer.DateLayout, s.Date)
	if err != nil {
		return s.Hijri
	}
	return prayer.HijriLabel(s, date)
}

// locationLabel turns a location key into its display name.
func locationLabel(key string) string {
	if key == "" {
		return "(no location)"
	}
	if loc, err := geo.Lookup(key); err == nil {
		return loc.Name
	}
	return key
}

// todayJSON is the JSON output structure for the root command.
type todayJSON struct {
	Location string            `json:"location"`
	Date     string            `json:"date"`
	Hijri    string            `json:"hijri"`
	Source   string            `json:"source"`
	Stale    bool              `json:"stale"`
	Timings  map[string]string `json:"timings"`
	Current  string            `json:"current,omitempty"`
	Next     *todayJSONNext    `json:"next"`
	Iqama    *todayJSONIqama   `json:"iqama,omitempty"`
}

type todayJSONNext struct {
	Prayer    string `json:"prayer"`
	Time      string `json:"time"`
	Tomorrow  bool   `json:"tomorrow"`
	Remaining string `json:"remaining"`
	Seconds   int    `json:"seconds"`
}

type todayJSONIqama struct {
	Prayer  string `json:"prayer"`
	Seconds int    `json:"seconds"`
}

// printTodayJSON renders structured JSON output. Unknown times are omitted
// from timings.
func printTodayJSON(w io.Writer, st clock.State, layout string) error {
	out := todayJSON{
		Location: st.Location,
		Date:     st.Schedule.Date,
		Hijri:    prayer.HijriLabel(st.Schedule, st.Now),
		Source:   st.Source,
		Stale:    st.Stale,
		Timings:  make(map[string]string),
	}
	for _, e := range st.Schedule.Defined() {
		out.Timings[strings.ToLower(e.Name.String())] = e.Time.Format(layout)
	}
	if st.HasCurrent {
		out.Current = strings.ToLower(st.Current.String())
	}
	if st.HasNext {
		out.Next = &todayJSONNext{
			Prayer:    strings.ToLower(st.Next.String()),
			Time:      st.NextTime.Format(layout),
			Tomorrow:  st.NextIsTomorrow,
			Remaining: prayer.FormatRemaining(st.SecondsUntilNext),
			Seconds:   st.SecondsUntilNext,
		}
	}
	if st.IqamaActive {
		out.Iqama = &todayJSONIqama{
			Prayer:  strings.ToLower(st.Current.String()),
			Seconds: st.SecondsUntilIqamaEnds,
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}
