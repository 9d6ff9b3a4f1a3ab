package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/smokyabdulrahman/salah-times/internal/clock"
	"github.com/smokyabdulrahman/salah-times/internal/display"
	"github.com/smokyabdulrahman/salah-times/internal/prayer"
	"github.com/smokyabdulrahman/salah-times/internal/refresh"
	"github.com/spf13/cobra"
)

var flagWatchFormat string

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Live countdown to the next prayer",
		Long: "Re-evaluate the schedule every second and print the countdown on one line.\n" +
			"The cache is refreshed in the background on the refresh_schedule cron spec.",
		Annotations: map[string]string{annotationLongRunning: "true"},
		RunE:        runWatch,
	}
	cmd.Flags().StringVar(&flagWatchFormat, "format", "", "Format of each line (same values as 'next --format'); default shows the Iqama countdown too")
	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := newEngine(ctx, cmd)
	if err != nil {
		return err
	}
	defer e.close()

	if err := e.runBackground(ctx); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	layout := e.cfg.TimeLayout()
	e.clock.Run(ctx, func(st clock.State) {
		fmt.Fprintf(w, "\r\033[K%s", watchLine(st, flagWatchFormat, layout))
	})
	fmt.Fprintln(w)
	return nil
}

// runBackground starts the coordinator, the cron refresh and the day
// rollover hook. Everything stops with ctx.
func (e *engine) runBackground(ctx context.Context) error {
	sched := refresh.NewScheduler(e.tz, e.logger)
	if err := sched.Schedule(ctx, e.cfg.RefreshSchedule, e.coord); err != nil {
		return err
	}
	sched.Start()
	go func() {
		<-ctx.Done()
		<-sched.Stop().Done()
	}()

	e.clock = clock.New(e.coord,
		clock.WithLocation(e.tz),
		clock.WithIqamaDelays(e.cfg.IqamaDelays()),
		clock.OnRollover(func(time.Time) { e.coord.Rollover(ctx) }),
	)
	e.start(ctx, false)
	return nil
}

// watchLine renders one tick. The default shows the next prayer and, inside
// an Iqama window, its countdown.
func watchLine(st clock.State, format, layout string) string {
	if format != "" {
		return prayer.FormatOutput(st.State, format, layout)
	}
	if st.NoData {
		return display.Gray("--:-- no data")
	}
	line := display.Accent(prayer.FormatOutput(st.State, prayer.FormatFull, layout))
	if st.IqamaActive {
		line += fmt.Sprintf("  %s iqama in %s", st.Current, prayer.FormatClock(st.SecondsUntilIqamaEnds))
	}
	if st.Source == refresh.SourceOffline || st.Stale {
		line += "  " + display.SourceBadge(st.Source, st.Stale)
	}
	return line
}

