package cli

import (
	"fmt"

	"github.com/smokyabdulrahman/salah-times/internal/prayer"
	"github.com/spf13/cobra"
)

var flagFormat string

func newNextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Show the next prayer with countdown",
		Long: "Display the next upcoming prayer time with a countdown, on one line without a\n" +
			"trailing newline, suitable for status bars such as tmux:\n\n" +
			"  set -g status-right '#(salah-times next --format short-name-and-remaining)'",
		RunE: runNext,
	}

	cmd.Flags().StringVar(&flagFormat, "format", prayer.FormatFull,
		"Display format: time-remaining, countdown, next-prayer-time, name-and-time, name-and-remaining, "+
			"short-name-and-time, short-name-and-remaining, full, or a custom Go template "+
			"(e.g. '{{.Name}} in {{.Remaining}}'). Template fields: .Name, .ShortName, .Time, .Remaining, "+
			".Countdown, .Hours, .Minutes, .Seconds, .Tomorrow, .Current, .Iqama")

	return cmd
}

func runNext(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := newEngine(ctx, cmd)
	if err != nil {
		return err
	}
	defer e.close()

	e.start(ctx, true)
	st := e.clock.Tick()

	fmt.Fprint(cmd.OutOrStdout(), prayer.FormatOutput(st.State, flagFormat, e.cfg.TimeLayout()))
	return nil
}
