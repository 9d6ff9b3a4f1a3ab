package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/smokyabdulrahman/salah-times/internal/api"
	"github.com/smokyabdulrahman/salah-times/internal/astro"
	"github.com/smokyabdulrahman/salah-times/internal/cache"
	"github.com/smokyabdulrahman/salah-times/internal/config"
	"github.com/smokyabdulrahman/salah-times/internal/display"
	"github.com/smokyabdulrahman/salah-times/internal/geo"
	"github.com/smokyabdulrahman/salah-times/internal/prayer"
	"github.com/smokyabdulrahman/salah-times/internal/refresh"
	"github.com/spf13/cobra"
)

var (
	flagForce     bool
	flagSunriseOn string
)

func newRefreshCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Fetch and cache fresh prayer times now",
		Long:  "Run one refresh cycle for the current location (every city with refresh_all).\nA fresh cache is left alone unless --force is given.",
		RunE:  runRefresh,
	}
	cmd.Flags().BoolVar(&flagForce, "force", false, "Refresh even when the cache is fresh")
	return cmd
}

func runRefresh(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := newEngine(ctx, cmd)
	if err != nil {
		return err
	}
	defer e.close()

	// Start already runs a cycle when the cache is stale or absent.
	switch v := e.start(ctx, true); {
	case v == cache.Fresh && flagForce:
		if err := e.coord.Refresh(ctx, true); err != nil {
			return fmt.Errorf("refresh failed: %w", err)
		}
	case v == cache.Fresh:
		fmt.Fprintf(cmd.OutOrStdout(), "%s: cache is fresh (use --force to refresh anyway)\n", e.loc.Name)
		return nil
	case e.coord.Phase() != refresh.Refreshed:
		return fmt.Errorf("refresh failed for %s (%s); see the log for details", e.loc.Name, e.coord.Phase())
	}

	snap := e.coord.Snapshot()
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d day(s) cached from %s %s\n",
		e.loc.Name, snap.DaysCached, snap.Source, display.SourceBadge(snap.Source, snap.Stale))
	return nil
}

func newSunriseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sunrise",
		Short: "Estimate the sunrise offline",
		Long:  "Compute the sunrise (Chorok) for the current location without any network access.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := effectiveConfig(cmd)
			if err != nil {
				return err
			}
			tz, err := cfg.TimeLocation()
			if err != nil {
				return err
			}
			loc, err := resolveLocation(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}

			date := time.Now().In(tz)
			if flagSunriseOn != "" {
				date, err = time.ParseInLocation(prayer.DateLayout, flagSunriseOn, tz)
				if err != nil {
					return fmt.Errorf("invalid --date %q: want YYYY-MM-DD", flagSunriseOn)
				}
			}

			t := astro.EstimateSunrise(loc.Latitude, loc.Longitude, date)
			if !t.Known() {
				return fmt.Errorf("no sunrise at %s on %s", loc.Name, date.Format(prayer.DateLayout))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", loc.Name, date.Format(prayer.DateLayout), t.Format(cfg.TimeLayout()))
			return nil
		},
	}
	cmd.Flags().StringVar(&flagSunriseOn, "date", "", "Date as YYYY-MM-DD (default: today)")
	return cmd
}

func newCitiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cities",
		Short: "List the known cities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tbl := display.NewTable([]string{"Key", "Name", "Latitude", "Longitude"})
			for _, c := range geo.All() {
				tbl.AddRow([]string{
					c.Key, c.Name,
					strconv.FormatFloat(c.Latitude, 'f', 4, 64),
					strconv.FormatFloat(c.Longitude, 'f', 4, 64),
				})
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w)
			fmt.Fprint(w, tbl.Render())
			fmt.Fprintln(w)
			fmt.Fprintln(w, "  Use --city <key> or 'salah-times config set city <key>'.")
			return nil
		},
	}
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or modify configuration",
		Long:  "Display current configuration, or use subcommands to modify it.\nWhen run without subcommands, shows the current configuration.",
		RunE:  runConfigShow,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a config value",
		Long: fmt.Sprintf("Set a configuration value. Valid keys: %s\n\nExamples:\n"+
			"  salah-times config set city Rabat\n"+
			"  salah-times config set source aladhan\n"+
			"  salah-times config set method 21\n"+
			"  salah-times config set store sqlite\n"+
			"  salah-times config set time_format 12h\n"+
			"  salah-times config set iqama.Fajr 25",
			strings.Join(config.ValidKeys, ", ")),
		Args: cobra.ExactArgs(2),
		RunE: runConfigSet,
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Reset config to defaults",
		Long:  "Delete the config file and restore all settings to defaults.",
		RunE:  runConfigReset,
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print config file path",
		RunE:  runConfigPath,
	})

	return cmd
}

// runConfigShow displays the config file values. Environment overrides
// are marked.
func runConfigShow(cmd *cobra.Command, args []string) error {
	path, err := config.Path()
	if err != nil {
		return err
	}

	fileCfg, err := config.Load()
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "  Configuration (%s)\n\n", path)

	for _, key := range config.ValidKeys {
		val, _ := fileCfg.Get(key)
		shown := val
		if shown == "" {
			shown = "(not set)"
		}
		if key == "method" && val != "" {
			shown = formatMethodValue(val)
		}
		if key == "school" && val != "" {
			shown = formatSchoolValue(val)
		}
		if loadedConfig != nil {
			if envVal, _ := loadedConfig.Get(key); envVal != val {
				shown += fmt.Sprintf("  (overridden by %s=%s)", config.EnvName(key), envVal)
			}
		}
		fmt.Fprintf(w, "  %-18s %s\n", key, shown)
	}
	return nil
}

// runConfigSet sets a config key to the given value.
func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if err := cfg.Set(key, value); err != nil {
		return err
	}

	if err := cfg.Save(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
	return nil
}

// runConfigReset deletes the config file.
func runConfigReset(cmd *cobra.Command, args []string) error {
	if err := config.Reset(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Configuration reset to defaults.")
	return nil
}

// runConfigPath prints the config file path.
func runConfigPath(cmd *cobra.Command, args []string) error {
	path, err := config.Path()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

// formatMethodValue adds the method name to the numeric value.
func formatMethodValue(val string) string {
	id, err := strconv.Atoi(val)
	if err != nil {
		return val
	}
	if name := api.MethodName(id); name != "" {
		return fmt.Sprintf("%s (%s)", val, name)
	}
	return val
}

// formatSchoolValue adds the school name to the numeric value.
func formatSchoolValue(val string) string {
	switch val {
	case "0":
		return "0 (Shafi)"
	case "1":
		return "1 (Hanafi)"
	default:
		return val
	}
}

func newMethodsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "methods",
		Short: "List all calculation methods",
		Long:  "Print the table of Al Adhan calculation methods (used with source aladhan).",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, "Supported calculation methods:")
			fmt.Fprintln(w)
			fmt.Fprintf(w, "  %-4s %s\n", "ID", "Name")
			fmt.Fprintf(w, "  %-4s %s\n", "──", "────")
			for _, m := range api.CalculationMethods {
				fmt.Fprintf(w, "  %-4d %s\n", m.ID, m.Name)
			}
			fmt.Fprintln(w)
			fmt.Fprintln(w, "Use --source aladhan --method <ID> to select a calculation method.")
			fmt.Fprintln(w, "If omitted, the API picks a default based on your location.")
			return nil
		},
	}
}
