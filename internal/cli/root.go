package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/smokyabdulrahman/salah-times/internal/config"
	"github.com/smokyabdulrahman/salah-times/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Global flags shared across all subcommands.
var (
	FlagCity       string
	FlagLatitude   float64
	FlagLongitude  float64
	FlagSource     string
	FlagMethod     int
	FlagSchool     int
	FlagStore      string
	FlagJSON       bool
	FlagCacheDir   string
	FlagTimeFormat string
	FlagTimezone   string
	FlagLogLevel   string
	FlagOffline    bool
)

// loadedConfig holds the config loaded during PersistentPreRunE, with the
// environment overlay applied. Available to all subcommand handlers.
var loadedConfig *config.Config

// logger is the process logger built from --log-level / log_level.
var logger = zerolog.Nop()

// NewRootCmd creates the root command for the salah-times CLI.
// The version parameter is set by the calling binary via ldflags.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "salah-times",
		Short: "Prayer times with offline fallback",
		Long: "Prayer times for Moroccan cities, cached locally and refreshed once a day.\n" +
			"When neither network nor cache is available, the sunrise is estimated offline.",
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(); err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := cfg.ApplyEnv(nil); err != nil {
				return fmt.Errorf("invalid environment: %w", err)
			}
			loadedConfig = cfg

			level := cfg.LogLevel
			if flagWasSet(cmd.Flags(), cmd.Root().PersistentFlags(), "log-level") {
				level = FlagLogLevel
			}
			fallback := zerolog.WarnLevel
			if cmd.Annotations[annotationLongRunning] == "true" {
				fallback = zerolog.InfoLevel
			}
			l, err := logging.Setup(level, fallback)
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
		// Default action: show today's prayer schedule.
		RunE:          runToday,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&FlagCity, "city", "", "City name or key, e.g. Tangier or el-jadida (takes precedence over config)")
	pf.Float64Var(&FlagLatitude, "latitude", 0, "Latitude; the nearest known city is used")
	pf.Float64Var(&FlagLongitude, "longitude", 0, "Longitude; the nearest known city is used")
	pf.StringVar(&FlagSource, "source", "", "Schedule source: yabiladi or aladhan")
	pf.IntVar(&FlagMethod, "method", -1, "Al Adhan calculation method (0-23)")
	pf.IntVar(&FlagSchool, "school", -1, "Al Adhan school (0=Shafi, 1=Hanafi)")
	pf.StringVar(&FlagStore, "store", "", "Cache backend: file, sqlite or redis")
	pf.BoolVar(&FlagJSON, "json", false, "Output as JSON (where supported)")
	pf.StringVar(&FlagCacheDir, "cache-dir", "", "Cache directory (default: ~/.cache/salah-times/)")
	pf.StringVar(&FlagTimeFormat, "time-format", "", "Time format: 12h or 24h (overrides config)")
	pf.StringVar(&FlagTimezone, "timezone", "", "IANA timezone used for \"today\" (default: local)")
	pf.StringVar(&FlagLogLevel, "log-level", "", "Log level: trace, debug, info, warn, error, disabled")
	pf.BoolVar(&FlagOffline, "offline", false, "Never touch the network; use the cache and the offline estimate")

	rootCmd.AddCommand(newNextCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newWeekCmd())
	rootCmd.AddCommand(newMonthCmd())
	rootCmd.AddCommand(newQueryCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newRefreshCmd())
	rootCmd.AddCommand(newSunriseCmd())
	rootCmd.AddCommand(newCitiesCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newMethodsCmd())

	return rootCmd
}

// annotationLongRunning marks commands that log at info level by default.
const annotationLongRunning = "long-running"

// PrintVersion prints the version string in the expected format.
func PrintVersion(version string) string {
	return fmt.Sprintf("salah-times %s\n", version)
}

// effectiveConfig returns the merged configuration values,
// applying the priority: CLI flags > environment > config file > defaults.
// It uses cobra's Changed() to detect whether a flag was explicitly set.
func effectiveConfig(cmd *cobra.Command) (*config.Config, error) {
	var cfg config.Config
	if loadedConfig != nil {
		cfg = *loadedConfig
	}

	flags := cmd.Flags()
	root := cmd.Root().PersistentFlags()

	set := func(flag, key, value string) error {
		if !flagWasSet(flags, root, flag) {
			return nil
		}
		if err := cfg.Set(key, value); err != nil {
			return fmt.Errorf("--%s: %w", flag, err)
		}
		return nil
	}

	// Coordinates on the command line override a configured city.
	if flagWasSet(flags, root, "latitude") || flagWasSet(flags, root, "longitude") {
		cfg.City = ""
	}

	steps := []struct{ flag, key, value string }{
		{"city", "city", FlagCity},
		{"latitude", "latitude", fmt.Sprint(FlagLatitude)},
		{"longitude", "longitude", fmt.Sprint(FlagLongitude)},
		{"source", "source", FlagSource},
		{"method", "method", fmt.Sprint(FlagMethod)},
		{"school", "school", fmt.Sprint(FlagSchool)},
		{"store", "store", FlagStore},
		{"cache-dir", "cache_dir", FlagCacheDir},
		{"time-format", "time_format", FlagTimeFormat},
		{"timezone", "timezone", FlagTimezone},
	}
	for _, s := range steps {
		if err := set(s.flag, s.key, s.value); err != nil {
			return nil, err
		}
	}

	cfg.ApplyDefaults()
	log.Debug().Interface("config", cfg).Msg("effective config")
	return &cfg, nil
}

// flagWasSet checks if a flag was explicitly set on either the local or persistent flag set.
func flagWasSet(local, persistent *pflag.FlagSet, name string) bool {
	if f := local.Lookup(name); f != nil && f.Changed {
		return true
	}
	if f := persistent.Lookup(name); f != nil && f.Changed {
		return true
	}
	return false
}
