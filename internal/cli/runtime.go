package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/smokyabdulrahman/salah-times/internal/api"
	"github.com/smokyabdulrahman/salah-times/internal/cache"
	"github.com/smokyabdulrahman/salah-times/internal/clock"
	"github.com/smokyabdulrahman/salah-times/internal/config"
	"github.com/smokyabdulrahman/salah-times/internal/geo"
	"github.com/smokyabdulrahman/salah-times/internal/refresh"
	"github.com/spf13/cobra"
)

// engine wires the store, fetcher, coordinator and clock for one command.
type engine struct {
	cfg    *config.Config
	logger zerolog.Logger
	tz     *time.Location
	loc    geo.Location

	store   cache.Store
	fetcher refresh.Fetcher
	coord   *refresh.Coordinator
	clock   *clock.Clock
}

// offlineFetcher stands in for the network under --offline.
type offlineFetcher struct{}

func (offlineFetcher) FetchAll(context.Context, []geo.Location) (*api.Result, error) {
	return nil, api.ErrUnreachable
}

// newEngine builds the engine from the effective config. Call close when done.
func newEngine(ctx context.Context, cmd *cobra.Command) (*engine, error) {
	cfg, err := effectiveConfig(cmd)
	if err != nil {
		return nil, err
	}
	tz, err := cfg.TimeLocation()
	if err != nil {
		return nil, err
	}
	now := func() time.Time { return time.Now().In(tz) }

	e := &engine{cfg: cfg, logger: logger, tz: tz}

	e.loc, err = resolveLocation(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	e.store, err = cache.Open(ctx, cache.Options{
		Backend:   cfg.Store,
		Dir:       cfg.CacheDir,
		RedisAddr: cfg.RedisAddr,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot open %s cache: %w", cfg.Store, err)
	}

	if FlagOffline {
		e.fetcher = offlineFetcher{}
	} else {
		src, err := api.NewSource(cfg.Source, cfg.MethodOrDefault(-1), cfg.SchoolOrDefault(-1))
		if err != nil {
			e.store.Close()
			return nil, err
		}
		e.fetcher = api.NewFetcher(src,
			api.WithLogger(logger),
			api.WithClock(now),
			api.WithHijri(api.NewAladhanSource(-1, -1)),
		)
	}

	e.coord = refresh.NewCoordinator(e.store, e.fetcher,
		refresh.WithLogger(logger),
		refresh.WithClock(now),
		refresh.WithRefreshAll(cfg.RefreshAll != nil && *cfg.RefreshAll),
	)
	e.clock = clock.New(e.coord,
		clock.WithLocation(tz),
		clock.WithIqamaDelays(cfg.IqamaDelays()),
	)
	return e, nil
}

// start publishes the cached schedule and, when wait is set, blocks until
// any refresh it triggered has finished.
func (e *engine) start(ctx context.Context, wait bool) cache.Verdict {
	v := e.coord.Start(ctx, e.loc)
	if wait {
		e.coord.Wait()
	}
	return v
}

func (e *engine) close() {
	e.coord.Wait()
	if err := e.store.Close(); err != nil {
		e.logger.Warn().Err(err).Msg("closing cache")
	}
}

// resolveLocation determines the effective city.
// Priority: configured city > coordinates > cached geolocation > IP
// auto-detect > Tangier.
func resolveLocation(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (geo.Location, error) {
	if cfg.City != "" {
		return geo.Lookup(cfg.City)
	}
	if cfg.Latitude != 0 || cfg.Longitude != 0 {
		loc, km := geo.Nearest(cfg.Latitude, cfg.Longitude)
		logger.Debug().Str("city", loc.Key).Float64("km", km).Msg("nearest city to coordinates")
		return loc, nil
	}
	if FlagOffline {
		return geo.Default(), nil
	}

	// Geolocation is cached in the file store whatever the schedule backend.
	fs, err := cache.NewFileStore(cfg.CacheDir, cache.WithLogger(logger))
	if err == nil {
		if cached := fs.LoadGeo(); cached != nil {
			if loc, err := geo.NearestCity(cached); err == nil {
				return loc, nil
			}
		}
	}

	detected, err := geo.DetectLocation(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("location auto-detection failed, using default city")
		return geo.Default(), nil
	}
	if fs != nil {
		if err := fs.SaveGeo(detected); err != nil {
			logger.Debug().Err(err).Msg("caching detected location")
		}
	}

	loc, err := geo.NearestCity(detected)
	if err != nil {
		logger.Warn().Err(err).Msg("no known city near detected location, using default city")
		return geo.Default(), nil
	}
	return loc, nil
}
