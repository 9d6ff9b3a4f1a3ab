// Package refresh decides where today's schedule comes from and publishes it
// as an immutable snapshot.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/smokyabdulrahman/salah-times/internal/api"
	"github.com/smokyabdulrahman/salah-times/internal/astro"
	"github.com/smokyabdulrahman/salah-times/internal/cache"
	"github.com/smokyabdulrahman/salah-times/internal/geo"
	"github.com/smokyabdulrahman/salah-times/internal/prayer"
)

// Phase is the coordinator's position in its refresh cycle.
type Phase int32

const (
	NeedCache Phase = iota
	HasCacheFresh
	HasCacheStale
	CacheAbsent
	Refreshing
	Refreshed
	RefreshFailed
	OfflineEstimate
)

var phaseNames = [...]string{
	"need-cache", "cache-fresh", "cache-stale", "cache-absent",
	"refreshing", "refreshed", "refresh-failed", "offline-estimate",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("Phase(%d)", int32(p))
	}
	return phaseNames[p]
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// Source values for snapshots not backed by a remote schedule.
const (
	SourceOffline = "offline"
	SourceNone    = "none"
)

// Snapshot is one published view of today's schedule. Published snapshots
// are never modified.
type Snapshot struct {
	Location    geo.Location         `json:"location"`
	Schedule    prayer.DailySchedule `json:"schedule"`
	Source      string               `json:"source"`
	Stale       bool                 `json:"stale"`
	Degraded    bool                 `json:"degraded"`
	Phase       Phase                `json:"phase"`
	PublishedAt time.Time            `json:"published_at"`
	// DaysCached counts cached days from today onwards.
	DaysCached int `json:"days_cached"`
}

// NoData reports whether the snapshot carries no usable time at all.
func (s Snapshot) NoData() bool { return s.Schedule.Empty() }

// Fetcher is the subset of api.Fetcher the coordinator needs.
type Fetcher interface {
	FetchAll(ctx context.Context, locs []geo.Location) (*api.Result, error)
}

// EstimateFunc computes an offline sunrise.
type EstimateFunc func(lat, lon float64, date time.Time) prayer.TimeOfDay

// Coordinator runs the cache, fetch and offline-estimate policy for one
// current location.
type Coordinator struct {
	store      cache.Store
	fetcher    Fetcher
	estimate   EstimateFunc
	now        func() time.Time
	refreshAll bool
	logger     zerolog.Logger

	snap     atomic.Pointer[Snapshot]
	phase    atomic.Int32
	location atomic.Pointer[geo.Location]
	gen      atomic.Uint64

	cycleMu sync.Mutex
	wg      sync.WaitGroup

	// pubMu orders location switches against publishes.
	pubMu  sync.Mutex
	subs   map[int]chan Snapshot
	nextID int
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// WithClock overrides the wall clock. The returned time's zone defines
// "today".
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithEstimator overrides the offline sunrise estimator.
func WithEstimator(f EstimateFunc) Option {
	return func(c *Coordinator) { c.estimate = f }
}

// WithRefreshAll makes every cycle fetch all known cities, not only the
// current one.
func WithRefreshAll(all bool) Option {
	return func(c *Coordinator) { c.refreshAll = all }
}

// NewCoordinator creates a coordinator. Nothing is published until Start.
func NewCoordinator(store cache.Store, fetcher Fetcher, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:    store,
		fetcher:  fetcher,
		estimate: astro.EstimateSunrise,
		now:      time.Now,
		logger:   zerolog.Nop(),
		subs:     make(map[int]chan Snapshot),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.snap.Store(&Snapshot{Source: SourceNone, Phase: NeedCache})
	return c
}

// Snapshot returns the latest published snapshot by value.
func (c *Coordinator) Snapshot() Snapshot {
	return *c.snap.Load()
}

// Phase returns the current phase.
func (c *Coordinator) Phase() Phase {
	return Phase(c.phase.Load())
}

// Location returns the current location.
func (c *Coordinator) Location() (geo.Location, bool) {
	if l := c.location.Load(); l != nil {
		return *l, true
	}
	return geo.Location{}, false
}

// Wait blocks until background refreshes started so far have finished.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Subscribe returns a channel that receives every published snapshot. Slow
// readers only see the latest one. The returned func unsubscribes.
func (c *Coordinator) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	c.pubMu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = ch
	c.pubMu.Unlock()

	return ch, func() {
		c.pubMu.Lock()
		delete(c.subs, id)
		c.pubMu.Unlock()
	}
}

// Start loads loc from the store, publishes today's cached entry without
// touching the network, and starts a background refresh when the cache is
// stale or absent. It returns the cache verdict.
func (c *Coordinator) Start(ctx context.Context, loc geo.Location) cache.Verdict {
	return c.start(ctx, loc, c.switchTo(loc))
}

// SetLocation switches to loc: today's snapshot is invalidated at once and
// the state machine restarts for the new location.
func (c *Coordinator) SetLocation(ctx context.Context, loc geo.Location) cache.Verdict {
	gen := c.switchTo(loc)
	c.publish(gen, Snapshot{
		Location: loc,
		Schedule: prayer.NewSchedule(c.now()),
		Source:   SourceNone,
		Phase:    NeedCache,
	})
	c.logger.Info().Str("location", loc.Key).Msg("location changed")
	return c.start(ctx, loc, gen)
}

// Rollover re-publishes from the store for the new calendar day. It runs in
// the background.
func (c *Coordinator) Rollover(ctx context.Context) {
	loc, ok := c.Location()
	if !ok {
		return
	}
	gen := c.gen.Load()
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.logger.Info().Str("location", loc.Key).Msg("day rollover")
		c.start(ctx, loc, gen)
	}()
}

// Refresh runs one synchronous cycle for the current location. Unless force
// is set, a fresh cache is left alone.
func (c *Coordinator) Refresh(ctx context.Context, force bool) error {
	loc, ok := c.Location()
	if !ok {
		return errors.New("coordinator not started")
	}
	gen := c.gen.Load()
	if !force {
		if _, v := cache.Check(ctx, c.store, loc.Key, c.now()); v == cache.Fresh {
			c.logger.Debug().Str("location", loc.Key).Msg("cache fresh, skipping refresh")
			return nil
		}
	}
	return c.cycle(ctx, loc, gen)
}

// switchTo makes loc current and returns the new generation. Publishes
// tagged with an older generation are dropped from then on.
func (c *Coordinator) switchTo(loc geo.Location) uint64 {
	c.pubMu.Lock()
	defer c.pubMu.Unlock()
	c.location.Store(&loc)
	return c.gen.Add(1)
}

func (c *Coordinator) start(ctx context.Context, loc geo.Location, gen uint64) cache.Verdict {
	c.setPhase(gen, NeedCache)
	now := c.now()

	set, verdict := cache.Check(ctx, c.store, loc.Key, now)
	if day, ok := set.Day(now); ok {
		c.publish(gen, Snapshot{
			Location:   loc,
			Schedule:   day,
			Source:     set.Source,
			Stale:      verdict != cache.Fresh,
			Phase:      phaseFor(verdict),
			DaysCached: daysFrom(set, now),
		})
	} else if cur := c.Snapshot(); cur.Location.Key != loc.Key || cur.Schedule.Date != now.Format(prayer.DateLayout) {
		c.publish(gen, Snapshot{
			Location: loc,
			Schedule: prayer.NewSchedule(now),
			Source:   SourceNone,
			Phase:    phaseFor(verdict),
		})
	}
	c.setPhase(gen, phaseFor(verdict))
	c.logger.Debug().Str("location", loc.Key).Stringer("verdict", verdict).Msg("cache checked")

	if verdict != cache.Fresh {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			if err := c.cycle(ctx, loc, gen); err != nil {
				c.logger.Warn().Err(err).Str("location", loc.Key).Msg("background refresh failed")
			}
		}()
	}
	return verdict
}

// cycle fetches, saves and re-publishes. On failure it falls back to the
// cached entry, then to the offline estimate. Cycles never overlap.
func (c *Coordinator) cycle(ctx context.Context, loc geo.Location, gen uint64) error {
	c.cycleMu.Lock()
	defer c.cycleMu.Unlock()

	if c.gen.Load() != gen {
		return nil
	}
	c.setPhase(gen, Refreshing)

	locs := []geo.Location{loc}
	if c.refreshAll {
		locs = withFirst(geo.All(), loc)
	}

	res, err := c.fetcher.FetchAll(ctx, locs)
	if err != nil {
		c.fallback(ctx, loc, gen, err)
		return fmt.Errorf("refresh %s: %w", loc.Key, err)
	}

	now := c.now()
	for key, set := range res.Sets {
		if err := c.store.Save(ctx, key, c.keepToday(ctx, key, set, now)); err != nil {
			c.logger.Error().Err(err).Str("location", key).Msg("saving schedule set failed")
		}
	}

	set, ok := res.Sets[loc.Key]
	if !ok {
		ferr := res.Failures[loc.Key]
		if ferr == nil {
			ferr = errors.New("no data returned")
		}
		c.fallback(ctx, loc, gen, ferr)
		return fmt.Errorf("refresh %s: %w", loc.Key, ferr)
	}

	day, ok := set.Day(now)
	if !ok {
		err := fmt.Errorf("no entry for %s", now.Format(prayer.DateLayout))
		c.fallback(ctx, loc, gen, err)
		return fmt.Errorf("refresh %s: %w", loc.Key, err)
	}

	c.setPhase(gen, Refreshed)
	c.publish(gen, Snapshot{
		Location:   loc,
		Schedule:   day,
		Source:     set.Source,
		Phase:      Refreshed,
		DaysCached: daysFrom(set, now),
	})
	c.logger.Info().Str("location", loc.Key).Int("days", len(set.Days)).Msg("schedule refreshed")
	return nil
}

// keepToday returns the set to save for key. A fetched set without an entry
// for today never replaces a cached set that has one: the fetched days are
// merged into the cached set, which keeps its RefreshedAt and stays stale.
func (c *Coordinator) keepToday(ctx context.Context, key string, fetched *cache.ScheduleSet, now time.Time) *cache.ScheduleSet {
	if _, ok := fetched.Day(now); ok {
		return fetched
	}
	prev, err := c.store.Load(ctx, key)
	if err != nil {
		return fetched
	}
	if _, ok := prev.Day(now); !ok {
		return fetched
	}
	c.logger.Warn().Str("location", key).Int("days", len(fetched.Days)).
		Msg("fetched schedule has no entry for today, merging into cached set")
	prev.Merge(fetched)
	return prev
}

// fallback publishes the best data available after a failed refresh.
func (c *Coordinator) fallback(ctx context.Context, loc geo.Location, gen uint64, cause error) {
	c.setPhase(gen, RefreshFailed)
	now := c.now()
	log := c.logger.With().Str("location", loc.Key).AnErr("cause", cause).Logger()

	if set, err := c.store.Load(ctx, loc.Key); err == nil {
		if day, ok := set.Day(now); ok {
			log.Warn().Msg("refresh failed, serving cached schedule")
			c.publish(gen, Snapshot{
				Location:   loc,
				Schedule:   day,
				Source:     set.Source,
				Stale:      true,
				Phase:      RefreshFailed,
				DaysCached: daysFrom(set, now),
			})
			return
		}
	}

	c.setPhase(gen, OfflineEstimate)
	s := prayer.NewSchedule(now)
	source := SourceNone
	if t := c.estimate(loc.Latitude, loc.Longitude, now); t.Known() {
		s = s.With(prayer.SolarReference, t)
		source = SourceOffline
		log.Warn().Stringer("sunrise", t).Msg("refresh failed, publishing offline estimate")
	} else {
		log.Error().Msg("refresh failed and no estimate available, publishing no data")
	}
	c.publish(gen, Snapshot{
		Location: loc,
		Schedule: s,
		Source:   source,
		Degraded: true,
		Phase:    OfflineEstimate,
	})
}

// publish swaps in snap unless the location changed since gen was taken.
func (c *Coordinator) publish(gen uint64, snap Snapshot) {
	c.pubMu.Lock()
	defer c.pubMu.Unlock()
	if c.gen.Load() != gen {
		return
	}
	snap.PublishedAt = c.now()
	c.snap.Store(&snap)

	for _, ch := range c.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

func (c *Coordinator) setPhase(gen uint64, p Phase) {
	if c.gen.Load() == gen {
		c.phase.Store(int32(p))
	}
}

func phaseFor(v cache.Verdict) Phase {
	switch v {
	case cache.Fresh:
		return HasCacheFresh
	case cache.Stale:
		return HasCacheStale
	default:
		return CacheAbsent
	}
}

// daysFrom counts cached days on or after now's date.
func daysFrom(set *cache.ScheduleSet, now time.Time) int {
	today := now.Format(prayer.DateLayout)
	n := 0
	for date := range set.Days {
		if date >= today {
			n++
		}
	}
	return n
}

// withFirst returns all with loc moved to the front.
func withFirst(all []geo.Location, loc geo.Location) []geo.Location {
	out := []geo.Location{loc}
	for _, l := range all {
		if l.Key != loc.Key {
			out = append(out, l)
		}
	}
	return out
}
