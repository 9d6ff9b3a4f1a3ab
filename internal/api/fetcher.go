// Package api fetches multi-day prayer schedules from remote sources.
package api

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/smokyabdulrahman/salah-times/internal/cache"
	"github.com/smokyabdulrahman/salah-times/internal/geo"
)

// ErrUnreachable is returned when the reachability probe fails.
var ErrUnreachable = errors.New("network unreachable")

const (
	defaultProbeURL     = defaultYabiladiURL
	defaultProbeTimeout = 5 * time.Second
	defaultFetchTimeout = 10 * time.Second
	defaultWorkers      = 4
)

// Result holds per-location outcomes of FetchAll.
type Result struct {
	Sets     map[string]*cache.ScheduleSet
	Failures map[string]error
}

// Fetcher probes reachability then pulls schedules from a Source.
type Fetcher struct {
	source       Source
	httpClient   *http.Client
	probeURL     string
	probeTimeout time.Duration
	fetchTimeout time.Duration
	workers      int
	logger       zerolog.Logger
	now          func() time.Time
	hijri        HijriSource
}

// HijriSource labels the Gregorian days of a month with Hijri dates, keyed
// by YYYY-MM-DD.
type HijriSource interface {
	HijriCalendar(ctx context.Context, year, month int) (map[string]string, error)
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithProbeURL overrides the reachability endpoint.
func WithProbeURL(u string) Option {
	return func(f *Fetcher) {
		if u != "" {
			f.probeURL = u
		}
	}
}

// WithTimeouts overrides the probe and per-location fetch timeouts.
func WithTimeouts(probe, fetch time.Duration) Option {
	return func(f *Fetcher) {
		f.probeTimeout, f.fetchTimeout = probe, fetch
	}
}

// WithWorkers bounds concurrent location fetches.
func WithWorkers(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// WithClock overrides the time source used to stamp results.
func WithClock(now func() time.Time) Option {
	return func(f *Fetcher) { f.now = now }
}

// WithHijri labels fetched days that the source left without a Hijri date.
func WithHijri(h HijriSource) Option {
	return func(f *Fetcher) { f.hijri = h }
}

// NewFetcher creates a Fetcher for src.
func NewFetcher(src Source, opts ...Option) *Fetcher {
	f := &Fetcher{
		source:       src,
		httpClient:   &http.Client{},
		probeURL:     defaultProbeURL,
		probeTimeout: defaultProbeTimeout,
		fetchTimeout: defaultFetchTimeout,
		workers:      defaultWorkers,
		logger:       zerolog.Nop(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// SourceName returns the name of the underlying source.
func (f *Fetcher) SourceName() string { return f.source.Name() }

// Probe issues a lightweight GET to the probe endpoint. Any transport error
// or status other than 200 counts as unreachable.
func (f *Fetcher) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, f.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.probeURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: probe returned status %d", ErrUnreachable, resp.StatusCode)
	}
	return nil
}

// FetchAll probes once, then fetches every location. A failing location is
// recorded in Result.Failures and never aborts the others. The error is set
// only when the probe fails, in which case nothing is fetched.
func (f *Fetcher) FetchAll(ctx context.Context, locs []geo.Location) (*Result, error) {
	if err := f.Probe(ctx); err != nil {
		f.logger.Warn().Err(err).Str("probe", f.probeURL).Msg("reachability probe failed")
		return nil, err
	}

	now := f.now()
	res := &Result{
		Sets:     make(map[string]*cache.ScheduleSet, len(locs)),
		Failures: make(map[string]error),
	}

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		jobs = make(chan geo.Location)
	)
	for i := 0; i < min(f.workers, len(locs)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for loc := range jobs {
				set, err := f.fetchOne(ctx, loc, now)
				mu.Lock()
				if err != nil {
					res.Failures[loc.Key] = err
				} else {
					res.Sets[loc.Key] = set
				}
				mu.Unlock()
			}
		}()
	}
	for _, loc := range locs {
		jobs <- loc
	}
	close(jobs)
	wg.Wait()

	f.labelHijri(ctx, res.Sets)

	f.logger.Info().
		Str("source", f.source.Name()).
		Int("ok", len(res.Sets)).
		Int("failed", len(res.Failures)).
		Msg("fetch complete")
	return res, nil
}

func (f *Fetcher) fetchOne(ctx context.Context, loc geo.Location, now time.Time) (*cache.ScheduleSet, error) {
	ctx, cancel := context.WithTimeout(ctx, f.fetchTimeout)
	defer cancel()

	log := f.logger.With().Str("location", loc.Key).Logger()

	table, err := f.source.FetchTable(ctx, loc, now)
	if err != nil {
		log.Warn().Err(err).Msg("fetch failed")
		return nil, fmt.Errorf("fetching %s: %w", loc.Key, err)
	}

	days, err := Normalize(table, log)
	if err != nil {
		log.Warn().Err(err).Msg("normalize failed")
		return nil, fmt.Errorf("normalizing %s: %w", loc.Key, err)
	}

	set := cache.NewScheduleSet(loc.Key)
	set.Source = f.source.Name()
	set.RefreshedAt = now
	for _, d := range days {
		set.Put(d)
	}
	log.Debug().Int("days", len(days)).Msg("fetched")
	return set, nil
}

// labelHijri fills in missing Hijri labels with one calendar request per
// month. A failed request only costs the labels of that month.
func (f *Fetcher) labelHijri(ctx context.Context, sets map[string]*cache.ScheduleSet) {
	if f.hijri == nil {
		return
	}

	months := make(map[string]bool)
	for _, set := range sets {
		for date, d := range set.Days {
			if d.Hijri == "" && len(date) >= len("2006-01") {
				months[date[:len("2006-01")]] = true
			}
		}
	}

	labels := make(map[string]string)
	for ym := range months {
		m, err := time.Parse("2006-01", ym)
		if err != nil {
			continue
		}
		mctx, cancel := context.WithTimeout(ctx, f.fetchTimeout)
		cal, err := f.hijri.HijriCalendar(mctx, m.Year(), int(m.Month()))
		cancel()
		if err != nil {
			f.logger.Warn().Err(err).Str("month", ym).Msg("hijri calendar unavailable")
			continue
		}
		maps.Copy(labels, cal)
	}

	for _, set := range sets {
		for date, d := range set.Days {
			if label, ok := labels[date]; ok && d.Hijri == "" {
				d.Hijri = label
				set.Days[date] = d
			}
		}
	}
}
