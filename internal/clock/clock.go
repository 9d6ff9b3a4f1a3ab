// Package clock evaluates the published schedule against the wall clock once
// per second.
package clock

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smokyabdulrahman/salah-times/internal/astro"
	"github.com/smokyabdulrahman/salah-times/internal/prayer"
	"github.com/smokyabdulrahman/salah-times/internal/refresh"
)

// Interval is the nominal tick period.
const Interval = time.Second

// SnapshotSource yields the latest published schedule.
type SnapshotSource interface {
	Snapshot() refresh.Snapshot
}

// State is one tick's observable output.
type State struct {
	prayer.State
	Now      time.Time            `json:"now"`
	Location string               `json:"location"`
	Schedule prayer.DailySchedule `json:"schedule"`
	Source   string               `json:"source"`
	Stale    bool                 `json:"stale"`
	Degraded bool                 `json:"degraded"`
}

type sunriseKey struct {
	date string
	loc  string
}

type sunriseEntry struct {
	key sunriseKey
	t   prayer.TimeOfDay
}

// Clock turns snapshots into States. Tick never blocks on I/O.
type Clock struct {
	src      SnapshotSource
	estimate refresh.EstimateFunc
	now      func() time.Time
	loc      *time.Location

	delays  atomic.Pointer[prayer.IqamaDelays]
	sunrise atomic.Pointer[sunriseEntry]
	latest  atomic.Pointer[State]

	dayMu      sync.Mutex
	lastDate   string
	onRollover func(time.Time)
}

// Option configures a Clock.
type Option func(*Clock)

// WithLocation evaluates times in loc instead of the local zone.
func WithLocation(loc *time.Location) Option {
	return func(c *Clock) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// WithNow overrides the wall clock.
func WithNow(now func() time.Time) Option {
	return func(c *Clock) { c.now = now }
}

// WithEstimator overrides the sunrise estimator.
func WithEstimator(f refresh.EstimateFunc) Option {
	return func(c *Clock) { c.estimate = f }
}

// WithIqamaDelays sets the initial delay table.
func WithIqamaDelays(d prayer.IqamaDelays) Option {
	return func(c *Clock) { c.SetIqamaDelays(d) }
}

// OnRollover registers f to run when the calendar date changes between
// ticks. f must not block.
func OnRollover(f func(time.Time)) Option {
	return func(c *Clock) { c.onRollover = f }
}

// New creates a Clock reading from src.
func New(src SnapshotSource, opts ...Option) *Clock {
	c := &Clock{
		src:      src,
		estimate: astro.EstimateSunrise,
		now:      time.Now,
		loc:      time.Local,
	}
	c.SetIqamaDelays(prayer.DefaultIqamaDelays())
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetIqamaDelays replaces the delay table; the next tick uses it.
func (c *Clock) SetIqamaDelays(d prayer.IqamaDelays) {
	cp := d.Clone()
	c.delays.Store(&cp)
}

// IqamaDelays returns a copy of the current delay table.
func (c *Clock) IqamaDelays() prayer.IqamaDelays {
	return c.delays.Load().Clone()
}

// Tick evaluates the latest snapshot at the current instant.
func (c *Clock) Tick() State {
	now := c.now().In(c.loc)
	c.checkRollover(now)

	snap := c.src.Snapshot()
	today := now.Format(prayer.DateLayout)

	sched := snap.Schedule
	if sched.Date != today {
		sched = prayer.NewSchedule(now)
	}
	if snap.Location.Key != "" {
		sched = prayer.WithSolarReference(sched, c.sunriseFor(today, snap, now))
	}

	st := State{
		State:    prayer.Evaluate(sched, now, *c.delays.Load()),
		Now:      now,
		Location: snap.Location.Key,
		Schedule: sched,
		Source:   snap.Source,
		Stale:    snap.Stale,
		Degraded: snap.Degraded,
	}
	c.latest.Store(&st)
	return st
}

// Latest returns the most recent tick's State.
func (c *Clock) Latest() (State, bool) {
	if st := c.latest.Load(); st != nil {
		return *st, true
	}
	return State{}, false
}

// Run ticks every Interval until ctx is done, passing each State to out.
func (c *Clock) Run(ctx context.Context, out func(State)) {
	ticker := time.NewTicker(Interval)
	defer ticker.Stop()

	out(c.Tick())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			out(c.Tick())
		}
	}
}

// sunriseFor returns the locally estimated sunrise, computed once per day
// and location.
func (c *Clock) sunriseFor(today string, snap refresh.Snapshot, now time.Time) prayer.TimeOfDay {
	key := sunriseKey{date: today, loc: snap.Location.Key}
	if e := c.sunrise.Load(); e != nil && e.key == key {
		return e.t
	}
	t := c.estimate(snap.Location.Latitude, snap.Location.Longitude, now)
	c.sunrise.Store(&sunriseEntry{key: key, t: t})
	return t
}

func (c *Clock) checkRollover(now time.Time) {
	today := now.Format(prayer.DateLayout)

	c.dayMu.Lock()
	prev := c.lastDate
	c.lastDate = today
	c.dayMu.Unlock()

	if prev != "" && prev != today && c.onRollover != nil {
		c.onRollover(now)
	}
}
