package clock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smokyabdulrahman/salah-times/internal/geo"
	"github.com/smokyabdulrahman/salah-times/internal/prayer"
	"github.com/smokyabdulrahman/salah-times/internal/refresh"
)

var morocco = time.FixedZone("UTC+1", 3600)

type fakeSource struct {
	mu   sync.Mutex
	snap refresh.Snapshot
}

func (f *fakeSource) Snapshot() refresh.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeSource) set(s refresh.Snapshot) {
	f.mu.Lock()
	f.snap = s
	f.mu.Unlock()
}

type manualNow struct {
	mu sync.Mutex
	t  time.Time
}

func (m *manualNow) now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t
}

func (m *manualNow) set(t time.Time) {
	m.mu.Lock()
	m.t = t
	m.mu.Unlock()
}

func at(h, m, s int) time.Time {
	return time.Date(2026, 3, 21, h, m, s, 0, morocco)
}

func remoteSnapshot() refresh.Snapshot {
	return refresh.Snapshot{
		Location: geo.Default(),
		Schedule: prayer.NewSchedule(at(0, 0, 0)).
			With(prayer.Fajr, prayer.At(5, 10)).
			With(prayer.Chorok, prayer.At(6, 0)). // remote value, never shown
			With(prayer.Dohr, prayer.At(13, 5)).
			With(prayer.Asr, prayer.At(16, 20)).
			With(prayer.Maghreb, prayer.At(19, 5)).
			With(prayer.Isha, prayer.At(20, 35)),
		Source: "yabiladi",
	}
}

func fixedSunrise(t prayer.TimeOfDay) refresh.EstimateFunc {
	return func(float64, float64, time.Time) prayer.TimeOfDay { return t }
}

func TestTick_Scenario(t *testing.T) {
	src := &fakeSource{snap: remoteSnapshot()}
	clk := &manualNow{t: at(14, 0, 0)}
	c := New(src, WithNow(clk.now), WithLocation(morocco), WithEstimator(fixedSunrise(prayer.At(7, 24))))

	st := c.Tick()
	assert.Equal(t, prayer.Dohr, st.Current)
	assert.Equal(t, prayer.Asr, st.Next)
	assert.Equal(t, 8400, st.SecondsUntilNext)
	assert.Equal(t, "tangier", st.Location)
	assert.Equal(t, "yabiladi", st.Source)

	clk.set(at(21, 0, 0))
	st = c.Tick()
	assert.Equal(t, prayer.Isha, st.Current)
	assert.Equal(t, prayer.Fajr, st.Next)
	assert.True(t, st.NextIsTomorrow)
	assert.Equal(t, 29400, st.SecondsUntilNext)
}

func TestTick_SubstitutesLocalSunrise(t *testing.T) {
	src := &fakeSource{snap: remoteSnapshot()}
	clk := &manualNow{t: at(6, 30, 0)}
	c := New(src, WithNow(clk.now), WithLocation(morocco), WithEstimator(fixedSunrise(prayer.At(7, 24))))

	st := c.Tick()
	assert.Equal(t, prayer.At(7, 24), st.Schedule.Get(prayer.Chorok))
	assert.Equal(t, prayer.Fajr, st.Current, "remote Chorok at 06:00 must not drive current")
	assert.Equal(t, prayer.Chorok, st.Next)
	assert.Equal(t, prayer.At(7, 24), st.NextTime)

	// The published snapshot itself is untouched.
	assert.Equal(t, prayer.At(6, 0), src.Snapshot().Schedule.Get(prayer.Chorok))
}

func TestTick_UnknownSunriseRemovesRemoteValue(t *testing.T) {
	src := &fakeSource{snap: remoteSnapshot()}
	clk := &manualNow{t: at(6, 30, 0)}
	c := New(src, WithNow(clk.now), WithLocation(morocco), WithEstimator(fixedSunrise(prayer.Unknown)))

	st := c.Tick()
	assert.False(t, st.Schedule.Get(prayer.Chorok).Known())
	assert.Equal(t, prayer.Dohr, st.Next)
}

func TestTick_SunriseComputedOncePerDay(t *testing.T) {
	var calls atomic.Int32
	est := func(float64, float64, time.Time) prayer.TimeOfDay {
		calls.Add(1)
		return prayer.At(7, 24)
	}
	src := &fakeSource{snap: remoteSnapshot()}
	clk := &manualNow{t: at(10, 0, 0)}
	c := New(src, WithNow(clk.now), WithLocation(morocco), WithEstimator(est))

	for i := 0; i < 5; i++ {
		clk.set(at(10, 0, i))
		c.Tick()
	}
	assert.Equal(t, int32(1), calls.Load())

	snap := remoteSnapshot()
	snap.Location, _ = geo.Lookup("fes")
	src.set(snap)
	c.Tick()
	assert.Equal(t, int32(2), calls.Load(), "location change recomputes sunrise")
}

func TestTick_NoData(t *testing.T) {
	src := &fakeSource{}
	c := New(src, WithNow(func() time.Time { return at(12, 0, 0) }), WithLocation(morocco))

	st := c.Tick()
	assert.True(t, st.NoData)
	assert.False(t, st.HasCurrent)
	assert.Zero(t, st.SecondsUntilNext)
}

func TestTick_OfflineSnapshot(t *testing.T) {
	src := &fakeSource{snap: refresh.Snapshot{
		Location: geo.Default(),
		Schedule: prayer.NewSchedule(at(0, 0, 0)).With(prayer.Chorok, prayer.At(7, 24)),
		Source:   refresh.SourceOffline,
		Degraded: true,
	}}
	c := New(src, WithNow(func() time.Time { return at(6, 0, 0) }), WithLocation(morocco),
		WithEstimator(fixedSunrise(prayer.At(7, 24))))

	st := c.Tick()
	assert.True(t, st.Degraded)
	assert.False(t, st.NoData)
	assert.Equal(t, prayer.Chorok, st.Next)
	assert.Equal(t, 84*60, st.SecondsUntilNext)
}

func TestTick_YesterdaySnapshotIsNotEvaluated(t *testing.T) {
	src := &fakeSource{snap: remoteSnapshot()} // dated 2026-03-21
	next := time.Date(2026, 3, 22, 14, 0, 0, 0, morocco)
	c := New(src, WithNow(func() time.Time { return next }), WithLocation(morocco),
		WithEstimator(fixedSunrise(prayer.Unknown)))

	st := c.Tick()
	assert.True(t, st.NoData)
	assert.Equal(t, "2026-03-22", st.Schedule.Date)
}

func TestTick_IqamaDelaysReplaceable(t *testing.T) {
	src := &fakeSource{snap: remoteSnapshot()}
	clk := &manualNow{t: at(13, 20, 0)}
	c := New(src, WithNow(clk.now), WithLocation(morocco), WithEstimator(fixedSunrise(prayer.At(7, 24))))

	st := c.Tick()
	assert.False(t, st.IqamaActive, "default Dohr window is 15 minutes")

	c.SetIqamaDelays(prayer.IqamaDelays{prayer.Dohr: 30})
	st = c.Tick()
	assert.True(t, st.IqamaActive)
	assert.Equal(t, 15*60, st.SecondsUntilIqamaEnds)
	assert.Equal(t, 30, c.IqamaDelays()[prayer.Dohr])
}

func TestTick_Rollover(t *testing.T) {
	src := &fakeSource{snap: remoteSnapshot()}
	clk := &manualNow{t: at(23, 59, 59)}

	var rolled []time.Time
	c := New(src, WithNow(clk.now), WithLocation(morocco),
		WithEstimator(fixedSunrise(prayer.At(7, 24))),
		OnRollover(func(t time.Time) { rolled = append(rolled, t) }),
	)

	c.Tick()
	assert.Empty(t, rolled, "first tick is not a rollover")

	clk.set(at(23, 59, 59).Add(time.Second))
	c.Tick()
	require.Len(t, rolled, 1)
	assert.Equal(t, 22, rolled[0].Day())

	c.Tick()
	assert.Len(t, rolled, 1)
}

func TestLatest(t *testing.T) {
	c := New(&fakeSource{}, WithNow(func() time.Time { return at(12, 0, 0) }))
	_, ok := c.Latest()
	assert.False(t, ok)

	c.Tick()
	st, ok := c.Latest()
	require.True(t, ok)
	assert.True(t, st.NoData)
}

func TestRun_TicksUntilCanceled(t *testing.T) {
	src := &fakeSource{snap: remoteSnapshot()}
	c := New(src, WithLocation(morocco), WithEstimator(fixedSunrise(prayer.At(7, 24))))

	ctx, cancel := context.WithCancel(context.Background())
	var n atomic.Int32
	done := make(chan struct{})
	go func() {
		c.Run(ctx, func(State) {
			if n.Add(1) == 2 {
				cancel()
			}
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	assert.GreaterOrEqual(t, n.Load(), int32(2))
}
