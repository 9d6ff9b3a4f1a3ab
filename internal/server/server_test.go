package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smokyabdulrahman/salah-times/internal/cache"
	"github.com/smokyabdulrahman/salah-times/internal/clock"
	"github.com/smokyabdulrahman/salah-times/internal/geo"
	"github.com/smokyabdulrahman/salah-times/internal/prayer"
	"github.com/smokyabdulrahman/salah-times/internal/refresh"
)

var morocco = time.FixedZone("UTC+1", 3600)

type fakeCoordinator struct {
	mu    sync.Mutex
	snap  refresh.Snapshot
	moved []string
}

func (f *fakeCoordinator) Snapshot() refresh.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeCoordinator) Phase() refresh.Phase { return refresh.HasCacheFresh }

func (f *fakeCoordinator) SetLocation(_ context.Context, loc geo.Location) cache.Verdict {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moved = append(f.moved, loc.Key)
	f.snap = refresh.Snapshot{Location: loc, Schedule: prayer.NewSchedule(f.snap.PublishedAt)}
	return cache.Absent
}

func newTestServer(t *testing.T) (*Server, *fakeCoordinator, *clock.Clock) {
	t.Helper()
	now := time.Date(2026, 3, 21, 14, 0, 0, 0, morocco)
	coord := &fakeCoordinator{snap: refresh.Snapshot{
		Location: geo.Default(),
		Schedule: prayer.NewSchedule(now).
			With(prayer.Fajr, prayer.At(5, 10)).
			With(prayer.Dohr, prayer.At(13, 5)).
			With(prayer.Asr, prayer.At(16, 20)).
			With(prayer.Maghreb, prayer.At(19, 5)).
			With(prayer.Isha, prayer.At(20, 35)),
		Source:      "yabiladi",
		PublishedAt: now,
	}}
	clk := clock.New(coord,
		clock.WithLocation(morocco),
		clock.WithNow(func() time.Time { return now }),
		clock.WithEstimator(func(float64, float64, time.Time) prayer.TimeOfDay { return prayer.At(7, 24) }),
	)
	return New(context.Background(), "127.0.0.1:0", coord, clk, zerolog.Nop()), coord, clk
}

func do(t *testing.T, s *Server, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return w, out
}

func TestHealth(t *testing.T) {
	s, _, _ := newTestServer(t)

	w, body := do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "cache-fresh", body["phase"])
}

func TestToday(t *testing.T) {
	s, _, _ := newTestServer(t)

	w, body := do(t, s, http.MethodGet, "/v1/today", "")
	require.Equal(t, http.StatusOK, w.Code)

	data := body["data"].(map[string]any)
	assert.Equal(t, "yabiladi", data["source"])
	schedule := data["schedule"].(map[string]any)
	assert.Equal(t, "2026-03-21", schedule["date"])
	assert.Equal(t, false, body["meta"].(map[string]any)["no_data"])
}

func TestState(t *testing.T) {
	s, _, _ := newTestServer(t)

	w, body := do(t, s, http.MethodGet, "/v1/state", "")
	require.Equal(t, http.StatusOK, w.Code)

	data := body["data"].(map[string]any)
	assert.Equal(t, "Dohr", data["current"])
	assert.Equal(t, "tangier", data["location"])
	assert.Equal(t, false, data["no_data"])

	next := data["next"].(map[string]any)
	assert.Equal(t, "Asr", next["name"])
	assert.Equal(t, "16:20", next["time"])
	assert.Equal(t, float64(8400), next["seconds_left"])
	assert.Equal(t, "02:20:00", next["countdown"])

	times := data["schedule"].(map[string]any)["times"].(map[string]any)
	assert.Equal(t, "07:24", times["Chorok"], "local sunrise is substituted")
}

func TestState_NoData(t *testing.T) {
	s, coord, _ := newTestServer(t)
	coord.snap.Schedule = prayer.NewSchedule(coord.snap.PublishedAt)
	coord.snap.Location = geo.Location{}

	_, body := do(t, s, http.MethodGet, "/v1/state", "")
	data := body["data"].(map[string]any)
	assert.Equal(t, true, data["no_data"])
	assert.Nil(t, data["current"])
	assert.Nil(t, data["next"])
}

func TestLocations(t *testing.T) {
	s, _, _ := newTestServer(t)

	w, body := do(t, s, http.MethodGet, "/v1/locations", "")
	require.Equal(t, http.StatusOK, w.Code)

	meta := body["meta"].(map[string]any)
	assert.Equal(t, float64(len(geo.All())), meta["count"])
	assert.Equal(t, "tangier", meta["current"])
	assert.Len(t, body["data"], len(geo.All()))
}

func TestSetLocation(t *testing.T) {
	s, coord, _ := newTestServer(t)

	w, body := do(t, s, http.MethodPut, "/v1/location/Marrakech", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "marrakech", body["data"].(map[string]any)["key"])
	assert.Equal(t, "absent", body["meta"].(map[string]any)["cache"])
	assert.Equal(t, []string{"marrakech"}, coord.moved)
}

func TestSetLocation_Unknown(t *testing.T) {
	s, coord, _ := newTestServer(t)

	w, body := do(t, s, http.MethodPut, "/v1/location/atlantis", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, body["error"], "unknown city")
	assert.Empty(t, coord.moved)
}

func TestIqama_GetAndSet(t *testing.T) {
	s, _, clk := newTestServer(t)

	_, body := do(t, s, http.MethodGet, "/v1/iqama", "")
	data := body["data"].(map[string]any)
	assert.Equal(t, float64(20), data["Fajr"])
	assert.NotContains(t, data, "Chorok")

	w, body := do(t, s, http.MethodPut, "/v1/iqama", `{"Fajr": 25, "Dhuhr": 0}`)
	require.Equal(t, http.StatusOK, w.Code)
	data = body["data"].(map[string]any)
	assert.Equal(t, float64(25), data["Fajr"])
	assert.Equal(t, float64(0), data["Dohr"])
	assert.Equal(t, float64(15), data["Asr"])

	assert.Equal(t, 25, clk.IqamaDelays().Delay(prayer.Fajr))
}

func TestIqama_SetRejectsBadInput(t *testing.T) {
	s, _, clk := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"not json", `{`},
		{"chorok", `{"Chorok": 5}`},
		{"unknown name", `{"Tahajjud": 5}`},
		{"negative", `{"Fajr": -1}`},
		{"too long", `{"Fajr": 500}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := do(t, s, http.MethodPut, "/v1/iqama", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.NotEmpty(t, body["error"])
		})
	}
	assert.Equal(t, 20, clk.IqamaDelays().Delay(prayer.Fajr))
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	s, _, _ := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
