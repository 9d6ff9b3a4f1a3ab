package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smokyabdulrahman/salah-times/internal/cache"
	"github.com/smokyabdulrahman/salah-times/internal/clock"
	"github.com/smokyabdulrahman/salah-times/internal/display"
	"github.com/smokyabdulrahman/salah-times/internal/prayer"
)

// isolate points the config and cache at temp directories and returns the
// cache directory.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	for _, k := range []string{"SALAH_CITY", "SALAH_STORE", "SALAH_CACHE_DIR", "SALAH_SOURCE", "SALAH_TIMEZONE"} {
		t.Setenv(k, "")
	}
	display.SetEnabled(false)
	return filepath.Join(dir, "cache")
}

// execute runs the CLI in-process and returns its combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd("test")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// seed writes a fresh cached set for key covering days days from today (UTC).
// Only today carries a Hijri label.
func seed(t *testing.T, cacheDir, key string, days int) {
	t.Helper()
	fs, err := cache.NewFileStore(cacheDir)
	require.NoError(t, err)

	today := time.Now().UTC()
	set := cache.NewScheduleSet(key)
	set.Source = "yabiladi"
	set.RefreshedAt = time.Now()
	for i := 0; i < days; i++ {
		day := prayer.NewSchedule(today.AddDate(0, 0, i)).
			With(prayer.Fajr, prayer.At(5, 10)).
			With(prayer.Chorok, prayer.At(3, 0)).
			With(prayer.Dohr, prayer.At(13, 5)).
			With(prayer.Asr, prayer.At(16, 20)).
			With(prayer.Maghreb, prayer.At(19, 5)).
			With(prayer.Isha, prayer.At(20, 35))
		if i == 0 {
			day.Hijri = "1 Shawwal 1447 AH"
		}
		set.Put(day)
	}
	require.NoError(t, fs.Save(context.Background(), key, set))
}

func TestVersionFlag(t *testing.T) {
	isolate(t)

	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, "salah-times version test", strings.TrimSpace(out))
	assert.Equal(t, "salah-times v1.0.0\n", PrintVersion("v1.0.0"))
}

func TestHelpListsSubcommands(t *testing.T) {
	isolate(t)

	out, err := execute(t, "--help")
	require.NoError(t, err)
	for _, sub := range []string{"next", "list", "week", "month", "query", "watch", "refresh", "sunrise", "cities", "serve", "config", "methods"} {
		assert.Contains(t, out, sub)
	}
}

func TestMethodsSubcommand(t *testing.T) {
	isolate(t)

	out, err := execute(t, "methods")
	require.NoError(t, err)
	for _, m := range []string{"ISNA", "Muslim World League", "Umm Al-Qura", "Morocco", "Ministry of Awqaf, Jordan"} {
		assert.Contains(t, out, m)
	}
}

func TestCitiesSubcommand(t *testing.T) {
	isolate(t)

	out, err := execute(t, "cities")
	require.NoError(t, err)
	assert.Contains(t, out, "tangier")
	assert.Contains(t, out, "El Jadida")
}

func TestConfig_SetShowPathReset(t *testing.T) {
	isolate(t)

	out, err := execute(t, "config", "path")
	require.NoError(t, err)
	path := strings.TrimSpace(out)
	assert.Equal(t, filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "salah-times", "config.json"), path)

	_, err = execute(t, "config", "set", "city", "Rabat")
	require.NoError(t, err)
	_, err = execute(t, "config", "set", "method", "21")
	require.NoError(t, err)

	out, err = execute(t, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "rabat")
	assert.Contains(t, out, "21 (Morocco)")

	t.Setenv("SALAH_CITY", "fes")
	out, err = execute(t, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "overridden by SALAH_CITY=fes")

	_, err = execute(t, "config", "reset")
	require.NoError(t, err)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestConfig_SetInvalid(t *testing.T) {
	isolate(t)

	_, err := execute(t, "config", "set", "store", "postgres")
	assert.Error(t, err)
	_, err = execute(t, "config", "set", "nope", "1")
	assert.Error(t, err)
}

func TestToday_FromCacheJSON(t *testing.T) {
	cacheDir := isolate(t)
	seed(t, cacheDir, "tangier", 3)

	out, err := execute(t, "--offline", "--city", "tangier", "--cache-dir", cacheDir, "--timezone", "UTC", "--json")
	require.NoError(t, err, out)

	var got todayJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got), out)
	assert.Equal(t, "tangier", got.Location)
	assert.Equal(t, "yabiladi", got.Source)
	assert.False(t, got.Stale)
	assert.Equal(t, "13:05", got.Timings["dohr"])
	assert.Equal(t, "1 Shawwal 1447 AH", got.Hijri)
	assert.NotEqual(t, "03:00", got.Timings["chorok"], "remote sunrise is replaced by the local estimate")
	assert.NotNil(t, got.Next)
}

func TestToday_OfflineWithoutCache(t *testing.T) {
	cacheDir := isolate(t)

	out, err := execute(t, "--offline", "--city", "fes", "--cache-dir", cacheDir, "--timezone", "UTC", "--json")
	require.NoError(t, err, out)

	var got todayJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got), out)
	assert.Equal(t, "offline", got.Source)
	assert.Equal(t, fmt.Sprintf("%d AH (approximate)", prayer.ApproxHijriYear(time.Now().UTC())), got.Hijri)
	assert.Len(t, got.Timings, 1)
	assert.Contains(t, got.Timings, "chorok")
	require.NotNil(t, got.Next)
	assert.Equal(t, "chorok", got.Next.Prayer)
}

func TestToday_Rich(t *testing.T) {
	cacheDir := isolate(t)
	seed(t, cacheDir, "tangier", 1)

	out, err := execute(t, "--offline", "--city", "tangier", "--cache-dir", cacheDir, "--timezone", "UTC")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Tangier")
	assert.Contains(t, out, "[yabiladi]")
	assert.Contains(t, out, "1 Shawwal 1447 AH")
	assert.Contains(t, out, "Maghreb")
	assert.Contains(t, out, "1 day(s) cached")
}

func TestNext_Format(t *testing.T) {
	cacheDir := isolate(t)
	seed(t, cacheDir, "tangier", 2)

	out, err := execute(t, "next", "--offline", "--city", "tangier", "--cache-dir", cacheDir, "--timezone", "UTC", "--format", "{{.Name}}")
	require.NoError(t, err, out)

	_, perr := prayer.ParseName(out)
	assert.NoError(t, perr, "output %q should be a prayer name", out)
	assert.False(t, strings.HasSuffix(out, "\n"), "next prints no trailing newline")
}

func TestList_JSONReportsOnlyCachedDays(t *testing.T) {
	cacheDir := isolate(t)
	seed(t, cacheDir, "tangier", 3)

	out, err := execute(t, "list", "5", "--offline", "--city", "tangier", "--cache-dir", cacheDir, "--timezone", "UTC", "--json")
	require.NoError(t, err, out)

	var got listJSONOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got), out)
	assert.Len(t, got.Days, 3)
	assert.Equal(t, time.Now().UTC().Format(prayer.DateLayout), got.Days[0].Date)
	assert.Equal(t, "1 Shawwal 1447 AH", got.Days[0].Hijri)
	assert.Contains(t, got.Days[1].Hijri, "AH (approximate)")
}

func TestList_Rich(t *testing.T) {
	cacheDir := isolate(t)
	seed(t, cacheDir, "tangier", 2)

	out, err := execute(t, "week", "--offline", "--city", "tangier", "--cache-dir", cacheDir, "--timezone", "UTC")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Prayer Times, 7 Days")
	assert.Contains(t, out, "Chorok")
	assert.Contains(t, out, "1 Shawwal 1447 AH to ")
	assert.Contains(t, out, "5 day(s) not cached yet")
}

func TestList_InvalidDays(t *testing.T) {
	isolate(t)

	_, err := execute(t, "list", "zero", "--offline")
	assert.Error(t, err)
}

func TestQuery(t *testing.T) {
	cacheDir := isolate(t)
	seed(t, cacheDir, "tangier", 2)

	out, err := execute(t, "query", "dhuhr", "--offline", "--city", "tangier", "--cache-dir", cacheDir, "--timezone", "UTC")
	require.NoError(t, err, out)
	assert.Equal(t, "Dohr 13:05  (1 Shawwal 1447 AH)\n", out)

	out, err = execute(t, "query", "maghrib", "--days", "week", "--offline", "--city", "tangier", "--cache-dir", cacheDir, "--timezone", "UTC", "--json")
	require.NoError(t, err, out)
	assert.Contains(t, out, `"prayer": "maghreb"`)
	assert.Equal(t, 2, strings.Count(out, `"19:05"`))
	assert.Contains(t, out, `"hijri": "1 Shawwal 1447 AH"`)
}

func TestQuery_Errors(t *testing.T) {
	cacheDir := isolate(t)

	_, err := execute(t, "query", "tahajjud", "--offline")
	assert.Error(t, err)

	_, err = execute(t, "query", "fajr", "--offline", "--city", "tangier", "--cache-dir", cacheDir, "--timezone", "UTC")
	assert.ErrorContains(t, err, "no cached times")
}

func TestSunrise(t *testing.T) {
	isolate(t)

	out, err := execute(t, "sunrise", "--city", "tangier", "--date", "2026-03-21", "--timezone", "UTC")
	require.NoError(t, err, out)
	assert.Equal(t, "Tangier 2026-03-21 06:24\n", out)

	_, err = execute(t, "sunrise", "--city", "tangier", "--date", "21/03")
	assert.Error(t, err)
}

func TestRefresh(t *testing.T) {
	cacheDir := isolate(t)

	_, err := execute(t, "refresh", "--offline", "--city", "tangier", "--cache-dir", cacheDir)
	assert.ErrorContains(t, err, "refresh failed")

	seed(t, cacheDir, "tangier", 1)
	out, err := execute(t, "refresh", "--offline", "--city", "tangier", "--cache-dir", cacheDir, "--timezone", "UTC")
	require.NoError(t, err, out)
	assert.Contains(t, out, "cache is fresh")

	_, err = execute(t, "refresh", "--force", "--offline", "--city", "tangier", "--cache-dir", cacheDir, "--timezone", "UTC")
	assert.ErrorContains(t, err, "refresh failed")
}

func TestEffectiveConfig_Priority(t *testing.T) {
	cacheDir := isolate(t)

	_, err := execute(t, "config", "set", "city", "rabat")
	require.NoError(t, err)
	_, err = execute(t, "config", "set", "time_format", "12h")
	require.NoError(t, err)

	// Environment beats the file.
	t.Setenv("SALAH_CITY", "fes")
	out, err := execute(t, "--offline", "--cache-dir", cacheDir, "--timezone", "UTC", "--json")
	require.NoError(t, err, out)
	assert.Contains(t, out, `"location": "fes"`)

	// Flags beat the environment.
	out, err = execute(t, "--offline", "--city", "oujda", "--cache-dir", cacheDir, "--timezone", "UTC", "--json")
	require.NoError(t, err, out)
	assert.Contains(t, out, `"location": "oujda"`)
	assert.Contains(t, out, " AM\"", "12h format comes from the file")

	// Coordinates on the command line override the configured city.
	out, err = execute(t, "--offline", "--latitude", "33.5731", "--longitude", "-7.5898", "--cache-dir", cacheDir, "--timezone", "UTC", "--json")
	require.NoError(t, err, out)
	assert.Contains(t, out, `"location": "casablanca"`)
}

func TestParseQueryDays(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"", 1, false},
		{"week", 7, false},
		{"month", 30, false},
		{"3", 3, false},
		{"0", 0, true},
		{"fortnight", 0, true},
	}
	for _, tt := range tests {
		got, err := parseQueryDays(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		assert.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestWatchLine(t *testing.T) {
	display.SetEnabled(false)
	day := time.Date(2026, 3, 21, 0, 0, 0, 0, time.UTC)
	s := prayer.NewSchedule(day).
		With(prayer.Fajr, prayer.At(5, 10)).
		With(prayer.Dohr, prayer.At(13, 5)).
		With(prayer.Asr, prayer.At(16, 20))

	st := clock.State{
		State:    prayer.Evaluate(s, time.Date(2026, 3, 21, 13, 10, 0, 0, time.UTC), prayer.DefaultIqamaDelays()),
		Schedule: s,
		Source:   "yabiladi",
	}
	assert.Equal(t, "Asr 16:20 (03:10:00)  Dohr iqama in 00:10:00", watchLine(st, "", "15:04"))
	assert.Equal(t, "A 3h 10m", watchLine(st, prayer.FormatShortNameAndRemain, "15:04"))

	st.Source, st.Stale = "yabiladi", true
	assert.Contains(t, watchLine(st, "", "15:04"), "[yabiladi, stale]")

	assert.Equal(t, "--:-- no data", watchLine(clock.State{State: prayer.State{NoData: true}}, "", "15:04"))
}
