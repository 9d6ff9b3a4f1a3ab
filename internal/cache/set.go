package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/smokyabdulrahman/salah-times/internal/prayer"
)

// StaleAfter is the cache age at which a refresh is attempted.
const StaleAfter = 24 * time.Hour

// ScheduleSet is the cached multi-day schedule for one location.
type ScheduleSet struct {
	Location    string                          `json:"location"`
	Source      string                          `json:"source"`
	RefreshedAt time.Time                       `json:"refreshed_at"`
	Days        map[string]prayer.DailySchedule `json:"days"`
}

// NewScheduleSet returns an empty set for key.
func NewScheduleSet(key string) *ScheduleSet {
	return &ScheduleSet{Location: key, Days: make(map[string]prayer.DailySchedule)}
}

// Day returns a copy of the schedule for date's calendar day.
func (s *ScheduleSet) Day(date time.Time) (prayer.DailySchedule, bool) {
	if s == nil {
		return prayer.DailySchedule{}, false
	}
	d, ok := s.Days[date.Format(prayer.DateLayout)]
	return d, ok
}

// Put stores d under its own date.
func (s *ScheduleSet) Put(d prayer.DailySchedule) {
	if s.Days == nil {
		s.Days = make(map[string]prayer.DailySchedule)
	}
	s.Days[d.Date] = d
}

// Merge copies o's days into s, replacing days with the same date.
// RefreshedAt and Source keep s's values.
func (s *ScheduleSet) Merge(o *ScheduleSet) {
	if o == nil {
		return
	}
	for _, d := range o.Days {
		s.Put(d)
	}
}

// Clone returns a copy that shares nothing with s.
func (s *ScheduleSet) Clone() *ScheduleSet {
	if s == nil {
		return nil
	}
	out := *s
	out.Days = make(map[string]prayer.DailySchedule, len(s.Days))
	for k, v := range s.Days {
		out.Days[k] = v
	}
	return &out
}

// Verdict says whether a cached set should be refreshed.
type Verdict int

const (
	Absent Verdict = iota
	Stale
	Fresh
)

func (v Verdict) String() string {
	switch v {
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	default:
		return "absent"
	}
}

// Staleness judges set against now. A set refreshed StaleAfter or longer ago
// is Stale, and so is one that has no entry for now's date.
func Staleness(set *ScheduleSet, now time.Time) Verdict {
	if set == nil {
		return Absent
	}
	if now.Sub(set.RefreshedAt) >= StaleAfter {
		return Stale
	}
	if _, ok := set.Day(now); !ok {
		return Stale
	}
	return Fresh
}

// envelopeVersion is bumped whenever the persisted layout changes.
const envelopeVersion = 1

type envelope struct {
	Version int          `json:"version"`
	Set     *ScheduleSet `json:"set"`
}

// errCorrupt marks persisted data that cannot be decoded.
var errCorrupt = errors.New("corrupt cache entry")

func encodeSet(set *ScheduleSet) ([]byte, error) {
	data, err := json.Marshal(envelope{Version: envelopeVersion, Set: set})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schedule set: %w", err)
	}
	return data, nil
}

func decodeSet(data []byte) (*ScheduleSet, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", errCorrupt, err)
	}
	if env.Version != envelopeVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", errCorrupt, env.Version)
	}
	if env.Set == nil {
		return nil, fmt.Errorf("%w: missing set", errCorrupt)
	}
	if env.Set.Days == nil {
		env.Set.Days = make(map[string]prayer.DailySchedule)
	}
	return env.Set, nil
}
