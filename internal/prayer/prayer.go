// Package prayer holds the prayer schedule model and the clock that derives
// the current and next prayer from it.
package prayer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Name identifies one slot of the daily schedule.
type Name int

// The daily sequence. Chorok is the sunrise marker, not a prayer.
const (
	Fajr Name = iota
	Chorok
	Dohr
	Asr
	Maghreb
	Isha

	numNames = int(Isha) + 1
)

// SolarReference is the slot that is always re-derived locally.
const SolarReference = Chorok

// Order is the fixed daily sequence used for current/next derivation.
var Order = []Name{Fajr, Chorok, Dohr, Asr, Maghreb, Isha}

var names = [numNames]string{"Fajr", "Chorok", "Dohr", "Asr", "Maghreb", "Isha"}

// ShortNames maps prayers to single-character abbreviations.
var ShortNames = map[Name]string{
	Fajr:    "F",
	Chorok:  "S",
	Dohr:    "D",
	Asr:     "A",
	Maghreb: "M",
	Isha:    "I",
}

// aliases accepted by ParseName, keyed by folded spelling.
var aliases = map[string]Name{
	"fajr":     Fajr,
	"fadjr":    Fajr,
	"sobh":     Fajr,
	"subh":     Fajr,
	"chorok":   Chorok,
	"chourouk": Chorok,
	"chorouk":  Chorok,
	"choruq":   Chorok,
	"shuruq":   Chorok,
	"shorouk":  Chorok,
	"sunrise":  Chorok,
	"dohr":     Dohr,
	"dhohr":    Dohr,
	"dhuhr":    Dohr,
	"zuhr":     Dohr,
	"asr":      Asr,
	"maghreb":  Maghreb,
	"maghrib":  Maghreb,
	"isha":     Isha,
	"ishaa":    Isha,
}

// String returns the canonical name.
func (n Name) String() string {
	if n < 0 || int(n) >= numNames {
		return fmt.Sprintf("Name(%d)", int(n))
	}
	return names[n]
}

// IsPrayer reports whether n is one of the five prayers.
func (n Name) IsPrayer() bool {
	return n != Chorok && n >= 0 && int(n) < numNames
}

// MarshalText implements encoding.TextMarshaler so Name can key JSON maps.
func (n Name) MarshalText() ([]byte, error) {
	if n < 0 || int(n) >= numNames {
		return nil, fmt.Errorf("invalid prayer name %d", int(n))
	}
	return []byte(names[n]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (n *Name) UnmarshalText(b []byte) error {
	v, err := ParseName(string(b))
	if err != nil {
		return err
	}
	*n = v
	return nil
}

// ParseName resolves a prayer name, accepting common spellings
// ("Dhuhr", "Maghrib", "Sunrise", ...). Case and accents are ignored.
func ParseName(s string) (Name, error) {
	if n, ok := aliases[fold(s)]; ok {
		return n, nil
	}
	return 0, fmt.Errorf("unknown prayer name: %q", s)
}

// fold lower-cases s and strips the accents and punctuation that show up in
// scraped column headers.
func fold(s string) string {
	r := strings.NewReplacer(
		"é", "e", "è", "e", "ê", "e", "É", "e",
		"à", "a", "â", "a",
		"ô", "o", "ö", "o",
		"î", "i", "ï", "i",
		"û", "u", "ü", "u",
		"'", "", "’", "", "-", "", " ", "", ".", "",
	)
	return strings.ToLower(r.Replace(strings.TrimSpace(s)))
}

// TimeOfDay is an optional wall-clock time with minute precision.
// The zero value is Unknown.
type TimeOfDay struct {
	minutes int
	known   bool
}

// Unknown marks a time that is not available.
var Unknown = TimeOfDay{}

// MinutesPerDay is the length of a calendar day in minutes.
const MinutesPerDay = 24 * 60

// At builds a known time of day. Out-of-range values wrap around midnight.
func At(hour, minute int) TimeOfDay {
	m := (hour*60 + minute) % MinutesPerDay
	if m < 0 {
		m += MinutesPerDay
	}
	return TimeOfDay{minutes: m, known: true}
}

// Known reports whether the time is available.
func (t TimeOfDay) Known() bool { return t.known }

// Minutes returns minutes since midnight. Only meaningful when Known.
func (t TimeOfDay) Minutes() int { return t.minutes }

// Hour returns the hour component.
func (t TimeOfDay) Hour() int { return t.minutes / 60 }

// Minute returns the minute component.
func (t TimeOfDay) Minute() int { return t.minutes % 60 }

// On places the time on the calendar date of day, in loc.
func (t TimeOfDay) On(day time.Time, loc *time.Location) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, loc)
}

// String formats the time as "HH:MM", or "--:--" when unknown.
func (t TimeOfDay) String() string {
	if !t.known {
		return "--:--"
	}
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// Format renders the time with a Go layout such as "15:04" or "3:04 PM".
func (t TimeOfDay) Format(layout string) string {
	if !t.known {
		return "--:--"
	}
	return time.Date(2000, 1, 1, t.Hour(), t.Minute(), 0, 0, time.UTC).Format(layout)
}

// MarshalJSON encodes known times as "HH:MM" and unknown ones as null.
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	if !t.known {
		return []byte("null"), nil
	}
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts "HH:MM", "--:--" and null.
func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*t = Unknown
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// ParseTimeOfDay parses "15:02", "15:02 (BST)" or "15h02". Empty strings and
// "--:--" yield Unknown without error.
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	// Strip timezone suffix like " (BST)" that some sources append.
	s := strings.TrimSpace(raw)
	if idx := strings.Index(s, " "); idx != -1 {
		s = s[:idx]
	}
	if s == "" || s == "--:--" || s == "-" {
		return Unknown, nil
	}
	s = strings.Replace(strings.ToLower(s), "h", ":", 1)

	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return Unknown, fmt.Errorf("invalid time format: %q", raw)
	}

	var hour, min int
	if _, err := fmt.Sscanf(parts[0], "%d", &hour); err != nil {
		return Unknown, fmt.Errorf("invalid hour in %q: %w", raw, err)
	}
	if _, err := fmt.Sscanf(parts[1], "%d", &min); err != nil {
		return Unknown, fmt.Errorf("invalid minute in %q: %w", raw, err)
	}
	if hour < 0 || hour > 23 || min < 0 || min > 59 {
		return Unknown, fmt.Errorf("time out of range: %q", raw)
	}

	return At(hour, min), nil
}

// DateLayout is the calendar-date key format used throughout the cache.
const DateLayout = "2006-01-02"

// ErrOutOfOrder reports a schedule whose defined times decrease.
var ErrOutOfOrder = errors.New("prayer times out of order")

// DailySchedule maps every Name to a time for one calendar date. It is a
// plain value: copies never share state.
type DailySchedule struct {
	Date string
	// Hijri is the source's Hijri date label, empty when unknown.
	Hijri string
	times [numNames]TimeOfDay
}

// NewSchedule returns an all-Unknown schedule for date.
func NewSchedule(date time.Time) DailySchedule {
	return DailySchedule{Date: date.Format(DateLayout)}
}

// Get returns the time for n.
func (s DailySchedule) Get(n Name) TimeOfDay {
	if n < 0 || int(n) >= numNames {
		return Unknown
	}
	return s.times[n]
}

// With returns a copy of s with n set to t.
func (s DailySchedule) With(n Name, t TimeOfDay) DailySchedule {
	if n >= 0 && int(n) < numNames {
		s.times[n] = t
	}
	return s
}

// Empty reports whether no entry is known.
func (s DailySchedule) Empty() bool {
	for _, t := range s.times {
		if t.known {
			return false
		}
	}
	return true
}

// Partial reports whether some but not all entries are known.
func (s DailySchedule) Partial() bool {
	if s.Empty() {
		return false
	}
	for _, t := range s.times {
		if !t.known {
			return true
		}
	}
	return false
}

// Entry is one defined slot of a schedule.
type Entry struct {
	Name Name
	Time TimeOfDay
}

// Defined lists the known entries in daily order.
func (s DailySchedule) Defined() []Entry {
	var out []Entry
	for _, n := range Order {
		if t := s.times[n]; t.known {
			out = append(out, Entry{Name: n, Time: t})
		}
	}
	return out
}

// Validate checks that defined entries never decrease in daily order.
// Unknown entries are skipped.
func (s DailySchedule) Validate() error {
	defined := s.Defined()
	for i := 1; i < len(defined); i++ {
		prev, cur := defined[i-1], defined[i]
		if cur.Time.Minutes() < prev.Time.Minutes() {
			return fmt.Errorf("%w: %s %s after %s %s on %s",
				ErrOutOfOrder, cur.Name, cur.Time, prev.Name, prev.Time, s.Date)
		}
	}
	return nil
}

// WithSolarReference substitutes the locally computed sunrise. An Unknown t
// removes the remote value so it never drives evaluation.
func WithSolarReference(s DailySchedule, t TimeOfDay) DailySchedule {
	return s.With(SolarReference, t)
}

type scheduleJSON struct {
	Date  string             `json:"date"`
	Hijri string             `json:"hijri,omitempty"`
	Times map[Name]TimeOfDay `json:"times"`
}

// MarshalJSON encodes the schedule with named slots; unknown slots are null.
func (s DailySchedule) MarshalJSON() ([]byte, error) {
	out := scheduleJSON{Date: s.Date, Hijri: s.Hijri, Times: make(map[Name]TimeOfDay, numNames)}
	for _, n := range Order {
		out.Times[n] = s.times[n]
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the form written by MarshalJSON. Missing slots are
// Unknown.
func (s *DailySchedule) UnmarshalJSON(b []byte) error {
	var in scheduleJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	out := DailySchedule{Date: in.Date, Hijri: in.Hijri}
	for n, t := range in.Times {
		out.times[n] = t
	}
	*s = out
	return nil
}
