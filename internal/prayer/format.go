package prayer

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// Format constants for display modes.
const (
	FormatTimeRemaining      = "time-remaining"
	FormatCountdown          = "countdown"
	FormatNextPrayerTime     = "next-prayer-time"
	FormatNameAndTime        = "name-and-time"
	FormatNameAndRemaining   = "name-and-remaining"
	FormatShortNameAndTime   = "short-name-and-time"
	FormatShortNameAndRemain = "short-name-and-remaining"
	FormatFull               = "full"
)

// FormatData is the data passed to custom Go templates.
type FormatData struct {
	Name      string // Next prayer name, e.g. "Asr"
	ShortName string // Abbreviated name, e.g. "A"
	Time      string // Formatted prayer time, e.g. "15:02" or "3:02 PM"
	Remaining string // Time remaining, e.g. "2h 15m"
	Countdown string // Time remaining as HH:MM:SS
	Hours     int    // Whole hours remaining
	Minutes   int    // Remaining minutes after hours
	Seconds   int    // Remaining seconds after minutes
	Tomorrow  bool   // Next prayer is tomorrow's
	Current   string // Current prayer name, empty before the first one
	Iqama     string // Iqama countdown as HH:MM:SS, empty outside the window
}

// FormatRemaining formats seconds as "Xh Ym" or "Ym" if less than an hour.
func FormatRemaining(seconds int) string {
	if seconds <= 0 {
		return "0m"
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60

	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}

// FormatClock formats seconds as "HH:MM:SS".
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}

// NewFormatData flattens a State for display.
func NewFormatData(st State, timeFormat string) FormatData {
	d := FormatData{
		Name:      st.Next.String(),
		ShortName: ShortNames[st.Next],
		Time:      st.NextTime.Format(timeFormat),
		Remaining: FormatRemaining(st.SecondsUntilNext),
		Countdown: FormatClock(st.SecondsUntilNext),
		Hours:     st.SecondsUntilNext / 3600,
		Minutes:   (st.SecondsUntilNext % 3600) / 60,
		Seconds:   st.SecondsUntilNext % 60,
		Tomorrow:  st.NextIsTomorrow,
	}
	if st.HasCurrent {
		d.Current = st.Current.String()
	}
	if st.IqamaActive {
		d.Iqama = FormatClock(st.SecondsUntilIqamaEnds)
	}
	return d
}

// FormatOutput renders the next prayer of st according to mode.
// timeFormat should be "15:04" for 24h or "3:04 PM" for 12h.
//
// If mode contains "{{", it is treated as a custom Go template string over
// FormatData, e.g. "{{.Name}} in {{.Remaining}}" -> "Asr in 2h 15m".
func FormatOutput(st State, mode string, timeFormat string) string {
	if st.NoData || !st.HasNext {
		return "--:--"
	}
	d := NewFormatData(st, timeFormat)

	if strings.Contains(mode, "{{") {
		return formatCustom(mode, d)
	}

	name := d.Name
	if d.Tomorrow {
		name += " (tomorrow)"
	}

	switch mode {
	case FormatTimeRemaining:
		return d.Remaining
	case FormatCountdown:
		return d.Countdown
	case FormatNextPrayerTime:
		return d.Time
	case FormatNameAndTime:
		return fmt.Sprintf("%s %s", name, d.Time)
	case FormatNameAndRemaining:
		return fmt.Sprintf("%s %s", name, d.Remaining)
	case FormatShortNameAndTime:
		return fmt.Sprintf("%s %s", d.ShortName, d.Time)
	case FormatShortNameAndRemain:
		return fmt.Sprintf("%s %s", d.ShortName, d.Remaining)
	case FormatFull:
		return fmt.Sprintf("%s %s (%s)", name, d.Time, d.Countdown)
	default:
		return fmt.Sprintf("%s %s", name, d.Time)
	}
}

// formatCustom executes a user-provided Go template string against the FormatData.
func formatCustom(tmpl string, data FormatData) string {
	t, err := template.New("custom").Parse(tmpl)
	if err != nil {
		return fmt.Sprintf("template-err: %v", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return fmt.Sprintf("template-err: %v", err)
	}

	return buf.String()
}
