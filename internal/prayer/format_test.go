package prayer

import (
	"strings"
	"testing"
)

// formatTestState is Asr at 15:02 seen from 12:47:00.
func formatTestState() State {
	return State{
		Current:          Dohr,
		HasCurrent:       true,
		Next:             Asr,
		HasNext:          true,
		NextTime:         At(15, 2),
		SecondsUntilNext: 2*3600 + 15*60,
	}
}

func TestFormatOutput_AllBuiltinModes(t *testing.T) {
	st := formatTestState()

	tests := []struct {
		mode string
		want string
	}{
		{FormatTimeRemaining, "2h 15m"},
		{FormatCountdown, "02:15:00"},
		{FormatNextPrayerTime, "15:02"},
		{FormatNameAndTime, "Asr 15:02"},
		{FormatNameAndRemaining, "Asr 2h 15m"},
		{FormatShortNameAndTime, "A 15:02"},
		{FormatShortNameAndRemain, "A 2h 15m"},
		{FormatFull, "Asr 15:02 (02:15:00)"},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			got := FormatOutput(st, tt.mode, "15:04")
			if got != tt.want {
				t.Errorf("FormatOutput(%q) = %q, want %q", tt.mode, got, tt.want)
			}
		})
	}
}

func TestFormatOutput_12HourFormat(t *testing.T) {
	got := FormatOutput(formatTestState(), FormatNameAndTime, "3:04 PM")
	if got != "Asr 3:02 PM" {
		t.Errorf("12h format = %q, want %q", got, "Asr 3:02 PM")
	}
}

func TestFormatOutput_UnknownModeDefaultsToNameAndTime(t *testing.T) {
	got := FormatOutput(formatTestState(), "nonexistent-format", "15:04")
	if got != "Asr 15:02" {
		t.Errorf("unknown mode = %q, want %q", got, "Asr 15:02")
	}
}

func TestFormatOutput_Tomorrow(t *testing.T) {
	st := formatTestState()
	st.Next, st.NextTime, st.NextIsTomorrow = Fajr, At(5, 10), true

	got := FormatOutput(st, FormatNameAndTime, "15:04")
	if got != "Fajr (tomorrow) 05:10" {
		t.Errorf("tomorrow = %q, want %q", got, "Fajr (tomorrow) 05:10")
	}
}

func TestFormatOutput_NoData(t *testing.T) {
	got := FormatOutput(State{NoData: true}, FormatFull, "15:04")
	if got != "--:--" {
		t.Errorf("no data = %q, want %q", got, "--:--")
	}
}

func TestFormatOutput_CustomTemplate(t *testing.T) {
	st := formatTestState()
	st.IqamaActive, st.SecondsUntilIqamaEnds = true, 65

	tests := []struct {
		name string
		tmpl string
		want string
	}{
		{"name and remaining", "{{.Name}} in {{.Remaining}}", "Asr in 2h 15m"},
		{"hours minutes seconds", "{{.Hours}}:{{.Minutes}}:{{.Seconds}}", "2:15:0"},
		{"current and iqama", "{{.Current}} iqama {{.Iqama}}", "Dohr iqama 00:01:05"},
		{"short name", "[{{.ShortName}}] {{.Time}}", "[A] 15:02"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatOutput(st, tt.tmpl, "15:04")
			if got != tt.want {
				t.Errorf("template %q = %q, want %q", tt.tmpl, got, tt.want)
			}
		})
	}
}

func TestFormatOutput_BadTemplate(t *testing.T) {
	got := FormatOutput(formatTestState(), "{{.Name", "15:04")
	if !strings.HasPrefix(got, "template-err:") {
		t.Errorf("bad template = %q, want template-err prefix", got)
	}

	got = FormatOutput(formatTestState(), "{{.Missing}}", "15:04")
	if !strings.HasPrefix(got, "template-err:") {
		t.Errorf("missing field = %q, want template-err prefix", got)
	}
}

func TestFormatRemaining(t *testing.T) {
	tests := []struct {
		name    string
		seconds int
		want    string
	}{
		{"hours and minutes", 2*3600 + 15*60, "2h 15m"},
		{"only minutes", 45 * 60, "45m"},
		{"exactly one hour", 3600, "1h 0m"},
		{"zero", 0, "0m"},
		{"negative", -1800, "0m"},
		{"large", 10*3600 + 59*60, "10h 59m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatRemaining(tt.seconds); got != tt.want {
				t.Errorf("FormatRemaining(%d) = %q, want %q", tt.seconds, got, tt.want)
			}
		})
	}
}

func TestFormatClock(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{0, "00:00:00"},
		{59, "00:00:59"},
		{3661, "01:01:01"},
		{29400, "08:10:00"},
		{-5, "00:00:00"},
	}
	for _, tt := range tests {
		if got := FormatClock(tt.seconds); got != tt.want {
			t.Errorf("FormatClock(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}
