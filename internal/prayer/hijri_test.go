package prayer

import (
	"encoding/json"
	"testing"
	"time"
)

func TestApproxHijriYear(t *testing.T) {
	tests := []struct {
		year int
		want int
	}{
		{2026, 1447},
		{2025, 1446},
		{2030, 1451},
	}
	for _, tt := range tests {
		got := ApproxHijriYear(time.Date(tt.year, 6, 1, 0, 0, 0, 0, time.UTC))
		if got != tt.want {
			t.Errorf("ApproxHijriYear(%d) = %d, want %d", tt.year, got, tt.want)
		}
	}
}

func TestHijriLabel(t *testing.T) {
	date := time.Date(2026, 3, 21, 0, 0, 0, 0, time.UTC)

	s := NewSchedule(date)
	if got := HijriLabel(s, date); got != "1447 AH (approximate)" {
		t.Errorf("HijriLabel() = %q, want approximate year", got)
	}

	s.Hijri = "2 Shawwal 1447 AH"
	if got := HijriLabel(s, date); got != "2 Shawwal 1447 AH" {
		t.Errorf("HijriLabel() = %q, want the source label", got)
	}
}

func TestDailySchedule_HijriSurvivesJSONAndWith(t *testing.T) {
	s := NewSchedule(time.Date(2026, 3, 21, 0, 0, 0, 0, time.UTC)).With(Dohr, At(13, 5))
	s.Hijri = "2 Shawwal 1447 AH"
	s = WithSolarReference(s, At(7, 24))

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var back DailySchedule
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back.Hijri != "2 Shawwal 1447 AH" {
		t.Errorf("Hijri = %q after round trip", back.Hijri)
	}

	var old DailySchedule
	if err := json.Unmarshal([]byte(`{"date":"2026-03-21","times":{"Dohr":"13:05"}}`), &old); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if old.Hijri != "" {
		t.Errorf("sets cached without a Hijri label should decode with none, got %q", old.Hijri)
	}
}
