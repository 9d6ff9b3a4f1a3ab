package api

import "testing"

func TestHijriDate_Format(t *testing.T) {
	tests := []struct {
		name string
		h    HijriDate
		want string
	}{
		{
			name: "full date",
			h: HijriDate{
				Day:         "10",
				Month:       HijriMonth{Number: 8, En: "Sha'ban"},
				Year:        "1447",
				Designation: HijriDesignation{Abbreviated: "AH"},
			},
			want: "10 Sha'ban 1447 AH",
		},
		{
			name: "missing abbreviated defaults to AH",
			h: HijriDate{
				Day:   "1",
				Month: HijriMonth{Number: 1, En: "Muharram"},
				Year:  "1448",
			},
			want: "1 Muharram 1448 AH",
		},
		{
			name: "empty day returns empty",
			h: HijriDate{
				Month: HijriMonth{En: "Ramadan"},
				Year:  "1447",
			},
			want: "",
		},
		{
			name: "empty month returns empty",
			h: HijriDate{
				Day:  "15",
				Year: "1447",
			},
			want: "",
		},
		{
			name: "empty year returns empty",
			h: HijriDate{
				Day:   "15",
				Month: HijriMonth{En: "Ramadan"},
			},
			want: "",
		},
		{
			name: "expanded designation is ignored",
			h: HijriDate{
				Day:         "2",
				Month:       HijriMonth{Number: 10, En: "Shawwal"},
				Year:        "1447",
				Designation: HijriDesignation{Abbreviated: "AH", Expanded: "Anno Hegirae"},
			},
			want: "2 Shawwal 1447 AH",
		},
		{
			name: "all empty returns empty",
			h:    HijriDate{},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.h.Format()
			if got != tt.want {
				t.Errorf("HijriDate.Format() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGregorianDate_ISO(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"21-03-2026", "2026-03-21"},
		{"01-12-2027", "2027-12-01"},
		{"2026-03-21", "2026-03-21"},
		{"garbage", "garbage"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := (GregorianDate{Date: tt.in}).ISO(); got != tt.want {
			t.Errorf("ISO(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
