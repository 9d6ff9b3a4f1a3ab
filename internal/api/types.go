package api

// CalendarResponse represents the Al Adhan calendar API response.
// The calendar endpoint returns an array of daily data objects for a whole month.
type CalendarResponse struct {
	Code   int    `json:"code"`
	Status string `json:"status"`
	Data   []Data `json:"data"`
}

// Data holds one day's timings, date info, and metadata.
type Data struct {
	Timings Timings  `json:"timings"`
	Date    DateInfo `json:"date"`
	Meta    Meta     `json:"meta"`
}

// Timings contains the prayer and event times as HH:MM strings.
// The API may include a timezone suffix like " (WEST)" which is stripped during parsing.
type Timings struct {
	Fajr    string `json:"Fajr"`
	Sunrise string `json:"Sunrise"`
	Dhuhr   string `json:"Dhuhr"`
	Asr     string `json:"Asr"`
	Sunset  string `json:"Sunset"`
	Maghrib string `json:"Maghrib"`
	Isha    string `json:"Isha"`
}

// DateInfo contains date representations.
type DateInfo struct {
	Readable  string        `json:"readable"`
	Timestamp string        `json:"timestamp"`
	Hijri     HijriDate     `json:"hijri"`
	Gregorian GregorianDate `json:"gregorian"`
}

// HijriDate represents the Hijri (Islamic) date from the API response.
type HijriDate struct {
	Date        string           `json:"date"` // e.g. "02-10-1447"
	Day         string           `json:"day"`
	Month       HijriMonth       `json:"month"`
	Year        string           `json:"year"`
	Designation HijriDesignation `json:"designation"`
}

// HijriMonth represents the month in the Hijri calendar.
type HijriMonth struct {
	Number int    `json:"number"`
	En     string `json:"en"` // English name, e.g. "Shawwal"
	Ar     string `json:"ar"`
}

// HijriDesignation contains the calendar designation labels.
type HijriDesignation struct {
	Abbreviated string `json:"abbreviated"` // "AH"
	Expanded    string `json:"expanded"`
}

// Format returns the Hijri date as "DD MonthName YYYY AH".
func (h HijriDate) Format() string {
	if h.Day == "" || h.Month.En == "" || h.Year == "" {
		return ""
	}
	abbr := h.Designation.Abbreviated
	if abbr == "" {
		abbr = "AH"
	}
	return h.Day + " " + h.Month.En + " " + h.Year + " " + abbr
}

// HijriCalendarResponse is the gToHCalendar payload: one DateInfo per
// Gregorian day of the month.
type HijriCalendarResponse struct {
	Code   int        `json:"code"`
	Status string     `json:"status"`
	Data   []DateInfo `json:"data"`
}

// GregorianDate represents the Gregorian date from the API response.
type GregorianDate struct {
	Date string `json:"date"` // e.g. "21-03-2026"
}

// Meta contains request metadata returned by the API.
type Meta struct {
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	Timezone  string     `json:"timezone"`
	Method    MethodInfo `json:"method"`
	School    string     `json:"school"`
}

// MethodInfo identifies the calculation method used.
type MethodInfo struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// aladhanHeader is the column order produced from Timings.
var aladhanHeader = []string{"Date", "Fajr", "Sunrise", "Dhuhr", "Asr", "Maghrib", "Isha"}

// Row flattens a day into table cells. The API's DD-MM-YYYY date becomes
// YYYY-MM-DD; an unparsable date is passed through for Normalize to reject.
func (d Data) Row() []string {
	date := d.Date.Gregorian.ISO()
	t := d.Timings
	return []string{date, t.Fajr, t.Sunrise, t.Dhuhr, t.Asr, t.Maghrib, t.Isha}
}

// ISO converts the DD-MM-YYYY date to YYYY-MM-DD, or returns it unchanged.
func (g GregorianDate) ISO() string {
	if parts := splitDMY(g.Date); parts != nil {
		return parts[2] + "-" + parts[1] + "-" + parts[0]
	}
	return g.Date
}

func splitDMY(s string) []string {
	if len(s) != len("02-01-2006") || s[2] != '-' || s[5] != '-' {
		return nil
	}
	return []string{s[0:2], s[3:5], s[6:]}
}
