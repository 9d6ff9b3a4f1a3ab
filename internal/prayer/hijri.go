package prayer

import (
	"fmt"
	"time"
)

// hijriYearsPerGregorian converts elapsed Gregorian years to Hijri years.
const hijriYearsPerGregorian = 1.030684

// ApproxHijriYear estimates the Hijri year of date from its Gregorian year.
// It can be off by one around the Hijri new year.
func ApproxHijriYear(date time.Time) int {
	return int(float64(date.Year()-622) * hijriYearsPerGregorian)
}

// HijriLabel returns the schedule's Hijri date, or the approximate year for
// date when the source gave none.
func HijriLabel(s DailySchedule, date time.Time) string {
	if s.Hijri != "" {
		return s.Hijri
	}
	return fmt.Sprintf("%d AH (approximate)", ApproxHijriYear(date))
}
