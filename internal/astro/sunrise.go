// Package astro estimates sunrise from coordinates when no network schedule
// is available.
package astro

import (
	"math"
	"time"

	"github.com/smokyabdulrahman/salah-times/internal/prayer"
)

// obliquity is the axial tilt used by the declination approximation, in degrees.
const obliquity = 23.44

// Declination returns the approximate solar declination in degrees for the
// given day of year (1-366).
func Declination(dayOfYear int) float64 {
	return obliquity * math.Sin(radians(360*float64(284+dayOfYear)/365))
}

// EstimateSunrise returns the approximate sunrise time at lat/lon (degrees,
// east positive) on date's calendar day. The result is expressed in date's
// zone. Unknown is returned when the sun does not rise or set that day.
func EstimateSunrise(lat, lon float64, date time.Time) prayer.TimeOfDay {
	decl := Declination(date.YearDay())

	cosOmega := -math.Tan(radians(lat)) * math.Tan(radians(decl))
	if cosOmega < -1 || cosOmega > 1 || math.IsNaN(cosOmega) {
		return prayer.Unknown
	}
	omega := degrees(math.Acos(cosOmega))

	_, offsetSec := date.Zone()
	utcOffset := float64(offsetSec) / 3600

	solarNoon := 12 - (lon/15 - utcOffset)
	sunrise := solarNoon - omega/15

	minutes := int(math.Floor(sunrise * 60))
	minutes %= prayer.MinutesPerDay
	if minutes < 0 {
		minutes += prayer.MinutesPerDay
	}
	return prayer.At(0, minutes)
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }
