package api

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/smokyabdulrahman/salah-times/internal/prayer"
)

// Table is a raw multi-day schedule as read from a source. The first column
// holds a YYYY-MM-DD date; the rest hold one time per prayer.
type Table struct {
	Header []string
	Rows   [][]string
	// Hijri optionally labels each row with its Hijri date, by row index.
	Hijri []string
}

// ErrHeaderMismatch reports a table whose columns are not
// Date, Fajr, Chorok, Dohr, Asr, Maghreb, Isha.
var ErrHeaderMismatch = errors.New("unexpected table header")

// ErrNoValidDays reports a table in which every row was rejected.
var ErrNoValidDays = errors.New("no valid days in table")

var dateHeaders = map[string]bool{"date": true, "jour": true, "day": true}

// ValidateHeader checks column order against the fixed prayer sequence.
func ValidateHeader(header []string) error {
	if len(header) != len(prayer.Order)+1 {
		return fmt.Errorf("%w: %d columns %q", ErrHeaderMismatch, len(header), header)
	}
	if !dateHeaders[strings.ToLower(strings.TrimSpace(header[0]))] {
		return fmt.Errorf("%w: first column %q is not a date", ErrHeaderMismatch, header[0])
	}
	for i, want := range prayer.Order {
		got, err := prayer.ParseName(header[i+1])
		if err != nil || got != want {
			return fmt.Errorf("%w: column %d is %q, want %s", ErrHeaderMismatch, i+1, header[i+1], want)
		}
	}
	return nil
}

// Normalize turns t into daily schedules. Rows that fail to parse or are out
// of order are dropped whole and logged; the error is set only when the
// header is wrong or nothing survives.
func Normalize(t *Table, logger zerolog.Logger) ([]prayer.DailySchedule, error) {
	if err := ValidateHeader(t.Header); err != nil {
		return nil, err
	}

	var out []prayer.DailySchedule
	for i, row := range t.Rows {
		day, err := normalizeRow(row)
		if err != nil {
			logger.Warn().Err(err).Strs("row", row).Msg("rejecting day")
			continue
		}
		if i < len(t.Hijri) {
			day.Hijri = t.Hijri[i]
		}
		out = append(out, day)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w (%d rows)", ErrNoValidDays, len(t.Rows))
	}
	return out, nil
}

func normalizeRow(row []string) (prayer.DailySchedule, error) {
	if len(row) != len(prayer.Order)+1 {
		return prayer.DailySchedule{}, fmt.Errorf("row has %d cells, want %d", len(row), len(prayer.Order)+1)
	}

	date, err := time.Parse(prayer.DateLayout, strings.TrimSpace(row[0]))
	if err != nil {
		return prayer.DailySchedule{}, fmt.Errorf("invalid date %q", row[0])
	}

	s := prayer.NewSchedule(date)
	for i, name := range prayer.Order {
		t, err := prayer.ParseTimeOfDay(row[i+1])
		if err != nil {
			return prayer.DailySchedule{}, fmt.Errorf("%s on %s: %w", name, row[0], err)
		}
		s = s.With(name, t)
	}
	if err := s.Validate(); err != nil {
		return prayer.DailySchedule{}, err
	}
	return s, nil
}
