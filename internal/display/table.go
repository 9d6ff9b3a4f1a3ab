package display

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/smokyabdulrahman/salah-times/internal/prayer"
)

// Table renders an aligned text table with optional color support.
type Table struct {
	headers []string
	rows    [][]string
	// highlightRow is the 0-based row index to highlight (typically "today"). -1 = none.
	highlightRow int
}

// NewTable creates a new table with the given column headers.
func NewTable(headers []string) *Table {
	return &Table{
		headers:      headers,
		highlightRow: -1,
	}
}

// AddRow appends a row of values. The number of values should match the number of headers.
func (t *Table) AddRow(values []string) {
	t.rows = append(t.rows, values)
}

// SetHighlightRow sets which row index (0-based) should be highlighted.
func (t *Table) SetHighlightRow(idx int) {
	t.highlightRow = idx
}

// Render produces the formatted table string with leading indent.
func (t *Table) Render() string {
	if len(t.headers) == 0 {
		return ""
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if n := utf8.RuneCountInString(cell); i < len(widths) && n > widths[i] {
				widths[i] = n
			}
		}
	}

	var sb strings.Builder

	sb.WriteString("  " + Bold(formatRow(t.headers, widths)) + "\n")

	sepParts := make([]string, len(widths))
	for i, w := range widths {
		sepParts[i] = strings.Repeat("─", w)
	}
	sb.WriteString(Dim("  "+strings.Join(sepParts, "  ")) + "\n")

	for i, row := range t.rows {
		line := formatRow(row, widths)
		if i == t.highlightRow {
			sb.WriteString("  " + Accent(line) + "\n")
		} else {
			sb.WriteString("  " + line + "\n")
		}
	}

	return sb.String()
}

// formatRow formats a row of cells using the given column widths.
func formatRow(cells []string, widths []int) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		if pad := w - utf8.RuneCountInString(cell); pad > 0 {
			cell += strings.Repeat(" ", pad)
		}
		parts[i] = cell
	}
	return strings.Join(parts, "  ")
}

// ScheduleTable lays out one row per day with a column per entry of
// prayer.Order. The row dated today is highlighted.
func ScheduleTable(days []prayer.DailySchedule, today time.Time, layout string) *Table {
	headers := []string{"Date"}
	for _, n := range prayer.Order {
		headers = append(headers, n.String())
	}
	tbl := NewTable(headers)

	todayStr := today.Format(prayer.DateLayout)
	for i, d := range days {
		label := d.Date
		if t, err := time.Parse(prayer.DateLayout, d.Date); err == nil {
			label = t.Format("Mon 02 Jan")
		}
		row := []string{label}
		for _, n := range prayer.Order {
			row = append(row, d.Get(n).Format(layout))
		}
		tbl.AddRow(row)
		if d.Date == todayStr {
			tbl.SetHighlightRow(i)
		}
	}
	return tbl
}

// RenderDay lists a day's entries in order: the current one dimmed, the
// next one highlighted with its countdown, unknown entries grayed out.
func RenderDay(s prayer.DailySchedule, st prayer.State, layout string) string {
	width := 0
	for _, n := range prayer.Order {
		if l := len(n.String()); l > width {
			width = l
		}
	}

	var sb strings.Builder
	for _, n := range prayer.Order {
		t := s.Get(n)
		line := fmt.Sprintf("  %-*s  %s", width, n.String(), t.Format(layout))

		switch {
		case !t.Known():
			sb.WriteString(Gray(line))
		case st.HasNext && !st.NextIsTomorrow && st.Next == n:
			suffix := fmt.Sprintf("  <- next in %s", prayer.FormatRemaining(st.SecondsUntilNext))
			sb.WriteString(Accent(line + suffix))
		case st.HasCurrent && st.Current == n:
			if st.IqamaActive {
				line += fmt.Sprintf("  iqama in %s", prayer.FormatClock(st.SecondsUntilIqamaEnds))
			}
			sb.WriteString(Dim(line))
		default:
			sb.WriteString(line)
		}
		sb.WriteString("\n")
	}

	if st.NextIsTomorrow {
		sb.WriteString(Accent(fmt.Sprintf("  next: %s tomorrow at %s, in %s",
			st.Next, st.NextTime.Format(layout), prayer.FormatRemaining(st.SecondsUntilNext))))
		sb.WriteString("\n")
	}
	return sb.String()
}
