package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/smokyabdulrahman/salah-times/internal/geo"
	"github.com/smokyabdulrahman/salah-times/internal/prayer"
)

const defaultYabiladiURL = "https://www.yabiladi.com"

// YabiladiSource scrapes the monthly table from a Yabiladi city page.
type YabiladiSource struct {
	httpClient *http.Client
	// BaseURL is the site root. Exported for testing with httptest.
	BaseURL string
}

// NewYabiladiSource creates a source with a 10 second request timeout.
func NewYabiladiSource() *YabiladiSource {
	return &YabiladiSource{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		BaseURL:    defaultYabiladiURL,
	}
}

// Name implements Source.
func (y *YabiladiSource) Name() string { return SourceYabiladi }

// FetchTable downloads and parses the city page for loc.
func (y *YabiladiSource) FetchTable(ctx context.Context, loc geo.Location, now time.Time) (*Table, error) {
	endpoint := fmt.Sprintf("%s/prieres/details/%d/city.html", y.BaseURL, loc.ID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	resp, err := y.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yabiladi request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("yabiladi returned status %d: %s", resp.StatusCode, string(body))
	}

	return ParseYabiladiPage(resp.Body, now)
}

// ParseYabiladiPage extracts the first <table> of a page. Header cells come
// from <th>; each row with <td> cells becomes a row. The "dd/mm" date cell is
// expanded to a full date using the year closest to now.
func ParseYabiladiPage(r io.Reader, now time.Time) (*Table, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	tbl := findFirst(doc, atom.Table)
	if tbl == nil {
		return nil, fmt.Errorf("no prayer table in page")
	}

	t := &Table{}
	for _, th := range findAll(tbl, atom.Th) {
		t.Header = append(t.Header, textContent(th))
	}

	for _, tr := range findAll(tbl, atom.Tr) {
		tds := findAll(tr, atom.Td)
		if len(tds) == 0 {
			continue
		}
		row := make([]string, 0, len(tds))
		for _, td := range tds {
			row = append(row, textContent(td))
		}
		date, err := expandDayMonth(row[0], now)
		if err != nil {
			// Kept as-is; Normalize rejects it with the rest of the row.
			t.Rows = append(t.Rows, row)
			continue
		}
		row[0] = date.Format(prayer.DateLayout)
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// expandDayMonth parses "dd/mm" and picks the year placing it nearest to now.
func expandDayMonth(s string, now time.Time) (time.Time, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return time.Time{}, fmt.Errorf("empty date")
	}
	dm := strings.Split(fields[len(fields)-1], "/")
	if len(dm) < 2 {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	day, err := strconv.Atoi(dm[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day in %q: %w", s, err)
	}
	month, err := strconv.Atoi(dm[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month in %q: %w", s, err)
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("date out of range: %q", s)
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	var best time.Time
	var bestDist time.Duration = -1
	for _, y := range []int{now.Year() - 1, now.Year(), now.Year() + 1} {
		d := time.Date(y, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		if d.Day() != day {
			continue // 29/02 outside a leap year
		}
		dist := d.Sub(today)
		if dist < 0 {
			dist = -dist
		}
		if bestDist < 0 || dist < bestDist {
			best, bestDist = d, dist
		}
	}
	if bestDist < 0 {
		return time.Time{}, fmt.Errorf("no valid year for %q", s)
	}
	return best, nil
}

func findFirst(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, a); found != nil {
			return found
		}
	}
	return nil
}

func findAll(n *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.DataAtom == a {
				out = append(out, c)
				continue
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
