package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/smokyabdulrahman/salah-times/internal/geo"
)

const defaultAladhanURL = "https://api.aladhan.com/v1"

// AladhanSource fetches monthly calendars from the Al Adhan API by
// coordinates.
type AladhanSource struct {
	httpClient *http.Client
	// BaseURL is the API base URL. Defaults to the Al Adhan API.
	// Exported for testing with httptest.
	BaseURL string
	Method  int
	School  int
}

// NewAladhanSource creates a source with sensible defaults. Negative method
// or school values are omitted from requests.
func NewAladhanSource(method, school int) *AladhanSource {
	return &AladhanSource{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		BaseURL: defaultAladhanURL,
		Method:  method,
		School:  school,
	}
}

// Name implements Source.
func (a *AladhanSource) Name() string { return SourceAladhan }

// FetchTable fetches the calendar for now's month and the following one.
func (a *AladhanSource) FetchTable(ctx context.Context, loc geo.Location, now time.Time) (*Table, error) {
	t := &Table{Header: aladhanHeader}

	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	for i := 0; i < 2; i++ {
		m := first.AddDate(0, i, 0)
		cal, err := a.FetchCalendarByCoordinates(ctx, m.Year(), int(m.Month()), loc.Latitude, loc.Longitude)
		if err != nil {
			return nil, err
		}
		for _, d := range cal.Data {
			t.Rows = append(t.Rows, d.Row())
			t.Hijri = append(t.Hijri, d.Date.Hijri.Format())
		}
	}
	return t, nil
}

// FetchCalendarByCoordinates fetches a whole month of prayer times.
func (a *AladhanSource) FetchCalendarByCoordinates(ctx context.Context, year, month int, lat, lon float64) (*CalendarResponse, error) {
	endpoint := fmt.Sprintf("%s/calendar/%d/%d", a.BaseURL, year, month)

	params := url.Values{}
	params.Set("latitude", fmt.Sprintf("%f", lat))
	params.Set("longitude", fmt.Sprintf("%f", lon))
	if a.Method >= 0 {
		params.Set("method", fmt.Sprintf("%d", a.Method))
	}
	if a.School >= 0 {
		params.Set("school", fmt.Sprintf("%d", a.School))
	}

	var calResp CalendarResponse
	if err := a.getJSON(ctx, fmt.Sprintf("%s?%s", endpoint, params.Encode()), &calResp); err != nil {
		return nil, err
	}
	if calResp.Code != 200 {
		return nil, fmt.Errorf("API error: code=%d status=%s", calResp.Code, calResp.Status)
	}

	return &calResp, nil
}

// HijriCalendar returns the Hijri label of every day of a Gregorian month,
// keyed by YYYY-MM-DD. Hijri dates do not depend on the location.
func (a *AladhanSource) HijriCalendar(ctx context.Context, year, month int) (map[string]string, error) {
	var resp HijriCalendarResponse
	if err := a.getJSON(ctx, fmt.Sprintf("%s/gToHCalendar/%d/%d", a.BaseURL, month, year), &resp); err != nil {
		return nil, err
	}
	if resp.Code != 200 {
		return nil, fmt.Errorf("API error: code=%d status=%s", resp.Code, resp.Status)
	}

	out := make(map[string]string, len(resp.Data))
	for _, d := range resp.Data {
		if label := d.Hijri.Format(); label != "" {
			out[d.Gregorian.ISO()] = label
		}
	}
	return out, nil
}

func (a *AladhanSource) getJSON(ctx context.Context, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode API response: %w", err)
	}
	return nil
}

// CalculationMethods lists all supported Al Adhan API calculation methods.
var CalculationMethods = []struct {
	ID   int
	Name string
}{
	{0, "Shia Ithna-Ashari (Jafari)"},
	{1, "University of Islamic Sciences, Karachi"},
	{2, "Islamic Society of North America (ISNA)"},
	{3, "Muslim World League (MWL)"},
	{4, "Umm Al-Qura University, Makkah"},
	{5, "Egyptian General Authority of Survey"},
	{7, "Institute of Geophysics, University of Tehran"},
	{8, "Gulf Region"},
	{9, "Kuwait"},
	{10, "Qatar"},
	{11, "Majlis Ugama Islam Singapura (Singapore)"},
	{12, "Union Organization Islamic de France"},
	{13, "Diyanet Isleri Baskanligi, Turkey (experimental)"},
	{14, "Spiritual Administration of Muslims of Russia"},
	{15, "Moonsighting Committee Worldwide"},
	{16, "Dubai (experimental)"},
	{17, "JAKIM (Malaysia)"},
	{18, "Tunisia"},
	{19, "Algeria"},
	{20, "KEMENAG (Indonesia)"},
	{21, "Morocco"},
	{22, "Comunidade Islamica de Lisboa (Portugal)"},
	{23, "Ministry of Awqaf, Jordan"},
}

// MethodName returns the name of a calculation method, or "" if unknown.
func MethodName(id int) string {
	for _, m := range CalculationMethods {
		if m.ID == id {
			return m.Name
		}
	}
	return ""
}
