package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Detected holds the coordinates reported for the user's public IP.
type Detected struct {
	Latitude  float64   `json:"lat"`
	Longitude float64   `json:"lon"`
	City      string    `json:"city"`
	Country   string    `json:"country"`
	Timezone  string    `json:"timezone"`
	FetchedAt time.Time `json:"fetched_at"`
}

// ipAPIResponse maps the response from ip-api.com.
type ipAPIResponse struct {
	Status   string  `json:"status"`
	Message  string  `json:"message"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	City     string  `json:"city"`
	Country  string  `json:"country"`
	Timezone string  `json:"timezone"`
}

// geoAPIURL is the geolocation API endpoint. It is a variable (not a constant)
// so that tests can override it with an httptest server URL.
var geoAPIURL = "http://ip-api.com/json/?fields=status,message,lat,lon,city,country,timezone"

// DetectLocation uses ip-api.com to determine the user's location from their
// public IP address. This is a free service that requires no API key.
func DetectLocation(ctx context.Context) (*Detected, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, geoAPIURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building geolocation request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geolocation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geolocation API returned status %d", resp.StatusCode)
	}

	var result ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode geolocation response: %w", err)
	}

	if result.Status != "success" {
		return nil, fmt.Errorf("geolocation failed: %s", result.Message)
	}

	return &Detected{
		Latitude:  result.Lat,
		Longitude: result.Lon,
		City:      result.City,
		Country:   result.Country,
		Timezone:  result.Timezone,
		FetchedAt: time.Now(),
	}, nil
}

// maxNearestKm bounds how far a detected position may be from a known city
// before detection is considered useless.
const maxNearestKm = 300.0

// NearestCity maps a detected position onto the known city table.
func NearestCity(d *Detected) (Location, error) {
	loc, dist := Nearest(d.Latitude, d.Longitude)
	if dist > maxNearestKm {
		return Location{}, fmt.Errorf("no known city near %s, %s (closest is %s, %.0f km away)",
			d.City, d.Country, loc.Name, dist)
	}
	return loc, nil
}
