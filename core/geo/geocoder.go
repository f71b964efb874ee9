// Package geo resolves free-form addresses to coordinates and computes
// great-circle distances between points.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	coreconfig "github.com/tbaiguzhinov/pizza-bot/core/config"
	"github.com/tbaiguzhinov/pizza-bot/core/httpx"
)

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64
	Lon float64
}

// APIError reports a non-2xx response from the geocoder backend.
type APIError struct {
	Status int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("geo: geocode: status %d", e.Status)
}

// Geocoder is the HTTP client for the geocoding backend.
type Geocoder struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New constructs a Geocoder from configuration. A nil httpClient selects
// the shared tuned client.
func New(cfg coreconfig.GeocoderConfig, httpClient *http.Client) *Geocoder {
	if httpClient == nil {
		httpClient = httpx.NewClient(httpx.Options{})
	}
	return &Geocoder{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    httpClient,
	}
}

// Resolve geocodes a free-form address. The second return value is false
// when the backend has no match for the address; that outcome is not an
// error.
func (g *Geocoder) Resolve(ctx context.Context, address string) (Point, bool, error) {
	query := url.Values{
		"apikey":  {g.apiKey},
		"geocode": {address},
		"format":  {"json"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		g.baseURL+"/?"+query.Encode(), nil)
	if err != nil {
		return Point{}, false, fmt.Errorf("geo: build request: %w", err)
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return Point{}, false, fmt.Errorf("geo: geocode: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Point{}, false, &APIError{Status: resp.StatusCode}
	}

	var payload struct {
		Response struct {
			GeoObjectCollection struct {
				FeatureMember []struct {
					GeoObject struct {
						Point struct {
							Pos string `json:"pos"`
						} `json:"Point"`
					} `json:"GeoObject"`
				} `json:"featureMember"`
			} `json:"GeoObjectCollection"`
		} `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Point{}, false, fmt.Errorf("geo: decode response: %w", err)
	}

	members := payload.Response.GeoObjectCollection.FeatureMember
	if len(members) == 0 {
		return Point{}, false, nil
	}
	return parsePos(members[0].GeoObject.Point.Pos)
}

// parsePos splits the backend's "lon lat" position string.
func parsePos(pos string) (Point, bool, error) {
	parts := strings.Fields(pos)
	if len(parts) != 2 {
		return Point{}, false, fmt.Errorf("geo: malformed position %q", pos)
	}
	lon, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return Point{}, false, fmt.Errorf("geo: malformed position %q: %w", pos, err)
	}
	lat, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return Point{}, false, fmt.Errorf("geo: malformed position %q: %w", pos, err)
	}
	return Point{Lat: lat, Lon: lon}, true, nil
}
