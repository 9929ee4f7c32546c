package location

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Geocoder turns coordinates into a display address.
type Geocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (string, error)
}

// NominatimGeocoder queries a Nominatim compatible reverse endpoint.
type NominatimGeocoder struct {
	BaseURL    string // e.g. https://nominatim.openstreetmap.org
	UserAgent  string // required by the public instance's usage policy
	HTTPClient *http.Client
}

func NewNominatimGeocoder(baseURL, userAgent string) *NominatimGeocoder {
	return &NominatimGeocoder{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		UserAgent:  userAgent,
		HTTPClient: http.DefaultClient,
	}
}

func (g *NominatimGeocoder) Reverse(ctx context.Context, lat, lon float64) (string, error) {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', 6, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.BaseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	if g.UserAgent != "" {
		req.Header.Set("User-Agent", g.UserAgent)
	}

	resp, err := g.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("reverse geocoding: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("reverse geocoding answered %d", resp.StatusCode)
	}

	var body struct {
		DisplayName string `json:"display_name"`
		Error       string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode reverse geocoding: %w", err)
	}
	if body.Error != "" {
		return "", fmt.Errorf("reverse geocoding: %s", body.Error)
	}
	return body.DisplayName, nil
}
