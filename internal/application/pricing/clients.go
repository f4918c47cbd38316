package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const clientTimeout = 10 * time.Second

// NominatimGeocoder resolves addresses against a Nominatim instance,
// biased towards the configured region: it first searches
// "<addr>, <region>, Kenya" and falls back to "<addr>, Kenya".
type NominatimGeocoder struct {
	BaseURL   string
	Region    string
	UserAgent string
	HTTP      *http.Client
}

func (g *NominatimGeocoder) client() *http.Client {
	if g.HTTP != nil {
		return g.HTTP
	}
	return &http.Client{Timeout: clientTimeout}
}

func (g *NominatimGeocoder) Geocode(ctx context.Context, address string) (*Coordinates, error) {
	if g.Region != "" {
		if c, err := g.search(ctx, fmt.Sprintf("%s, %s, Kenya", address, g.Region)); err == nil {
			return c, nil
		}
	}
	return g.search(ctx, fmt.Sprintf("%s, Kenya", address))
}

func (g *NominatimGeocoder) search(ctx context.Context, q string) (*Coordinates, error) {
	u := fmt.Sprintf("%s/search?format=json&limit=1&q=%s", g.BaseURL, url.QueryEscape(q))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	ua := g.UserAgent
	if ua == "" {
		ua = "bookbridge-backend"
	}
	req.Header.Set("User-Agent", ua)

	resp, err := g.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nominatim returned status %d", resp.StatusCode)
	}

	var results []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, errors.New("no results")
	}
	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, err
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, err
	}
	return &Coordinates{Lat: lat, Lng: lng}, nil
}

// OSRMClient resolves driving routes against an OSRM instance.
type OSRMClient struct {
	BaseURL string
	HTTP    *http.Client
}

func (o *OSRMClient) client() *http.Client {
	if o.HTTP != nil {
		return o.HTTP
	}
	return &http.Client{Timeout: clientTimeout}
}

func (o *OSRMClient) Route(ctx context.Context, from, to Coordinates) (float64, json.RawMessage, error) {
	// OSRM takes lng,lat pairs.
	u := fmt.Sprintf("%s/route/v1/driving/%f,%f;%f,%f?overview=full&geometries=geojson",
		o.BaseURL, from.Lng, from.Lat, to.Lng, to.Lat)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, nil, err
	}
	resp, err := o.client().Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	var body struct {
		Code   string `json:"code"`
		Routes []struct {
			Distance float64         `json:"distance"`
			Geometry json.RawMessage `json:"geometry"`
		} `json:"routes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, nil, err
	}
	if body.Code != "Ok" || len(body.Routes) == 0 {
		return 0, nil, fmt.Errorf("osrm route failed: %s", body.Code)
	}
	return body.Routes[0].Distance, body.Routes[0].Geometry, nil
}
