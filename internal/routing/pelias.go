package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/paulmach/orb"
)

// peliasClient speaks the Pelias geocoding dialect (search, reverse,
// autocomplete), scoped to the supported country and focused on the service
// area so nearby matches rank first.
type peliasClient struct {
	baseURL         string
	apiKey          string
	focus           orb.Point
	boundaryCountry string
	regions         map[string]struct{}
	client          *http.Client
}

// NewPeliasGeocoder builds the geocoding provider. Suggest results outside
// the supported regions are dropped.
func NewPeliasGeocoder(baseURL, apiKey string, focus orb.Point, boundaryCountry string, supportedRegions []string, timeout time.Duration) GeocodingProvider {
	regions := make(map[string]struct{}, len(supportedRegions))
	for _, r := range supportedRegions {
		regions[r] = struct{}{}
	}
	return &peliasClient{
		baseURL:         baseURL,
		apiKey:          apiKey,
		focus:           focus,
		boundaryCountry: boundaryCountry,
		regions:         regions,
		client:          &http.Client{Timeout: timeout},
	}
}

func (c *peliasClient) Name() string { return "pelias" }

type peliasResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			GID      string `json:"gid"`
			Name     string `json:"name"`
			Label    string `json:"label"`
			Locality string `json:"locality"`
			Region   string `json:"region"`
		} `json:"properties"`
	} `json:"features"`
}

func (c *peliasClient) get(ctx context.Context, path string, params url.Values) (*peliasResponse, error) {
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}
	params.Set("sources", "openstreetmap")
	if c.boundaryCountry != "" {
		params.Set("boundary.country", c.boundaryCountry)
	}
	params.Set("focus.point.lon", strconv.FormatFloat(c.focus[0], 'f', -1, 64))
	params.Set("focus.point.lat", strconv.FormatFloat(c.focus[1], 'f', -1, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("pelias: build request: %w", err)
	}
	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pelias: call %s: %w", path, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, &statusError{provider: c.Name(), code: res.StatusCode}
	}
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("pelias: read body: %w", err)
	}
	var parsed peliasResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("pelias: unmarshal: %w", err)
	}
	return &parsed, nil
}

func (c *peliasClient) place(res *peliasResponse, i int) Place {
	feature := res.Features[i]
	p := Place{
		ID:       feature.Properties.GID,
		Address:  feature.Properties.Name,
		Locality: feature.Properties.Locality,
	}
	if p.Address == "" {
		p.Address = feature.Properties.Label
	}
	if p.Locality == "" {
		p.Locality = feature.Properties.Region
	}
	if len(feature.Geometry.Coordinates) == 2 {
		p.Point = orb.Point{feature.Geometry.Coordinates[0], feature.Geometry.Coordinates[1]}
	}
	return p
}

func (c *peliasClient) Geocode(ctx context.Context, text string) (*Place, error) {
	params := url.Values{}
	params.Set("text", text)
	params.Set("layers", "address,venue")
	params.Set("size", "1")
	res, err := c.get(ctx, "/search", params)
	if err != nil {
		return nil, err
	}
	if len(res.Features) == 0 {
		return nil, nil
	}
	place := c.place(res, 0)
	return &place, nil
}

func (c *peliasClient) ReverseGeocode(ctx context.Context, point orb.Point) (*Place, error) {
	params := url.Values{}
	params.Set("point.lon", strconv.FormatFloat(point[0], 'f', -1, 64))
	params.Set("point.lat", strconv.FormatFloat(point[1], 'f', -1, 64))
	params.Set("layers", "address")
	params.Set("size", "1")
	res, err := c.get(ctx, "/reverse", params)
	if err != nil {
		return nil, err
	}
	if len(res.Features) == 0 {
		return nil, nil
	}
	place := c.place(res, 0)
	return &place, nil
}

func (c *peliasClient) Suggest(ctx context.Context, text string) ([]Place, error) {
	params := url.Values{}
	params.Set("text", text)
	params.Set("layers", "address,venue")
	res, err := c.get(ctx, "/autocomplete", params)
	if err != nil {
		return nil, err
	}
	var places []Place
	for i, feature := range res.Features {
		if len(c.regions) > 0 {
			if _, ok := c.regions[feature.Properties.Region]; !ok {
				continue
			}
		}
		places = append(places, c.place(res, i))
	}
	return places, nil
}
