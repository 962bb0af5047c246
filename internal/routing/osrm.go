package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/twpayne/go-polyline"

	"carpool-backend/internal/models"
)

// osrmClient speaks the OSRM HTTP dialect, used as the fallback engine. Its
// geometry comes back as an encoded polyline rather than GeoJSON.
type osrmClient struct {
	baseURL         string
	maxAlternatives int
	client          *http.Client
}

// NewOSRMDirections builds the fallback directions provider.
func NewOSRMDirections(baseURL string, maxAlternatives int, timeout time.Duration) DirectionsProvider {
	return &osrmClient{
		baseURL:         baseURL,
		maxAlternatives: maxAlternatives,
		client:          &http.Client{Timeout: timeout},
	}
}

func (c *osrmClient) Name() string { return "osrm" }

func osrmProfile(profile models.Profile) string {
	if profile == models.ProfileWalking {
		return "walking"
	}
	return "driving"
}

type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Geometry string  `json:"geometry"`
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
	} `json:"routes"`
}

func (c *osrmClient) Directions(ctx context.Context, positions []orb.Point, profile models.Profile, alternatives bool) ([]RouteResult, error) {
	coords := make([]string, len(positions))
	for i, p := range positions {
		coords[i] = fmt.Sprintf("%f,%f", p[0], p[1])
	}
	url := fmt.Sprintf("%s/route/v1/%s/%s?overview=full&alternatives=%t",
		c.baseURL, osrmProfile(profile), strings.Join(coords, ";"), alternatives)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("osrm: build request: %w", err)
	}
	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("osrm: call directions: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, &statusError{provider: c.Name(), code: res.StatusCode}
	}
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("osrm: read body: %w", err)
	}
	var parsed osrmResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("osrm: unmarshal: %w", err)
	}
	if parsed.Code != "Ok" || len(parsed.Routes) == 0 {
		return nil, fmt.Errorf("osrm: no route between the requested locations (code %q)", parsed.Code)
	}

	limit := len(parsed.Routes)
	if limit > c.maxAlternatives {
		limit = c.maxAlternatives
	}
	results := make([]RouteResult, 0, limit)
	for _, route := range parsed.Routes[:limit] {
		latlons, _, err := polyline.DecodeCoords([]byte(route.Geometry))
		if err != nil {
			return nil, fmt.Errorf("osrm: decode polyline: %w", err)
		}
		if len(latlons) < 2 {
			results = append(results, straightLine(positions))
			continue
		}
		geom := make(orb.LineString, len(latlons))
		for i, ll := range latlons {
			geom[i] = orb.Point{ll[1], ll[0]}
		}
		results = append(results, RouteResult{
			Geometry: geom,
			Distance: route.Distance,
			Duration: route.Duration,
		})
	}
	return results, nil
}
