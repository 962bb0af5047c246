package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/paulmach/orb"

	"carpool-backend/internal/geometry"
	"carpool-backend/internal/models"
)

// orsClient speaks the OpenRouteService dialect: POST per-profile directions
// returning a GeoJSON feature collection with a distance/duration summary.
type orsClient struct {
	baseURL         string
	apiKey          string
	maxAlternatives int
	client          *http.Client
}

// NewORSDirections builds the primary directions provider.
func NewORSDirections(baseURL, apiKey string, maxAlternatives int, timeout time.Duration) DirectionsProvider {
	return &orsClient{
		baseURL:         baseURL,
		apiKey:          apiKey,
		maxAlternatives: maxAlternatives,
		client:          &http.Client{Timeout: timeout},
	}
}

func (c *orsClient) Name() string { return "ors" }

type orsDirectionsRequest struct {
	Coordinates       [][]float64 `json:"coordinates"`
	Instructions      bool        `json:"instructions"`
	AlternativeRoutes any         `json:"alternative_routes,omitempty"`
}

type orsAlternativeRoutes struct {
	TargetCount  int     `json:"target_count"`
	ShareFactor  float64 `json:"share_factor"`
	WeightFactor float64 `json:"weight_factor"`
}

// orsDirectionsResponse is the subset of the GeoJSON response we care about.
type orsDirectionsResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			Summary struct {
				Distance float64 `json:"distance"`
				Duration float64 `json:"duration"`
			} `json:"summary"`
		} `json:"properties"`
	} `json:"features"`
}

func (c *orsClient) Directions(ctx context.Context, positions []orb.Point, profile models.Profile, alternatives bool) ([]RouteResult, error) {
	body := orsDirectionsRequest{
		Coordinates:  make([][]float64, len(positions)),
		Instructions: false,
	}
	for i, p := range positions {
		body.Coordinates[i] = []float64{p[0], p[1]}
	}
	if alternatives {
		body.AlternativeRoutes = orsAlternativeRoutes{
			TargetCount:  c.maxAlternatives,
			ShareFactor:  0.6,
			WeightFactor: 1.4,
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("ors: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v2/directions/%s/geojson", c.baseURL, profile)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("ors: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", c.apiKey)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ors: call directions: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, &statusError{provider: c.Name(), code: res.StatusCode}
	}

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("ors: read body: %w", err)
	}
	var parsed orsDirectionsResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("ors: unmarshal: %w", err)
	}
	if len(parsed.Features) == 0 {
		return nil, fmt.Errorf("ors: no route between the requested locations")
	}

	results := make([]RouteResult, 0, len(parsed.Features))
	for _, feature := range parsed.Features {
		if len(feature.Geometry.Coordinates) < 2 {
			results = append(results, straightLine(positions))
			continue
		}
		geom := make(orb.LineString, len(feature.Geometry.Coordinates))
		for i, c := range feature.Geometry.Coordinates {
			geom[i] = orb.Point{c[0], c[1]}
		}
		results = append(results, RouteResult{
			Geometry: geom,
			Distance: feature.Properties.Summary.Distance,
			Duration: feature.Properties.Summary.Duration,
		})
	}
	return results, nil
}

// straightLine is the bounded fallback for degenerate provider answers: the
// waypoints joined directly, measured in the planar system.
func straightLine(positions []orb.Point) RouteResult {
	if len(positions) < 2 {
		return EmptyRoute
	}
	geom := make(orb.LineString, len(positions))
	var dist float64
	prev := geometry.Project(positions[0])
	geom[0] = positions[0]
	for i := 1; i < len(positions); i++ {
		cur := geometry.Project(positions[i])
		dist += geometry.Dist(prev, cur)
		prev = cur
		geom[i] = positions[i]
	}
	return RouteResult{Geometry: geom, Distance: dist, Duration: 0}
}
