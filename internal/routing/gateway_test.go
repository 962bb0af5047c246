package routing

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-polyline"
	"go.uber.org/zap"

	"carpool-backend/internal/models"
)

var testPositions = []orb.Point{{37.62, 55.75}, {37.64, 55.76}}

type stubProvider struct {
	name   string
	calls  int
	routes []RouteResult
	err    error
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Directions(context.Context, []orb.Point, models.Profile, bool) ([]RouteResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.routes, nil
}

func okRoutes() []RouteResult {
	return []RouteResult{{Geometry: orb.LineString(testPositions), Distance: 1500, Duration: 180}}
}

func TestGatewayUsesPrimary(t *testing.T) {
	primary := &stubProvider{name: "primary", routes: okRoutes()}
	fallback := &stubProvider{name: "fallback", routes: okRoutes()}
	g := NewGateway(primary, fallback, nil, zap.NewNop())

	routes, err := g.Directions(context.Background(), testPositions, models.ProfileDriving, false)
	require.NoError(t, err)
	assert.Len(t, routes, 1)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 0, fallback.calls)
}

func TestGatewayFallsBackOnce(t *testing.T) {
	primary := &stubProvider{name: "primary", err: errors.New("connection refused")}
	fallback := &stubProvider{name: "fallback", routes: okRoutes()}
	g := NewGateway(primary, fallback, nil, zap.NewNop())

	_, err := g.Directions(context.Background(), testPositions, models.ProfileDriving, false)
	require.NoError(t, err)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, fallback.calls)

	// A transport error is not a quota failure: the primary is tried again
	// on the next request.
	_, err = g.Directions(context.Background(), testPositions, models.ProfileDriving, false)
	require.NoError(t, err)
	assert.Equal(t, 2, primary.calls)
}

func TestGatewayQuotaSwitchSticks(t *testing.T) {
	primary := &stubProvider{name: "primary", err: &statusError{provider: "primary", code: 403}}
	fallback := &stubProvider{name: "fallback", routes: okRoutes()}
	g := NewGateway(primary, fallback, nil, zap.NewNop())

	for i := 0; i < 3; i++ {
		_, err := g.Directions(context.Background(), testPositions, models.ProfileDriving, false)
		require.NoError(t, err)
	}
	// Switched after the first 403 and never went back.
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 3, fallback.calls)
}

func TestGatewayBothProvidersFail(t *testing.T) {
	primary := &stubProvider{name: "primary", err: errors.New("boom")}
	fallback := &stubProvider{name: "fallback", err: &statusError{provider: "fallback", code: 502}}
	g := NewGateway(primary, fallback, nil, zap.NewNop())

	_, err := g.Directions(context.Background(), testPositions, models.ProfileDriving, false)
	assert.ErrorIs(t, err, models.ErrUpstreamRouting)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, fallback.calls)
}

func TestGatewayNoFallbackConfigured(t *testing.T) {
	primary := &stubProvider{name: "primary", err: errors.New("boom")}
	g := NewGateway(primary, nil, nil, zap.NewNop())

	_, err := g.Directions(context.Background(), testPositions, models.ProfileDriving, false)
	assert.ErrorIs(t, err, models.ErrUpstreamRouting)
	assert.Equal(t, 1, primary.calls)
}

func TestORSDirectionsParsesGeoJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/directions/driving-car/geojson", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"features": [{
				"geometry": {"coordinates": [[37.62, 55.75], [37.63, 55.755], [37.64, 55.76]]},
				"properties": {"summary": {"distance": 1847.1, "duration": 221.4}}
			}]
		}`))
	}))
	defer srv.Close()

	c := NewORSDirections(srv.URL, "", 3, time.Second)
	routes, err := c.Directions(context.Background(), testPositions, models.ProfileDriving, false)
	require.NoError(t, err)
	require.Len(t, routes, 1)
	assert.Len(t, routes[0].Geometry, 3)
	assert.Equal(t, 1847.1, routes[0].Distance)
	assert.Equal(t, 221.4, routes[0].Duration)
}

func TestORSDirectionsDegenerateFeature(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"features": [{"geometry": {"coordinates": []}, "properties": {}}]}`))
	}))
	defer srv.Close()

	c := NewORSDirections(srv.URL, "", 3, time.Second)
	routes, err := c.Directions(context.Background(), testPositions, models.ProfileDriving, false)
	require.NoError(t, err)
	require.Len(t, routes, 1)
	// Straight waypoint line with a planar distance estimate.
	assert.Equal(t, orb.LineString(testPositions), routes[0].Geometry)
	assert.Greater(t, routes[0].Distance, 0.0)
	assert.Zero(t, routes[0].Duration)
}

func TestORSDirectionsUpstreamStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewORSDirections(srv.URL, "", 3, time.Second)
	_, err := c.Directions(context.Background(), testPositions, models.ProfileDriving, false)
	require.Error(t, err)
	assert.True(t, quotaExhausted(err))
}

func TestOSRMDirectionsDecodesPolyline(t *testing.T) {
	encoded := string(polyline.EncodeCoords([][]float64{
		{55.75, 37.62}, {55.755, 37.63}, {55.76, 37.64},
	}))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/route/v1/driving/")
		body, _ := json.Marshal(map[string]any{
			"code": "Ok",
			"routes": []map[string]any{
				{"geometry": encoded, "distance": 1900.0, "duration": 240.0},
			},
		})
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	c := NewOSRMDirections(srv.URL, 3, time.Second)
	routes, err := c.Directions(context.Background(), testPositions, models.ProfileDriving, false)
	require.NoError(t, err)
	require.Len(t, routes, 1)
	require.Len(t, routes[0].Geometry, 3)
	assert.InDelta(t, 37.62, routes[0].Geometry[0][0], 1e-5)
	assert.InDelta(t, 55.75, routes[0].Geometry[0][1], 1e-5)
	assert.Equal(t, 1900.0, routes[0].Distance)
}

func TestPeliasGeocodeNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"features": []}`))
	}))
	defer srv.Close()

	c := NewPeliasGeocoder(srv.URL, "", orb.Point{37.62, 55.75}, "RU", nil, time.Second)
	place, err := c.Geocode(context.Background(), "nowhere at all")
	require.NoError(t, err)
	assert.Nil(t, place)
}

func TestPeliasSuggestFiltersRegions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"features": [
			{"geometry": {"coordinates": [37.62, 55.75]},
			 "properties": {"gid": "osm:1", "name": "Tverskaya 1", "locality": "Moscow", "region": "Moscow"}},
			{"geometry": {"coordinates": [30.31, 59.94]},
			 "properties": {"gid": "osm:2", "name": "Nevsky 1", "locality": "Saint Petersburg", "region": "Saint Petersburg"}}
		]}`))
	}))
	defer srv.Close()

	c := NewPeliasGeocoder(srv.URL, "", orb.Point{37.62, 55.75}, "RU", []string{"Moscow", "Moscow Oblast"}, time.Second)
	places, err := c.Suggest(context.Background(), "1")
	require.NoError(t, err)
	require.Len(t, places, 1)
	assert.Equal(t, "osm:1", places[0].ID)
	assert.Equal(t, "Tverskaya 1", places[0].Address)
	assert.Equal(t, "Moscow", places[0].Locality)
}
