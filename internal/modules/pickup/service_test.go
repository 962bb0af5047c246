package pickup

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"carpool-backend/internal/config"
	"carpool-backend/internal/geometry"
	"carpool-backend/internal/models"
	"carpool-backend/internal/routing"
)

type fakeRepo struct {
	routes         map[uuid.UUID]*models.Route
	points         map[PointKind]map[uuid.UUID]*models.MeetingPoint
	stops          []models.TransitStop
	lastStopRadius float64
	upserts        []orb.Point
	snapShift      float64
	snapErr        error
}

func newFakePickupRepo() *fakeRepo {
	return &fakeRepo{
		routes: make(map[uuid.UUID]*models.Route),
		points: map[PointKind]map[uuid.UUID]*models.MeetingPoint{
			KindPickup:  {},
			KindDropoff: {},
		},
	}
}

func (f *fakeRepo) FindRoute(_ context.Context, id uuid.UUID) (*models.Route, error) {
	route, ok := f.routes[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return route, nil
}

func (f *fakeRepo) UpsertMeetingPoint(_ context.Context, kind PointKind, routeID uuid.UUID, point orb.Point) (*models.MeetingPoint, error) {
	f.upserts = append(f.upserts, point)
	mp := &models.MeetingPoint{ID: uuid.New(), RouteID: routeID, Geom: point}
	f.points[kind][routeID] = mp
	return mp, nil
}

func (f *fakeRepo) GetMeetingPoint(_ context.Context, kind PointKind, routeID uuid.UUID) (*models.MeetingPoint, error) {
	mp, ok := f.points[kind][routeID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return mp, nil
}

func (f *fakeRepo) DeleteMeetingPoint(_ context.Context, kind PointKind, routeID uuid.UUID) error {
	if _, ok := f.points[kind][routeID]; !ok {
		return models.ErrNotFound
	}
	delete(f.points[kind], routeID)
	return nil
}

func (f *fakeRepo) StopsWithin(_ context.Context, _ orb.Point, radius float64) ([]models.TransitStop, error) {
	f.lastStopRadius = radius
	return f.stops, nil
}

func (f *fakeRepo) SnapToRoad(_ context.Context, point orb.Point) (orb.Point, error) {
	if f.snapErr != nil {
		return orb.Point{}, f.snapErr
	}
	return orb.Point{point[0] + f.snapShift, point[1]}, nil
}

// fakeRouter returns a straight walking path to the requested destination,
// or to a fixed terminal when one is set.
type fakeRouter struct {
	terminal *orb.Point
	calls    int
}

func (f *fakeRouter) Directions(_ context.Context, positions []orb.Point, _ models.Profile, _ bool) ([]routing.RouteResult, error) {
	f.calls++
	dest := positions[len(positions)-1]
	if f.terminal != nil {
		dest = *f.terminal
	}
	return []routing.RouteResult{{
		Geometry: orb.LineString{positions[0], dest},
		Distance: 500,
		Duration: 360,
	}}, nil
}

func testService(repo RepositoryInterface, router WalkingRouter) ServiceInterface {
	return NewService(repo, router, config.Config{
		PickupStartThreshold: 500,
		PickupProximity:      150,
		MinPickupRadius:      100,
		MaxPickupRadius:      2000,
	}, zap.NewNop())
}

// driverRoute is a straight west-east path along the 55.75 parallel.
func driverRoute() *models.Route {
	return &models.Route{
		ID:      uuid.New(),
		UserID:  uuid.New(),
		Profile: models.ProfileDriving,
		Geom: geometry.ProjectLine(orb.LineString{
			{37.60, 55.75}, {37.63, 55.75}, {37.66, 55.75},
		}),
		Start:  geometry.Project(orb.Point{37.60, 55.75}),
		Finish: geometry.Project(orb.Point{37.66, 55.75}),
	}
}

func TestSuggestPickupSnapsToStart(t *testing.T) {
	repo := newFakePickupRepo()
	route := driverRoute()
	repo.routes[route.ID] = route
	svc := testService(repo, &fakeRouter{})

	// Passenger about 55 m north of the route start.
	got, err := svc.SuggestPickup(context.Background(), route.ID, models.LatLon{55.7505, 37.60})
	require.NoError(t, err)

	assert.InDelta(t, 37.60, got.Point[0], 1e-4)
	assert.InDelta(t, 55.75, got.Point[1], 1e-4)
	// Too close for a meaningful circle: clamped up to the minimum.
	assert.Equal(t, 100.0, got.Radius)
	assert.Less(t, got.Distance, 100.0)
	assert.NotNil(t, got.NearestStops)
}

func TestSuggestPickupUsesWalkingTerminal(t *testing.T) {
	repo := newFakePickupRepo()
	route := driverRoute()
	repo.routes[route.ID] = route

	// The pedestrian path ends at the middle vertex, not at the straight
	// projection near the start.
	terminal := orb.Point{37.63, 55.75}
	router := &fakeRouter{terminal: &terminal}
	svc := testService(repo, router)

	got, err := svc.SuggestPickup(context.Background(), route.ID, models.LatLon{55.752, 37.605})
	require.NoError(t, err)

	assert.Equal(t, 1, router.calls)
	assert.InDelta(t, 37.63, got.Point[0], 1e-4)
	assert.InDelta(t, 55.75, got.Point[1], 1e-4)
}

func TestSuggestPickupClampsRadiusAndQueriesStops(t *testing.T) {
	repo := newFakePickupRepo()
	route := driverRoute()
	repo.routes[route.ID] = route
	repo.stops = []models.TransitStop{{ID: 7, Name: "Central"}}
	svc := testService(repo, &fakeRouter{})

	// Passenger roughly 5.5 km south of the route.
	got, err := svc.SuggestPickup(context.Background(), route.ID, models.LatLon{55.70, 37.63})
	require.NoError(t, err)

	assert.Equal(t, 2000.0, got.Radius)
	assert.Greater(t, got.Distance, 2000.0)
	assert.Equal(t, 2000.0, repo.lastStopRadius)
	require.Len(t, got.NearestStops, 1)
	assert.Equal(t, "Central", got.NearestStops[0].Name)
	// Mid-route projection, well past the start threshold: no snapping.
	assert.InDelta(t, 37.63, got.Point[0], 1e-3)
}

func TestSuggestPickupUnknownRoute(t *testing.T) {
	svc := testService(newFakePickupRepo(), &fakeRouter{})
	_, err := svc.SuggestPickup(context.Background(), uuid.New(), models.LatLon{55.75, 37.60})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSetPickupRejectsDriverRoutes(t *testing.T) {
	repo := newFakePickupRepo()
	route := driverRoute()
	repo.routes[route.ID] = route
	svc := testService(repo, &fakeRouter{})

	_, err := svc.SetPickup(context.Background(), models.MeetingPointRequest{
		RouteID:     route.ID.String(),
		Coordinates: models.LatLon{55.75, 37.61},
	})
	assert.ErrorIs(t, err, models.ErrProfileNotAllowed)
	assert.Empty(t, repo.upserts)
}

func TestSetPickupStoresProjectedPoint(t *testing.T) {
	repo := newFakePickupRepo()
	route := driverRoute()
	route.Profile = models.ProfileWalking
	repo.routes[route.ID] = route
	svc := testService(repo, &fakeRouter{})

	feature, err := svc.SetPickup(context.Background(), models.MeetingPointRequest{
		RouteID:     route.ID.String(),
		Coordinates: models.LatLon{55.75, 37.61},
	})
	require.NoError(t, err)

	require.Len(t, repo.upserts, 1)
	assert.Equal(t, geometry.Project(orb.Point{37.61, 55.75}), repo.upserts[0])
	point := feature.Geometry.(orb.Point)
	assert.InDelta(t, 37.61, point[0], 1e-5)
	assert.Equal(t, route.ID.String(), feature.Properties["route_id"])

	// Stored point is retrievable and deletable.
	require.NoError(t, svc.DeletePickup(context.Background(), route.ID))
	assert.ErrorIs(t, svc.DeletePickup(context.Background(), route.ID), models.ErrNotFound)
}

func TestIsAtPickupPoint(t *testing.T) {
	repo := newFakePickupRepo()
	route := driverRoute()
	repo.routes[route.ID] = route
	repo.points[KindPickup][route.ID] = &models.MeetingPoint{
		ID:      uuid.New(),
		RouteID: route.ID,
		Geom:    geometry.Project(orb.Point{37.61, 55.75}),
	}
	svc := testService(repo, &fakeRouter{})

	arrived, err := svc.IsAtPickupPoint(context.Background(), route.ID, models.LatLon{55.75, 37.61})
	require.NoError(t, err)
	assert.True(t, arrived)

	// About 300 m north, beyond the 150 m proximity threshold.
	arrived, err = svc.IsAtPickupPoint(context.Background(), route.ID, models.LatLon{55.7527, 37.61})
	require.NoError(t, err)
	assert.False(t, arrived)

	_, err = svc.IsAtPickupPoint(context.Background(), uuid.New(), models.LatLon{55.75, 37.61})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestRemainder(t *testing.T) {
	repo := newFakePickupRepo()
	route := driverRoute()
	repo.routes[route.ID] = route
	svc := testService(repo, &fakeRouter{})

	feature, err := svc.Remainder(context.Background(), route.ID, models.LatLon{55.751, 37.63})
	require.NoError(t, err)

	line := feature.Geometry.(orb.LineString)
	require.GreaterOrEqual(t, len(line), 2)
	assert.InDelta(t, 37.63, line[0][0], 1e-3)
	assert.InDelta(t, 37.66, line[len(line)-1][0], 1e-4)
	assert.InDelta(t, 0.5, feature.Properties["fraction"], 0.01)

	// At the finish there is nothing left but the endpoint itself.
	feature, err = svc.Remainder(context.Background(), route.ID, models.LatLon{55.75, 37.66})
	require.NoError(t, err)
	line = feature.Geometry.(orb.LineString)
	assert.InDelta(t, 37.66, line[0][0], 1e-4)
}

func TestRemainderNeedsGeometry(t *testing.T) {
	repo := newFakePickupRepo()
	route := driverRoute()
	route.Geom = nil
	repo.routes[route.ID] = route
	svc := testService(repo, &fakeRouter{})

	_, err := svc.Remainder(context.Background(), route.ID, models.LatLon{55.75, 37.63})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSnapPositionsKeepsOrder(t *testing.T) {
	repo := newFakePickupRepo()
	repo.snapShift = 1000 // every snap moves 1 km east in the projection
	svc := testService(repo, &fakeRouter{})

	in := models.SnapRequest{Positions: []models.LatLon{
		{55.75, 37.60}, {55.75, 37.63}, {55.75, 37.66},
	}}
	out, err := svc.SnapPositions(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, out, 3)

	for i, snapped := range out {
		assert.Greater(t, snapped[1], in.Positions[i][1], "position %d moved east", i)
		assert.InDelta(t, in.Positions[i][0], snapped[0], 1e-3)
	}
	// Order preserved despite concurrent lookups.
	assert.Less(t, out[0][1], out[1][1])
	assert.Less(t, out[1][1], out[2][1])
}

func TestSnapPositionsPropagatesFailure(t *testing.T) {
	repo := newFakePickupRepo()
	repo.snapErr = errors.New("road table unavailable")
	svc := testService(repo, &fakeRouter{})

	_, err := svc.SnapPositions(context.Background(), models.SnapRequest{
		Positions: []models.LatLon{{55.75, 37.60}},
	})
	assert.Error(t, err)
}
