package routes

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"carpool-backend/internal/config"
	"carpool-backend/internal/geometry"
	"carpool-backend/internal/models"
	"carpool-backend/internal/routing"
)

// DirectionsAPI is the slice of the routing gateway the composer consumes.
type DirectionsAPI interface {
	Directions(ctx context.Context, positions []orb.Point, profile models.Profile, alternatives bool) ([]routing.RouteResult, error)
}

// ServiceInterface defines the route composition operations.
type ServiceInterface interface {
	// Directions builds, persists and returns routes for the request: paved
	// primary routes, optional grab handles and prepared historical reuses.
	Directions(ctx context.Context, req models.DirectionsRequest) (*models.DirectionsResponse, error)
	// GetRoute returns a stored route as a GeoJSON feature. With full=false,
	// or when no path was paved, the geometry is the straight endpoint line.
	GetRoute(ctx context.Context, id uuid.UUID, full bool) (*models.RouteResponse, error)
	// CommitTrip confirms one draft as the trip's route and discards the rest.
	CommitTrip(ctx context.Context, routeID uuid.UUID, req models.CommitTripRequest) error
}

// Service implements route composition on top of the store and the gateway.
type Service struct {
	repo    RepositoryInterface
	gateway DirectionsAPI
	log     *zap.Logger

	maxPrepared        int
	proximityThreshold float64
	snapTolerance      float64
}

// NewService creates a new route service.
func NewService(repo RepositoryInterface, gateway DirectionsAPI, cfg config.Config, log *zap.Logger) ServiceInterface {
	return &Service{
		repo:               repo,
		gateway:            gateway,
		log:                log,
		maxPrepared:        cfg.MaxPreparedRoutes,
		proximityThreshold: cfg.PointProximityThreshold,
		snapTolerance:      cfg.SnapTolerance,
	}
}

// Directions is the composition pipeline. Waypoints arrive as [lat, lon];
// everything downstream works in lon/lat and, for measurements, in the
// planar projection.
func (s *Service) Directions(ctx context.Context, req models.DirectionsRequest) (*models.DirectionsResponse, error) {
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return nil, fmt.Errorf("service.Directions: parse user id: %w", err)
	}

	seen := make(map[models.LatLon]struct{}, len(req.Positions))
	for _, pos := range req.Positions {
		if _, dup := seen[pos]; dup {
			return nil, models.ErrDuplicatePosition
		}
		seen[pos] = struct{}{}
	}

	positions := make([]orb.Point, len(req.Positions))
	for i, pos := range req.Positions {
		positions[i] = pos.Point()
	}

	// The stored endpoints are the requested ones, before any splicing.
	origin, destination := positions[0], positions[len(positions)-1]
	originProj := geometry.Project(origin)
	destProj := geometry.Project(destination)

	// Stops between the endpoints are visited closest-first.
	if len(positions) > 3 {
		interior := positions[1 : len(positions)-1]
		sort.Slice(interior, func(i, j int) bool {
			return geometry.Dist(geometry.Project(interior[i]), originProj) <
				geometry.Dist(geometry.Project(interior[j]), originProj)
		})
	}

	switch {
	case req.FromRouteID != nil && req.ToRouteID != nil:
		if positions, err = s.bridgeRoutes(ctx, *req.FromRouteID, *req.ToRouteID, positions); err != nil {
			return nil, err
		}
	case req.FromRouteID != nil:
		if positions[0], err = s.spliceOnto(ctx, *req.FromRouteID, positions[0]); err != nil {
			return nil, err
		}
	case req.ToRouteID != nil:
		last := len(positions) - 1
		if positions[last], err = s.spliceOnto(ctx, *req.ToRouteID, positions[last]); err != nil {
			return nil, err
		}
	}

	if !req.WantsRoute() {
		return s.createUnpaved(ctx, userID, req.Profile, origin, destination, originProj, destProj)
	}

	isInitial := req.Profile == models.ProfileDriving && len(positions) == 2

	primary, err := s.gateway.Directions(ctx, positions, req.Profile, req.Alternatives && isInitial)
	if err != nil {
		return nil, err
	}

	var prepared []routing.RouteResult
	if isInitial && req.Alternatives {
		if prepared, err = s.prepareFromHistory(ctx, userID, origin, destination, originProj, destProj, req.Profile); err != nil {
			return nil, err
		}
	}

	wantHandles := req.Handles && req.Profile == models.ProfileDriving
	var handles []orb.Point
	if wantHandles {
		if handles, err = s.handlePoints(ctx, positions, primary, req.Profile); err != nil {
			return nil, err
		}
	}

	// Multi-stop routes were shaped via explicit via points, so they count
	// as already handled.
	isHandled := req.Handles && len(positions) > 2

	batch := make([]*models.Route, 0, len(primary)+len(prepared))
	for _, result := range append(append([]routing.RouteResult{}, primary...), prepared...) {
		batch = append(batch, &models.Route{
			ID:        uuid.New(),
			UserID:    userID,
			Profile:   req.Profile,
			Geom:      geometry.ProjectLine(result.Geometry),
			Start:     originProj,
			Finish:    destProj,
			Distance:  result.Distance,
			Duration:  result.Duration,
			IsHandled: isHandled,
		})
	}
	if err := s.repo.CreateBatch(ctx, userID, batch); err != nil {
		return nil, fmt.Errorf("service.Directions: %w", err)
	}

	routesFC := geojson.NewFeatureCollection()
	preparedFC := geojson.NewFeatureCollection()
	for i, result := range primary {
		routesFC.Append(routeFeature(batch[i].ID, result))
	}
	for i, result := range prepared {
		preparedFC.Append(routeFeature(batch[len(primary)+i].ID, result))
	}

	handlesFC := geojson.NewFeatureCollection()
	for i, point := range handles {
		if i >= len(primary) {
			break
		}
		handlesFC.Append(pointFeature(batch[i].ID, point))
	}

	return &models.DirectionsResponse{
		Routes:         routesFC,
		Handles:        handlesFC,
		PreparedRoutes: preparedFC,
	}, nil
}

// createUnpaved stores an endpoints-only route and answers with the straight
// line between them.
func (s *Service) createUnpaved(ctx context.Context, userID uuid.UUID, profile models.Profile, origin, destination, originProj, destProj orb.Point) (*models.DirectionsResponse, error) {
	route := &models.Route{
		ID:      uuid.New(),
		UserID:  userID,
		Profile: profile,
		Start:   originProj,
		Finish:  destProj,
	}
	if err := s.repo.CreateBatch(ctx, userID, []*models.Route{route}); err != nil {
		return nil, fmt.Errorf("service.Directions: %w", err)
	}
	routesFC := geojson.NewFeatureCollection()
	routesFC.Append(routeFeature(route.ID, routing.RouteResult{
		Geometry: orb.LineString{origin, destination},
	}))
	return &models.DirectionsResponse{
		Routes:         routesFC,
		Handles:        geojson.NewFeatureCollection(),
		PreparedRoutes: geojson.NewFeatureCollection(),
	}, nil
}

// storedLine loads a referenced route's projected geometry. An endpoints-only
// route is its straight start-finish line.
func (s *Service) storedLine(ctx context.Context, routeID string) (orb.LineString, error) {
	id, err := uuid.Parse(routeID)
	if err != nil {
		return nil, fmt.Errorf("service.Directions: parse route id: %w", err)
	}
	route, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if route.HasGeometry() {
		return route.Geom, nil
	}
	return orb.LineString{route.Start, route.Finish}, nil
}

// spliceOnto moves a waypoint to the nearest point of another stored route,
// so the new route physically meets it.
func (s *Service) spliceOnto(ctx context.Context, routeID string, point orb.Point) (orb.Point, error) {
	line, err := s.storedLine(ctx, routeID)
	if err != nil {
		return orb.Point{}, err
	}
	near, _ := geometry.NearestPoint(line, geometry.Project(point))
	return geometry.Unproject(near), nil
}

// bridgeRoutes connects two stored routes: the closest pair of points between
// their geometries brackets the waypoint list, so the new route departs from
// one route where it passes nearest to the other.
func (s *Service) bridgeRoutes(ctx context.Context, fromID, toID string, positions []orb.Point) ([]orb.Point, error) {
	fromLine, err := s.storedLine(ctx, fromID)
	if err != nil {
		return nil, err
	}
	toLine, err := s.storedLine(ctx, toID)
	if err != nil {
		return nil, err
	}

	fromPt, toPt := geometry.NearestBetween(fromLine, toLine)
	bridged := make([]orb.Point, 0, len(positions)+2)
	bridged = append(bridged, geometry.Unproject(fromPt))
	bridged = append(bridged, positions...)
	return append(bridged, geometry.Unproject(toPt)), nil
}

// GetRoute returns one stored route.
func (s *Service) GetRoute(ctx context.Context, id uuid.UUID, full bool) (*models.RouteResponse, error) {
	route, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	full = full && route.HasGeometry()
	var line orb.LineString
	if full {
		line = geometry.UnprojectLine(route.Geom)
	} else {
		line = orb.LineString{geometry.Unproject(route.Start), geometry.Unproject(route.Finish)}
	}

	feature := geojson.NewFeature(line)
	feature.ID = route.ID.String()
	feature.Properties["distance"] = route.Distance
	feature.Properties["duration"] = route.Duration
	feature.Properties["profile"] = string(route.Profile)
	return &models.RouteResponse{Route: feature, Full: full}, nil
}

// CommitTrip pins the chosen draft to a trip and discards the user's other
// drafts.
func (s *Service) CommitTrip(ctx context.Context, routeID uuid.UUID, req models.CommitTripRequest) error {
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return fmt.Errorf("service.CommitTrip: parse user id: %w", err)
	}
	tripID, err := uuid.Parse(req.TripID)
	if err != nil {
		return fmt.Errorf("service.CommitTrip: parse trip id: %w", err)
	}
	return s.repo.CommitTrip(ctx, userID, routeID, tripID)
}

func routeFeature(id uuid.UUID, result routing.RouteResult) *geojson.Feature {
	feature := geojson.NewFeature(result.Geometry)
	feature.ID = id.String()
	feature.Properties["distance"] = result.Distance
	feature.Properties["duration"] = result.Duration
	return feature
}

func pointFeature(id uuid.UUID, point orb.Point) *geojson.Feature {
	feature := geojson.NewFeature(point)
	feature.ID = id.String()
	return feature
}
