package pickup

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"carpool-backend/internal/config"
	"carpool-backend/internal/geometry"
	"carpool-backend/internal/models"
	"carpool-backend/internal/routing"
)

// WalkingRouter is the slice of the routing gateway the locator consumes: a
// single pedestrian path used to refine a straight-line meeting point into a
// reachable one.
type WalkingRouter interface {
	Directions(ctx context.Context, positions []orb.Point, profile models.Profile, alternatives bool) ([]routing.RouteResult, error)
}

// ServiceInterface defines the pickup and drop-off operations.
type ServiceInterface interface {
	// SetPickup stores the pickup point for a passenger route.
	SetPickup(ctx context.Context, req models.MeetingPointRequest) (*geojson.Feature, error)
	// SetDropoff stores the drop-off point for a passenger route.
	SetDropoff(ctx context.Context, req models.MeetingPointRequest) (*geojson.Feature, error)
	DeletePickup(ctx context.Context, routeID uuid.UUID) error
	DeleteDropoff(ctx context.Context, routeID uuid.UUID) error
	// SuggestPickup proposes where a passenger should meet the driver route.
	SuggestPickup(ctx context.Context, routeID uuid.UUID, position models.LatLon) (*models.PickupSuggestion, error)
	// IsAtPickupPoint reports whether the position is close enough to the
	// stored pickup point to count as arrived.
	IsAtPickupPoint(ctx context.Context, routeID uuid.UUID, position models.LatLon) (bool, error)
	// Remainder returns the part of the route still ahead of the position.
	Remainder(ctx context.Context, routeID uuid.UUID, position models.LatLon) (*geojson.Feature, error)
	// SnapPositions moves each position onto the nearest road, keeping order.
	SnapPositions(ctx context.Context, req models.SnapRequest) ([]models.LatLon, error)
}

// Service implements the locator on the store and the walking router.
type Service struct {
	repo   RepositoryInterface
	router WalkingRouter
	log    *zap.Logger

	startThreshold float64
	proximity      float64
	minRadius      float64
	maxRadius      float64
}

// NewService creates a new pickup service.
func NewService(repo RepositoryInterface, router WalkingRouter, cfg config.Config, log *zap.Logger) ServiceInterface {
	return &Service{
		repo:           repo,
		router:         router,
		log:            log,
		startThreshold: cfg.PickupStartThreshold,
		proximity:      cfg.PickupProximity,
		minRadius:      cfg.MinPickupRadius,
		maxRadius:      cfg.MaxPickupRadius,
	}
}

func (s *Service) SetPickup(ctx context.Context, req models.MeetingPointRequest) (*geojson.Feature, error) {
	return s.setPoint(ctx, KindPickup, req)
}

func (s *Service) SetDropoff(ctx context.Context, req models.MeetingPointRequest) (*geojson.Feature, error) {
	return s.setPoint(ctx, KindDropoff, req)
}

// setPoint validates the route and upserts the meeting point. Driver routes
// never carry meeting points; they are where the meeting happens.
func (s *Service) setPoint(ctx context.Context, kind PointKind, req models.MeetingPointRequest) (*geojson.Feature, error) {
	routeID, err := uuid.Parse(req.RouteID)
	if err != nil {
		return nil, fmt.Errorf("service.setPoint: parse route id: %w", err)
	}
	route, err := s.repo.FindRoute(ctx, routeID)
	if err != nil {
		return nil, err
	}
	if route.Profile == models.ProfileDriving {
		return nil, models.ErrProfileNotAllowed
	}

	point, err := s.repo.UpsertMeetingPoint(ctx, kind, routeID, geometry.Project(req.Coordinates.Point()))
	if err != nil {
		return nil, err
	}

	feature := geojson.NewFeature(geometry.Unproject(point.Geom))
	feature.ID = point.ID.String()
	feature.Properties["route_id"] = routeID.String()
	return feature, nil
}

func (s *Service) DeletePickup(ctx context.Context, routeID uuid.UUID) error {
	return s.repo.DeleteMeetingPoint(ctx, KindPickup, routeID)
}

func (s *Service) DeleteDropoff(ctx context.Context, routeID uuid.UUID) error {
	return s.repo.DeleteMeetingPoint(ctx, KindDropoff, routeID)
}

// SuggestPickup projects the passenger onto the driver's route, walks the
// meeting point to somewhere actually reachable on foot, and snaps it to the
// route start when it would land almost at the start anyway.
func (s *Service) SuggestPickup(ctx context.Context, routeID uuid.UUID, position models.LatLon) (*models.PickupSuggestion, error) {
	route, err := s.repo.FindRoute(ctx, routeID)
	if err != nil {
		return nil, err
	}
	line := route.Geom
	if !route.HasGeometry() {
		line = orb.LineString{route.Start, route.Finish}
	}

	passenger := geometry.Project(position.Point())
	meeting, _ := geometry.NearestPoint(line, passenger)

	// The straight nearest point can sit on the wrong side of a river or a
	// fence. Walking there and taking the terminal coordinate of the actual
	// pedestrian path gives a reachable spot.
	if s.router != nil && geometry.Dist(passenger, meeting) > 0 {
		walk, err := s.router.Directions(ctx,
			[]orb.Point{position.Point(), geometry.Unproject(meeting)},
			models.ProfileWalking, false)
		if err != nil {
			s.log.Warn("pickup refinement failed, keeping straight projection", zap.Error(err))
		} else if len(walk) > 0 && !walk[0].Empty() {
			refined := geometry.Project(walk[0].Geometry[len(walk[0].Geometry)-1])
			refined, _ = geometry.NearestPoint(line, refined)
			meeting = refined
		}
	}

	_, frac := geometry.NearestPoint(line, meeting)
	if frac*geometry.Length(line) <= s.startThreshold {
		meeting = line[0]
	}

	distance := geometry.Dist(passenger, meeting)
	radius := distance
	if radius < s.minRadius {
		radius = s.minRadius
	}
	if radius > s.maxRadius {
		radius = s.maxRadius
	}

	stops, err := s.repo.StopsWithin(ctx, meeting, radius)
	if err != nil {
		return nil, fmt.Errorf("service.SuggestPickup: %w", err)
	}
	if stops == nil {
		stops = []models.TransitStop{}
	}
	return &models.PickupSuggestion{
		Point:        geometry.Unproject(meeting),
		Radius:       radius,
		Distance:     distance,
		NearestStops: stops,
	}, nil
}

// IsAtPickupPoint compares the position with the stored pickup point.
func (s *Service) IsAtPickupPoint(ctx context.Context, routeID uuid.UUID, position models.LatLon) (bool, error) {
	point, err := s.repo.GetMeetingPoint(ctx, KindPickup, routeID)
	if err != nil {
		return false, err
	}
	return geometry.Dist(geometry.Project(position.Point()), point.Geom) <= s.proximity, nil
}

// Remainder cuts the route at the traveled fraction and returns what is left.
func (s *Service) Remainder(ctx context.Context, routeID uuid.UUID, position models.LatLon) (*geojson.Feature, error) {
	route, err := s.repo.FindRoute(ctx, routeID)
	if err != nil {
		return nil, err
	}
	if !route.HasGeometry() {
		return nil, models.ErrNotFound
	}

	_, frac := geometry.NearestPoint(route.Geom, geometry.Project(position.Point()))
	rest := geometry.Substring(route.Geom, frac, 1.0)
	if len(rest) < 2 {
		// Already at the finish.
		end := route.Geom[len(route.Geom)-1]
		rest = orb.LineString{end, end}
	}

	feature := geojson.NewFeature(geometry.UnprojectLine(rest))
	feature.ID = route.ID.String()
	feature.Properties["fraction"] = frac
	return feature, nil
}

// SnapPositions snaps each waypoint to the nearest road. The lookups are
// independent and fan out concurrently; results keep the input order.
func (s *Service) SnapPositions(ctx context.Context, req models.SnapRequest) ([]models.LatLon, error) {
	out := make([]models.LatLon, len(req.Positions))
	g, gctx := errgroup.WithContext(ctx)
	for i, position := range req.Positions {
		i, position := i, position
		g.Go(func() error {
			snapped, err := s.repo.SnapToRoad(gctx, geometry.Project(position.Point()))
			if err != nil {
				return err
			}
			lonlat := geometry.Unproject(snapped)
			out[i] = models.LatLon{lonlat[1], lonlat[0]}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("service.SnapPositions: %w", err)
	}
	return out, nil
}
