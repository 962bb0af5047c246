package routes

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"golang.org/x/sync/errgroup"

	"carpool-backend/internal/geometry"
	"carpool-backend/internal/models"
	"carpool-backend/internal/routing"
)

// reuseJoinEpsilon is how close (meters, planar) a requested endpoint must be
// to its projection on a historical route before the connecting leg is
// considered zero-length and no directions call is made for it.
const reuseJoinEpsilon = 1.0

// prepareFromHistory builds prepared alternatives from the user's committed,
// handled routes with nearby endpoints. For each reusable route the common
// part is carved out between the projections of the requested endpoints, and
// fresh tail and head legs are routed concurrently to connect the requested
// origin and destination to it. Overlaps between a fresh leg and the common
// part are resolved so the merged line never doubles back on itself.
func (s *Service) prepareFromHistory(ctx context.Context, userID uuid.UUID, origin, destination, originProj, destProj orb.Point, profile models.Profile) ([]routing.RouteResult, error) {
	historical, err := s.repo.SimilarHandled(ctx, userID, originProj, destProj, s.proximityThreshold, s.maxPrepared)
	if err != nil {
		return nil, fmt.Errorf("service.prepareFromHistory: %w", err)
	}

	var prepared []routing.RouteResult
	for _, hist := range historical {
		if !s.reusable(hist, originProj, destProj) {
			continue
		}
		nearStart, fracStart := geometry.NearestPoint(hist.Geom, originProj)
		nearFinish, fracFinish := geometry.NearestPoint(hist.Geom, destProj)

		common := geometry.Substring(hist.Geom, fracStart, fracFinish)
		if len(common) < 2 {
			continue
		}

		var tail, head routing.RouteResult
		g, gctx := errgroup.WithContext(ctx)
		if geometry.Dist(originProj, nearStart) > reuseJoinEpsilon {
			g.Go(func() error {
				var err error
				tail, err = s.routeOne(gctx, []orb.Point{origin, geometry.Unproject(nearStart)}, profile)
				return err
			})
		}
		if geometry.Dist(destProj, nearFinish) > reuseJoinEpsilon {
			g.Go(func() error {
				var err error
				head, err = s.routeOne(gctx, []orb.Point{geometry.Unproject(nearFinish), destination}, profile)
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("service.prepareFromHistory: %w", err)
		}

		var tailGeom, headGeom orb.LineString
		if !tail.Empty() {
			tailGeom, common = s.fitLeg(geometry.ProjectLine(tail.Geometry), common)
		}
		if !head.Empty() {
			headGeom, common = s.fitLeg(geometry.ProjectLine(head.Geometry), common)
		}

		merged := geometry.Merge(tailGeom, common, headGeom)
		if len(merged) < 2 {
			continue
		}
		prepared = append(prepared, routing.RouteResult{
			Geometry: geometry.UnprojectLine(merged),
			Distance: hist.Distance + tail.Distance + head.Distance,
			Duration: hist.Duration + tail.Duration + head.Duration,
		})
	}
	return prepared, nil
}

// reusable reports whether a historical route may seed a prepared
// alternative: committed, handled, paved, and with start and finish each
// within the proximity threshold of the requested endpoints. The store
// prefilters on the same predicates; they are enforced here as well so
// eligibility never depends on the query alone.
func (s *Service) reusable(hist *models.Route, originProj, destProj orb.Point) bool {
	return hist.Committed() && hist.IsHandled && hist.HasGeometry() &&
		geometry.Dist(hist.Start, originProj) <= s.proximityThreshold &&
		geometry.Dist(hist.Finish, destProj) <= s.proximityThreshold
}

// fitLeg reconciles a fresh connecting leg with the reused common part. The
// leg is first snapped vertex-wise onto the common part; a leg fully riding
// on it is dropped, a partially overlapping one is cut down to the disjoint
// remainder along with the common part's own trimmed span.
func (s *Service) fitLeg(leg, common orb.LineString) (orb.LineString, orb.LineString) {
	snapped := geometry.Snap(leg, common, s.snapTolerance)
	overlap := geometry.ResolveOverlap(snapped, common, s.snapTolerance)
	switch overlap.Kind {
	case geometry.OverlapContained:
		return nil, common
	case geometry.OverlapPartial:
		return overlap.Segment, overlap.Common
	default:
		return leg, common
	}
}

// routeOne asks the gateway for a single route between the waypoints.
func (s *Service) routeOne(ctx context.Context, positions []orb.Point, profile models.Profile) (routing.RouteResult, error) {
	results, err := s.gateway.Directions(ctx, positions, profile, false)
	if err != nil {
		return routing.RouteResult{}, err
	}
	if len(results) == 0 {
		return routing.EmptyRoute, nil
	}
	return results[0], nil
}

// handlePoints produces one grab handle per paved route: the midpoint of the
// route's final leg, where a passenger route can latch on. For multi-stop
// requests the final leg is routed separately, so the handle sits on the way
// to the last stop rather than somewhere mid-tour.
func (s *Service) handlePoints(ctx context.Context, positions []orb.Point, primary []routing.RouteResult, profile models.Profile) ([]orb.Point, error) {
	lastLegs := primary
	if len(positions) > 2 {
		leg, err := s.routeOne(ctx, positions[len(positions)-2:], profile)
		if err != nil {
			return nil, err
		}
		lastLegs = []routing.RouteResult{leg}
	}

	points := make([]orb.Point, 0, len(lastLegs))
	for _, leg := range lastLegs {
		if leg.Empty() {
			continue
		}
		mid := geometry.Interpolate(geometry.ProjectLine(leg.Geometry), 0.5)
		points = append(points, geometry.Unproject(mid))
	}
	return points, nil
}
