package matching

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"carpool-backend/internal/config"
	"carpool-backend/internal/geometry"
	"carpool-backend/internal/models"
)

// worthwhileFactor is how much longer the shared portion of a driver's route
// must be than the passenger's two connecting legs before a ride beats just
// walking the whole way.
const worthwhileFactor = 1.5

// ServiceInterface defines the candidate matching operations.
type ServiceInterface interface {
	// GetCandidates filters and ranks the candidate routes against the
	// target, best match first. An empty result is a valid answer.
	GetCandidates(ctx context.Context, targetID uuid.UUID, req models.CandidatesRequest) ([]string, error)
}

// Service implements matching on projected geometry.
type Service struct {
	repo          RepositoryInterface
	log           *zap.Logger
	distanceLimit float64
}

// NewService creates a new matching service.
func NewService(repo RepositoryInterface, cfg config.Config, log *zap.Logger) ServiceInterface {
	return &Service{
		repo:          repo,
		log:           log,
		distanceLimit: cfg.CandidateDistanceLimit,
	}
}

type scored struct {
	id    string
	score float64
}

// GetCandidates applies the eligibility filters, then ranks the survivors by
// the profile-specific weighted distance sum, ascending.
func (s *Service) GetCandidates(ctx context.Context, targetID uuid.UUID, req models.CandidatesRequest) ([]string, error) {
	target, err := s.repo.FindByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(req.CandidateRouteIDs))
	for _, raw := range req.CandidateRouteIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("service.GetCandidates: parse candidate id: %w", err)
		}
		ids = append(ids, id)
	}

	candidates, err := s.repo.Candidates(ctx, ids, target.UserID, target.ID, s.distanceLimit)
	if err != nil {
		return nil, fmt.Errorf("service.GetCandidates: %w", err)
	}

	targetLine := routeLine(target)
	ranked := make([]scored, 0, len(candidates))
	for _, candidate := range candidates {
		if !s.eligible(target, targetLine, candidate) {
			continue
		}
		ranked = append(ranked, scored{
			id:    candidate.ID.String(),
			score: score(target, targetLine, candidate),
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score < ranked[j].score
		}
		return ranked[i].id < ranked[j].id
	})

	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.id
	}
	return out, nil
}

func (s *Service) eligible(target *models.Route, targetLine orb.LineString, candidate *models.Route) bool {
	if candidate.UserID == target.UserID {
		return false
	}
	if geometry.DistToLine(targetLine, candidate.Start) > s.distanceLimit {
		return false
	}
	if geometry.DistToLine(targetLine, candidate.Finish) > s.distanceLimit {
		return false
	}
	// The candidate must be heading the same way: its finish closer to the
	// target's finish than its start is.
	if geometry.Dist(candidate.Finish, target.Finish) >= geometry.Dist(candidate.Start, target.Finish) {
		return false
	}
	if target.Profile == models.ProfileWalking {
		// A pedestrian can only be carried by a confirmed driver route.
		if !candidate.Committed() {
			return false
		}
		if candidate.Profile == models.ProfileDriving && candidate.HasGeometry() &&
			!worthwhile(target, candidate.Geom) {
			return false
		}
	}
	return true
}

// worthwhile checks that the shared stretch of the driver's route is long
// enough to justify the passenger's detour to and from it.
func worthwhile(target *models.Route, candidateGeom orb.LineString) bool {
	nearStart, fracStart := geometry.NearestPoint(candidateGeom, target.Start)
	nearFinish, fracFinish := geometry.NearestPoint(candidateGeom, target.Finish)

	legs := geometry.Dist(target.Start, nearStart) + geometry.Dist(target.Finish, nearFinish)
	if legs == 0 {
		return true
	}
	common := geometry.Length(geometry.Substring(candidateGeom, fracStart, fracFinish))
	return common >= worthwhileFactor*legs
}

// score is the weighted distance sum. Endpoint terms dominate; the remaining
// weight goes to how close the endpoints run to the other party's path.
func score(target *models.Route, targetLine orb.LineString, candidate *models.Route) float64 {
	sum := 0.35*geometry.Dist(candidate.Start, target.Start) +
		0.35*geometry.Dist(candidate.Finish, target.Finish)
	if candidate.Profile == models.ProfileDriving {
		return sum +
			0.15*geometry.DistToLine(targetLine, candidate.Start) +
			0.15*geometry.DistToLine(targetLine, candidate.Finish)
	}
	candidateLine := routeLine(candidate)
	return sum +
		0.15*geometry.DistToLine(candidateLine, target.Start) +
		0.15*geometry.DistToLine(candidateLine, target.Finish)
}

// routeLine is the route's geometry, or the straight endpoint line for
// endpoints-only routes.
func routeLine(route *models.Route) orb.LineString {
	if route.HasGeometry() {
		return route.Geom
	}
	return orb.LineString{route.Start, route.Finish}
}
