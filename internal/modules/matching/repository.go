package matching

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"

	"carpool-backend/internal/models"
)

// RepositoryInterface supplies the matcher with candidate rows. The database
// only does the coarse work (ownership, ST_DWithin prefilter); the exact
// filters and the ranking run in the service, on projected geometry.
type RepositoryInterface interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Route, error)
	// Candidates returns the requested routes that belong to someone other
	// than excludeUser and whose endpoints both lie within limit meters of
	// the target route's geometry.
	Candidates(ctx context.Context, ids []uuid.UUID, excludeUser, targetID uuid.UUID, limit float64) ([]*models.Route, error)
}

// Repository is the PostGIS implementation of RepositoryInterface.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new matching repository.
func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

const routeColumns = `
	r.id, r.user_id, r.trip_id, r.profile,
	ST_AsBinary(r.geom), ST_AsBinary(r.start_pt), ST_AsBinary(r.finish_pt),
	COALESCE(r.distance, 0), COALESCE(r.duration, 0), r.is_handled, r.created_at`

func scanRoute(row pgx.Row) (*models.Route, error) {
	var (
		route     models.Route
		geomRaw   []byte
		startRaw  []byte
		finishRaw []byte
	)
	err := row.Scan(
		&route.ID, &route.UserID, &route.TripID, &route.Profile,
		&geomRaw, &startRaw, &finishRaw,
		&route.Distance, &route.Duration, &route.IsHandled, &route.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("scan route: %w", err)
	}
	if geomRaw != nil {
		geom, err := wkb.Unmarshal(geomRaw)
		if err != nil {
			return nil, fmt.Errorf("decode route geometry: %w", err)
		}
		if ls, ok := geom.(orb.LineString); ok {
			route.Geom = ls
		}
	}
	for _, pt := range []struct {
		raw []byte
		dst *orb.Point
	}{{startRaw, &route.Start}, {finishRaw, &route.Finish}} {
		geom, err := wkb.Unmarshal(pt.raw)
		if err != nil {
			return nil, fmt.Errorf("decode route endpoint: %w", err)
		}
		if p, ok := geom.(orb.Point); ok {
			*pt.dst = p
		}
	}
	return &route, nil
}

// FindByID retrieves the target route.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Route, error) {
	row := r.db.QueryRow(ctx, `SELECT `+routeColumns+` FROM route r WHERE r.id = $1`, id)
	route, err := scanRoute(row)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.FindByID: %w", err)
	}
	return route, nil
}

// Candidates runs the coarse prefilter. Endpoints-only targets fall back to
// their straight start-finish line for the distance check.
func (r *Repository) Candidates(ctx context.Context, ids []uuid.UUID, excludeUser, targetID uuid.UUID, limit float64) ([]*models.Route, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+routeColumns+`
		FROM route r, route t
		WHERE t.id = $3
		  AND r.id = ANY($1)
		  AND r.user_id <> $2
		  AND ST_DWithin(r.start_pt, COALESCE(t.geom, ST_MakeLine(t.start_pt, t.finish_pt)), $4)
		  AND ST_DWithin(r.finish_pt, COALESCE(t.geom, ST_MakeLine(t.start_pt, t.finish_pt)), $4)`,
		ids, excludeUser, targetID, limit)
	if err != nil {
		return nil, fmt.Errorf("repository.Candidates: %w", err)
	}
	defer rows.Close()

	var routes []*models.Route
	for rows.Next() {
		route, err := scanRoute(rows)
		if err != nil {
			return nil, fmt.Errorf("repository.Candidates: %w", err)
		}
		routes = append(routes, route)
	}
	return routes, rows.Err()
}
