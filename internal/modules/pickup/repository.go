package pickup

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"

	"carpool-backend/internal/models"
)

// PointKind selects the meeting point table. Pickup and drop-off points share
// one shape and one lifecycle, only the table differs.
type PointKind string

const (
	KindPickup  PointKind = "pickup_point"
	KindDropoff PointKind = "dropoff_point"
)

// snapSearchRadius bounds the nearest-road search; positions farther than
// this from any road are returned unchanged.
const snapSearchRadius = 1000.0

// RepositoryInterface defines the meeting point and spatial lookup storage.
type RepositoryInterface interface {
	FindRoute(ctx context.Context, id uuid.UUID) (*models.Route, error)
	// UpsertMeetingPoint stores the point for the route, replacing any
	// previous one. A route has at most one point of each kind.
	UpsertMeetingPoint(ctx context.Context, kind PointKind, routeID uuid.UUID, point orb.Point) (*models.MeetingPoint, error)
	GetMeetingPoint(ctx context.Context, kind PointKind, routeID uuid.UUID) (*models.MeetingPoint, error)
	DeleteMeetingPoint(ctx context.Context, kind PointKind, routeID uuid.UUID) error
	// StopsWithin returns the transit stops within radius meters of center.
	StopsWithin(ctx context.Context, center orb.Point, radius float64) ([]models.TransitStop, error)
	// SnapToRoad moves a projected position onto the nearest road, or
	// returns it unchanged when no road is close enough.
	SnapToRoad(ctx context.Context, point orb.Point) (orb.Point, error)
}

// Repository is the PostGIS implementation of RepositoryInterface.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new pickup repository.
func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

// FindRoute retrieves the route a meeting point belongs to.
func (r *Repository) FindRoute(ctx context.Context, id uuid.UUID) (*models.Route, error) {
	var (
		route     models.Route
		geomRaw   []byte
		startRaw  []byte
		finishRaw []byte
	)
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, trip_id, profile,
		       ST_AsBinary(geom), ST_AsBinary(start_pt), ST_AsBinary(finish_pt),
		       COALESCE(distance, 0), COALESCE(duration, 0), is_handled, created_at
		FROM route WHERE id = $1`, id).Scan(
		&route.ID, &route.UserID, &route.TripID, &route.Profile,
		&geomRaw, &startRaw, &finishRaw,
		&route.Distance, &route.Duration, &route.IsHandled, &route.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.FindRoute: %w", err)
	}
	if geomRaw != nil {
		geom, err := wkb.Unmarshal(geomRaw)
		if err != nil {
			return nil, fmt.Errorf("repository.FindRoute: decode geometry: %w", err)
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
			return nil, fmt.Errorf("repository.FindRoute: decode endpoint: %w", err)
		}
		if p, ok := geom.(orb.Point); ok {
			*pt.dst = p
		}
	}
	return &route, nil
}

// UpsertMeetingPoint writes the point, replacing an earlier one for the same
// route.
func (r *Repository) UpsertMeetingPoint(ctx context.Context, kind PointKind, routeID uuid.UUID, point orb.Point) (*models.MeetingPoint, error) {
	pointWKB, err := wkb.Marshal(point)
	if err != nil {
		return nil, fmt.Errorf("repository.UpsertMeetingPoint: encode point: %w", err)
	}
	mp := models.MeetingPoint{RouteID: routeID, Geom: point}
	err = r.db.QueryRow(ctx, `
		INSERT INTO `+string(kind)+` (id, route_id, geom)
		VALUES ($1, $2, ST_GeomFromWKB($3, 32637))
		ON CONFLICT (route_id)
		DO UPDATE SET geom = EXCLUDED.geom, created_at = now()
		RETURNING id, created_at`,
		uuid.New(), routeID, pointWKB).Scan(&mp.ID, &mp.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.UpsertMeetingPoint: %w", err)
	}
	return &mp, nil
}

// GetMeetingPoint fetches the point for a route.
func (r *Repository) GetMeetingPoint(ctx context.Context, kind PointKind, routeID uuid.UUID) (*models.MeetingPoint, error) {
	var (
		mp      models.MeetingPoint
		geomRaw []byte
	)
	err := r.db.QueryRow(ctx, `
		SELECT id, route_id, ST_AsBinary(geom), created_at
		FROM `+string(kind)+` WHERE route_id = $1`, routeID).Scan(
		&mp.ID, &mp.RouteID, &geomRaw, &mp.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.GetMeetingPoint: %w", err)
	}
	geom, err := wkb.Unmarshal(geomRaw)
	if err != nil {
		return nil, fmt.Errorf("repository.GetMeetingPoint: decode point: %w", err)
	}
	if p, ok := geom.(orb.Point); ok {
		mp.Geom = p
	}
	return &mp, nil
}

// DeleteMeetingPoint removes the point for a route.
func (r *Repository) DeleteMeetingPoint(ctx context.Context, kind PointKind, routeID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM `+string(kind)+` WHERE route_id = $1`, routeID)
	if err != nil {
		return fmt.Errorf("repository.DeleteMeetingPoint: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// StopsWithin lists transit stops inside the circle.
func (r *Repository) StopsWithin(ctx context.Context, center orb.Point, radius float64) ([]models.TransitStop, error) {
	centerWKB, err := wkb.Marshal(center)
	if err != nil {
		return nil, fmt.Errorf("repository.StopsWithin: encode center: %w", err)
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, name, ST_AsBinary(geom)
		FROM transit_stop
		WHERE ST_DWithin(geom, ST_GeomFromWKB($1, 32637), $2)
		ORDER BY ST_Distance(geom, ST_GeomFromWKB($1, 32637))`,
		centerWKB, radius)
	if err != nil {
		return nil, fmt.Errorf("repository.StopsWithin: %w", err)
	}
	defer rows.Close()

	var stops []models.TransitStop
	for rows.Next() {
		var (
			stop    models.TransitStop
			geomRaw []byte
		)
		if err := rows.Scan(&stop.ID, &stop.Name, &geomRaw); err != nil {
			return nil, fmt.Errorf("repository.StopsWithin: %w", err)
		}
		geom, err := wkb.Unmarshal(geomRaw)
		if err != nil {
			return nil, fmt.Errorf("repository.StopsWithin: decode stop: %w", err)
		}
		if p, ok := geom.(orb.Point); ok {
			stop.Geom = p
		}
		stops = append(stops, stop)
	}
	return stops, rows.Err()
}

// SnapToRoad projects the point onto the nearest stored road.
func (r *Repository) SnapToRoad(ctx context.Context, point orb.Point) (orb.Point, error) {
	pointWKB, err := wkb.Marshal(point)
	if err != nil {
		return orb.Point{}, fmt.Errorf("repository.SnapToRoad: encode point: %w", err)
	}
	var snappedRaw []byte
	err = r.db.QueryRow(ctx, `
		SELECT ST_AsBinary(ST_ClosestPoint(geom, ST_GeomFromWKB($1, 32637)))
		FROM road
		WHERE ST_DWithin(geom, ST_GeomFromWKB($1, 32637), $2)
		ORDER BY ST_Distance(geom, ST_GeomFromWKB($1, 32637))
		LIMIT 1`,
		pointWKB, snapSearchRadius).Scan(&snappedRaw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return point, nil
		}
		return orb.Point{}, fmt.Errorf("repository.SnapToRoad: %w", err)
	}
	geom, err := wkb.Unmarshal(snappedRaw)
	if err != nil {
		return orb.Point{}, fmt.Errorf("repository.SnapToRoad: decode point: %w", err)
	}
	snapped, ok := geom.(orb.Point)
	if !ok {
		return point, nil
	}
	return snapped, nil
}
