package routes

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

const routeColumns = `
	id, user_id, trip_id, profile,
	ST_AsBinary(geom), ST_AsBinary(start_pt), ST_AsBinary(finish_pt),
	COALESCE(distance, 0), COALESCE(duration, 0), is_handled, created_at`

// RepositoryInterface defines the route store operations the composer needs.
type RepositoryInterface interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Route, error)
	// SimilarHandled returns the user's committed, handled routes whose start
	// and finish each lie within the given distance (meters, planar) of the
	// requested endpoints, newest first, capped at limit.
	SimilarHandled(ctx context.Context, userID uuid.UUID, start, finish orb.Point, within float64, limit int) ([]*models.Route, error)
	// CreateBatch persists a batch of routes atomically. The user's prior
	// uncommitted drafts are discarded in the same transaction, so at most
	// one discardable batch exists per user.
	CreateBatch(ctx context.Context, userID uuid.UUID, batch []*models.Route) error
	// CommitTrip prunes the user's other drafts and stamps the trip id on the
	// surviving route. Returns ErrNoDiscardableRoutes when there was nothing
	// to prune, ErrTripExists when the trip id is already taken.
	CommitTrip(ctx context.Context, userID, routeID, tripID uuid.UUID) error
}

// Repository is the PostGIS implementation of RepositoryInterface.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new route repository.
func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

func scanRoute(row pgx.Row) (*models.Route, error) {
	var (
		route          models.Route
		geomRaw        []byte
		startRaw       []byte
		finishRaw      []byte
	)
	err := row.Scan(
		&route.ID,
		&route.UserID,
		&route.TripID,
		&route.Profile,
		&geomRaw,
		&startRaw,
		&finishRaw,
		&route.Distance,
		&route.Duration,
		&route.IsHandled,
		&route.CreatedAt,
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
		ls, ok := geom.(orb.LineString)
		if !ok {
			return nil, fmt.Errorf("route geometry is %T, want LineString", geom)
		}
		route.Geom = ls
	}
	for _, pt := range []struct {
		raw []byte
		dst *orb.Point
	}{{startRaw, &route.Start}, {finishRaw, &route.Finish}} {
		geom, err := wkb.Unmarshal(pt.raw)
		if err != nil {
			return nil, fmt.Errorf("decode route endpoint: %w", err)
		}
		p, ok := geom.(orb.Point)
		if !ok {
			return nil, fmt.Errorf("route endpoint is %T, want Point", geom)
		}
		*pt.dst = p
	}
	return &route, nil
}

// FindByID retrieves a single route.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Route, error) {
	row := r.db.QueryRow(ctx, `SELECT `+routeColumns+` FROM route WHERE id = $1`, id)
	route, err := scanRoute(row)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.FindByID: %w", err)
	}
	return route, nil
}

// SimilarHandled queries historical routes eligible for reuse.
func (r *Repository) SimilarHandled(ctx context.Context, userID uuid.UUID, start, finish orb.Point, within float64, limit int) ([]*models.Route, error) {
	startWKB, err := wkb.Marshal(start)
	if err != nil {
		return nil, fmt.Errorf("repository.SimilarHandled: encode start: %w", err)
	}
	finishWKB, err := wkb.Marshal(finish)
	if err != nil {
		return nil, fmt.Errorf("repository.SimilarHandled: encode finish: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+routeColumns+`
		FROM route
		WHERE user_id = $1
		  AND trip_id IS NOT NULL
		  AND is_handled
		  AND geom IS NOT NULL
		  AND ST_DWithin(start_pt, ST_GeomFromWKB($2, 32637), $4)
		  AND ST_DWithin(finish_pt, ST_GeomFromWKB($3, 32637), $4)
		ORDER BY created_at DESC
		LIMIT $5`,
		userID, startWKB, finishWKB, within, limit)
	if err != nil {
		return nil, fmt.Errorf("repository.SimilarHandled: %w", err)
	}
	defer rows.Close()

	var routes []*models.Route
	for rows.Next() {
		route, err := scanRoute(rows)
		if err != nil {
			return nil, fmt.Errorf("repository.SimilarHandled: %w", err)
		}
		routes = append(routes, route)
	}
	return routes, rows.Err()
}

// CreateBatch inserts the routes in one transaction, pruning the user's
// earlier drafts first. Either the whole batch lands or none of it does.
func (r *Repository) CreateBatch(ctx context.Context, userID uuid.UUID, batch []*models.Route) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository.CreateBatch: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM route WHERE user_id = $1 AND trip_id IS NULL`, userID); err != nil {
		return fmt.Errorf("repository.CreateBatch: prune drafts: %w", err)
	}

	for _, route := range batch {
		var geomWKB []byte
		if route.HasGeometry() {
			if geomWKB, err = wkb.Marshal(route.Geom); err != nil {
				return fmt.Errorf("repository.CreateBatch: encode geometry: %w", err)
			}
		}
		startWKB, err := wkb.Marshal(route.Start)
		if err != nil {
			return fmt.Errorf("repository.CreateBatch: encode start: %w", err)
		}
		finishWKB, err := wkb.Marshal(route.Finish)
		if err != nil {
			return fmt.Errorf("repository.CreateBatch: encode finish: %w", err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO route (id, user_id, profile, geom, start_pt, finish_pt, distance, duration, is_handled)
			VALUES ($1, $2, $3,
				ST_GeomFromWKB($4::bytea, 32637),
				ST_GeomFromWKB($5::bytea, 32637),
				ST_GeomFromWKB($6::bytea, 32637),
				$7, $8, $9)`,
			route.ID, route.UserID, route.Profile, geomWKB, startWKB, finishWKB,
			route.Distance, route.Duration, route.IsHandled)
		if err != nil {
			return fmt.Errorf("repository.CreateBatch: insert: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("repository.CreateBatch: commit: %w", err)
	}
	return nil
}

// CommitTrip marks a route as belonging to a confirmed trip.
func (r *Repository) CommitTrip(ctx context.Context, userID, routeID, tripID uuid.UUID) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository.CommitTrip: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`DELETE FROM route WHERE user_id = $1 AND id <> $2 AND trip_id IS NULL`,
		userID, routeID)
	if err != nil {
		return fmt.Errorf("repository.CommitTrip: prune drafts: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNoDiscardableRoutes
	}

	tag, err = tx.Exec(ctx, `UPDATE route SET trip_id = $1 WHERE id = $2`, tripID, routeID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.ErrTripExists
		}
		return fmt.Errorf("repository.CommitTrip: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	if err := tx.Commit(ctx); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.ErrTripExists
		}
		return fmt.Errorf("repository.CommitTrip: commit: %w", err)
	}
	return nil
}
