// Package routing talks to the external directions and geocoding providers
// and normalizes their responses. Routing is a paid, rate-limited upstream:
// every call carries a deadline, and a quota failure on the primary provider
// flips the gateway to the configured fallback for good.
package routing

import (
	"context"
	"errors"
	"fmt"

	"github.com/paulmach/orb"

	"carpool-backend/internal/models"
)

// RouteResult is one path returned by a directions provider, normalized to
// WGS84 lon/lat geometry plus meters and seconds.
type RouteResult struct {
	Geometry orb.LineString `json:"geometry"`
	Distance float64        `json:"distance"`
	Duration float64        `json:"duration"`
}

// Empty reports whether the result carries no usable path. Providers answer
// degenerate requests (coincident points, unroutable snippets) with fewer
// than two coordinates; such results contribute nothing to composition.
func (r RouteResult) Empty() bool {
	return len(r.Geometry) < 2
}

// EmptyRoute is the explicit zero variant used when a tail or head segment
// degenerates.
var EmptyRoute = RouteResult{}

// Place is a geocoding result normalized to the attribute subset the service
// exposes, regardless of the upstream schema.
type Place struct {
	ID       string    `json:"id"`
	Point    orb.Point `json:"point"`
	Address  string    `json:"address"`
	Locality string    `json:"locality"`
}

// DirectionsProvider is one upstream directions engine.
type DirectionsProvider interface {
	// Directions routes through the ordered waypoints. With alternatives it
	// returns up to the configured maximum of independently valid paths.
	Directions(ctx context.Context, positions []orb.Point, profile models.Profile, alternatives bool) ([]RouteResult, error)
	Name() string
}

// GeocodingProvider resolves free-text addresses and coordinates. A miss is
// a nil/empty result, not an error.
type GeocodingProvider interface {
	Geocode(ctx context.Context, text string) (*Place, error)
	ReverseGeocode(ctx context.Context, point orb.Point) (*Place, error)
	Suggest(ctx context.Context, text string) ([]Place, error)
	Name() string
}

// statusError preserves the upstream HTTP status so the gateway can tell a
// quota failure from a plain outage.
type statusError struct {
	provider string
	code     int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.provider, e.code)
}

// quotaExhausted reports whether the error means the provider key is spent.
func quotaExhausted(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code == 403 || se.code == 429
	}
	return false
}
