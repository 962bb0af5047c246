package routing

import (
	"context"
	"fmt"
	"sync"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"carpool-backend/internal/models"
)

// Gateway fronts the external providers. Directions calls go to the primary
// engine; on failure the fallback is attempted exactly once, and a quota
// failure (403/429) on the primary switches the gateway to the fallback for
// the rest of the process lifetime. The switch is an explicit guarded state
// transition, not a process-wide variable.
type Gateway struct {
	mu         sync.Mutex
	onFallback bool

	primary  DirectionsProvider
	fallback DirectionsProvider
	geocoder GeocodingProvider
	log      *zap.Logger
}

// NewGateway wires the providers together. fallback may be nil when no
// secondary engine is configured.
func NewGateway(primary, fallback DirectionsProvider, geocoder GeocodingProvider, log *zap.Logger) *Gateway {
	return &Gateway{
		primary:  primary,
		fallback: fallback,
		geocoder: geocoder,
		log:      log,
	}
}

// attempts returns the providers to try, in order. Once switched, only the
// fallback is consulted.
func (g *Gateway) attempts() []DirectionsProvider {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.onFallback && g.fallback != nil {
		return []DirectionsProvider{g.fallback}
	}
	if g.fallback != nil {
		return []DirectionsProvider{g.primary, g.fallback}
	}
	return []DirectionsProvider{g.primary}
}

func (g *Gateway) switchToFallback(reason error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.onFallback {
		return
	}
	g.onFallback = true
	g.log.Warn("primary directions provider out of quota, switching to fallback",
		zap.String("primary", g.primary.Name()),
		zap.Error(reason))
}

// Directions routes through the ordered waypoints (WGS84 lon/lat). Requests
// are never retried against the same provider: routing is paid per call.
func (g *Gateway) Directions(ctx context.Context, positions []orb.Point, profile models.Profile, alternatives bool) ([]RouteResult, error) {
	if len(positions) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 waypoints", models.ErrUpstreamRouting)
	}

	var lastErr error
	for _, provider := range g.attempts() {
		routes, err := provider.Directions(ctx, positions, profile, alternatives)
		if err == nil {
			return routes, nil
		}
		lastErr = err
		if provider == g.primary && quotaExhausted(err) {
			g.switchToFallback(err)
			continue
		}
		if provider == g.primary && g.fallback != nil {
			g.log.Warn("primary directions provider failed, trying fallback once",
				zap.String("primary", provider.Name()), zap.Error(err))
			continue
		}
		break
	}
	return nil, fmt.Errorf("%w: %v", models.ErrUpstreamRouting, lastErr)
}

// Geocode resolves free text to the best-matching place, or nil when nothing
// was found.
func (g *Gateway) Geocode(ctx context.Context, text string) (*Place, error) {
	place, err := g.geocoder.Geocode(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUpstreamGeocoding, err)
	}
	return place, nil
}

// ReverseGeocode resolves a lon/lat point to the nearest address.
func (g *Gateway) ReverseGeocode(ctx context.Context, point orb.Point) (*Place, error) {
	place, err := g.geocoder.ReverseGeocode(ctx, point)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUpstreamGeocoding, err)
	}
	return place, nil
}

// Suggest returns ranked autocomplete matches inside the supported regions.
func (g *Gateway) Suggest(ctx context.Context, text string) ([]Place, error) {
	places, err := g.geocoder.Suggest(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUpstreamGeocoding, err)
	}
	return places, nil
}
