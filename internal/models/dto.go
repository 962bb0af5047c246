package models

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// LatLon is a position as clients send it: [lat, lon]. Internally everything
// is lon/lat, so Point reverses the order.
type LatLon [2]float64

// Point returns the position as an orb.Point (lon, lat).
func (l LatLon) Point() orb.Point {
	return orb.Point{l[1], l[0]}
}

// ParseLatLon parses a "lat,lon" query parameter.
func ParseLatLon(s string) (LatLon, error) {
	parts := strings.SplitN(s, ",", 3)
	if len(parts) != 2 {
		return LatLon{}, fmt.Errorf("position must be \"lat,lon\", got %q", s)
	}
	var ll LatLon
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return LatLon{}, fmt.Errorf("position must be \"lat,lon\", got %q", s)
		}
		ll[i] = v
	}
	if ll[0] < -90 || ll[0] > 90 || ll[1] < -180 || ll[1] > 180 {
		return LatLon{}, fmt.Errorf("position out of range: %q", s)
	}
	return ll, nil
}

// DirectionsRequest is the body of POST /routes.
type DirectionsRequest struct {
	UserID       string   `json:"user_id" validate:"required,uuid"`
	Profile      Profile  `json:"profile" validate:"required,oneof=driving-car foot-walking"`
	Positions    []LatLon `json:"positions" validate:"required,min=2"`
	FromRouteID  *string  `json:"from_route_id" validate:"omitempty,uuid"`
	ToRouteID    *string  `json:"to_route_id" validate:"omitempty,uuid"`
	Alternatives bool     `json:"alternatives"`
	Handles      bool     `json:"handles"`
	MakeRoute    *bool    `json:"make_route"`
}

// WantsRoute reports whether an actual path should be paved; defaults to true.
func (r DirectionsRequest) WantsRoute() bool {
	return r.MakeRoute == nil || *r.MakeRoute
}

// DirectionsResponse always carries all three collections, possibly empty,
// so the contract stays stable for the client.
type DirectionsResponse struct {
	Routes         *geojson.FeatureCollection `json:"routes"`
	Handles        *geojson.FeatureCollection `json:"handles"`
	PreparedRoutes *geojson.FeatureCollection `json:"prepared_routes"`
}

// RouteResponse is the body of GET /routes/:id. Full is false when only the
// endpoints were stored and the geometry is the straight start-finish line.
type RouteResponse struct {
	Route *geojson.Feature `json:"route"`
	Full  bool             `json:"full"`
}

// CommitTripRequest is the body of PUT /routes/:id.
type CommitTripRequest struct {
	TripID string `json:"trip_id" validate:"required,uuid"`
	UserID string `json:"user_id" validate:"required,uuid"`
}

// CandidatesRequest is the body of POST /routes/:id/candidates.
type CandidatesRequest struct {
	CandidateRouteIDs []string `json:"candidate_route_ids" validate:"required,dive,uuid"`
}

// MeetingPointRequest upserts a pick-up or drop-off point for a route.
type MeetingPointRequest struct {
	RouteID     string `json:"route_id" validate:"required,uuid"`
	Coordinates LatLon `json:"coordinates" validate:"required"`
}

// PickupSuggestion is the response of GET /routes/:id/suggest_pickup.
// Point is lon/lat, radius and distance are meters.
type PickupSuggestion struct {
	Point        orb.Point     `json:"point"`
	Radius       float64       `json:"radius"`
	Distance     float64       `json:"distance"`
	NearestStops []TransitStop `json:"nearest_stops"`
}

// SnapRequest is the body of POST /positions/snap.
type SnapRequest struct {
	Positions []LatLon `json:"positions" validate:"required,min=1"`
}
