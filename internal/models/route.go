package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
)

// Profile is the travel mode a route was built for. It selects the vehicle
// class at the directions provider and drives matching eligibility rules.
type Profile string

const (
	ProfileDriving Profile = "driving-car"
	ProfileWalking Profile = "foot-walking"
)

// Valid reports whether the profile is one of the supported travel modes.
func (p Profile) Valid() bool {
	return p == ProfileDriving || p == ProfileWalking
}

// Route is a stored path, immutable once created. Geometry and endpoints are
// kept in the planar projected system (EPSG:32637); callers always see WGS84.
// Geom is nil for endpoints-only routes (make_route=false).
type Route struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TripID    *uuid.UUID
	Profile   Profile
	Geom      orb.LineString
	Start     orb.Point
	Finish    orb.Point
	Distance  float64
	Duration  float64
	IsHandled bool
	CreatedAt time.Time
}

// Committed reports whether the route belongs to a confirmed trip.
func (r *Route) Committed() bool {
	return r.TripID != nil
}

// HasGeometry reports whether an actual path was paved for this route.
func (r *Route) HasGeometry() bool {
	return len(r.Geom) >= 2
}

// MeetingPoint is a pick-up or drop-off location tied 1:1 to a passenger
// route. Geometry is projected, like everything else in the store.
type MeetingPoint struct {
	ID        uuid.UUID
	RouteID   uuid.UUID
	Geom      orb.Point
	CreatedAt time.Time
}

// TransitStop is a known public-transport stop near which passengers can be
// picked up.
type TransitStop struct {
	ID   int64     `json:"id"`
	Name string    `json:"name"`
	Geom orb.Point `json:"-"`
}
