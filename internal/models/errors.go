package models

import "errors"

var (
	// ErrNotFound is returned when a requested route or point does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrDuplicatePosition is returned when a waypoint list contains the same
	// coordinate more than once. Detected before any provider call is made.
	ErrDuplicatePosition = errors.New("duplicate position in waypoint list")

	// ErrTripExists is returned when a trip id is already committed to another route.
	ErrTripExists = errors.New("trip id already exists")

	// ErrNoDiscardableRoutes is returned on commit when the user has no
	// uncommitted sibling routes to prune.
	ErrNoDiscardableRoutes = errors.New("no discardable routes for this user")

	// ErrProfileNotAllowed is returned when an operation is restricted to a
	// particular travel profile, e.g. pick-up points on driver routes.
	ErrProfileNotAllowed = errors.New("operation not allowed for this profile")

	// ErrUpstreamRouting is returned when the directions provider(s) failed.
	ErrUpstreamRouting = errors.New("directions provider failed")

	// ErrUpstreamGeocoding is returned when the geocoding provider(s) failed.
	ErrUpstreamGeocoding = errors.New("geocoding provider failed")
)

// ErrorResponse is the stable JSON error shape returned by every handler.
type ErrorResponse struct {
	Message string `json:"message"`
}
